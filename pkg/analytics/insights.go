package analytics

import (
	"time"

	"github.com/celerix-dev/looply/pkg/habit"
)

// DaySummary is the completion count of active habits on one day.
type DaySummary struct {
	Date      string       `json:"date"`
	Weekday   time.Weekday `json:"weekday"`
	Completed int          `json:"completed"`
	Total     int          `json:"total"`
}

// Percent is the day's completion in whole percent.
func (d DaySummary) Percent() int {
	return Percent(d.Completed, d.Total)
}

// LastSevenDays summarizes the rolling window of six days before today plus today,
// oldest first.
func LastSevenDays(habits []habit.Habit, logs []habit.Log, today time.Time) []DaySummary {
	active := ActiveHabits(habits)
	done := completedIndex(logs)
	start := habit.Day(today).AddDate(0, 0, -6)

	days := make([]DaySummary, 0, 7)
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		date := habit.FormatDate(day)
		s := DaySummary{Date: date, Weekday: day.Weekday(), Total: len(active)}
		for _, h := range active {
			if _, ok := done[slot{h.ID, date}]; ok {
				s.Completed++
			}
		}
		days = append(days, s)
	}
	return days
}

// CompletionRate aggregates day summaries into a whole percentage.
func CompletionRate(days []DaySummary) int {
	var completed, total int
	for _, d := range days {
		completed += d.Completed
		total += d.Total
	}
	return Percent(completed, total)
}

// BestDay returns the day with the most completions. Ties go to the earliest day.
func BestDay(days []DaySummary) (DaySummary, bool) {
	if len(days) == 0 {
		return DaySummary{}, false
	}
	best := days[0]
	for _, d := range days[1:] {
		if d.Completed > best.Completed {
			best = d
		}
	}
	return best, true
}

// HardestDay returns the day with the fewest completions. Ties go to the earliest day.
func HardestDay(days []DaySummary) (DaySummary, bool) {
	if len(days) == 0 {
		return DaySummary{}, false
	}
	worst := days[0]
	for _, d := range days[1:] {
		if d.Completed < worst.Completed {
			worst = d
		}
	}
	return worst, true
}

// Consistency pairs an active habit with its current streak and the number
// of days it was completed in the current week.
type Consistency struct {
	Habit    habit.Habit `json:"habit"`
	Streak   int         `json:"streak"`
	WeekDays int         `json:"weekDays"`
}

// HabitConsistency computes Consistency for every active habit, in order.
// The week window is the same one WeekProgress uses.
func HabitConsistency(habits []habit.Habit, logs []habit.Log, today time.Time) []Consistency {
	done := completedIndex(logs)
	week := WeekDays(today)

	out := make([]Consistency, 0, len(habits))
	for _, h := range ActiveHabits(habits) {
		c := Consistency{Habit: h, Streak: Streak(h, logs, today)}
		for _, day := range week {
			if _, ok := done[slot{h.ID, habit.FormatDate(day)}]; ok {
				c.WeekDays++
			}
		}
		out = append(out, c)
	}
	return out
}

// MostConsistent picks the active habit completed on the most days this week.
// Ties go to the habit that comes first.
func MostConsistent(habits []habit.Habit, logs []habit.Log, today time.Time) (Consistency, bool) {
	all := HabitConsistency(habits, logs, today)
	if len(all) == 0 {
		return Consistency{}, false
	}
	best := all[0]
	for _, c := range all[1:] {
		if c.WeekDays > best.WeekDays {
			best = c
		}
	}
	return best, true
}

// TopStreak is the longest current streak among active habits.
func TopStreak(habits []habit.Habit, logs []habit.Log, today time.Time) int {
	top := 0
	for _, h := range ActiveHabits(habits) {
		if s := Streak(h, logs, today); s > top {
			top = s
		}
	}
	return top
}
