package analytics

import (
	"time"

	"github.com/celerix-dev/looply/pkg/habit"
)

// WeekStart returns midnight of the most recent Sunday on or before today.
func WeekStart(today time.Time) time.Time {
	day := habit.Day(today)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// WeekDays lists the days of the current week from WeekStart up to and
// including today. Days after today are never part of the window.
func WeekDays(today time.Time) []time.Time {
	start := WeekStart(today)
	end := habit.Day(today)

	days := make([]time.Time, 0, 7)
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		if day.After(end) {
			break
		}
		days = append(days, day)
	}
	return days
}

// WeekProgress is the share, in whole percent, of (active habit, day) slots
// in the current week that have a completed log. Inactive habits are ignored
// and the result is 0 when there is nothing to count.
func WeekProgress(habits []habit.Habit, logs []habit.Log, today time.Time) int {
	done := completedIndex(logs)

	var expected, completed int
	for _, day := range WeekDays(today) {
		date := habit.FormatDate(day)
		for _, h := range habits {
			if !h.Active {
				continue
			}
			expected++
			if _, ok := done[slot{h.ID, date}]; ok {
				completed++
			}
		}
	}
	return Percent(completed, expected)
}

// Percent returns part/total as a whole percentage rounded half up, or 0 when
// total is 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*part + total) / (2 * total)
}

type slot struct {
	habitID string
	date    string
}

// completedIndex collects every (habit, date) pair with a completed log.
// Duplicate logs collapse into one slot.
func completedIndex(logs []habit.Log) map[slot]struct{} {
	idx := make(map[slot]struct{}, len(logs))
	for _, l := range logs {
		if l.Completed {
			idx[slot{l.HabitID, l.Date}] = struct{}{}
		}
	}
	return idx
}
