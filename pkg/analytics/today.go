package analytics

import (
	"time"

	"github.com/celerix-dev/looply/pkg/habit"
)

// TodayLog returns the first log, in collection order, for h dated today.
// Completion is not considered. Later duplicates for the same day are ignored.
func TodayLog(h habit.Habit, logs []habit.Log, today time.Time) (habit.Log, bool) {
	date := habit.FormatDate(today)
	for _, l := range logs {
		if l.HabitID == h.ID && l.Date == date {
			return l, true
		}
	}
	return habit.Log{}, false
}

// CompletedToday counts active habits whose today log is marked completed.
func CompletedToday(habits []habit.Habit, logs []habit.Log, today time.Time) int {
	n := 0
	for _, h := range habits {
		if !h.Active {
			continue
		}
		if l, ok := TodayLog(h, logs, today); ok && l.Completed {
			n++
		}
	}
	return n
}

// DayComplete reports whether there is at least one active habit and every
// active habit has a completed today log.
func DayComplete(habits []habit.Habit, logs []habit.Log, today time.Time) bool {
	active := ActiveHabits(habits)
	return len(active) > 0 && CompletedToday(active, logs, today) == len(active)
}

// ActiveHabits filters out archived habits, preserving order.
func ActiveHabits(habits []habit.Habit) []habit.Habit {
	out := make([]habit.Habit, 0, len(habits))
	for _, h := range habits {
		if h.Active {
			out = append(out, h)
		}
	}
	return out
}
