// Package analytics derives streaks and completion rates from habit logs.
//
// Every function is pure: it reads the habits and logs it is given, never
// mutates them, and takes the reference day as an argument instead of
// reading a clock. Only the calendar date of today matters; its location
// decides which day that is.
package analytics

import (
	"time"

	"github.com/celerix-dev/looply/pkg/habit"
)

// MaxStreakDays bounds the backward walk of Streak. Longer streaks are
// reported as MaxStreakDays.
const MaxStreakDays = 365

// Streak counts consecutive days with a completed log for h, walking back
// from today. A missing log today does not break the streak; any other gap does.
func Streak(h habit.Habit, logs []habit.Log, today time.Time) int {
	done := completedDates(h.ID, logs)
	if len(done) == 0 {
		return 0
	}

	streak := 0
	day := habit.Day(today)
	for i := 0; i < MaxStreakDays; i++ {
		if _, ok := done[habit.FormatDate(day)]; ok {
			streak++
		} else if i > 0 {
			break
		}
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// completedDates returns the set of dates on which habitID has a completed log.
func completedDates(habitID string, logs []habit.Log) map[string]struct{} {
	dates := make(map[string]struct{})
	for _, l := range logs {
		if l.HabitID == habitID && l.Completed {
			dates[l.Date] = struct{}{}
		}
	}
	return dates
}
