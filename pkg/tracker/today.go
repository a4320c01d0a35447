package tracker

import (
	"fmt"

	"github.com/celerix-dev/looply/pkg/analytics"
	"github.com/celerix-dev/looply/pkg/habit"
)

// ToggleToday flips completion on today's log of a habit, or creates a
// completed log when there is none yet.
func (s *Service) ToggleToday(profileID, habitID string) (habit.Log, error) {
	today := s.clock.Now()
	h, logs, err := s.habitAndLogs(profileID, habitID)
	if err != nil {
		return habit.Log{}, err
	}

	if l, ok := analytics.TodayLog(h, logs, today); ok {
		completed := !l.Completed
		return s.store.UpdateLog(profileID, l.ID, habit.LogPatch{Completed: &completed})
	}
	return s.store.AddLog(profileID, habit.Log{
		HabitID:   h.ID,
		Date:      habit.FormatDate(today),
		Completed: true,
		CreatedAt: today.UTC(),
	})
}

// SetTodayValue records a measured value for today. A new log starts out
// not completed; completion stays a separate toggle.
func (s *Service) SetTodayValue(profileID, habitID string, value float64) (habit.Log, error) {
	if value < 0 {
		return habit.Log{}, fmt.Errorf("%w: value must not be negative", habit.ErrInvalidLog)
	}
	today := s.clock.Now()
	h, logs, err := s.habitAndLogs(profileID, habitID)
	if err != nil {
		return habit.Log{}, err
	}

	if l, ok := analytics.TodayLog(h, logs, today); ok {
		return s.store.UpdateLog(profileID, l.ID, habit.LogPatch{Value: &value})
	}
	return s.store.AddLog(profileID, habit.Log{
		HabitID:   h.ID,
		Date:      habit.FormatDate(today),
		Value:     &value,
		CreatedAt: today.UTC(),
	})
}

// CompleteDay reports whether every active habit is completed today.
func (s *Service) CompleteDay(profileID string) (bool, error) {
	today := s.clock.Now()
	habits, err := s.store.Habits(profileID)
	if err != nil {
		return false, err
	}
	logs, err := s.store.Logs(profileID)
	if err != nil {
		return false, err
	}
	return analytics.DayComplete(habits, logs, today), nil
}

func (s *Service) habitAndLogs(profileID, habitID string) (habit.Habit, []habit.Log, error) {
	h, err := s.findHabit(profileID, habitID)
	if err != nil {
		return habit.Habit{}, nil, err
	}
	logs, err := s.store.Logs(profileID)
	if err != nil {
		return habit.Habit{}, nil, err
	}
	return h, logs, nil
}
