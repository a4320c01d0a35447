package tracker

import (
	"errors"
	"time"

	"github.com/celerix-dev/looply/pkg/analytics"
	"github.com/celerix-dev/looply/pkg/habit"
	"github.com/celerix-dev/looply/pkg/sdk"
)

// HabitStatus is one row of the dashboard.
type HabitStatus struct {
	Habit  habit.Habit `json:"habit"`
	Streak int         `json:"streak"`
	Today  *habit.Log  `json:"today,omitempty"`
	Done   bool        `json:"done"`
}

// Dashboard is the home screen of a profile.
type Dashboard struct {
	Greeting       string        `json:"greeting"`
	UserName       string        `json:"userName,omitempty"`
	Date           string        `json:"date"`
	ActiveHabits   int           `json:"activeHabits"`
	CompletedToday int           `json:"completedToday"`
	WeekProgress   int           `json:"weekProgress"`
	DayComplete    bool          `json:"dayComplete"`
	Habits         []HabitStatus `json:"habits"`
	// NeedsOnboarding is set when the profile has no active habit yet.
	NeedsOnboarding bool `json:"needsOnboarding"`
	ShowUpgrade     bool `json:"showUpgrade"`
}

// ProInsights are only computed for pro users.
type ProInsights struct {
	ActiveHabits int                     `json:"activeHabits"`
	TopStreak    int                     `json:"topStreak"`
	Consistency  []analytics.Consistency `json:"consistency"`
}

// Insights summarizes the last seven days.
type Insights struct {
	Days           []analytics.DaySummary `json:"days"`
	CompletionRate int                    `json:"completionRate"`
	BestDay        *analytics.DaySummary  `json:"bestDay,omitempty"`
	HardestDay     *analytics.DaySummary  `json:"hardestDay,omitempty"`
	MostConsistent *analytics.Consistency `json:"mostConsistent,omitempty"`
	Pro            *ProInsights           `json:"pro,omitempty"`
}

// Greeting picks the salutation for the hour of t.
func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "Good morning"
	case h < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

// Dashboard computes the home screen from one consistent read of the profile.
func (s *Service) Dashboard(profileID string) (Dashboard, error) {
	now := s.clock.Now()
	u, habits, logs, err := s.load(profileID)
	if err != nil {
		return Dashboard{}, err
	}

	active := analytics.ActiveHabits(habits)
	d := Dashboard{
		Greeting:        Greeting(now),
		Date:            habit.FormatDate(now),
		ActiveHabits:    len(active),
		CompletedToday:  analytics.CompletedToday(habits, logs, now),
		WeekProgress:    analytics.WeekProgress(habits, logs, now),
		DayComplete:     analytics.DayComplete(habits, logs, now),
		Habits:          make([]HabitStatus, 0, len(active)),
		NeedsOnboarding: len(active) == 0,
	}
	if u != nil {
		d.UserName = u.Name
		d.ShowUpgrade = !u.IsPro()
	}

	for _, h := range active {
		row := HabitStatus{Habit: h, Streak: analytics.Streak(h, logs, now)}
		if l, ok := analytics.TodayLog(h, logs, now); ok {
			row.Today = &l
			row.Done = l.Completed
		}
		d.Habits = append(d.Habits, row)
	}
	return d, nil
}

// Insights computes the weekly breakdown shown on the insights screen.
func (s *Service) Insights(profileID string) (Insights, error) {
	now := s.clock.Now()
	u, habits, logs, err := s.load(profileID)
	if err != nil {
		return Insights{}, err
	}

	days := analytics.LastSevenDays(habits, logs, now)
	in := Insights{
		Days:           days,
		CompletionRate: analytics.CompletionRate(days),
	}
	if best, ok := analytics.BestDay(days); ok {
		in.BestDay = &best
	}
	if hardest, ok := analytics.HardestDay(days); ok {
		in.HardestDay = &hardest
	}
	if c, ok := analytics.MostConsistent(habits, logs, now); ok {
		in.MostConsistent = &c
	}
	if u != nil && u.IsPro() {
		in.Pro = &ProInsights{
			ActiveHabits: len(analytics.ActiveHabits(habits)),
			TopStreak:    analytics.TopStreak(habits, logs, now),
			Consistency:  analytics.HabitConsistency(habits, logs, now),
		}
	}
	return in, nil
}

// load reads the user (nil when not signed up), habits and logs of a profile.
func (s *Service) load(profileID string) (*habit.User, []habit.Habit, []habit.Log, error) {
	var user *habit.User
	u, err := s.store.User(profileID)
	switch {
	case err == nil:
		user = &u
	case !errors.Is(err, sdk.ErrUserNotFound):
		return nil, nil, nil, err
	}

	habits, err := s.store.Habits(profileID)
	if err != nil {
		return nil, nil, nil, err
	}
	logs, err := s.store.Logs(profileID)
	if err != nil {
		return nil, nil, nil, err
	}
	return user, habits, logs, nil
}
