package sdk

import "github.com/celerix-dev/looply/pkg/habit"

// Scope pins any Store to a profile.
func Scope(s Store, profileID string) ProfileScope {
	return &profileScope{store: s, profileID: profileID}
}

type profileScope struct {
	store     Store
	profileID string
}

func (p *profileScope) ID() string { return p.profileID }

func (p *profileScope) User() (habit.User, error) {
	return p.store.User(p.profileID)
}

func (p *profileScope) SetUser(u habit.User) error {
	return p.store.SetUser(p.profileID, u)
}

func (p *profileScope) Settings() (habit.Settings, error) {
	return p.store.Settings(p.profileID)
}

func (p *profileScope) UpdateSettings(patch habit.SettingsPatch) (habit.Settings, error) {
	return p.store.UpdateSettings(p.profileID, patch)
}

func (p *profileScope) Habits() ([]habit.Habit, error) {
	return p.store.Habits(p.profileID)
}

func (p *profileScope) Logs() ([]habit.Log, error) {
	return p.store.Logs(p.profileID)
}

func (p *profileScope) AddHabit(h habit.Habit) (habit.Habit, error) {
	return p.store.AddHabit(p.profileID, h)
}

func (p *profileScope) UpdateHabit(habitID string, patch habit.HabitPatch) (habit.Habit, error) {
	return p.store.UpdateHabit(p.profileID, habitID, patch)
}

func (p *profileScope) AddLog(l habit.Log) (habit.Log, error) {
	return p.store.AddLog(p.profileID, l)
}

func (p *profileScope) UpdateLog(logID string, patch habit.LogPatch) (habit.Log, error) {
	return p.store.UpdateLog(p.profileID, logID, patch)
}

func (p *profileScope) Reset() error {
	return p.store.Reset(p.profileID)
}
