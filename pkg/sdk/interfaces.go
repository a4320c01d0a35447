// Package sdk provides the client-side contract for the looply event store.
// The embedded engine and the remote TCP client both implement Store, so
// callers do not care whether data lives in-process or behind a daemon.
package sdk

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/celerix-dev/looply/pkg/habit"
)

var (
	// ErrProfileNotFound is returned when a requested profile does not exist.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrUserNotFound is returned when a profile has no signed-up user.
	ErrUserNotFound = errors.New("user not found")
	// ErrHabitNotFound is returned when a habit id is unknown within a profile.
	ErrHabitNotFound = errors.New("habit not found")
	// ErrLogNotFound is returned when a log id is unknown within a profile.
	ErrLogNotFound = errors.New("log not found")
	// ErrInvalidProfile is returned for profile ids that cannot be stored.
	ErrInvalidProfile = errors.New("invalid profile id")
	// ErrDuplicateID is returned when an added habit or log reuses an existing id.
	ErrDuplicateID = errors.New("duplicate id")
)

var profileIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateProfileID rejects ids that are not safe as file names and wire tokens.
func ValidateProfileID(id string) error {
	if !profileIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidProfile, id)
	}
	return nil
}

// --- Functional Interfaces ---

// ProfileReader reads the user and settings of a profile.
type ProfileReader interface {
	Profiles() ([]string, error)
	User(profileID string) (habit.User, error)
	Settings(profileID string) (habit.Settings, error)
}

// ProfileWriter updates the user and settings of a profile.
type ProfileWriter interface {
	SetUser(profileID string, u habit.User) error
	UpdateSettings(profileID string, p habit.SettingsPatch) (habit.Settings, error)
	// Reset removes everything stored for the profile.
	Reset(profileID string) error
}

// HabitReader returns the habit and log collections in insertion order.
type HabitReader interface {
	Habits(profileID string) ([]habit.Habit, error)
	Logs(profileID string) ([]habit.Log, error)
}

// HabitWriter appends and updates habits and logs. There is no hard delete;
// archiving a habit is an update of its active flag.
type HabitWriter interface {
	AddHabit(profileID string, h habit.Habit) (habit.Habit, error)
	UpdateHabit(profileID, habitID string, p habit.HabitPatch) (habit.Habit, error)
	AddLog(profileID string, l habit.Log) (habit.Log, error)
	UpdateLog(profileID, logID string, p habit.LogPatch) (habit.Log, error)
}

// BatchExporter moves whole profiles in and out of a store.
type BatchExporter interface {
	Snapshot(profileID string) (habit.Snapshot, error)
	Restore(profileID string, s habit.Snapshot) error
}

// --- Composite Interfaces ---

// Store is the primary interface of the event store.
type Store interface {
	ProfileReader
	ProfileWriter
	HabitReader
	HabitWriter
	BatchExporter

	// Profile returns a ProfileScope pinned to one profile.
	Profile(profileID string) ProfileScope
	// Close flushes pending writes and releases connections.
	Close() error
}

// ProfileScope is a Store view pinned to a single profile.
type ProfileScope interface {
	ID() string
	User() (habit.User, error)
	SetUser(u habit.User) error
	Settings() (habit.Settings, error)
	UpdateSettings(p habit.SettingsPatch) (habit.Settings, error)
	Habits() ([]habit.Habit, error)
	Logs() ([]habit.Log, error)
	AddHabit(h habit.Habit) (habit.Habit, error)
	UpdateHabit(habitID string, p habit.HabitPatch) (habit.Habit, error)
	AddLog(l habit.Log) (habit.Log, error)
	UpdateLog(logID string, p habit.LogPatch) (habit.Log, error)
	Reset() error
}
