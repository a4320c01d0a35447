// Package habit defines the records looply keeps for a profile: habits,
// their daily logs, the signed-up user and the app settings.
package habit

import (
	"time"

	"github.com/google/uuid"
)

// Type tags a habit with one of the fixed categories.
type Type string

const (
	TypeWalk     Type = "walk"
	TypeWater    Type = "water"
	TypeMeditate Type = "meditate"
	TypeSleep    Type = "sleep"
	TypeCustom   Type = "custom"
)

// Frequency describes how often a habit is expected. Only daily is modeled.
type Frequency string

const FrequencyDaily Frequency = "daily"

// Habit is a recurring activity tracked once per calendar day.
// Target and Unit are either both set or both nil.
type Habit struct {
	ID        string    `json:"id"`
	Title     string    `json:"title" validate:"required,max=120"`
	Type      Type      `json:"type" validate:"oneof=walk water meditate sleep custom"`
	Frequency Frequency `json:"frequency" validate:"oneof=daily"`
	Target    *float64  `json:"target,omitempty" validate:"omitempty,gt=0"`
	Unit      *string   `json:"unit,omitempty" validate:"omitempty,max=20"`
	CreatedAt time.Time `json:"createdAt"`
	Active    bool      `json:"active"`
}

// HasTarget reports whether the habit carries a numeric target.
func (h Habit) HasTarget() bool {
	return h.Target != nil && h.Unit != nil
}

// HabitPatch holds an in-place update of a habit. Nil fields are left untouched.
type HabitPatch struct {
	Title  *string  `json:"title,omitempty"`
	Target *float64 `json:"target,omitempty"`
	Unit   *string  `json:"unit,omitempty"`
	Active *bool    `json:"active,omitempty"`
}

// Apply returns a copy of h with the patch merged in.
func (h Habit) Apply(p HabitPatch) Habit {
	if p.Title != nil {
		h.Title = *p.Title
	}
	if p.Target != nil {
		v := *p.Target
		h.Target = &v
	}
	if p.Unit != nil {
		v := *p.Unit
		h.Unit = &v
	}
	if p.Active != nil {
		h.Active = *p.Active
	}
	return h
}

// Log records progress on a habit for one calendar date.
// Date is always YYYY-MM-DD in the local calendar.
type Log struct {
	ID        string    `json:"id"`
	HabitID   string    `json:"habitId" validate:"required"`
	Date      string    `json:"date" validate:"required,datetime=2006-01-02"`
	Value     *float64  `json:"value,omitempty"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// LogPatch holds an in-place update of a log.
type LogPatch struct {
	Value     *float64 `json:"value,omitempty"`
	Completed *bool    `json:"completed,omitempty"`
}

// Apply returns a copy of l with the patch merged in.
func (l Log) Apply(p LogPatch) Log {
	if p.Value != nil {
		v := *p.Value
		l.Value = &v
	}
	if p.Completed != nil {
		l.Completed = *p.Completed
	}
	return l
}

// NewID returns a fresh random identifier for habits, logs and users.
func NewID() string {
	return uuid.NewString()
}

// Float returns a pointer to v. Handy for optional targets and values.
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}
