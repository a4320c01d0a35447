package habit

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidHabit is returned when a habit fails validation.
	ErrInvalidHabit = errors.New("invalid habit")
	// ErrInvalidLog is returned when a log fails validation.
	ErrInvalidLog = errors.New("invalid log")
	// ErrInvalidUser is returned when a user fails validation.
	ErrInvalidUser = errors.New("invalid user")
	// ErrInvalidSettings is returned when settings fail validation.
	ErrInvalidSettings = errors.New("invalid settings")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(targetAndUnit, Habit{})
	return v
}

// targetAndUnit enforces that a habit carries both a target and a unit, or neither.
func targetAndUnit(sl validator.StructLevel) {
	h := sl.Current().Interface().(Habit)
	if (h.Target == nil) != (h.Unit == nil) {
		sl.ReportError(h.Target, "target", "Target", "target_unit", "")
	}
}

// Validate checks the habit fields and the target/unit pairing.
func (h Habit) Validate() error {
	return check(h, ErrInvalidHabit)
}

// Validate checks the log references a habit and carries a well-formed date.
func (l Log) Validate() error {
	return check(l, ErrInvalidLog)
}

// Validate checks the user record.
func (u User) Validate() error {
	return check(u, ErrInvalidUser)
}

// Validate checks the settings values.
func (s Settings) Validate() error {
	return check(s, ErrInvalidSettings)
}

func check(v any, kind error) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", kind, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", kind, strings.Join(msgs, "; "))
}
