package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/celerix-dev/looply/pkg/habit"
	"github.com/celerix-dev/looply/pkg/sdk"
	"github.com/celerix-dev/looply/pkg/tracker"
)

// CLIError wraps domain errors with a user-facing message and a hint.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with exit code 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{Message: msg, Hint: hint, Err: err, ExitCode: 1}
}

// MapError converts known errors into CLIErrors. Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	switch {
	case errors.Is(err, tracker.ErrHabitLimit):
		return NewCLIError("free plan habit limit reached", "Archive a habit or run 'looply upgrade'", err)
	case errors.Is(err, tracker.ErrNoUser), errors.Is(err, sdk.ErrUserNotFound):
		return NewCLIError("no user signed up", "Run 'looply signup --name <name>' first", err)
	case errors.Is(err, tracker.ErrUnknownPreset):
		return NewCLIError("unknown preset", "Valid presets: walk, water, meditate, sleep", err)
	case errors.Is(err, tracker.ErrEmptyOnboarding):
		return NewCLIError("nothing to onboard", "Pass --preset or --custom", err)
	case errors.Is(err, sdk.ErrHabitNotFound):
		return NewCLIError("habit not found", "Run 'looply habit list --all' to see habit ids", err)
	case errors.Is(err, sdk.ErrLogNotFound):
		return NewCLIError("log not found", "Run 'looply log list' to see log ids", err)
	case errors.Is(err, sdk.ErrInvalidProfile):
		return NewCLIError("invalid profile id", "Use letters, digits, '-' or '_' (at most 64)", err)
	case errors.Is(err, habit.ErrInvalidHabit), errors.Is(err, habit.ErrInvalidLog):
		return NewCLIError("invalid input", "A target needs a unit and must be positive", err)
	}
	return err
}

func printError(w io.Writer, err error) {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		fmt.Fprintln(w, statusErr.Render("Error: "+cliErr.Message))
		if cliErr.Hint != "" {
			fmt.Fprintln(w, hintStyle.Render("Hint: "+cliErr.Hint))
		}
		return
	}
	fmt.Fprintln(w, statusErr.Render("Error: "+err.Error()))
}
