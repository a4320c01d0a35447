package sdk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/celerix-dev/looply/pkg/habit"
)

// wireErrors are the sentinels that survive a round trip over the TCP protocol.
var wireErrors = []error{
	ErrProfileNotFound,
	ErrUserNotFound,
	ErrHabitNotFound,
	ErrLogNotFound,
	ErrInvalidProfile,
	ErrDuplicateID,
	habit.ErrInvalidHabit,
	habit.ErrInvalidLog,
	habit.ErrInvalidUser,
	habit.ErrInvalidSettings,
}

// DecodeError turns an "ERR" message back into an error that matches the
// original sentinel with errors.Is.
func DecodeError(msg string) error {
	for _, sentinel := range wireErrors {
		text := sentinel.Error()
		if msg == text {
			return sentinel
		}
		if strings.HasPrefix(msg, text+":") {
			return fmt.Errorf("%w%s", sentinel, strings.TrimPrefix(msg, text))
		}
	}
	return errors.New(msg)
}
