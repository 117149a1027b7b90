package session

import (
	"fmt"
	"time"

	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

// InvalidCredentialsError is returned for a wrong username or password while
// the gate still accepts attempts.
type InvalidCredentialsError struct {
	AttemptsRemaining int
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials: %d attempt(s) remaining", e.AttemptsRemaining)
}

func (e *InvalidCredentialsError) Is(target error) bool {
	return target == sharedErrors.ErrInvalidCredentials
}

// LockedError is returned while the lockout window is active.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked: try again in %s", e.Remaining.Round(time.Second))
}

func (e *LockedError) Is(target error) bool {
	return target == sharedErrors.ErrAccountLocked
}

// RemainingMillis matches the countdown unit used by clients
func (e *LockedError) RemainingMillis() int64 {
	return e.Remaining.Milliseconds()
}
