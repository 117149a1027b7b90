package session

import (
	"time"

	"github.com/khanhnv2901/seca-suite/internal/shared/constants"
)

// LockoutPolicy controls brute-force throttling
type LockoutPolicy struct {
	MaxAttempts int
	Window      time.Duration
}

// DefaultLockoutPolicy locks the gate for five minutes after three failures.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		MaxAttempts: constants.DefaultMaxLoginAttempts,
		Window:      constants.DefaultLockoutWindow,
	}
}

// Normalize fills zero values with the defaults
func (p LockoutPolicy) Normalize() LockoutPolicy {
	def := DefaultLockoutPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.Window <= 0 {
		p.Window = def.Window
	}
	return p
}

// LoginAttemptState tracks consecutive failures and the lockout deadline.
// A zero LockoutUntil means no lockout is set.
type LoginAttemptState struct {
	Failures     int
	LockoutUntil time.Time
}

// Locked reports whether the deadline lies in the future
func (s LoginAttemptState) Locked(now time.Time) bool {
	return !s.LockoutUntil.IsZero() && now.Before(s.LockoutUntil)
}

// Remaining is the time left until the lockout expires, or zero.
func (s LoginAttemptState) Remaining(now time.Time) time.Duration {
	if !s.Locked(now) {
		return 0
	}
	return s.LockoutUntil.Sub(now)
}

// ClearIfExpired resets the counter and marker once a lockout deadline has
// passed. It returns true when the state changed.
func (s *LoginAttemptState) ClearIfExpired(now time.Time) bool {
	if s.LockoutUntil.IsZero() || now.Before(s.LockoutUntil) {
		return false
	}
	s.Failures = 0
	s.LockoutUntil = time.Time{}
	return true
}

// RecordFailure counts a failed comparison. When the threshold is reached the
// lockout window starts and true is returned.
func (s *LoginAttemptState) RecordFailure(policy LockoutPolicy, now time.Time) bool {
	policy = policy.Normalize()
	s.Failures++
	if s.Failures >= policy.MaxAttempts {
		s.LockoutUntil = now.Add(policy.Window)
		return true
	}
	return false
}

// AttemptsRemaining returns how many failures are left before lockout
func (s LoginAttemptState) AttemptsRemaining(policy LockoutPolicy) int {
	policy = policy.Normalize()
	remaining := policy.MaxAttempts - s.Failures
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears failures and any lockout
func (s *LoginAttemptState) Reset() {
	s.Failures = 0
	s.LockoutUntil = time.Time{}
}
