package session

import (
	"context"
	"time"
)

// StateRepository persists the gate record.
type StateRepository interface {
	// Load returns the stored state. Missing or unreadable records load as
	// an empty state; only IO failures are errors.
	Load(ctx context.Context) (*GateState, error)

	// Save writes the state, replacing any previous record
	Save(ctx context.Context, state *GateState) error

	// Clear removes the record entirely
	Clear(ctx context.Context) error
}

// Identity is a principal whose credentials were verified
type Identity struct {
	SubjectID string
	Username  string
	Role      Role
}

// CredentialVerifier checks a username/password pair.
type CredentialVerifier interface {
	// Verify returns the identity on a match and ErrInvalidCredentials otherwise.
	Verify(ctx context.Context, username, password string) (*Identity, error)
}

// TokenCodec turns sessions into signed tokens and back.
type TokenCodec interface {
	Issue(identity Identity, issuedAt time.Time, ttl time.Duration) (token string, sess *Session, err error)
	Parse(token string) (*Session, error)
	Revoke(sess *Session) error
}
