package session

import (
	"errors"
	"time"
)

// Role grants access levels inside the suite
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole returns the role for a configured value, defaulting to user.
func ParseRole(value string) Role {
	if Role(value) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Session represents an authenticated principal with a bounded lifetime
type Session struct {
	id        string
	subjectID string
	username  string
	role      Role
	issuedAt  time.Time
	expiresAt time.Time
}

// NewSession creates a session that expires ttl after issuedAt
func NewSession(id, subjectID, username string, role Role, issuedAt time.Time, ttl time.Duration) (*Session, error) {
	if id == "" {
		return nil, errors.New("session ID cannot be empty")
	}
	if username == "" {
		return nil, errors.New("session username cannot be empty")
	}
	if ttl <= 0 {
		return nil, errors.New("session TTL must be positive")
	}

	return &Session{
		id:        id,
		subjectID: subjectID,
		username:  username,
		role:      role,
		issuedAt:  issuedAt,
		expiresAt: issuedAt.Add(ttl),
	}, nil
}

// Reconstruct creates a session from decoded token claims
func Reconstruct(id, subjectID, username string, role Role, issuedAt, expiresAt time.Time) *Session {
	return &Session{
		id:        id,
		subjectID: subjectID,
		username:  username,
		role:      role,
		issuedAt:  issuedAt,
		expiresAt: expiresAt,
	}
}

// Valid reports whether the session is still usable at now
func (s *Session) Valid(now time.Time) bool {
	return now.Before(s.expiresAt)
}

// IsAdmin reports whether the session may mutate privileged content
func (s *Session) IsAdmin() bool {
	return s.role == RoleAdmin
}

// Getters

func (s *Session) ID() string {
	return s.id
}

func (s *Session) SubjectID() string {
	return s.subjectID
}

func (s *Session) Username() string {
	return s.username
}

func (s *Session) Role() Role {
	return s.role
}

func (s *Session) IssuedAt() time.Time {
	return s.issuedAt
}

func (s *Session) ExpiresAt() time.Time {
	return s.expiresAt
}
