package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/khanhnv2901/seca-suite/internal/domain/session"
	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
	"golang.org/x/crypto/bcrypt"
)

// UserConfig is a configured account. PasswordHash is a bcrypt hash.
type UserConfig struct {
	Username     string `mapstructure:"username" yaml:"username"`
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash"`
	Role         string `mapstructure:"role" yaml:"role"`
}

type account struct {
	subjectID string
	username  string
	hash      []byte
	role      session.Role
}

// CredentialStore verifies passwords against bcrypt hashes. Plaintext
// passwords are never stored.
type CredentialStore struct {
	accounts  map[string]account
	dummyHash []byte
}

// NewCredentialStore validates and indexes the configured users
func NewCredentialStore(users []UserConfig) (*CredentialStore, error) {
	store := &CredentialStore{accounts: make(map[string]account, len(users))}

	for _, u := range users {
		name := strings.TrimSpace(u.Username)
		if name == "" {
			return nil, fmt.Errorf("%w: user entry without username", sharedErrors.ErrInvalidInput)
		}
		if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
			return nil, fmt.Errorf("%w: password_hash for %q is not a bcrypt hash", sharedErrors.ErrInvalidInput, name)
		}
		if _, dup := store.accounts[name]; dup {
			return nil, fmt.Errorf("%w: duplicate user %q", sharedErrors.ErrInvalidInput, name)
		}
		store.accounts[name] = account{
			// stable per username so sessions survive restarts
			subjectID: uuid.NewSHA1(uuid.NameSpaceOID, []byte("seca-suite/user/"+name)).String(),
			username:  name,
			hash:      []byte(u.PasswordHash),
			role:      session.ParseRole(u.Role),
		}
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare credential store: %w", err)
	}
	store.dummyHash = dummy
	return store, nil
}

// Len returns the number of configured accounts
func (s *CredentialStore) Len() int {
	return len(s.accounts)
}

// Verify implements session.CredentialVerifier. Unknown usernames still
// cost one bcrypt comparison.
func (s *CredentialStore) Verify(ctx context.Context, username, password string) (*session.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.accounts) == 0 {
		return nil, sharedErrors.ErrNoCredentialsConfigured
	}

	acct, ok := s.accounts[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, sharedErrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return nil, sharedErrors.ErrInvalidCredentials
	}

	return &session.Identity{
		SubjectID: acct.subjectID,
		Username:  acct.username,
		Role:      acct.role,
	}, nil
}

// HashPassword returns a bcrypt hash suitable for gate.users[].password_hash
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", sharedErrors.ErrMissingCredentials
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
