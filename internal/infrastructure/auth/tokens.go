package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/khanhnv2901/seca-suite/internal/domain/session"
	"github.com/khanhnv2901/seca-suite/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

const (
	DefaultIssuer   = "seca-suite"
	DefaultAudience = "seca-suite-gate"
)

// Claims carried by a session token
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates HS256 session tokens
type TokenManager struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time

	mu          sync.Mutex
	revoked     map[string]time.Time
	revokedPath string
	revokedMod  time.Time
}

// NewTokenManager creates a manager for the given HMAC secret
func NewTokenManager(secret []byte) (*TokenManager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("%w: token secret must be at least 32 bytes", sharedErrors.ErrInvalidInput)
	}
	return &TokenManager{
		secret:   secret,
		issuer:   DefaultIssuer,
		audience: DefaultAudience,
		now:      time.Now,
		revoked:  make(map[string]time.Time),
	}, nil
}

// SetClock overrides time.Now for validation
func (m *TokenManager) SetClock(now func() time.Time) {
	m.now = now
}

// Issue creates a session for identity and returns its signed token
func (m *TokenManager) Issue(identity session.Identity, issuedAt time.Time, ttl time.Duration) (string, *session.Session, error) {
	sess, err := session.NewSession(uuid.NewString(), identity.SubjectID, identity.Username, identity.Role, issuedAt, ttl)
	if err != nil {
		return "", nil, err
	}

	claims := &Claims{
		Name: sess.Username(),
		Role: string(sess.Role()),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID(),
			Subject:   sess.SubjectID(),
			Audience:  jwt.ClaimStrings{m.audience},
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(sess.IssuedAt()),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, sess, nil
}

// Parse validates signature, expiry, issuer, audience and revocation
func (m *TokenManager) Parse(token string) (*session.Session, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: expired", sharedErrors.ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.ID == "" || claims.Name == "" || claims.IssuedAt == nil {
		return nil, sharedErrors.ErrInvalidToken
	}
	if m.isRevoked(claims.ID) {
		return nil, fmt.Errorf("%w: revoked", sharedErrors.ErrInvalidToken)
	}

	return session.Reconstruct(
		claims.ID,
		claims.Subject,
		claims.Name,
		session.ParseRole(claims.Role),
		claims.IssuedAt.Time,
		claims.ExpiresAt.Time,
	), nil
}

// UseRevocationFile keeps revoked token IDs in path, so a logout survives a
// restart and is seen by every process sharing the data directory.
func (m *TokenManager) UseRevocationFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokedPath = path
	return m.reloadLocked()
}

// Revoke rejects the session's token until it would have expired anyway
func (m *TokenManager) Revoke(sess *session.Session) error {
	if sess == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.reloadLocked(); err != nil {
		return err
	}
	m.pruneLocked()
	m.revoked[sess.ID()] = sess.ExpiresAt()
	return m.persistLocked()
}

func (m *TokenManager) isRevoked(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.reloadLocked(); err != nil {
		// an unreadable list must not let revoked tokens back in
		return true
	}
	_, ok := m.revoked[id]
	return ok
}

// reloadLocked merges the revocation file when it changed since the last read
func (m *TokenManager) reloadLocked() error {
	if m.revokedPath == "" {
		return nil
	}
	info, err := os.Stat(m.revokedPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat revocation list: %w", err)
	}
	if info.ModTime().Equal(m.revokedMod) {
		return nil
	}

	data, err := os.ReadFile(m.revokedPath)
	if err != nil {
		return fmt.Errorf("failed to read revocation list: %w", err)
	}
	var stored map[string]time.Time
	if len(data) > 0 {
		if err := json.Unmarshal(data, &stored); err != nil {
			return fmt.Errorf("failed to decode revocation list: %w", err)
		}
	}
	for id, exp := range stored {
		m.revoked[id] = exp
	}
	m.revokedMod = info.ModTime()
	return nil
}

func (m *TokenManager) persistLocked() error {
	if m.revokedPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(m.revoked, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode revocation list: %w", err)
	}
	tmp := m.revokedPath + ".tmp"
	if err := os.WriteFile(tmp, data, constants.SecretFilePerm); err != nil {
		return fmt.Errorf("failed to write revocation list: %w", err)
	}
	if err := os.Rename(tmp, m.revokedPath); err != nil {
		return fmt.Errorf("failed to replace revocation list: %w", err)
	}
	if info, err := os.Stat(m.revokedPath); err == nil {
		m.revokedMod = info.ModTime()
	}
	return nil
}

func (m *TokenManager) pruneLocked() {
	now := m.now()
	for id, exp := range m.revoked {
		if now.After(exp) {
			delete(m.revoked, id)
		}
	}
}
