package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-suite/internal/domain/session"
	"github.com/khanhnv2901/seca-suite/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

// Config tunes the gate
type Config struct {
	Policy     session.LockoutPolicy
	SessionTTL time.Duration
	AuthDelay  time.Duration
}

// Status is a read-only view of the gate for the CLI and API
type Status struct {
	Authenticated     bool         `json:"authenticated"`
	Session           *SessionView `json:"session,omitempty"`
	Locked            bool         `json:"locked"`
	RemainingMS       int64        `json:"remaining_ms"`
	Failures          int          `json:"failures"`
	AttemptsRemaining int          `json:"attempts_remaining"`
}

// SessionView is the JSON form of a session
type SessionView struct {
	ID        string       `json:"id"`
	Subject   string       `json:"subject"`
	Username  string       `json:"username"`
	Role      session.Role `json:"role"`
	IssuedAt  time.Time    `json:"issued_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// NewSessionView converts a session for output
func NewSessionView(sess *session.Session) *SessionView {
	if sess == nil {
		return nil
	}
	return &SessionView{
		ID:        sess.ID(),
		Subject:   sess.SubjectID(),
		Username:  sess.Username(),
		Role:      sess.Role(),
		IssuedAt:  sess.IssuedAt(),
		ExpiresAt: sess.ExpiresAt(),
	}
}

// Service implements login, session restore and logout on top of the
// persisted gate state. mu serializes every load/modify/save of that state,
// so concurrent API logins cannot race past the lockout counter.
type Service struct {
	mu       sync.Mutex
	state    session.StateRepository
	verifier session.CredentialVerifier
	tokens   session.TokenCodec
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option customizes the service
type Option func(*Service)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a gate service
func NewService(state session.StateRepository, verifier session.CredentialVerifier, tokens session.TokenCodec, cfg Config, opts ...Option) *Service {
	cfg.Policy = cfg.Policy.Normalize()
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = constants.DefaultSessionTTL
	}

	s := &Service{
		state:    state,
		verifier: verifier,
		tokens:   tokens,
		cfg:      cfg,
		logger:   zap.NewNop(),
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckCredentials verifies a login attempt, persisting a signed session on
// success.
func (s *Service) CheckCredentials(ctx context.Context, username, password string) (*session.Session, error) {
	_, sess, err := s.Login(ctx, username, password)
	return sess, err
}

// Login is CheckCredentials that also returns the signed token
func (s *Service) Login(ctx context.Context, username, password string) (string, *session.Session, error) {
	return s.login(ctx, username, password, true)
}

// IssueToken checks credentials like Login and counts failures against the
// same lockout, but leaves the stored session alone. The API hands the token
// to its caller instead.
func (s *Service) IssueToken(ctx context.Context, username, password string) (string, *session.Session, error) {
	return s.login(ctx, username, password, false)
}

func (s *Service) login(ctx context.Context, username, password string, persist bool) (string, *session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.state.Load(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load gate state: %w", err)
	}

	now := s.now()
	if state.Attempts.ClearIfExpired(now) {
		if err := s.state.Save(ctx, state); err != nil {
			return "", nil, fmt.Errorf("failed to save gate state: %w", err)
		}
	}
	if state.Attempts.Locked(now) {
		return "", nil, &session.LockedError{Remaining: state.Attempts.Remaining(now)}
	}

	if username == "" || password == "" {
		return "", nil, sharedErrors.ErrMissingCredentials
	}

	if s.cfg.AuthDelay > 0 {
		if err := s.sleep(ctx, s.cfg.AuthDelay); err != nil {
			return "", nil, err
		}
	}

	identity, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		if !errors.Is(err, sharedErrors.ErrInvalidCredentials) {
			return "", nil, err
		}
		return "", nil, s.recordFailure(ctx, state, username)
	}

	state.Attempts.Reset()
	token, sess, err := s.tokens.Issue(*identity, s.now(), s.cfg.SessionTTL)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue session: %w", err)
	}
	if persist {
		state.Token = token
	}
	if err := s.state.Save(ctx, state); err != nil {
		return "", nil, fmt.Errorf("failed to save gate state: %w", err)
	}

	s.logger.Info("login succeeded",
		zap.String("username", sess.Username()),
		zap.String("role", string(sess.Role())),
		zap.Time("expires_at", sess.ExpiresAt()))
	return token, sess, nil
}

// RestoreSession returns the stored session if it is still valid. Stored
// tokens that fail validation are cleared and reported as no session.
func (s *Service) RestoreSession(ctx context.Context) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoreLocked(ctx)
}

func (s *Service) restoreLocked(ctx context.Context) (*session.Session, error) {
	state, err := s.state.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load gate state: %w", err)
	}
	if !state.HasToken() {
		return nil, nil
	}

	sess, err := s.tokens.Parse(state.Token)
	if err == nil && sess.Valid(s.now()) {
		return sess, nil
	}

	s.logger.Debug("discarding stored session", zap.Error(err))
	state.ClearToken()
	if err := s.state.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save gate state: %w", err)
	}
	return nil, nil
}

// Authenticate validates a bearer token without touching stored state
func (s *Service) Authenticate(ctx context.Context, token string) (*session.Session, error) {
	if token == "" {
		return nil, sharedErrors.ErrUnauthorized
	}
	sess, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrUnauthorized, err)
	}
	if !sess.Valid(s.now()) {
		return nil, fmt.Errorf("%w: session expired", sharedErrors.ErrUnauthorized)
	}
	return sess, nil
}

// Logout forgets the stored session and revokes it. Calling it without a
// session is a no-op.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.state.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load gate state: %w", err)
	}
	if !state.HasToken() {
		return nil
	}

	if sess, err := s.tokens.Parse(state.Token); err == nil {
		if err := s.tokens.Revoke(sess); err != nil {
			return fmt.Errorf("failed to revoke session: %w", err)
		}
		s.logger.Info("logout", zap.String("username", sess.Username()))
	}
	state.ClearToken()
	if err := s.state.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to save gate state: %w", err)
	}
	return nil
}

// Revoke invalidates a bearer token. If it is also the stored session, that
// is cleared too.
func (s *Service) Revoke(ctx context.Context, sess *session.Session, token string) error {
	if err := s.tokens.Revoke(sess); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.state.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load gate state: %w", err)
	}
	if state.Token != token {
		return nil
	}
	state.ClearToken()
	if err := s.state.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to save gate state: %w", err)
	}
	return nil
}

// RemainingLockout returns the time left on an active lockout. It does not
// modify state.
func (s *Service) RemainingLockout(ctx context.Context) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.state.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load gate state: %w", err)
	}
	return state.Attempts.Remaining(s.now()), nil
}

// Status combines the lockout countdown, the failure count and the stored
// session.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.state.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load gate state: %w", err)
	}

	now := s.now()
	attempts := state.Attempts
	if !attempts.LockoutUntil.IsZero() && !attempts.Locked(now) {
		// an elapsed lockout will be cleared on the next attempt
		attempts.Reset()
	}
	remaining := attempts.Remaining(now)

	sess, err := s.restoreLocked(ctx)
	if err != nil {
		return nil, err
	}

	return &Status{
		Authenticated:     sess != nil,
		Session:           NewSessionView(sess),
		Locked:            remaining > 0,
		RemainingMS:       remaining.Milliseconds(),
		Failures:          attempts.Failures,
		AttemptsRemaining: attempts.AttemptsRemaining(s.cfg.Policy),
	}, nil
}

// Policy returns the effective lockout policy
func (s *Service) Policy() session.LockoutPolicy {
	return s.cfg.Policy
}

// Helper methods

func (s *Service) recordFailure(ctx context.Context, state *session.GateState, username string) error {
	now := s.now()
	locked := state.Attempts.RecordFailure(s.cfg.Policy, now)
	if err := s.state.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to save gate state: %w", err)
	}

	if locked {
		s.logger.Warn("login locked out",
			zap.String("username", username),
			zap.Int("failures", state.Attempts.Failures),
			zap.Duration("window", s.cfg.Policy.Window))
		return &session.LockedError{Remaining: state.Attempts.Remaining(now)}
	}

	s.logger.Info("login failed",
		zap.String("username", username),
		zap.Int("failures", state.Attempts.Failures))
	return &session.InvalidCredentialsError{AttemptsRemaining: state.Attempts.AttemptsRemaining(s.cfg.Policy)}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
