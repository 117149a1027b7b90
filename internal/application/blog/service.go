package blog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-suite/internal/domain/post"
	"github.com/khanhnv2901/seca-suite/internal/domain/session"
	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

// DefaultAuthor is used when no author is configured
const DefaultAuthor = "Admin"

// Service provides blog operations. Reads are public; writes require an
// admin session.
type Service struct {
	repo   post.Repository
	author string
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewService creates a blog service
func NewService(repo post.Repository, author string, logger *zap.Logger) *Service {
	if author == "" {
		author = DefaultAuthor
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		author: author,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// SetClock overrides time.Now
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// List returns every post in insertion order
func (s *Service) List(ctx context.Context) ([]*post.Post, error) {
	posts, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// Get retrieves a post by its ID
func (s *Service) Get(ctx context.Context, id string) (*post.Post, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

// Create stores a new post authored by the configured author
func (s *Service) Create(ctx context.Context, actor *session.Session, content post.Content) (*post.Post, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	p, err := post.NewPost(s.newID(), content, s.author, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save post: %w", err)
	}

	s.logger.Info("post created", zap.String("id", p.ID()), zap.String("actor", actor.Username()))
	return p, nil
}

// Update replaces the editable fields of an existing post
func (s *Service) Update(ctx context.Context, actor *session.Session, id string, content post.Content) (*post.Post, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if err := p.Update(content, s.now()); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save post: %w", err)
	}

	s.logger.Info("post updated", zap.String("id", id), zap.String("actor", actor.Username()))
	return p, nil
}

// Delete removes a post
func (s *Service) Delete(ctx context.Context, actor *session.Session, id string) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	s.logger.Info("post deleted", zap.String("id", id), zap.String("actor", actor.Username()))
	return nil
}

func (s *Service) authorize(actor *session.Session) error {
	if actor == nil || !actor.Valid(s.now()) {
		return fmt.Errorf("%w: login required", sharedErrors.ErrUnauthorized)
	}
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: admin role required", sharedErrors.ErrUnauthorized)
	}
	return nil
}
