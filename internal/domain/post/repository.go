package post

import "context"

// Repository defines the interface for post persistence
type Repository interface {
	// Save inserts a new post or replaces an existing one, keeping its position
	Save(ctx context.Context, p *Post) error

	// FindByID retrieves a post by its ID
	FindByID(ctx context.Context, id string) (*Post, error)

	// FindAll retrieves all posts in insertion order
	FindAll(ctx context.Context) ([]*Post, error)

	// Delete removes a post by its ID
	Delete(ctx context.Context, id string) error
}
