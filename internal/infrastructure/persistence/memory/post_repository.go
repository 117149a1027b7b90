// Package memory holds process-local repositories used when no database is
// configured and in tests.
package memory

import (
	"context"
	"sync"

	"github.com/khanhnv2901/seca-suite/internal/domain/post"
	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

// PostRepository implements post.Repository in memory
type PostRepository struct {
	mu    sync.RWMutex
	posts map[string]*post.Post
	order []string
}

// NewPostRepository creates an empty repository, optionally seeded
func NewPostRepository(seed ...*post.Post) *PostRepository {
	r := &PostRepository{
		posts: make(map[string]*post.Post),
		order: make([]string, 0, len(seed)),
	}
	for _, p := range seed {
		r.put(p)
	}
	return r
}

// Save inserts or replaces a post, keeping its original position
func (r *PostRepository) Save(ctx context.Context, p *post.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(p)
	return nil
}

// FindByID retrieves a post by its ID
func (r *PostRepository) FindByID(ctx context.Context, id string) (*post.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, sharedErrors.ErrPostNotFound
	}
	return clonePost(p), nil
}

// FindAll returns posts in insertion order
func (r *PostRepository) FindAll(ctx context.Context) ([]*post.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	posts := make([]*post.Post, 0, len(r.order))
	for _, id := range r.order {
		posts = append(posts, clonePost(r.posts[id]))
	}
	return posts, nil
}

// Delete removes a post by its ID
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return sharedErrors.ErrPostNotFound
	}
	delete(r.posts, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *PostRepository) put(p *post.Post) {
	if _, exists := r.posts[p.ID()]; !exists {
		r.order = append(r.order, p.ID())
	}
	r.posts[p.ID()] = clonePost(p)
}

// callers get their own copy so an Update does not leak into the store
// before Save
func clonePost(p *post.Post) *post.Post {
	return post.Reconstruct(p.ID(), p.Content(), p.Author(), p.CreatedAt(), p.UpdatedAt())
}
