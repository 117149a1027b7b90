package post

import (
	"fmt"
	"strings"
	"time"

	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

// Content holds the editable fields of a post
type Content struct {
	Title    string
	Excerpt  string
	Body     string
	Category string
	ReadTime string
}

// Validate requires every field to be non-blank
func (c Content) Validate() error {
	missing := make([]string, 0)
	if strings.TrimSpace(c.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(c.Excerpt) == "" {
		missing = append(missing, "excerpt")
	}
	if strings.TrimSpace(c.Body) == "" {
		missing = append(missing, "content")
	}
	if strings.TrimSpace(c.Category) == "" {
		missing = append(missing, "category")
	}
	if strings.TrimSpace(c.ReadTime) == "" {
		missing = append(missing, "readTime")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", sharedErrors.ErrInvalidPost, strings.Join(missing, ", "))
	}
	return nil
}

// Post is a blog article
type Post struct {
	id        string
	content   Content
	author    string
	createdAt time.Time
	updatedAt time.Time
}

// NewPost creates a post after validating its content
func NewPost(id string, content Content, author string, now time.Time) (*Post, error) {
	if id == "" {
		return nil, sharedErrors.ErrMissingPostID
	}
	if err := content.Validate(); err != nil {
		return nil, err
	}

	return &Post{
		id:        id,
		content:   content,
		author:    author,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct creates a post from persisted data
func Reconstruct(id string, content Content, author string, createdAt, updatedAt time.Time) *Post {
	return &Post{
		id:        id,
		content:   content,
		author:    author,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// Update replaces the editable fields. ID, author and creation time are kept.
func (p *Post) Update(content Content, now time.Time) error {
	if err := content.Validate(); err != nil {
		return err
	}
	p.content = content
	p.updatedAt = now
	return nil
}

// Getters

func (p *Post) ID() string {
	return p.id
}

func (p *Post) Title() string {
	return p.content.Title
}

func (p *Post) Excerpt() string {
	return p.content.Excerpt
}

func (p *Post) Body() string {
	return p.content.Body
}

func (p *Post) Category() string {
	return p.content.Category
}

func (p *Post) ReadTime() string {
	return p.content.ReadTime
}

func (p *Post) Content() Content {
	return p.content
}

func (p *Post) Author() string {
	return p.author
}

func (p *Post) CreatedAt() time.Time {
	return p.createdAt
}

func (p *Post) UpdatedAt() time.Time {
	return p.updatedAt
}
