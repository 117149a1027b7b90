package post

import (
	"errors"
	"strings"
	"testing"
	"time"

	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

func validContent() Content {
	return Content{
		Title:    "Hardening SSH",
		Excerpt:  "Five settings to change today",
		Body:     "Disable password auth...",
		Category: "Guides",
		ReadTime: "4 min read",
	}
}

func TestContentValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Content)
		missing string
	}{
		{"valid", func(c *Content) {}, ""},
		{"no title", func(c *Content) { c.Title = "  " }, "title"},
		{"no excerpt", func(c *Content) { c.Excerpt = "" }, "excerpt"},
		{"no body", func(c *Content) { c.Body = "" }, "content"},
		{"no category", func(c *Content) { c.Category = "" }, "category"},
		{"no read time", func(c *Content) { c.ReadTime = "" }, "readTime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validContent()
			tt.mutate(&c)
			err := c.Validate()
			if tt.missing == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, sharedErrors.ErrInvalidPost) {
				t.Fatalf("expected ErrInvalidPost, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.missing) {
				t.Errorf("error %q should name %q", err, tt.missing)
			}
		})
	}
}

func TestPostUpdateKeepsIdentity(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p, err := NewPost("p-1", validContent(), "Security Team", created)
	if err != nil {
		t.Fatalf("new post: %v", err)
	}

	changed := validContent()
	changed.Title = "Hardening SSH (2025)"
	later := created.Add(time.Hour)
	if err := p.Update(changed, later); err != nil {
		t.Fatalf("update: %v", err)
	}

	if p.ID() != "p-1" || !p.CreatedAt().Equal(created) || p.Author() != "Security Team" {
		t.Error("update must keep id, author and creation time")
	}
	if p.Title() != "Hardening SSH (2025)" || !p.UpdatedAt().Equal(later) {
		t.Error("update should replace content and bump updatedAt")
	}

	bad := validContent()
	bad.Body = ""
	if err := p.Update(bad, later); err == nil {
		t.Error("expected validation error on update")
	}
	if p.Body() == "" {
		t.Error("failed update must leave content unchanged")
	}
}

func TestNewPostRequiresID(t *testing.T) {
	if _, err := NewPost("", validContent(), "x", time.Now()); !errors.Is(err, sharedErrors.ErrMissingPostID) {
		t.Errorf("expected ErrMissingPostID, got %v", err)
	}
}
