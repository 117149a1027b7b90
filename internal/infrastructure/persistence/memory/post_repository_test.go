package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/post"
	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

func mustPost(t *testing.T, id, title string) *post.Post {
	t.Helper()
	p, err := post.NewPost(id, post.Content{
		Title:    title,
		Excerpt:  "excerpt",
		Body:     "body",
		Category: "Web Security",
		ReadTime: "5 min",
	}, "Admin", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewPost: %v", err)
	}
	return p
}

func TestPostRepository_KeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(mustPost(t, "1", "first"))

	if err := repo.Save(ctx, mustPost(t, "2", "second")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.Save(ctx, mustPost(t, "3", "third")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// replacing post 1 must not move it to the end
	if err := repo.Save(ctx, mustPost(t, "1", "first, edited")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	posts, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	var titles []string
	for _, p := range posts {
		titles = append(titles, p.Title())
	}
	want := []string{"first, edited", "second", "third"}
	if len(titles) != len(want) {
		t.Fatalf("titles = %v, want %v", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("titles = %v, want %v", titles, want)
		}
	}
}

func TestPostRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(mustPost(t, "1", "a"), mustPost(t, "2", "b"))

	if err := repo.Delete(ctx, "1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, "1"); !errors.Is(err, sharedErrors.ErrPostNotFound) {
		t.Fatalf("FindByID after delete: %v", err)
	}
	if err := repo.Delete(ctx, "1"); !errors.Is(err, sharedErrors.ErrPostNotFound) {
		t.Fatalf("second Delete: %v", err)
	}

	posts, _ := repo.FindAll(ctx)
	if len(posts) != 1 || posts[0].ID() != "2" {
		t.Fatalf("unexpected remaining posts: %d", len(posts))
	}
}

func TestPostRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(mustPost(t, "1", "original"))

	p, err := repo.FindByID(ctx, "1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	content := p.Content()
	content.Title = "changed"
	if err := p.Update(content, time.Now()); err != nil {
		t.Fatalf("Update: %v", err)
	}

	stored, _ := repo.FindByID(ctx, "1")
	if stored.Title() != "original" {
		t.Fatalf("store mutated without Save: %q", stored.Title())
	}
}
