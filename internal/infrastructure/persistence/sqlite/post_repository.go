// Package sqlite persists blog posts in a single-file SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/khanhnv2901/seca-suite/internal/domain/post"
	"github.com/khanhnv2901/seca-suite/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	title      TEXT NOT NULL,
	excerpt    TEXT NOT NULL,
	content    TEXT NOT NULL,
	category   TEXT NOT NULL,
	read_time  TEXT NOT NULL,
	author     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// upsert keeps seq for existing ids so listing order survives edits
const upsertPost = `
INSERT INTO posts (id, title, excerpt, content, category, read_time, author, created_at, updated_at)
VALUES (:id, :title, :excerpt, :content, :category, :read_time, :author, :created_at, :updated_at)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	excerpt = excluded.excerpt,
	content = excluded.content,
	category = excluded.category,
	read_time = excluded.read_time,
	author = excluded.author,
	created_at = excluded.created_at,
	updated_at = excluded.updated_at`

const selectColumns = `id, title, excerpt, content, category, read_time, author, created_at, updated_at`

// postRow is the row shape for sqlx scanning
type postRow struct {
	ID        string `db:"id"`
	Title     string `db:"title"`
	Excerpt   string `db:"excerpt"`
	Content   string `db:"content"`
	Category  string `db:"category"`
	ReadTime  string `db:"read_time"`
	Author    string `db:"author"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

// PostRepository implements post.Repository on SQLite
type PostRepository struct {
	db *sqlx.DB
}

// Open connects to (and if needed creates) the database at path
func Open(ctx context.Context, path string) (*PostRepository, error) {
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), constants.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// single writer; WAL keeps readers unblocked
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostRepository{db: db}, nil
}

// Close releases the database handle
func (r *PostRepository) Close() error {
	return r.db.Close()
}

// Save inserts or replaces a post
func (r *PostRepository) Save(ctx context.Context, p *post.Post) error {
	if _, err := r.db.NamedExecContext(ctx, upsertPost, toRow(p)); err != nil {
		return fmt.Errorf("%w: save post: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	return nil
}

// FindByID retrieves a post by its ID
func (r *PostRepository) FindByID(ctx context.Context, id string) (*post.Post, error) {
	var row postRow
	err := r.db.GetContext(ctx, &row, `SELECT `+selectColumns+` FROM posts WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sharedErrors.ErrPostNotFound
		}
		return nil, fmt.Errorf("%w: find post: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	return fromRow(row)
}

// FindAll retrieves posts in insertion order
func (r *PostRepository) FindAll(ctx context.Context) ([]*post.Post, error) {
	var rows []postRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+selectColumns+` FROM posts ORDER BY seq ASC`); err != nil {
		return nil, fmt.Errorf("%w: list posts: %v", sharedErrors.ErrRepositoryOperation, err)
	}

	posts := make([]*post.Post, 0, len(rows))
	for _, row := range rows {
		p, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// Delete removes a post by its ID
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete post: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete post: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	if n == 0 {
		return sharedErrors.ErrPostNotFound
	}
	return nil
}

// Count returns the number of stored posts
func (r *PostRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM posts`); err != nil {
		return 0, fmt.Errorf("%w: count posts: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	return n, nil
}

func toRow(p *post.Post) postRow {
	return postRow{
		ID:        p.ID(),
		Title:     p.Title(),
		Excerpt:   p.Excerpt(),
		Content:   p.Body(),
		Category:  p.Category(),
		ReadTime:  p.ReadTime(),
		Author:    p.Author(),
		CreatedAt: p.CreatedAt().UTC().Format(time.RFC3339Nano),
		UpdatedAt: p.UpdatedAt().UTC().Format(time.RFC3339Nano),
	}
}

func fromRow(row postRow) (*post.Post, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: created_at: %v", sharedErrors.ErrInvalidData, err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: updated_at: %v", sharedErrors.ErrInvalidData, err)
	}

	return post.Reconstruct(row.ID, post.Content{
		Title:    row.Title,
		Excerpt:  row.Excerpt,
		Body:     row.Content,
		Category: row.Category,
		ReadTime: row.ReadTime,
	}, row.Author, createdAt, updatedAt), nil
}
