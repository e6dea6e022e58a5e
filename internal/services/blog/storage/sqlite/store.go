// Package sqlite provides a SQLite-backed blog post store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/docker-mastery/internal/platform/storage/sqlitestore"
	"github.com/louisbranch/docker-mastery/internal/services/blog/storage"
	"github.com/louisbranch/docker-mastery/internal/services/blog/storage/sqlite/migrations"
)

const postColumns = `id, title, content, author, created_at, updated_at`

// Store persists blog posts in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens a SQLite blog store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := sqlitestore.Open(ctx, path, migrations.FS)
	if err != nil {
		return nil, err
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping verifies the database answers queries.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	var one int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("ping blog db: %w", err)
	}
	return nil
}

// GetPost returns one post by id.
func (s *Store) GetPost(ctx context.Context, id int64) (storage.Post, error) {
	if err := ctx.Err(); err != nil {
		return storage.Post{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Post{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Post{}, storage.ErrNotFound
		}
		return storage.Post{}, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// ListPosts returns every post, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]storage.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+postColumns+`
		   FROM posts
		  ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]storage.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("list posts: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// CreatePost inserts a post and returns it as stored.
func (s *Store) CreatePost(ctx context.Context, input storage.PostInput) (storage.Post, error) {
	if err := ctx.Err(); err != nil {
		return storage.Post{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Post{}, fmt.Errorf("storage is not configured")
	}
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" {
		return storage.Post{}, fmt.Errorf("title is required")
	}
	if content == "" {
		return storage.Post{}, fmt.Errorf("content is required")
	}
	author := strings.TrimSpace(input.Author)
	if author == "" {
		author = storage.DefaultAuthor
	}
	now := sqlitestore.ToMillis(s.now())

	row := s.sqlDB.QueryRowContext(ctx,
		`INSERT INTO posts (title, content, author, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING `+postColumns,
		title,
		content,
		author,
		now,
		now,
	)
	post, err := scanPost(row)
	if err != nil {
		return storage.Post{}, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// UpdatePost applies patch to the post with id. Nil fields keep their value;
// updated_at is always bumped.
func (s *Store) UpdatePost(ctx context.Context, id int64, patch storage.PostPatch) (storage.Post, error) {
	if err := ctx.Err(); err != nil {
		return storage.Post{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Post{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`UPDATE posts
		    SET title = COALESCE(?, title),
		        content = COALESCE(?, content),
		        updated_at = ?
		  WHERE id = ?
		 RETURNING `+postColumns,
		nullableString(patch.Title),
		nullableString(patch.Content),
		sqlitestore.ToMillis(s.now()),
		id,
	)
	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Post{}, storage.ErrNotFound
		}
		return storage.Post{}, fmt.Errorf("update post: %w", err)
	}
	return post, nil
}

// DeletePost removes the post with id.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (storage.Post, error) {
	var post storage.Post
	var createdAt int64
	var updatedAt int64
	if err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.Author,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.Post{}, err
	}
	post.CreatedAt = sqlitestore.FromMillis(createdAt)
	post.UpdatedAt = sqlitestore.FromMillis(updatedAt)
	return post, nil
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

var _ storage.PostStore = (*Store)(nil)
