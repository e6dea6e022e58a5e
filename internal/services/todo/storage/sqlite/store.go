// Package sqlite provides a SQLite-backed todo store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/docker-mastery/internal/platform/storage/sqlitestore"
	"github.com/louisbranch/docker-mastery/internal/services/todo/storage"
	"github.com/louisbranch/docker-mastery/internal/services/todo/storage/sqlite/migrations"
)

const todoColumns = `id, title, completed, created_at`

// Store persists todos in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens a SQLite todo store and applies embedded migrations.
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
		return fmt.Errorf("ping todo db: %w", err)
	}
	return nil
}

// GetTodo returns one todo by id.
func (s *Store) GetTodo(ctx context.Context, id int64) (storage.Todo, error) {
	if err := ctx.Err(); err != nil {
		return storage.Todo{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Todo{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = ?`, id)
	todo, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Todo{}, storage.ErrNotFound
		}
		return storage.Todo{}, fmt.Errorf("get todo: %w", err)
	}
	return todo, nil
}

// ListTodos returns every todo ordered by id, highest first.
func (s *Store) ListTodos(ctx context.Context) ([]storage.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+todoColumns+` FROM todos ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	todos := make([]storage.Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("list todos: %w", err)
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return todos, nil
}

// CreateTodo inserts an incomplete todo and returns it as stored.
func (s *Store) CreateTodo(ctx context.Context, title string) (storage.Todo, error) {
	if err := ctx.Err(); err != nil {
		return storage.Todo{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Todo{}, fmt.Errorf("storage is not configured")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return storage.Todo{}, fmt.Errorf("title is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`INSERT INTO todos (title, completed, created_at)
		 VALUES (?, 0, ?)
		 RETURNING `+todoColumns,
		title,
		sqlitestore.ToMillis(s.now()),
	)
	todo, err := scanTodo(row)
	if err != nil {
		return storage.Todo{}, fmt.Errorf("create todo: %w", err)
	}
	return todo, nil
}

// ToggleTodo flips completed on the todo with id.
func (s *Store) ToggleTodo(ctx context.Context, id int64) (storage.Todo, error) {
	if err := ctx.Err(); err != nil {
		return storage.Todo{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Todo{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`UPDATE todos
		    SET completed = NOT completed
		  WHERE id = ?
		 RETURNING `+todoColumns,
		id,
	)
	todo, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Todo{}, storage.ErrNotFound
		}
		return storage.Todo{}, fmt.Errorf("toggle todo: %w", err)
	}
	return todo, nil
}

// DeleteTodo removes the todo with id.
func (s *Store) DeleteTodo(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (storage.Todo, error) {
	var todo storage.Todo
	var completed int64
	var createdAt int64
	if err := row.Scan(&todo.ID, &todo.Title, &completed, &createdAt); err != nil {
		return storage.Todo{}, err
	}
	todo.Completed = completed != 0
	todo.CreatedAt = sqlitestore.FromMillis(createdAt)
	return todo, nil
}

var _ storage.TodoStore = (*Store)(nil)
