// Package storage defines persistence contracts for todos.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested todo is missing.
var ErrNotFound = errors.New("record not found")

// Todo is one todo item.
type Todo struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// TodoStore persists todos.
type TodoStore interface {
	GetTodo(ctx context.Context, id int64) (Todo, error)
	// ListTodos returns every todo, most recently created first.
	ListTodos(ctx context.Context) ([]Todo, error)
	// CreateTodo inserts an incomplete todo.
	CreateTodo(ctx context.Context, title string) (Todo, error)
	// ToggleTodo flips the completed flag.
	ToggleTodo(ctx context.Context, id int64) (Todo, error)
	DeleteTodo(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
	Close() error
}
