// Package storage defines persistence contracts for blog posts.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested post is missing.
var ErrNotFound = errors.New("record not found")

// DefaultAuthor is stored when a post is created without an author.
const DefaultAuthor = "Anonymous"

// Post is one blog post.
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostInput carries the fields of a new post.
type PostInput struct {
	Title   string
	Content string
	Author  string
}

// PostPatch carries a partial update. Nil fields keep their current value.
type PostPatch struct {
	Title   *string
	Content *string
}

// PostStore persists blog posts.
type PostStore interface {
	GetPost(ctx context.Context, id int64) (Post, error)
	// ListPosts returns every post, newest first.
	ListPosts(ctx context.Context) ([]Post, error)
	CreatePost(ctx context.Context, input PostInput) (Post, error)
	UpdatePost(ctx context.Context, id int64, patch PostPatch) (Post, error)
	DeletePost(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
	Close() error
}
