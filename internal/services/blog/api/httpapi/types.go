package httpapi

import (
	"strings"

	"github.com/louisbranch/docker-mastery/internal/platform/cacheaside"
	"github.com/louisbranch/docker-mastery/internal/services/blog/storage"
)

type createPostRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
	Author  string `json:"author"`
}

func (r *createPostRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Content = strings.TrimSpace(r.Content)
	r.Author = strings.TrimSpace(r.Author)
}

type updatePostRequest struct {
	Title   *string `json:"title" validate:"omitempty,min=1"`
	Content *string `json:"content" validate:"omitempty,min=1"`
}

func (r *updatePostRequest) normalize() {
	r.Title = trimmed(r.Title)
	r.Content = trimmed(r.Content)
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	return &out
}

type listPostsResponse struct {
	Posts  []storage.Post    `json:"posts"`
	Source cacheaside.Source `json:"source"`
}

type getPostResponse struct {
	Post   storage.Post      `json:"post"`
	Source cacheaside.Source `json:"source"`
}

type healthResponse struct {
	Status      string  `json:"status"`
	Database    string  `json:"database"`
	Redis       string  `json:"redis"`
	Environment string  `json:"environment"`
	Uptime      float64 `json:"uptime"`
}

type unhealthyResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
	Views     int    `json:"views"`
	Message   string `json:"message"`
}
