// Package httpapi serves the blog REST API.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/louisbranch/docker-mastery/internal/platform/cache"
	"github.com/louisbranch/docker-mastery/internal/platform/cacheaside"
	apperrors "github.com/louisbranch/docker-mastery/internal/platform/errors"
	"github.com/louisbranch/docker-mastery/internal/platform/errors/i18n"
	"github.com/louisbranch/docker-mastery/internal/platform/health"
	"github.com/louisbranch/docker-mastery/internal/platform/httpx"
	"github.com/louisbranch/docker-mastery/internal/platform/session"
	"github.com/louisbranch/docker-mastery/internal/platform/timeouts"
	"github.com/louisbranch/docker-mastery/internal/services/blog/storage"
)

const (
	// ListTTL is how long the full post listing stays cached.
	ListTTL = 60 * time.Second
	// ItemTTL is how long a single post stays cached.
	ItemTTL = 300 * time.Second
)

const (
	collectionPrefix = "posts"
	itemPrefix       = "post"
)

// Deps wires the handler to its collaborators.
type Deps struct {
	Store    storage.PostStore
	Accessor *cacheaside.Accessor
	Stats    *cacheaside.Stats
	Sessions *session.Manager
	Monitor  *health.Monitor
	// SessionBackend names where sessions live, for the session endpoint.
	SessionBackend string
	Environment    string
	Started        time.Time
	Logger         *log.Logger
}

// Handler serves the blog API.
type Handler struct {
	store          storage.PostStore
	accessor       *cacheaside.Accessor
	stats          *cacheaside.Stats
	sessions       *session.Manager
	monitor        *health.Monitor
	sessionBackend string
	environment    string
	started        time.Time
	logger         *log.Logger
	validate       *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(deps Deps) (*Handler, error) {
	if deps.Store == nil {
		return nil, errors.New("post store is required")
	}
	if deps.Accessor == nil {
		return nil, errors.New("cache accessor is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("session manager is required")
	}
	h := &Handler{
		store:          deps.Store,
		accessor:       deps.Accessor,
		stats:          deps.Stats,
		sessions:       deps.Sessions,
		monitor:        deps.Monitor,
		sessionBackend: strings.TrimSpace(deps.SessionBackend),
		environment:    strings.TrimSpace(deps.Environment),
		started:        deps.Started,
		logger:         deps.Logger,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
	}
	if h.monitor == nil {
		h.monitor = health.NewMonitor(deps.Store, nil, nil, 0, deps.Logger)
	}
	if h.sessionBackend == "" {
		h.sessionBackend = "cache"
	}
	if h.environment == "" {
		h.environment = "development"
	}
	if h.started.IsZero() {
		h.started = time.Now()
	}
	if h.logger == nil {
		h.logger = log.Default()
	}
	return h, nil
}

// Routes registers the API on a new mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/cache/stats", h.handleCacheStats)
	mux.HandleFunc("GET /api/posts", h.handleListPosts)
	mux.HandleFunc("POST /api/posts", h.handleCreatePost)
	mux.HandleFunc("GET /api/posts/{id}", h.handleGetPost)
	mux.HandleFunc("PUT /api/posts/{id}", h.handleUpdatePost)
	mux.HandleFunc("DELETE /api/posts/{id}", h.handleDeletePost)

	withSession := h.sessions.Middleware()
	mux.Handle("GET /api/session", withSession(http.HandlerFunc(h.handleSession)))
	mux.Handle("DELETE /api/session", withSession(http.HandlerFunc(h.handleEndSession)))
	return mux
}

// CollectionKey is the cache key for the post listing.
func CollectionKey() string {
	return cache.CollectionKey(collectionPrefix)
}

// ItemKey is the cache key for one post.
func ItemKey(id int64) string {
	return cache.ItemKey(itemPrefix, id)
}

// IsNotFound reports whether err means the post does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

func (h *Handler) handleListPosts(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.RequestContext(r)
	posts, source, err := cacheaside.Read(ctx, h.accessor, CollectionKey(), ListTTL, func(ctx context.Context) ([]storage.Post, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.StoreOp)
		defer cancel()
		return h.store.ListPosts(ctx)
	})
	if err != nil {
		httpx.WriteError(w, r, storeFailure("list posts", err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, listPostsResponse{Posts: posts, Source: source})
}

func (h *Handler) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	ctx := httpx.RequestContext(r)
	post, source, err := cacheaside.Read(ctx, h.accessor, ItemKey(id), ItemTTL, func(ctx context.Context) (storage.Post, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.StoreOp)
		defer cancel()
		return h.store.GetPost(ctx, id)
	})
	if err != nil {
		httpx.WriteError(w, r, postFailure("get post", err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, getPostResponse{Post: post, Source: source})
}

func (h *Handler) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	req.normalize()
	if err := h.validate.Struct(req); err != nil {
		httpx.WriteError(w, r, titleContentRequired(err))
		return
	}

	ctx := httpx.RequestContext(r)
	post, err := cacheaside.Write(ctx, h.accessor, func(ctx context.Context) (storage.Post, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.StoreOp)
		defer cancel()
		return h.store.CreatePost(ctx, storage.PostInput{Title: req.Title, Content: req.Content, Author: req.Author})
	}, CollectionKey())
	if err != nil {
		httpx.WriteError(w, r, storeFailure("create post", err))
		return
	}
	h.logger.Printf("post created id=%d", post.ID)
	_ = httpx.WriteJSON(w, http.StatusCreated, post)
}

func (h *Handler) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var req updatePostRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	req.normalize()
	if err := h.validate.Struct(req); err != nil {
		httpx.WriteError(w, r, titleContentRequired(err))
		return
	}

	ctx := httpx.RequestContext(r)
	post, err := cacheaside.Write(ctx, h.accessor, func(ctx context.Context) (storage.Post, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.StoreOp)
		defer cancel()
		return h.store.UpdatePost(ctx, id, storage.PostPatch{Title: req.Title, Content: req.Content})
	}, CollectionKey(), ItemKey(id))
	if err != nil {
		httpx.WriteError(w, r, postFailure("update post", err))
		return
	}
	h.logger.Printf("post updated id=%d", post.ID)
	_ = httpx.WriteJSON(w, http.StatusOK, post)
}

func (h *Handler) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	ctx := httpx.RequestContext(r)
	_, err = cacheaside.Write(ctx, h.accessor, func(ctx context.Context) (struct{}, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.StoreOp)
		defer cancel()
		return struct{}{}, h.store.DeletePost(ctx, id)
	}, CollectionKey(), ItemKey(id))
	if err != nil {
		httpx.WriteError(w, r, postFailure("delete post", err))
		return
	}
	h.logger.Printf("post deleted id=%d", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := h.monitor.Check(httpx.RequestContext(r))
	if !report.Healthy() {
		_ = httpx.WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse{
			Status: "unhealthy",
			Error:  report.StoreErr.Error(),
		})
		return
	}
	redis := "disconnected"
	if report.CacheConnected() {
		redis = "connected"
	}
	_ = httpx.WriteJSON(w, http.StatusOK, healthResponse{
		Status:      "healthy",
		Database:    "connected",
		Redis:       redis,
		Environment: h.environment,
		Uptime:      time.Since(h.started).Seconds(),
	})
}

func (h *Handler) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, h.stats.Snapshot())
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	handle, ok := session.FromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, errors.New("session middleware is not installed"))
		return
	}
	sess := handle.Update(func(s *session.Session) { s.Views++ })
	handle.Commit(r.Context())
	_ = httpx.WriteJSON(w, http.StatusOK, sessionResponse{
		SessionID: sess.ID,
		Views:     sess.Views,
		Message:   fmt.Sprintf("Session stored in %s", h.sessionBackend),
	})
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	handle, ok := session.FromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, errors.New("session middleware is not installed"))
		return
	}
	handle.Destroy(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func parseID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.EK(apperrors.KindInvalidInput, i18n.KeyInvalidID, "invalid post id")
	}
	return id, nil
}

func postFailure(op string, err error) error {
	if errors.Is(err, cacheaside.ErrNotFound) || IsNotFound(err) {
		return &apperrors.Error{Kind: apperrors.KindNotFound, Key: i18n.KeyPostNotFound, Message: "Post not found", Cause: err}
	}
	return storeFailure(op, err)
}

func storeFailure(op string, err error) error {
	return apperrors.Wrap(apperrors.KindStoreUnavailable, op, fmt.Errorf("%s: %w", op, err))
}

func titleContentRequired(cause error) error {
	return &apperrors.Error{
		Kind:    apperrors.KindInvalidInput,
		Key:     i18n.KeyPostTitleContentNeeded,
		Message: "Title and content are required",
		Cause:   cause,
	}
}
