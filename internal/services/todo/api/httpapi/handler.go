// Package httpapi serves the todo REST API.
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
	"github.com/louisbranch/docker-mastery/internal/platform/timeouts"
	"github.com/louisbranch/docker-mastery/internal/services/todo/storage"
)

const (
	// ListTTL is how long the todo listing stays cached.
	ListTTL = 60 * time.Second
	// ItemTTL is how long a single todo stays cached.
	ItemTTL = 300 * time.Second
)

// Deps wires the handler to its collaborators.
type Deps struct {
	Store    storage.TodoStore
	Accessor *cacheaside.Accessor
	Monitor  *health.Monitor
	Logger   *log.Logger
}

// Handler serves the todo API.
type Handler struct {
	store    storage.TodoStore
	accessor *cacheaside.Accessor
	monitor  *health.Monitor
	logger   *log.Logger
	validate *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(deps Deps) (*Handler, error) {
	if deps.Store == nil {
		return nil, errors.New("todo store is required")
	}
	if deps.Accessor == nil {
		return nil, errors.New("cache accessor is required")
	}
	h := &Handler{
		store:    deps.Store,
		accessor: deps.Accessor,
		monitor:  deps.Monitor,
		logger:   deps.Logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	if h.monitor == nil {
		h.monitor = health.NewMonitor(deps.Store, nil, nil, 0, deps.Logger)
	}
	if h.logger == nil {
		h.logger = log.Default()
	}
	return h, nil
}

// Routes registers the API on a new mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /todos", h.handleListTodos)
	mux.HandleFunc("POST /todos", h.handleCreateTodo)
	mux.HandleFunc("GET /todos/{id}", h.handleGetTodo)
	mux.HandleFunc("PATCH /todos/{id}", h.handleToggleTodo)
	mux.HandleFunc("DELETE /todos/{id}", h.handleDeleteTodo)
	return mux
}

// CollectionKey is the cache key for the todo listing.
func CollectionKey() string {
	return cache.CollectionKey("todos")
}

// ItemKey is the cache key for one todo.
func ItemKey(id int64) string {
	return cache.ItemKey("todo", id)
}

// IsNotFound reports whether err means the todo does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

func (h *Handler) handleListTodos(w http.ResponseWriter, r *http.Request) {
	todos, _, err := cacheaside.Read(httpx.RequestContext(r), h.accessor, CollectionKey(), ListTTL, func(ctx context.Context) ([]storage.Todo, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.StoreOp)
		defer cancel()
		return h.store.ListTodos(ctx)
	})
	if err != nil {
		httpx.WriteError(w, r, storeFailure("list todos", err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, todos)
}

func (h *Handler) handleGetTodo(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	todo, _, err := cacheaside.Read(httpx.RequestContext(r), h.accessor, ItemKey(id), ItemTTL, func(ctx context.Context) (storage.Todo, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.StoreOp)
		defer cancel()
		return h.store.GetTodo(ctx, id)
	})
	if err != nil {
		httpx.WriteError(w, r, todoFailure("get todo", err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, todo)
}

func (h *Handler) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var req createTodoRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := h.validate.Struct(req); err != nil {
		httpx.WriteError(w, r, &apperrors.Error{
			Kind:    apperrors.KindInvalidInput,
			Key:     i18n.KeyTodoTitleNeeded,
			Message: "Title is required",
			Cause:   err,
		})
		return
	}

	todo, err := cacheaside.Write(httpx.RequestContext(r), h.accessor, func(ctx context.Context) (storage.Todo, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.StoreOp)
		defer cancel()
		return h.store.CreateTodo(ctx, req.Title)
	}, CollectionKey())
	if err != nil {
		httpx.WriteError(w, r, storeFailure("create todo", err))
		return
	}
	h.logger.Printf("todo created id=%d", todo.ID)
	_ = httpx.WriteJSON(w, http.StatusCreated, todo)
}

func (h *Handler) handleToggleTodo(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	todo, err := cacheaside.Write(httpx.RequestContext(r), h.accessor, func(ctx context.Context) (storage.Todo, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.StoreOp)
		defer cancel()
		return h.store.ToggleTodo(ctx, id)
	}, CollectionKey(), ItemKey(id))
	if err != nil {
		httpx.WriteError(w, r, todoFailure("toggle todo", err))
		return
	}
	h.logger.Printf("todo toggled id=%d completed=%t", todo.ID, todo.Completed)
	_ = httpx.WriteJSON(w, http.StatusOK, todo)
}

func (h *Handler) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_, err = cacheaside.Write(httpx.RequestContext(r), h.accessor, func(ctx context.Context) (struct{}, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.StoreOp)
		defer cancel()
		return struct{}{}, h.store.DeleteTodo(ctx, id)
	}, CollectionKey(), ItemKey(id))
	if err != nil {
		httpx.WriteError(w, r, todoFailure("delete todo", err))
		return
	}
	h.logger.Printf("todo deleted id=%d", id)
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
	_ = httpx.WriteJSON(w, http.StatusOK, healthResponse{Status: "healthy", Database: "connected"})
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.EK(apperrors.KindInvalidInput, i18n.KeyInvalidID, "invalid todo id")
	}
	return id, nil
}

func todoFailure(op string, err error) error {
	if errors.Is(err, cacheaside.ErrNotFound) || IsNotFound(err) {
		return &apperrors.Error{Kind: apperrors.KindNotFound, Key: i18n.KeyTodoNotFound, Message: "Todo not found", Cause: err}
	}
	return storeFailure(op, err)
}

func storeFailure(op string, err error) error {
	return apperrors.Wrap(apperrors.KindStoreUnavailable, op, fmt.Errorf("%s: %w", op, err))
}
