package session

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/louisbranch/docker-mastery/internal/platform/requestmeta"
	"github.com/louisbranch/docker-mastery/internal/platform/timeouts"
)

// DefaultCookieName is the session cookie name.
const DefaultCookieName = "dm_session"

// Options configures a Manager.
type Options struct {
	CookieName string
	TTL        time.Duration
	// SecureAlways marks the cookie Secure even on plain HTTP requests.
	SecureAlways bool
	// Policy decides which forwarded headers mark a request as HTTPS.
	Policy requestmeta.Policy
	Logger *log.Logger
	Now    func() time.Time
}

// Manager resolves the visitor's session for each request.
type Manager struct {
	store        *Store
	signer       *Signer
	cookieName   string
	ttl          time.Duration
	secureAlways bool
	policy       requestmeta.Policy
	logger       *log.Logger
	now          func() time.Time
}

// NewManager builds a Manager over store, signing cookies with signer.
func NewManager(store *Store, signer *Signer, opts Options) *Manager {
	m := &Manager{
		store:        store,
		signer:       signer,
		cookieName:   strings.TrimSpace(opts.CookieName),
		ttl:          opts.TTL,
		secureAlways: opts.SecureAlways,
		policy:       opts.Policy,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if m.cookieName == "" {
		m.cookieName = DefaultCookieName
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.logger == nil {
		m.logger = log.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

func (m *Manager) secure(r *http.Request) bool {
	return m.secureAlways || requestmeta.IsHTTPSWithPolicy(r, m.policy)
}

// Handle is the request-scoped view of a session. It is saved only when
// modified.
type Handle struct {
	manager *Manager
	w       http.ResponseWriter
	r       *http.Request

	mu       sync.Mutex
	session  Session
	modified bool
}

type handleContextKey struct{}

// FromContext returns the session handle installed by Middleware.
func FromContext(ctx context.Context) (*Handle, bool) {
	if ctx == nil {
		return nil, false
	}
	h, ok := ctx.Value(handleContextKey{}).(*Handle)
	return h, ok && h != nil
}

// Middleware installs a *Handle in the request context. An unknown, expired
// or unverifiable cookie yields a fresh session.
func (m *Manager) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := &Handle{manager: m, w: w, r: r, session: m.resolve(r)}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), handleContextKey{}, h)))
		})
	}
}

func (m *Manager) resolve(r *http.Request) Session {
	if cookie, err := r.Cookie(m.cookieName); err == nil {
		id, err := m.signer.Parse(cookie.Value)
		if err == nil {
			ctx, cancel := context.WithTimeout(r.Context(), timeouts.CacheOp)
			sess, found, err := m.store.Load(ctx, id)
			cancel()
			if err != nil {
				m.logger.Printf("session degraded op=load err=%v", err)
			}
			if found {
				return sess
			}
		}
	}
	return Session{ID: uuid.NewString(), CreatedAt: m.now().UTC()}
}

// Update applies fn to the session and marks it modified.
func (h *Handle) Update(fn func(*Session)) Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	if fn != nil {
		fn(&h.session)
		h.modified = true
	}
	return h.session
}

// Commit persists a modified session and sets the cookie. It must run before
// the response body is written. Persistence failures are logged, never
// returned: a lost session only restarts the visitor's counter.
func (h *Handle) Commit(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.modified {
		return
	}
	m := h.manager
	opCtx, cancel := context.WithTimeout(ctx, timeouts.CacheOp)
	defer cancel()
	if err := m.store.Save(opCtx, h.session); err != nil {
		m.logger.Printf("session degraded op=save session_id=%s err=%v", h.session.ID, err)
	}
	token, err := m.signer.Sign(h.session.ID, m.ttl)
	if err != nil {
		m.logger.Printf("session degraded op=sign session_id=%s err=%v", h.session.ID, err)
		return
	}
	http.SetCookie(h.w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl / time.Second),
		HttpOnly: true,
		Secure:   m.secure(h.r),
		SameSite: http.SameSiteLaxMode,
	})
	h.modified = false
}

// Destroy deletes the session and expires the cookie.
func (h *Handle) Destroy(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := h.manager
	if err := m.store.Delete(ctx, h.session.ID); err != nil {
		m.logger.Printf("session degraded op=delete session_id=%s err=%v", h.session.ID, err)
	}
	http.SetCookie(h.w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure(h.r),
		SameSite: http.SameSiteLaxMode,
	})
	h.session = Session{ID: uuid.NewString(), CreatedAt: m.now().UTC()}
	h.modified = false
}
