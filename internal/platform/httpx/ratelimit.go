package httpx

import (
	"net/http"
	"sync"
	"time"

	apperrors "github.com/louisbranch/docker-mastery/internal/platform/errors"
	"github.com/louisbranch/docker-mastery/internal/platform/errors/i18n"
	"github.com/louisbranch/docker-mastery/internal/platform/requestmeta"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiterIdle is how long an idle client's bucket is kept.
const limiterIdle = 10 * time.Minute

// RateLimiter hands out one token bucket per client address.
type RateLimiter struct {
	limit  rate.Limit
	burst  int
	policy requestmeta.Policy

	mu      sync.Mutex
	clients *gocache.Cache
}

// NewRateLimiter builds a limiter allowing rps requests per second with the
// given burst per client. A non-positive rps disables limiting.
func NewRateLimiter(rps float64, burst int, policy requestmeta.Policy) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		policy:  policy,
		clients: gocache.New(limiterIdle, limiterIdle),
	}
}

// Allow reports whether client may make a request now.
func (l *RateLimiter) Allow(client string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	return l.limiter(client).Allow()
}

func (l *RateLimiter) limiter(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.clients.Get(client); ok {
		l.clients.SetDefault(client, existing)
		return existing.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(l.limit, l.burst)
	l.clients.SetDefault(client, limiter)
	return limiter
}

// Middleware rejects requests over the client's budget with 429.
func (l *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		if l == nil || l.limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(requestmeta.ClientIP(r, l.policy)) {
				w.Header().Set("Retry-After", "1")
				WriteError(w, r, apperrors.EK(apperrors.KindRateLimited, i18n.KeyRateLimited, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
