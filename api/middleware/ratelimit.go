package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/propertyloyalty/points-backend/api/responses"
	"github.com/propertyloyalty/points-backend/pkg/config"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
	"github.com/propertyloyalty/points-backend/pkg/logger"
)

// sweepEvery bounds how many new callers are admitted between idle sweeps.
const sweepEvery = 256

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands every caller a token bucket. Buckets live in process memory,
// so each API replica enforces its own budget.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	logg    *logger.Logger
	now     func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	added   int
}

// NewRateLimiter returns nil when cfg disables limiting; a nil limiter's
// Handler passes requests straight through.
func NewRateLimiter(cfg config.RateLimitConfig, logg *logger.Logger) *RateLimiter {
	if cfg.PerSecond <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(cfg.PerSecond),
		burst:   burst,
		idleTTL: cfg.IdleTTL,
		logg:    logg,
		now:     time.Now,
		buckets: map[string]*bucket{},
	}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := callerKey(r)
		if rl.allow(key) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
		responses.WriteError(r.Context(), rl.logg, w,
			pkgerrors.New(pkgerrors.CodeRateLimited, "too many requests, slow down"))
	})
}

func (rl *RateLimiter) allow(key string) bool {
	now := rl.now()

	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
		rl.added++
		if rl.added >= sweepEvery {
			rl.sweepLocked(now)
		}
	}
	b.lastSeen = now
	rl.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) sweepLocked(now time.Time) {
	rl.added = 0
	if rl.idleTTL <= 0 {
		return
	}
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.idleTTL {
			delete(rl.buckets, key)
		}
	}
}

func (rl *RateLimiter) retryAfterSeconds() int {
	secs := int(1 / float64(rl.limit))
	if secs < 1 {
		return 1
	}
	return secs
}

// callerKey scopes buckets to the token's (user, identity); unauthenticated
// requests fall back to the client address.
func callerKey(r *http.Request) string {
	if userID := UserIDFromContext(r.Context()); userID != "" {
		return userID + ":" + IdentityFromContext(r.Context()).String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
