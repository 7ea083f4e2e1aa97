package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/fklc-labs/chatbot-service/internal/errors"
	"github.com/fklc-labs/chatbot-service/internal/logging"
)

const (
	defaultCleanupInterval = 10 * time.Minute
	defaultMaxTrackedKeys  = 10000
)

// RateLimiter applies a per-caller token bucket. Authenticated callers are
// keyed by user ID, anonymous callers by remote address. It implements the
// system.Service lifecycle: Start launches a periodic sweep that discards the
// limiter map once it grows past maxTracked, Stop ends it.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
	logger   *logging.Logger

	cleanupInterval time.Duration
	maxTracked      int
	stop            chan struct{}
	done            chan struct{}
}

// NewRateLimiter creates a rate limiter.
func NewRateLimiter(requestsPerSecond int, burst int, logger *logging.Logger) *RateLimiter {
	if logger == nil {
		logger = logging.NewDefault("ratelimit")
	}
	return &RateLimiter{
		limiters:        make(map[string]*rate.Limiter),
		rate:            rate.Limit(requestsPerSecond),
		burst:           burst,
		logger:          logger,
		cleanupInterval: defaultCleanupInterval,
		maxTracked:      defaultMaxTrackedKeys,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Handler returns the rate limiting middleware handler.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := GetUserID(r.Context())
		if key == "" {
			key = r.RemoteAddr
		}

		if !rl.getLimiter(key).Allow() {
			rl.logger.LogSecurityEvent(r.Context(), "rate_limit_exceeded", map[string]interface{}{
				"key":    key,
				"path":   r.URL.Path,
				"method": r.Method,
			})
			writeServiceError(w, errors.RateLimitExceeded(int(rl.rate), "1s"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) Name() string { return "ratelimit-cleanup" }

// Start launches the periodic cleanup so idle keys do not accumulate forever.
func (rl *RateLimiter) Start(context.Context) error {
	rl.stop = make(chan struct{})
	rl.done = make(chan struct{})
	go rl.cleanupLoop()
	return nil
}

// Stop ends the cleanup loop and waits for it to exit.
func (rl *RateLimiter) Stop(ctx context.Context) error {
	if rl.stop == nil {
		return nil
	}
	close(rl.stop)
	select {
	case <-rl.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (rl *RateLimiter) cleanupLoop() {
	defer close(rl.done)
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			if len(rl.limiters) > rl.maxTracked {
				rl.limiters = make(map[string]*rate.Limiter)
			}
			rl.mu.Unlock()
		}
	}
}
