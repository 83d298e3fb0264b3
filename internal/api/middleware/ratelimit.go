package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	burstMultiplier        = 2
	defaultGlobalRPS       = 100
	defaultClientRPS       = 20
	defaultCleanupInterval = 5 * time.Minute
	defaultIdleTimeout     = time.Hour
)

type (
	// RateLimiter decides whether a request from the given client may
	// proceed.
	RateLimiter interface {
		Allow(clientKey string) bool
	}

	// RateLimitConfig configures the in-memory limiter. Zero values fall
	// back to the defaults.
	RateLimitConfig struct {
		GlobalRPS       int
		ClientRPS       int
		CleanupInterval time.Duration
		IdleTimeout     time.Duration
	}

	// InMemoryRateLimiter applies a global token bucket plus one bucket per
	// client address. Client buckets idle past the timeout are dropped by a
	// background sweep. Suitable for single-node deployments.
	InMemoryRateLimiter struct {
		global    *rate.Limiter
		perClient map[string]*clientLimiter
		mu        sync.Mutex
		ticker    *time.Ticker
		done      chan struct{}

		clientRPS   int
		idleTimeout time.Duration
	}

	clientLimiter struct {
		limiter    *rate.Limiter
		lastAccess time.Time
	}
)

// NewInMemoryRateLimiter builds the limiter and starts its cleanup sweep.
// Callers must Close it.
func NewInMemoryRateLimiter(cfg RateLimitConfig) *InMemoryRateLimiter {
	if cfg.GlobalRPS <= 0 {
		cfg.GlobalRPS = defaultGlobalRPS
	}

	if cfg.ClientRPS <= 0 {
		cfg.ClientRPS = defaultClientRPS
	}

	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}

	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}

	limiter := &InMemoryRateLimiter{
		global:      rate.NewLimiter(rate.Limit(cfg.GlobalRPS), cfg.GlobalRPS*burstMultiplier),
		perClient:   make(map[string]*clientLimiter),
		ticker:      time.NewTicker(cfg.CleanupInterval),
		done:        make(chan struct{}),
		clientRPS:   cfg.ClientRPS,
		idleTimeout: cfg.IdleTimeout,
	}

	go limiter.sweep()

	return limiter
}

// Allow checks the global bucket first, then the client's bucket.
func (l *InMemoryRateLimiter) Allow(clientKey string) bool {
	if !l.global.Allow() {
		return false
	}

	l.mu.Lock()

	client, ok := l.perClient[clientKey]
	if !ok {
		client = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(l.clientRPS), l.clientRPS*burstMultiplier),
		}
		l.perClient[clientKey] = client
	}

	client.lastAccess = time.Now()
	l.mu.Unlock()

	return client.limiter.Allow()
}

// Close stops the cleanup sweep.
func (l *InMemoryRateLimiter) Close() error {
	l.ticker.Stop()
	close(l.done)

	return nil
}

func (l *InMemoryRateLimiter) sweep() {
	for {
		select {
		case <-l.ticker.C:
			cutoff := time.Now().Add(-l.idleTimeout)

			l.mu.Lock()
			for key, client := range l.perClient {
				if client.lastAccess.Before(cutoff) {
					delete(l.perClient, key)
				}
			}
			l.mu.Unlock()
		case <-l.done:
			return
		}
	}
}

// RateLimit rejects over-limit requests with a 429 problem response.
// Clients are keyed by remote address.
func RateLimit(limiter RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientKey(r)) {
				correlationID := GetCorrelationID(r.Context())
				detail := "Rate limit exceeded. Please retry after some time."

				if err := writeProblem(w, r, http.StatusTooManyRequests, detail, correlationID); err != nil {
					logger.Error("failed to write rate limit response",
						slog.String("correlation_id", correlationID),
						slog.String("error", err.Error()),
					)
					http.Error(w, detail, http.StatusTooManyRequests)
				}

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey extracts the client host from the remote address, falling back to
// the raw address when it lacks a port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
