package middleware

import (
	"log/slog"
	"net/http"
)

// Option applies one middleware to a handler.
type Option func(http.Handler) http.Handler

// Apply wraps handler with the given options. Options execute top-to-bottom:
// the first option becomes the outermost middleware.
func Apply(handler http.Handler, options ...Option) http.Handler {
	for i := len(options) - 1; i >= 0; i-- {
		handler = options[i](handler)
	}

	return handler
}

// WithCorrelationID adds correlation id middleware.
func WithCorrelationID() Option {
	return func(next http.Handler) http.Handler {
		return CorrelationID()(next)
	}
}

// WithRecovery adds panic recovery middleware.
func WithRecovery(logger *slog.Logger) Option {
	return func(next http.Handler) http.Handler {
		return Recovery(logger)(next)
	}
}

// WithInternalAuth adds admin-key enforcement for registered admin endpoints.
func WithInternalAuth(verifier KeyVerifier, logger *slog.Logger) Option {
	return func(next http.Handler) http.Handler {
		return InternalAuth(verifier, logger)(next)
	}
}

// WithRateLimit adds rate limiting. A nil limiter disables it.
func WithRateLimit(limiter RateLimiter, logger *slog.Logger) Option {
	if limiter == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return RateLimit(limiter, logger)(next)
	}
}

// WithRequestLogger adds request logging.
func WithRequestLogger(logger *slog.Logger) Option {
	return func(next http.Handler) http.Handler {
		return RequestLogger(logger)(next)
	}
}

// WithCORS adds CORS handling.
func WithCORS(config CORSConfig) Option {
	return func(next http.Handler) http.Handler {
		return CORS(config)(next)
	}
}
