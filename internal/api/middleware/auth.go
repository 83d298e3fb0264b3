package middleware

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// InternalKeyHeader carries the admin key on protected requests.
const InternalKeyHeader = "X-Internal-API-Key" //nolint:gosec // header name, not a credential

const (
	// bcryptCost trades ~60ms per comparison for brute-force resistance.
	bcryptCost = 10
	// bcryptLimit is bcrypt's input size cap; longer keys are pre-hashed.
	bcryptLimit = 72
)

// ErrEmptyKey is returned when an empty admin key is hashed.
var ErrEmptyKey = errors.New("internal API key is empty")

// adminEndpoint is one protected route pattern: a path prefix, optionally
// restricted to a single HTTP method.
type adminEndpoint struct {
	method string
	prefix string
}

var (
	adminEndpoints   []adminEndpoint //nolint:gochecknoglobals // route registry, written during setup only
	adminEndpointsMu sync.RWMutex    //nolint:gochecknoglobals
)

// RegisterAdminEndpoint marks a route pattern as requiring the internal admin
// key. Patterns use the mux form "POST /mapping/run"; a bare path protects the
// prefix for every method. Called during route setup, before the server
// accepts traffic.
func RegisterAdminEndpoint(pattern string) {
	var endpoint adminEndpoint

	parts := strings.Fields(pattern)
	if len(parts) == 2 {
		endpoint = adminEndpoint{method: parts[0], prefix: parts[1]}
	} else {
		endpoint = adminEndpoint{prefix: pattern}
	}

	adminEndpointsMu.Lock()
	defer adminEndpointsMu.Unlock()

	adminEndpoints = append(adminEndpoints, endpoint)
}

// ResetAdminEndpoints clears the registry. Test helper.
func ResetAdminEndpoints() {
	adminEndpointsMu.Lock()
	defer adminEndpointsMu.Unlock()

	adminEndpoints = nil
}

func isAdminEndpoint(method, path string) bool {
	adminEndpointsMu.RLock()
	defer adminEndpointsMu.RUnlock()

	for _, endpoint := range adminEndpoints {
		if endpoint.method != "" && endpoint.method != method {
			continue
		}

		if strings.HasPrefix(path, endpoint.prefix) {
			return true
		}
	}

	return false
}

// KeyVerifier reports whether a presented admin key is valid.
type KeyVerifier interface {
	Verify(key string) bool
}

// InternalKeyVerifier holds a bcrypt hash of the internal admin key. The
// plaintext key is hashed once at startup and never retained.
type InternalKeyVerifier struct {
	hash string
}

var _ KeyVerifier = (*InternalKeyVerifier)(nil)

// NewInternalKeyVerifier hashes the configured admin key.
func NewInternalKeyVerifier(key string) (*InternalKeyVerifier, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	hash, err := bcrypt.GenerateFromPassword(bcryptInput(key), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash internal API key: %w", err)
	}

	return &InternalKeyVerifier{hash: string(hash)}, nil
}

// Verify compares a presented key against the stored hash in constant time.
func (v *InternalKeyVerifier) Verify(key string) bool {
	if key == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(v.hash), bcryptInput(key)) == nil
}

// bcryptInput pre-hashes keys longer than bcrypt's 72-byte limit so the whole
// key contributes to the comparison.
func bcryptInput(key string) []byte {
	if len(key) > bcryptLimit {
		digest := sha256.Sum256([]byte(key))

		return digest[:]
	}

	return []byte(key)
}

// InternalAuth guards registered admin endpoints with the internal admin key.
// Non-admin paths pass through untouched. A nil verifier rejects every admin
// request, which is the safe default when INTERNAL_API_KEY is unset.
func InternalAuth(verifier KeyVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isAdminEndpoint(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)

				return
			}

			correlationID := GetCorrelationID(r.Context())

			if verifier == nil || !verifier.Verify(r.Header.Get(InternalKeyHeader)) {
				logger.Warn("admin request rejected",
					slog.String("path", r.URL.Path),
					slog.String("correlation_id", correlationID),
				)

				detail := "A valid " + InternalKeyHeader + " header is required"
				if err := writeProblem(w, r, http.StatusUnauthorized, detail, correlationID); err != nil {
					http.Error(w, detail, http.StatusUnauthorized)
				}

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
