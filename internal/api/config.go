// Package api serves the UES over HTTP: entity and lineage reads, review
// workflow, run monitoring and the mapping-run trigger.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/uniscore-io/uniscore/internal/config"
)

const (
	defaultPort       = 8080
	maxPort           = 65535
	defaultHost       = "0.0.0.0"
	defaultTimeout    = 30 * time.Second
	defaultLogLevel   = slog.LevelInfo
	defaultCORSMaxAge = 86400
)

var (
	// ErrInvalidPort indicates the port number is outside 1-65535.
	ErrInvalidPort = errors.New("invalid port")

	// ErrEmptyHost indicates the server host address is empty.
	ErrEmptyHost = errors.New("host cannot be empty")

	// ErrInvalidTimeout indicates a zero or negative server timeout.
	ErrInvalidTimeout = errors.New("timeout must be positive")
)

type (
	// ServerConfig holds the HTTP server configuration. Pure configuration,
	// no runtime dependencies.
	ServerConfig struct {
		Port               int
		Host               string
		ReadTimeout        time.Duration
		WriteTimeout       time.Duration
		ShutdownTimeout    time.Duration
		LogLevel           slog.Level
		CORSAllowedOrigins []string
		CORSAllowedMethods []string
		CORSAllowedHeaders []string
		CORSMaxAge         int
	}

	// CORSConfig adapts the server's CORS fields to the middleware interface.
	CORSConfig struct {
		AllowedOrigins []string
		AllowedMethods []string
		AllowedHeaders []string
		MaxAge         int
	}
)

// LoadServerConfig loads the server configuration from environment variables
// with sensible defaults.
func LoadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            config.GetEnvInt("UNISCORE_SERVER_PORT", defaultPort),
		Host:            config.GetEnvStr("UNISCORE_SERVER_HOST", defaultHost),
		ReadTimeout:     config.GetEnvDuration("UNISCORE_SERVER_READ_TIMEOUT", defaultTimeout),
		WriteTimeout:    config.GetEnvDuration("UNISCORE_SERVER_WRITE_TIMEOUT", defaultTimeout),
		ShutdownTimeout: config.GetEnvDuration("UNISCORE_SERVER_SHUTDOWN_TIMEOUT", defaultTimeout),
		LogLevel:        config.GetEnvLogLevel("UNISCORE_SERVER_LOG_LEVEL", defaultLogLevel),
		CORSAllowedOrigins: splitList(
			config.GetEnvStr("UNISCORE_CORS_ALLOWED_ORIGINS", "*"),
		),
		CORSAllowedMethods: splitList(
			config.GetEnvStr("UNISCORE_CORS_ALLOWED_METHODS", "GET,POST,OPTIONS"),
		),
		CORSAllowedHeaders: splitList(
			config.GetEnvStr("UNISCORE_CORS_ALLOWED_HEADERS",
				"Content-Type,X-Correlation-ID,X-Internal-API-Key"),
		),
		CORSMaxAge: config.GetEnvInt("UNISCORE_CORS_MAX_AGE", defaultCORSMaxAge),
	}
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ToCORSConfig extracts the CORS fields for the middleware.
func (c *ServerConfig) ToCORSConfig() *CORSConfig {
	return &CORSConfig{
		AllowedOrigins: c.CORSAllowedOrigins,
		AllowedMethods: c.CORSAllowedMethods,
		AllowedHeaders: c.CORSAllowedHeaders,
		MaxAge:         c.CORSMaxAge,
	}
}

// Validate checks the configuration before the server starts.
func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > maxPort {
		return fmt.Errorf("%w: %d, must be between 1 and %d", ErrInvalidPort, c.Port, maxPort)
	}

	if c.Host == "" {
		return ErrEmptyHost
	}

	for name, timeout := range map[string]time.Duration{
		"read":     c.ReadTimeout,
		"write":    c.WriteTimeout,
		"shutdown": c.ShutdownTimeout,
	} {
		if timeout <= 0 {
			return fmt.Errorf("%w: %s timeout %v", ErrInvalidTimeout, name, timeout)
		}
	}

	return nil
}

// GetAllowedOrigins returns the allowed CORS origins.
func (c *CORSConfig) GetAllowedOrigins() []string { return c.AllowedOrigins }

// GetAllowedMethods returns the allowed CORS methods.
func (c *CORSConfig) GetAllowedMethods() []string { return c.AllowedMethods }

// GetAllowedHeaders returns the allowed CORS headers.
func (c *CORSConfig) GetAllowedHeaders() []string { return c.AllowedHeaders }

// GetMaxAge returns the CORS preflight cache age.
func (c *CORSConfig) GetMaxAge() int { return c.MaxAge }

// splitList parses a comma-separated environment value, trimming whitespace
// and dropping empty entries.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}
