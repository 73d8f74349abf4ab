// Package config loads application settings from environment variables.
// Defaults are applied for unset values and everything is validated on
// startup so misconfiguration fails fast.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Load      LoadConfig
	Transcode TranscodeConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	History   HistoryConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including in-flight loads (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds settings for the optional history database.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. History is disabled when empty.
	// Supports both DATABASE_URL and DB_URL.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a database is configured.
func (c *DatabaseConfig) Enabled() bool { return c.URL != "" }

// LoadConfig holds file loading settings.
type LoadConfig struct {
	// RootDir is the directory request paths are resolved against (default: .)
	RootDir string `env:"LOAD_ROOT_DIR" default:"."`

	// ConfineToRoot rejects paths resolving outside RootDir (default: true)
	ConfineToRoot bool `env:"LOAD_CONFINE_TO_ROOT" default:"true"`

	// MaxFileSize is the maximum bytes read from one file (default: 100MB)
	MaxFileSize int64 `env:"LOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of parallel loads (default: 8)
	MaxConcurrent int `env:"LOAD_MAX_CONCURRENT" default:"8"`

	// MaxWaitTime is how long to wait for a load slot (default: 10s)
	MaxWaitTime time.Duration `env:"LOAD_MAX_WAIT_TIME" default:"10s"`

	// StrictEncoding rejects unknown encoding labels instead of falling
	// back to UTF-8 (default: false)
	StrictEncoding bool `env:"LOAD_STRICT_ENCODING" default:"false"`
}

// TranscodeConfig holds transcoder buffer sizes in bytes.
type TranscodeConfig struct {
	InputSize        int `env:"TRANSCODE_INPUT_SIZE" default:"2048"`
	IntermediateSize int `env:"TRANSCODE_INTERMEDIATE_SIZE" default:"4096"`
	OutputSize       int `env:"TRANSCODE_OUTPUT_SIZE" default:"4096"`
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// OpenLimit is requests per minute for the open and preview endpoints (default: 30)
	OpenLimit int `env:"RATE_LIMIT_OPEN" default:"30"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey enables API key authentication on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// HistoryConfig holds history retention settings.
type HistoryConfig struct {
	// RetentionDays is days to keep history entries (default: 30)
	RetentionDays int `env:"HISTORY_RETENTION_DAYS" default:"30"`

	// PurgeInterval is how often to purge old entries (default: 24h)
	PurgeInterval time.Duration `env:"HISTORY_PURGE_INTERVAL" default:"24h"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
