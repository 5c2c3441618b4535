// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading functions accept context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig; loader failures wrap ErrLoadConfig.
package config

// Store kinds accepted by the "store" key.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile, when set, sends logs to a rotating file instead of stdout.
	LogFile string `koanf:"log_file"`

	// LogJSON switches log lines to JSON.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the book store backend: memory or sqlite.
	Store string `koanf:"store"`

	// SQLiteDSN is the database path or DSN used by the sqlite store.
	SQLiteDSN string `koanf:"sqlite_dsn"`

	// SeedFile, when set, preloads the memory store from a YAML list of books.
	SeedFile string `koanf:"seed_file"`

	// MaxBodyBytes caps request body size on write endpoints.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// RateLimitRPS enables a global token bucket when positive.
	RateLimitRPS float64 `koanf:"rate_limit_rps"`

	// RateLimitBurst is the bucket size; defaults to 1 when the limiter is on.
	RateLimitBurst int `koanf:"rate_limit_burst"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":8000",
		Store:          StoreMemory,
		SQLiteDSN:      "bookshelf.db",
		MaxBodyBytes:   1 << 20,
		RateLimitRPS:   0,
		RateLimitBurst: 20,
	}
}
