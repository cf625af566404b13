package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
	"github.com/aussiebroadwan/rollcall/pkg/metricx"
)

// Storage drivers.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

type Config struct {
	JWTSecret  string        // Required: HMAC secret, at least 32 bytes
	AccessTTL  time.Duration // Access token lifetime (default: 15m)
	RefreshTTL time.Duration // Refresh token lifetime (default: 168h)
	Issuer     string        // iss claim (default: rollcall-auth)
	AuthHeader string        // Header carrying the access token (default: Authorization)
	AuthScheme string        // Scheme prefix in that header (default: Bearer)

	Storage      string // sqlite or memory (default: sqlite)
	DatabaseFile string // Path to the SQLite database file (default: ./auth.db)
	BcryptCost   int    // bcrypt work factor (default: 12)
	SeedUsers    bool   // Create the admin and employee accounts on startup
	SeedPassword string // Password for seeded accounts; generated when empty

	Env                  string        // Environment (dev, test, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port, 0 picks a free port (default: 8080)
	AdminPort            int           // Metrics and API docs port, 0 disables (default: 9090)
	MetricsExporter      string        // prometheus or none (default: prometheus)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired refresh token sweep interval (default: 1h)
}

// ConfigError reports a configuration value that prevents startup.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func LoadConfig() Config {
	return Config{
		JWTSecret:  os.Getenv("AUTH_JWT_SECRET"),
		AccessTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL: getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		Issuer:     getEnvOrDefault("AUTH_ISSUER", "rollcall-auth"),
		AuthHeader: getEnvOrDefault("AUTH_HEADER", "Authorization"),
		AuthScheme: getEnvOrDefault("AUTH_SCHEME", "Bearer"),

		Storage:      strings.ToLower(getEnvOrDefault("AUTH_STORAGE", StorageSQLite)),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		BcryptCost:   getEnvIntOrDefault("AUTH_BCRYPT_COST", cryptox.DefaultBcryptCost),
		SeedUsers:    getEnvBoolOrDefault("AUTH_SEED_USERS", false),
		SeedPassword: os.Getenv("AUTH_SEED_PASSWORD"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		AdminPort:            getEnvIntOrDefault("ADMIN_PORT", 9090),
		MetricsExporter:      getEnvOrDefault("METRICS_EXPORTER", metricx.ExporterPrometheus),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// IsDev reports whether internal error detail may be exposed.
func (c Config) IsDev() bool { return c.Env == "dev" }

// Validate checks the values that would otherwise fail later at runtime.
func (c Config) Validate() error {
	if len(c.JWTSecret) < jwtx.MinKeyBytes {
		return &ConfigError{Field: "AUTH_JWT_SECRET", Reason: "secret too short", Err: jwtx.ErrKeyTooShort}
	}
	if c.AccessTTL <= 0 {
		return &ConfigError{Field: "AUTH_ACCESS_TTL", Reason: "must be positive"}
	}
	if c.RefreshTTL <= c.AccessTTL {
		return &ConfigError{Field: "AUTH_REFRESH_TTL", Reason: "must be longer than the access token TTL"}
	}
	if c.Issuer == "" {
		return &ConfigError{Field: "AUTH_ISSUER", Reason: "must not be empty"}
	}
	if c.AuthHeader == "" || strings.ContainsAny(c.AuthScheme, " \t") || c.AuthScheme == "" {
		return &ConfigError{Field: "AUTH_HEADER/AUTH_SCHEME", Reason: "header and a single-word scheme are required"}
	}

	switch c.Storage {
	case StorageSQLite:
		if c.DatabaseFile == "" {
			return &ConfigError{Field: "AUTH_DATABASE_FILE", Reason: "required for sqlite storage"}
		}
	case StorageMemory:
	default:
		return &ConfigError{Field: "AUTH_STORAGE", Reason: fmt.Sprintf("unknown driver %q", c.Storage)}
	}

	if _, err := cryptox.NewHasher(c.BcryptCost); err != nil {
		return &ConfigError{Field: "AUTH_BCRYPT_COST", Reason: "out of range", Err: err}
	}
	if c.BcryptCost < cryptox.DefaultBcryptCost && c.Env != "dev" && c.Env != "test" {
		return &ConfigError{Field: "AUTH_BCRYPT_COST", Reason: fmt.Sprintf("must be at least %d outside dev and test", cryptox.DefaultBcryptCost)}
	}

	if c.SeedUsers && c.SeedPassword == "" && !c.IsDev() {
		return &ConfigError{Field: "AUTH_SEED_PASSWORD", Reason: "required when seeding outside dev"}
	}

	switch c.MetricsExporter {
	case metricx.ExporterPrometheus, metricx.ExporterNone:
	default:
		return &ConfigError{Field: "METRICS_EXPORTER", Reason: fmt.Sprintf("unknown exporter %q", c.MetricsExporter)}
	}

	if c.Port < 0 || c.Port > 65535 {
		return &ConfigError{Field: "PORT", Reason: "out of range"}
	}
	if c.AdminPort < 0 || c.AdminPort > 65535 || (c.AdminPort > 0 && c.AdminPort == c.Port) {
		return &ConfigError{Field: "ADMIN_PORT", Reason: "out of range or equal to PORT"}
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
