package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Isolation modes supported by the platform. Shared keeps every tenant in
// one schema behind row-level policies; schema gives each tenant its own
// Postgres schema materialized from a template.
const (
	IsolationShared = "shared"
	IsolationSchema = "schema"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Platform      PlatformConfig
	SessionBridge SessionBridgeConfig
	Observability ObservabilityConfig
	Security      SecurityConfig
	RateLimit     RateLimitConfig
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// PlatformConfig holds multi-tenant platform configuration.
// RootDomain is the canonical production domain (e.g. "gametaverns.com");
// both the hostname resolver and the session bridge derive from it, so it
// must come from this single value or cross-subdomain login silently breaks.
type PlatformConfig struct {
	RootDomain    string
	Environment   string // "production" or "development"
	ReservedSlugs []string
	IsolationMode string // IsolationShared or IsolationSchema
}

// IsProduction reports whether the deployment runs in its production configuration.
func (p PlatformConfig) IsProduction() bool {
	return p.Environment == "production"
}

// SessionBridgeConfig holds the cross-subdomain auth cookie configuration
type SessionBridgeConfig struct {
	CookieName string
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string
	OTELEnabled    bool
	ServiceName    string
	ServiceVersion string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	Argon2Memory      uint32
	Argon2Iterations  uint32
	Argon2Parallelism uint8
	Argon2SaltLength  uint32
	Argon2KeyLength   uint32
	TokenSigningKey   string
	AccessTokenTTL    time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  parseDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: parseDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  parseDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "gametaverns"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "gametaverns"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    parseInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    parseInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: parseDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Platform: PlatformConfig{
			RootDomain:    getEnv("PLATFORM_ROOT_DOMAIN", "gametaverns.com"),
			Environment:   getEnv("PLATFORM_ENV", "development"),
			ReservedSlugs: parseList("PLATFORM_RESERVED_SLUGS"),
			IsolationMode: getEnv("PLATFORM_ISOLATION_MODE", IsolationShared),
		},
		SessionBridge: SessionBridgeConfig{
			CookieName: getEnv("SESSION_BRIDGE_COOKIE_NAME", "gt_auth"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			OTELEnabled:    parseBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "gametaverns"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "0.1.0"),
		},
		Security: SecurityConfig{
			Argon2Memory:      uint32(parseInt("ARGON2_MEMORY", 65536)),
			Argon2Iterations:  uint32(parseInt("ARGON2_ITERATIONS", 3)),
			Argon2Parallelism: uint8(parseInt("ARGON2_PARALLELISM", 4)),
			Argon2SaltLength:  uint32(parseInt("ARGON2_SALT_LENGTH", 16)),
			Argon2KeyLength:   uint32(parseInt("ARGON2_KEY_LENGTH", 32)),
			TokenSigningKey:   getEnv("TOKEN_SIGNING_KEY", ""),
			AccessTokenTTL:    parseDuration("ACCESS_TOKEN_TTL", "15m"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: float64(parseInt("RATELIMIT_RPS", 10)),
			Burst:             parseInt("RATELIMIT_BURST", 20),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Platform.RootDomain == "" {
		return fmt.Errorf("PLATFORM_ROOT_DOMAIN is required")
	}
	if strings.Contains(c.Platform.RootDomain, "://") || strings.Contains(c.Platform.RootDomain, "/") {
		return fmt.Errorf("PLATFORM_ROOT_DOMAIN must be a bare hostname, got %q", c.Platform.RootDomain)
	}
	if c.Platform.IsolationMode != IsolationShared && c.Platform.IsolationMode != IsolationSchema {
		return fmt.Errorf("PLATFORM_ISOLATION_MODE must be %q or %q", IsolationShared, IsolationSchema)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	d, err := time.ParseDuration(value)
	if err != nil {
		// Fallback to default
		d, _ = time.ParseDuration(defaultValue)
	}
	return d
}

// parseList parses a comma-separated environment value into a slice,
// trimming whitespace and dropping empty entries.
func parseList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
