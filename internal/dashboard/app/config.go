package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	BackendBaseURL string // Required: base URL of the scholarship backend API

	Port                int           // HTTP server port (default: 8080)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	DefaultRole  string        // Role assumed when the backend has no assignment (default: student)
	RoleCacheTTL time.Duration // How long resolved roles stay fresh (default: 5m)
	RedisAddr    string        // Optional: Redis address for the shared role cache
	RedisDB      int           // Optional: Redis database index

	TokenDBFile  string // Optional: SQLite file persisting the session token across restarts
	TokenProfile string // Profile name scoping the persisted token (default: default)

	RouteTableFile string // Optional: YAML file overriding screen role assignments

	OIDCProviderName string // Optional: display name for the federated provider (default: google)
	OIDCIssuerURL    string // Optional: enables federated sign-in when set
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string
}

func LoadConfig() Config {
	return Config{
		BackendBaseURL: getEnvOrDefault("BACKEND_BASE_URL", "http://localhost:5000"),

		Port:                getEnvIntOrDefault("PORT", 8080),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		DefaultRole:  getEnvOrDefault("DEFAULT_ROLE", "student"),
		RoleCacheTTL: getEnvDurationOrDefault("ROLE_CACHE_TTL", 5*time.Minute),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RedisDB:      getEnvIntOrDefault("REDIS_DB", 0),

		TokenDBFile:  os.Getenv("TOKEN_DB_FILE"),
		TokenProfile: getEnvOrDefault("TOKEN_PROFILE", "default"),

		RouteTableFile: os.Getenv("ROUTE_TABLE_FILE"),

		OIDCProviderName: getEnvOrDefault("OIDC_PROVIDER_NAME", "google"),
		OIDCIssuerURL:    os.Getenv("OIDC_ISSUER_URL"),
		OIDCClientID:     os.Getenv("OIDC_CLIENT_ID"),
		OIDCClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
		OIDCRedirectURL:  os.Getenv("OIDC_REDIRECT_URL"),
	}
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

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
