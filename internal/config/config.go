package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	GoEnv string `env:"GO_ENV" default:"development"`

	// Service Ports
	HTTPPort int `env:"HTTP_PORT" default:"8080"`

	// Database (postgres DSN, or sqlite:<path> for local runs)
	DatabaseURL    string `env:"DATABASE_URL" default:"sqlite:appgambit.db"`
	DBMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" default:"20"`
	DBMaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" default:"5"`

	// Authentication
	JWTSecret       string        `env:"JWT_SECRET" required:"true"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" default:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" default:"168h"`

	// Cache
	CacheDriver  string        `env:"CACHE_DRIVER" default:"memory"` // memory | redis
	CacheSize    int           `env:"CACHE_SIZE" default:"1024"`
	CacheTTL     time.Duration `env:"CACHE_TTL" default:"5m"`
	CacheSliding time.Duration `env:"CACHE_SLIDING" default:"2m"`

	// Redis
	RedisURL      string `env:"REDIS_URL" default:"redis://localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// File Storage
	StorageDriver  string `env:"STORAGE_DRIVER" default:"database"` // database | minio
	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET" default:"appgambit"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL" default:"false"`
	UploadMaxSize  string `env:"UPLOAD_MAX_SIZE" default:"100MB"`

	// Rate limiting
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" default:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" default:"40"`

	// External login (OAuth2 authorization code + PKCE)
	OAuthProvider     string   `env:"OAUTH_PROVIDER"`
	OAuthClientID     string   `env:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string   `env:"OAUTH_CLIENT_SECRET"`
	OAuthAuthURL      string   `env:"OAUTH_AUTH_URL"`
	OAuthTokenURL     string   `env:"OAUTH_TOKEN_URL"`
	OAuthUserInfoURL  string   `env:"OAUTH_USERINFO_URL"`
	OAuthRedirectURL  string   `env:"OAUTH_REDIRECT_URL"`
	OAuthScopes       []string `env:"OAUTH_SCOPES" default:"openid,email,profile"`

	// Development
	LogLevel    string   `env:"LOG_LEVEL" default:"info"`
	LogFormat   string   `env:"LOG_FORMAT" default:"text"`
	CORSOrigins []string `env:"CORS_ORIGINS" default:"http://localhost:3000"`

	// TLS
	TLSEnabled  bool   `env:"TLS_ENABLED" default:"false"`
	TLSCertPath string `env:"TLS_CERT_PATH" default:"./cert/localhost.pem"`
	TLSKeyPath  string `env:"TLS_KEY_PATH" default:"./cert/localhost-key.pem"`
}

// LoadConfig loads configuration from environment variables, reading a .env
// file first when one exists.
func LoadConfig() (*Config, error) {
	// a missing .env is fine, system env vars still apply
	_ = godotenv.Load(".env")

	config := &Config{}

	loaders := []func() error{
		func() error { return loadEnvString(&config.GoEnv, "GO_ENV", "development") },
		func() error { return loadEnvInt(&config.HTTPPort, "HTTP_PORT", 8080) },

		func() error { return loadEnvString(&config.DatabaseURL, "DATABASE_URL", "sqlite:appgambit.db") },
		func() error { return loadEnvInt(&config.DBMaxOpenConns, "DB_MAX_OPEN_CONNS", 20) },
		func() error { return loadEnvInt(&config.DBMaxIdleConns, "DB_MAX_IDLE_CONNS", 5) },

		func() error { return loadEnvStringRequired(&config.JWTSecret, "JWT_SECRET") },
		func() error { return loadEnvDuration(&config.AccessTokenTTL, "ACCESS_TOKEN_TTL", 15*time.Minute) },
		func() error { return loadEnvDuration(&config.RefreshTokenTTL, "REFRESH_TOKEN_TTL", 7*24*time.Hour) },

		func() error { return loadEnvString(&config.CacheDriver, "CACHE_DRIVER", "memory") },
		func() error { return loadEnvInt(&config.CacheSize, "CACHE_SIZE", 1024) },
		func() error { return loadEnvDuration(&config.CacheTTL, "CACHE_TTL", 5*time.Minute) },
		func() error { return loadEnvDuration(&config.CacheSliding, "CACHE_SLIDING", 2*time.Minute) },

		func() error { return loadEnvString(&config.RedisURL, "REDIS_URL", "redis://localhost:6379") },
		func() error { return loadEnvString(&config.RedisPassword, "REDIS_PASSWORD", "") },

		func() error { return loadEnvString(&config.StorageDriver, "STORAGE_DRIVER", "database") },
		func() error { return loadEnvString(&config.MinioEndpoint, "MINIO_ENDPOINT", "") },
		func() error { return loadEnvString(&config.MinioAccessKey, "MINIO_ACCESS_KEY", "") },
		func() error { return loadEnvString(&config.MinioSecretKey, "MINIO_SECRET_KEY", "") },
		func() error { return loadEnvString(&config.MinioBucket, "MINIO_BUCKET", "appgambit") },
		func() error { return loadEnvBool(&config.MinioUseSSL, "MINIO_USE_SSL", false) },
		func() error { return loadEnvString(&config.UploadMaxSize, "UPLOAD_MAX_SIZE", "100MB") },

		func() error { return loadEnvFloat(&config.RateLimitRPS, "RATE_LIMIT_RPS", 20) },
		func() error { return loadEnvInt(&config.RateLimitBurst, "RATE_LIMIT_BURST", 40) },

		func() error { return loadEnvString(&config.OAuthProvider, "OAUTH_PROVIDER", "") },
		func() error { return loadEnvString(&config.OAuthClientID, "OAUTH_CLIENT_ID", "") },
		func() error { return loadEnvString(&config.OAuthClientSecret, "OAUTH_CLIENT_SECRET", "") },
		func() error { return loadEnvString(&config.OAuthAuthURL, "OAUTH_AUTH_URL", "") },
		func() error { return loadEnvString(&config.OAuthTokenURL, "OAUTH_TOKEN_URL", "") },
		func() error { return loadEnvString(&config.OAuthUserInfoURL, "OAUTH_USERINFO_URL", "") },
		func() error { return loadEnvString(&config.OAuthRedirectURL, "OAUTH_REDIRECT_URL", "") },
		func() error {
			return loadEnvStringSlice(&config.OAuthScopes, "OAUTH_SCOPES", []string{"openid", "email", "profile"})
		},

		func() error { return loadEnvString(&config.LogLevel, "LOG_LEVEL", "info") },
		func() error { return loadEnvString(&config.LogFormat, "LOG_FORMAT", "text") },
		func() error {
			return loadEnvStringSlice(&config.CORSOrigins, "CORS_ORIGINS", []string{"http://localhost:3000"})
		},

		func() error { return loadEnvBool(&config.TLSEnabled, "TLS_ENABLED", false) },
		func() error { return loadEnvString(&config.TLSCertPath, "TLS_CERT_PATH", "./cert/localhost.pem") },
		func() error { return loadEnvString(&config.TLSKeyPath, "TLS_KEY_PATH", "./cert/localhost-key.pem") },
	}
	for _, load := range loaders {
		if err := load(); err != nil {
			return nil, err
		}
	}
	return config, nil
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvStringRequired(target *string, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return fmt.Errorf("required environment variable %s is not set", key)
	}
	*target = value
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvFloat(target *float64, key string, defaultValue float64) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float value for %s: %w", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvBool(target *bool, key string, defaultValue bool) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %w", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %w", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvStringSlice(target *[]string, key string, defaultValue []string) error {
	value := os.Getenv(key)
	if value == "" {
		*target = defaultValue
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*target = out
	return nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errors = append(errors, "HTTP_PORT must be between 1 and 65535")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}

	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if !contains([]string{"memory", "redis"}, c.CacheDriver) {
		errors = append(errors, "CACHE_DRIVER must be one of: memory, redis")
	}
	if c.CacheSize < 1 {
		errors = append(errors, "CACHE_SIZE must be positive")
	}

	if !contains([]string{"database", "minio"}, c.StorageDriver) {
		errors = append(errors, "STORAGE_DRIVER must be one of: database, minio")
	}
	if c.StorageDriver == "minio" && c.MinioEndpoint == "" {
		errors = append(errors, "MINIO_ENDPOINT is required when STORAGE_DRIVER=minio")
	}

	if _, err := ParseByteSize(c.UploadMaxSize); err != nil {
		errors = append(errors, fmt.Sprintf("UPLOAD_MAX_SIZE: %v", err))
	}

	// JWT secret should be at least 32 characters
	if len(c.JWTSecret) < 32 {
		errors = append(errors, "JWT_SECRET should be at least 32 characters long")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// OAuthEnabled reports whether an external login provider is configured.
func (c *Config) OAuthEnabled() bool {
	return c.OAuthProvider != "" && c.OAuthClientID != "" && c.OAuthAuthURL != "" && c.OAuthTokenURL != ""
}

// MaxUploadBytes returns UPLOAD_MAX_SIZE in bytes, falling back to 100MB.
func (c *Config) MaxUploadBytes() int64 {
	n, err := ParseByteSize(c.UploadMaxSize)
	if err != nil || n <= 0 {
		return 100 << 20
	}
	return n
}

// ParseByteSize parses sizes such as "512KB", "10MB", "1GB" or a plain byte count.
func ParseByteSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		mult   int64
	}{{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}, {"B", 1}} {
		if strings.HasSuffix(s, unit.suffix) {
			multiplier = unit.mult
			s = strings.TrimSpace(strings.TrimSuffix(s, unit.suffix))
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("size must not be negative")
	}
	return n * multiplier, nil
}

// Helper function to check if slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
