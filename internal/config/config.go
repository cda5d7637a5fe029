package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	// EnvProduction enables production-only behaviour such as Secure cookies.
	EnvProduction = "production"

	// MinBcryptCost is the lowest work factor accepted for password hashing.
	MinBcryptCost = 12

	// StoreMemory keeps users in process memory; they vanish on restart.
	StoreMemory = "memory"
	// StoreMySQL keeps users in MySQL through GORM.
	StoreMySQL = "mysql"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort    string
	Environment   string
	JWTSecret     string
	BcryptCost    int
	StoreDriver   string
	MySQLDSN      string
	RedisAddr     string
	RedisDB       int
	RedisPass     string
	RateLimit     int
	StaticDir     string
	SwaggerHost   string
	LogFormat     string
	AllowedOrigin string
}

// Load builds Config from environment and validates it. A missing JWT secret
// is a startup error: tokens are never signed with a default key.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:    getEnv("PORT", "3000"),
		Environment:   getEnv("APP_ENV", "development"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		BcryptCost:    getEnvInt("BCRYPT_COST", MinBcryptCost),
		StoreDriver:   getEnv("STORE_DRIVER", StoreMemory),
		MySQLDSN:      os.Getenv("MYSQL_DSN"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPass:     os.Getenv("REDIS_PASSWORD"),
		RateLimit:     getEnvInt("RATE_LIMIT_PER_15MIN", 100),
		StaticDir:     os.Getenv("STATIC_DIR"),
		SwaggerHost:   os.Getenv("SWAGGER_HOST"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		AllowedOrigin: os.Getenv("CORS_ORIGIN"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.BcryptCost < MinBcryptCost {
		return fmt.Errorf("BCRYPT_COST must be at least %d, got %d", MinBcryptCost, c.BcryptCost)
	}
	switch c.StoreDriver {
	case StoreMemory:
	case StoreMySQL:
		if c.MySQLDSN == "" {
			return fmt.Errorf("MYSQL_DSN is required when STORE_DRIVER=%s", StoreMySQL)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMemory, StoreMySQL, c.StoreDriver)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'text', got %q", c.LogFormat)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_15MIN must be positive, got %d", c.RateLimit)
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// CacheEnabled reports whether the Redis profile cache should be used.
// The cache is only paired with the durable store: in-memory users vanish on
// restart and a surviving cache entry would resurrect them.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != "" && c.StoreDriver == StoreMySQL
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}
