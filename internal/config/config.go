package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/HammerMeetNail/ecobuddy/internal/logging"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	AI        AIConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	Secure       bool   // Use HTTPS-only cookies
	Environment  string // "development", "production", "test"
	Debug        bool
	LogLevel     logging.Level // LOG_LEVEL; DEBUG=true forces LevelDebug
	TemplatesDir string
	StaticDir    string

	// TrustProxyHeaders takes the client IP from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// DatabaseConfig configures the optional Postgres connection used for
// AI usage logging.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig configures the optional Redis connection backing the
// report rate limiter.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type AIConfig struct {
	GeminiAPIKey string
	Model        string
	Stub         bool
}

type RateLimitConfig struct {
	ReportsPerHour int64
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LoadDotEnv reads a .env file into the process environment. Variables that
// are already set win. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			Secure:       getEnvBool("SERVER_SECURE", false),
			Environment:  getEnv("APP_ENV", "development"),
			Debug:        getEnvBool("DEBUG", false),
			TemplatesDir: getEnv("TEMPLATES_DIR", "web/templates"),
			StaticDir:    getEnv("STATIC_DIR", "web/static"),

			TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "ecobuddy"),
			Password: getEnv("DB_PASSWORD", "ecobuddy"),
			DBName:   getEnv("DB_NAME", "ecobuddy"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		AI: AIConfig{
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			Model:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Stub:         getEnvBool("AI_STUB", false),
		},
	}

	level, err := logging.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if cfg.Server.Debug {
		level = logging.LevelDebug
	}
	cfg.Server.LogLevel = level

	reportLimit := int64(10)
	if cfg.Server.Environment == "development" {
		reportLimit = 100
	}
	cfg.RateLimit.ReportsPerHour = getEnvInt64("REPORT_RATE_LIMIT", reportLimit)
	if cfg.RateLimit.ReportsPerHour <= 0 {
		return nil, fmt.Errorf("REPORT_RATE_LIMIT must be positive, got %d", cfg.RateLimit.ReportsPerHour)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
