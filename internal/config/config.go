package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/parley/internal/rules"
)

// Store drivers.
const (
	StoreDriverMemory   = "memory"
	StoreDriverFile     = "file"
	StoreDriverPostgres = "postgres"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	Chat     ChatConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	AdminToken   string // gates history deletion when non-empty
}

// ChatConfig holds resolver settings.
type ChatConfig struct {
	RulesPath      string
	DisconnectProb float64
	MatchStrategy  rules.MatchStrategy
	RandomSeed     int64 // 0 means seed from the clock
}

// StoreConfig selects and configures the session store backend.
type StoreConfig struct {
	Driver string
	Path   string // file driver only
}

// DatabaseConfig holds PostgreSQL connection settings (postgres driver only).
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings for the live transcript feed.
// An empty Addr disables the feed.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads configuration from environment variables. Defaults are safe
// for local development only.
func Load() (*Config, error) {
	readTimeout, err := getEnvDuration("PARLEY_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("PARLEY_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	disconnectProb, err := getEnvFloat("PARLEY_DISCONNECT_PROBABILITY", 0.04)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	randomSeed, err := getEnvInt64("PARLEY_RANDOM_SEED", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbPort, err := getEnvInt("PARLEY_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("PARLEY_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("PARLEY_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("PARLEY_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Server: ServerConfig{
			Addr:         getEnv("PARLEY_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
			AdminToken:   getEnv("PARLEY_ADMIN_TOKEN", ""),
		},
		Chat: ChatConfig{
			RulesPath:      getEnv("PARLEY_RULES_PATH", "keywords.json"),
			DisconnectProb: disconnectProb,
			MatchStrategy:  rules.MatchStrategy(getEnv("PARLEY_MATCH_STRATEGY", string(rules.MatchSubstring))),
			RandomSeed:     randomSeed,
		},
		Store: StoreConfig{
			Driver: getEnv("PARLEY_STORE_DRIVER", StoreDriverFile),
			Path:   getEnv("PARLEY_STORE_PATH", "chat_logs.json"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("PARLEY_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("PARLEY_DB_USER", "parley"),
			Password: getEnv("PARLEY_DB_PASSWORD", ""),
			DBName:   getEnv("PARLEY_DB_NAME", "parley_dev"),
			SSLMode:  getEnv("PARLEY_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("PARLEY_REDIS_ADDR", ""),
			Password: getEnv("PARLEY_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.Chat.RulesPath == "" {
		return errors.New("PARLEY_RULES_PATH is required")
	}
	if c.Chat.DisconnectProb < 0 || c.Chat.DisconnectProb >= 1 {
		return fmt.Errorf("PARLEY_DISCONNECT_PROBABILITY must be in [0, 1), got %g", c.Chat.DisconnectProb)
	}

	switch c.Chat.MatchStrategy {
	case rules.MatchSubstring, rules.MatchToken:
	default:
		return fmt.Errorf("PARLEY_MATCH_STRATEGY must be %q or %q, got %q",
			rules.MatchSubstring, rules.MatchToken, c.Chat.MatchStrategy)
	}

	switch c.Store.Driver {
	case StoreDriverMemory, StoreDriverPostgres:
	case StoreDriverFile:
		if c.Store.Path == "" {
			return errors.New("PARLEY_STORE_PATH is required for the file store driver")
		}
	default:
		return fmt.Errorf("PARLEY_STORE_DRIVER must be %q, %q or %q, got %q",
			StoreDriverMemory, StoreDriverFile, StoreDriverPostgres, c.Store.Driver)
	}

	if c.Store.Driver == StoreDriverMemory {
		log.Warn().Msg("PARLEY_STORE_DRIVER=memory does not survive restarts; use the file or postgres driver in production")
	}

	if c.Store.Driver == StoreDriverPostgres {
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("PARLEY_DB_PORT must be 1-65535, got %d", c.Database.Port)
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("PARLEY_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("PARLEY_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("PARLEY_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int64: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
