package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	BotToken   string
	Translator TranslatorConfig
	Database   DatabaseConfig

	StoreDriver  string
	HTTPPort     string
	AdminUserIDs []int64

	// ResetOnEndChat wipes every profile and transcript when a chat is ended normally
	ResetOnEndChat     bool
	CodeTTL            time.Duration
	ClearHistoryWindow int
	CleanupInterval    time.Duration
}

// TranslatorConfig holds translation endpoint settings
type TranslatorConfig struct {
	Endpoint       string
	APIKey         string
	Deployment     string
	APIVersion     string
	MaxTokens      int
	TimeoutSeconds int
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	cfg := &Config{
		BotToken: os.Getenv("BOT_TOKEN"),
		Translator: TranslatorConfig{
			Endpoint:   os.Getenv("TRANSLATOR_ENDPOINT"),
			APIKey:     os.Getenv("TRANSLATOR_API_KEY"),
			Deployment: getEnv("TRANSLATOR_DEPLOYMENT", "ProcessorInformation1"),
			APIVersion: getEnv("TRANSLATOR_API_VERSION", "2024-04-01-preview"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "relaybot"),
			User:     getEnv("DB_USER", "relaybot"),
			Password: os.Getenv("DB_PASSWORD"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		HTTPPort:    getEnv("PORT", "8080"),
	}

	var err error
	if cfg.Translator.MaxTokens, err = getEnvInt("TRANSLATOR_MAX_TOKENS", 1000); err != nil {
		return nil, err
	}
	if cfg.Translator.TimeoutSeconds, err = getEnvInt("TRANSLATE_TIMEOUT_SECONDS", 30); err != nil {
		return nil, err
	}
	if cfg.ResetOnEndChat, err = getEnvBool("RESET_ON_END_CHAT", true); err != nil {
		return nil, err
	}
	ttlMinutes, err := getEnvInt("CODE_TTL_MINUTES", 10)
	if err != nil {
		return nil, err
	}
	cfg.CodeTTL = time.Duration(ttlMinutes) * time.Minute
	if cfg.ClearHistoryWindow, err = getEnvInt("CLEAR_HISTORY_WINDOW", 100); err != nil {
		return nil, err
	}
	cleanupMinutes, err := getEnvInt("CODE_CLEANUP_INTERVAL_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	cfg.CleanupInterval = time.Duration(cleanupMinutes) * time.Minute
	if cfg.AdminUserIDs, err = parseIDs(os.Getenv("ADMIN_USER_IDS")); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.Translator.Endpoint == "" {
		return fmt.Errorf("TRANSLATOR_ENDPOINT is required")
	}
	if c.Translator.APIKey == "" {
		return fmt.Errorf("TRANSLATOR_API_KEY is required")
	}
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.StoreDriver)
	}
	if c.CodeTTL <= 0 {
		return fmt.Errorf("CODE_TTL_MINUTES must be positive")
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("CODE_CLEANUP_INTERVAL_MINUTES must be positive")
	}
	return nil
}

// DSN returns PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// HTTPAddr returns the listen address of the health server
func (c *Config) HTTPAddr() string {
	return ":" + c.HTTPPort
}

// TranslateTimeout bounds a single translation call
func (c *Config) TranslateTimeout() time.Duration {
	return time.Duration(c.Translator.TimeoutSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

// parseIDs reads a comma separated list of Telegram user ids
func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_USER_IDS: invalid id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
