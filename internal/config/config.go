package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ledgerbot/internal/i18n"
)

type Config struct {
	// Telegram
	BotToken             string
	MaxConcurrentUpdates int
	// DrainTimeout bounds how long accepted updates keep running after a
	// shutdown signal.
	DrainTimeout time.Duration
	// RateLimitPerMinute caps classified messages per user; 0 disables it.
	RateLimitPerMinute int

	// Storage
	DataBackend  string
	SQLiteDBPath string
	PostgresDSN  string

	// Classifier
	ClassifierProvider   string
	ClassifierTimeout    time.Duration
	ClassifierPromptFile string
	OpenAIBaseURL        string
	OpenAIAPIKey         string
	OpenAIModel          string
	AnthropicAPIKey      string
	AnthropicModel       string

	// Duplicate filter. The memory backend tracks at most 100k ids
	// (dedup.MaxTracked); above that many messages per window it forgets
	// ids early and logs a warning. Use redis for more.
	DedupBackend  string
	DedupWindow   time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror (worker)
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Presentation
	Locale     string
	LocaleFile string
	Timezone   string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		BotToken:             getEnv("TELEGRAM_BOT_TOKEN", ""),
		MaxConcurrentUpdates: getEnvInt("MAX_CONCURRENT_UPDATES", 16),
		DrainTimeout:         getEnvDuration("DRAIN_TIMEOUT", 30*time.Second),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),
		PostgresDSN:  getEnv("DATABASE_URL", ""),

		ClassifierProvider:   getEnv("CLASSIFIER_PROVIDER", "openai"),
		ClassifierTimeout:    getEnvDuration("CLASSIFIER_TIMEOUT", 10*time.Second),
		ClassifierPromptFile: getEnv("CLASSIFIER_PROMPT_FILE", ""),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", "https://api.groq.com/openai/v1"),
		OpenAIAPIKey:         getEnv("GROQ_API_KEY", getEnv("OPENAI_API_KEY", "")),
		OpenAIModel:          getEnv("OPENAI_MODEL", "llama-3.1-8b-instant"),
		AnthropicAPIKey:      getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:       getEnv("ANTHROPIC_MODEL", ""),

		DedupBackend:  getEnv("DEDUP_BACKEND", "memory"),
		DedupWindow:   getEnvDuration("DEDUP_WINDOW", 5*time.Minute),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Ledger"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		Locale:     getEnv("LOCALE", "en"),
		LocaleFile: getEnv("LOCALE_FILE", ""),
		Timezone:   getEnv("TZ", "UTC"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Location resolves Timezone, falling back to UTC when it is empty.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Validate checks the settings the bot needs and reports every problem at once.
func (c *Config) Validate() error {
	errors := c.validateCommon()

	if c.BotToken == "" {
		errors = append(errors, "TELEGRAM_BOT_TOKEN is required")
	}
	if c.MaxConcurrentUpdates < 1 || c.MaxConcurrentUpdates > 1024 {
		errors = append(errors, fmt.Sprintf("invalid max concurrent updates %d: must be between 1 and 1024", c.MaxConcurrentUpdates))
	}
	if c.DrainTimeout < time.Second || c.DrainTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid drain timeout %v: must be between 1s and 5m", c.DrainTimeout))
	}

	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	if !oneOf(c.DataBackend, "memory", "sqlite", "postgres") {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite postgres]", c.DataBackend))
	}
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}
	if c.DataBackend == "postgres" && c.PostgresDSN == "" {
		errors = append(errors, "DATABASE_URL is required when using postgres backend")
	}

	switch c.ClassifierProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			errors = append(errors, "GROQ_API_KEY or OPENAI_API_KEY is required for the openai classifier")
		}
		if u, err := url.Parse(c.OpenAIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid classifier base URL '%s'", c.OpenAIBaseURL))
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			errors = append(errors, "ANTHROPIC_API_KEY is required for the anthropic classifier")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid classifier provider '%s': must be one of [openai anthropic]", c.ClassifierProvider))
	}
	if c.ClassifierTimeout < time.Second || c.ClassifierTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid classifier timeout %v: must be between 1s and 2m", c.ClassifierTimeout))
	}
	if c.ClassifierPromptFile != "" {
		if _, err := os.Stat(c.ClassifierPromptFile); err != nil {
			errors = append(errors, fmt.Sprintf("classifier prompt file does not exist: %s", c.ClassifierPromptFile))
		}
	}

	switch c.DedupBackend {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			errors = append(errors, "REDIS_ADDR is required when using redis dedup backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid dedup backend '%s': must be one of [memory redis]", c.DedupBackend))
	}
	if c.DedupWindow < time.Second || c.DedupWindow > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid dedup window %v: must be between 1s and 24h", c.DedupWindow))
	}

	if c.LocaleFile != "" {
		if _, err := os.Stat(c.LocaleFile); err != nil {
			errors = append(errors, fmt.Sprintf("locale file does not exist: %s", c.LocaleFile))
		}
	} else if locales := i18n.Locales(); !oneOf(c.Locale, locales...) {
		errors = append(errors, fmt.Sprintf("invalid locale '%s': must be one of %v", c.Locale, locales))
	}

	return combine(errors)
}

// ValidateWorker checks the settings the sheet mirror worker needs.
func (c *Config) ValidateWorker() error {
	errors := c.validateCommon()

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the worker")
	}
	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required when a spreadsheet is configured")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	return combine(errors)
}

func (c *Config) validateCommon() []string {
	var errors []string

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}
	if !oneOf(strings.ToLower(c.LogLevel), "debug", "info", "warn", "warning", "error") {
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	return errors
}

func combine(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
