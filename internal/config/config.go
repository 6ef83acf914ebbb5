package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/velkoldin-dev/tratyallday/internal/core"
)

// Backend names accepted by DATA_BACKEND.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Storage   StorageConfig   `yaml:"storage"`
	AMQP      AMQPConfig      `yaml:"amqp"`
	Sheets    SheetsConfig    `yaml:"sheets"`
	Digest    DigestConfig    `yaml:"digest"`
	Session   SessionConfig   `yaml:"session"`
	Coffee    CoffeeConfig    `yaml:"coffee"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
}

type BotConfig struct {
	Token          string `yaml:"token" env:"BOT_TOKEN"`
	AdminID        int64  `yaml:"admin_id" env:"ADMIN_ID" env-default:"0"`
	TimezoneOffset int    `yaml:"timezone_offset" env:"TIMEZONE_OFFSET" env-default:"3"`
	WebhookURL     string `yaml:"webhook_url" env:"WEBHOOK_URL"`
	WebhookSecret  string `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`
}

type StorageConfig struct {
	Backend         string        `yaml:"backend" env:"DATA_BACKEND" env-default:"sqlite"`
	SQLiteDBPath    string        `yaml:"sqlite_db_path" env:"SQLITE_DB_PATH" env-default:"./data/expenses.db"`
	DatabaseURL     string        `yaml:"database_url" env:"DATABASE_URL"`
	MaxConns        int32         `yaml:"max_conns" env:"DATABASE_MAX_CONNS" env-default:"10"`
	MinConns        int32         `yaml:"min_conns" env:"DATABASE_MIN_CONNS" env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"DATABASE_MAX_CONN_LIFETIME" env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

type AMQPConfig struct {
	URL      string `yaml:"url" env:"AMQP_URL"`
	Exchange string `yaml:"exchange" env:"AMQP_EXCHANGE" env-default:"expenses"`
	Queue    string `yaml:"queue" env:"AMQP_QUEUE" env-default:"expense_events"`
}

type SheetsConfig struct {
	SpreadsheetID      string `yaml:"spreadsheet_id" env:"GOOGLE_SPREADSHEET_ID"`
	SheetName          string `yaml:"sheet_name" env:"GOOGLE_SHEET_NAME" env-default:"Ledger"`
	ServiceAccountFile string `yaml:"service_account_file" env:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	ServiceAccountJSON string `yaml:"service_account_json" env:"GOOGLE_SERVICE_ACCOUNT_JSON"`
}

type DigestConfig struct {
	Enabled   bool          `yaml:"enabled" env:"DIGEST_ENABLED" env-default:"true"`
	Hour      int           `yaml:"hour" env:"DIGEST_HOUR" env-default:"9"`
	Minute    int           `yaml:"minute" env:"DIGEST_MINUTE" env-default:"0"`
	SendDelay time.Duration `yaml:"send_delay" env:"DIGEST_SEND_DELAY" env-default:"500ms"`
}

type SessionConfig struct {
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SESSION_IDLE_TIMEOUT" env-default:"30m"`
	MaxSessions     int           `yaml:"max_sessions" env:"SESSION_MAX" env-default:"10000"`
	FixCandidates   int           `yaml:"fix_candidates" env:"FIX_CANDIDATES" env-default:"5"`
	OperationsLimit int           `yaml:"operations_limit" env:"OPERATIONS_LIMIT" env-default:"30"`
}

type CoffeeConfig struct {
	Price        string `yaml:"price" env:"COFFEE_PRICE" env-default:"213"`
	TemplatesDir string `yaml:"templates_dir" env:"COFFEE_TEMPLATES_DIR" env-default:"coffee_templates"`
	OutputDir    string `yaml:"output_dir" env:"COFFEE_OUTPUT_DIR"`
}

type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute" env:"RATE_LIMIT_PER_MINUTE" env-default:"30"`
}

type HTTPConfig struct {
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8081"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// Load reads configuration from an optional YAML file and environment variables.
// Priority: ENV > YAML > defaults (via env-default tags).
// The YAML file is only read when CONFIG_PATH is set.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.HTTP.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.HTTP.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendSQLite, BackendPostgres, BackendMemory}
	if !slices.Contains(validBackends, c.Storage.Backend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.Storage.Backend, validBackends))
	}

	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if c.Storage.SQLiteDBPath != ":memory:" {
			dir := filepath.Dir(c.Storage.SQLiteDBPath)
			if dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		}
		if c.Storage.MaxConns < 1 {
			errors = append(errors, fmt.Sprintf("invalid max conns %d: must be at least 1", c.Storage.MaxConns))
		}
		if c.Storage.MinConns < 0 || c.Storage.MinConns > c.Storage.MaxConns {
			errors = append(errors, fmt.Sprintf("invalid min conns %d: must be between 0 and max conns", c.Storage.MinConns))
		}
	}

	if c.AMQP.URL != "" {
		if parsedURL, err := url.Parse(c.AMQP.URL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQP.URL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQP.Exchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQP.Queue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.Bot.TimezoneOffset < -12 || c.Bot.TimezoneOffset > 14 {
		errors = append(errors, fmt.Sprintf("invalid timezone offset %d: must be between -12 and 14", c.Bot.TimezoneOffset))
	}
	if c.Bot.WebhookURL != "" {
		if u, err := url.Parse(c.Bot.WebhookURL); err != nil || u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid webhook URL '%s': must be an https URL", c.Bot.WebhookURL))
		}
	}

	if c.Digest.Hour < 0 || c.Digest.Hour > 23 {
		errors = append(errors, fmt.Sprintf("invalid digest hour %d: must be between 0 and 23", c.Digest.Hour))
	}
	if c.Digest.Minute < 0 || c.Digest.Minute > 59 {
		errors = append(errors, fmt.Sprintf("invalid digest minute %d: must be between 0 and 59", c.Digest.Minute))
	}
	if c.Digest.SendDelay < 0 || c.Digest.SendDelay > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid digest send delay %v: must be between 0 and 1 minute", c.Digest.SendDelay))
	}

	if c.Session.IdleTimeout < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session idle timeout %v: must be at least 1 minute", c.Session.IdleTimeout))
	}
	if c.Session.MaxSessions < 1 {
		errors = append(errors, fmt.Sprintf("invalid session max %d: must be at least 1", c.Session.MaxSessions))
	}
	if c.Session.FixCandidates < 1 || c.Session.FixCandidates > 20 {
		errors = append(errors, fmt.Sprintf("invalid fix candidates %d: must be between 1 and 20", c.Session.FixCandidates))
	}
	if c.Session.OperationsLimit < 1 || c.Session.OperationsLimit > 200 {
		errors = append(errors, fmt.Sprintf("invalid operations limit %d: must be between 1 and 200", c.Session.OperationsLimit))
	}

	if _, err := c.CoffeePriceCents(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid coffee price '%s': %v", c.Coffee.Price, err))
	}

	if c.RateLimit.PerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimit.PerMinute))
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.Log.Format))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// RequireBot checks the settings needed to talk to the chat platform.
func (c *Config) RequireBot() error {
	if strings.TrimSpace(c.Bot.Token) == "" {
		return fmt.Errorf("configuration validation failed:\n- BOT_TOKEN is required")
	}
	return nil
}

// SheetsEnabled reports whether the ledger mirror is configured.
func (c *Config) SheetsEnabled() bool {
	return c.Sheets.SpreadsheetID != ""
}

// CoffeePriceCents parses the configured price of one cup.
func (c *Config) CoffeePriceCents() (core.Money, error) {
	return core.ParseMoney(c.Coffee.Price)
}
