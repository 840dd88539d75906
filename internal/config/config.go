package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Slack    SlackConfig
	Log      LogConfig
	Audit    AuditConfig
	// APIBaseURL is where the dashboard reaches the API. Empty means this server.
	APIBaseURL string
}

type HTTPConfig struct {
	Addr           string
	AllowedOrigins []string
	// TrustedProxies are peers (IPs or CIDRs) whose forwarding headers name the
	// client. Loopback is always trusted.
	TrustedProxies []string
}

type DatabaseConfig struct {
	Driver      string // postgres or sqlite3
	URL         string
	AutoMigrate bool
	Attempts    int
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type RedisConfig struct {
	URL string
	DB  int
}

type NATSConfig struct {
	URL string
	// CredsFile is an optional decorated user JWT and nkey seed.
	CredsFile string
}

type SlackConfig struct {
	WebhookURL string
}

// AuditConfig controls pruning of the audit trail. A zero Retention keeps
// entries forever.
type AuditConfig struct {
	Retention     time.Duration
	PruneInterval time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTP: HTTPConfig{
			Addr:           getEnv("HTTP_ADDR", ":8000"),
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
			TrustedProxies: splitList(os.Getenv("TRUSTED_PROXIES")),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "postgres"),
			URL:    os.Getenv("DATABASE_URL"),
		},
		Auth: AuthConfig{
			JWTSecret: firstNonEmpty(os.Getenv("JWT_SECRET"), os.Getenv("SECRET_KEY")),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		NATS: NATSConfig{
			URL:       os.Getenv("NATS_URL"),
			CredsFile: os.Getenv("NATS_CREDS"),
		},
		Slack: SlackConfig{
			WebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		APIBaseURL: strings.TrimRight(os.Getenv("API_BASE_URL"), "/"),
	}

	var err error
	if cfg.Database.AutoMigrate, err = getEnvBool("AUTO_MIGRATE", true); err != nil {
		return nil, err
	}
	if cfg.Database.Attempts, err = getEnvInt("DB_CONNECT_ATTEMPTS", 10); err != nil {
		return nil, err
	}
	if cfg.Redis.DB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	minutes, err := getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60)
	if err != nil {
		return nil, err
	}
	if minutes <= 0 {
		return nil, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	cfg.Auth.TokenTTL = time.Duration(minutes) * time.Minute

	days, err := getEnvInt("AUDIT_RETENTION_DAYS", 0)
	if err != nil {
		return nil, err
	}
	if days < 0 {
		return nil, errors.New("AUDIT_RETENTION_DAYS must not be negative")
	}
	cfg.Audit.Retention = time.Duration(days) * 24 * time.Hour
	cfg.Audit.PruneInterval = time.Hour

	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

// ValidateDatabase checks only the database settings, for commands that never
// issue tokens.
func (c *Config) ValidateDatabase() error {
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite3" {
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite3, got %q", c.Database.Driver)
	}
	return nil
}

// String returns a representation safe for logs.
func (c *Config) String() string {
	return fmt.Sprintf("Config{HTTP: %s, DB: %s, Redis: %t, NATS: %t, Slack: %t, Auth: *** (masked) ***}",
		c.HTTP.Addr, c.Database.Driver, c.Redis.URL != "", c.NATS.URL != "", c.Slack.WebhookURL != "")
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for %s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
