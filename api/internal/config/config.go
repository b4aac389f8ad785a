package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/language"
)

// Config is shared by the bot, the HTTP server and the CLI.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	WebhookURL       string `env:"WEBHOOK_URL"`

	// Report archive; empty DSN disables it.
	DatabaseURL     string        `env:"DATABASE_URL"`
	Postgres        Postgres
	ReportRetention time.Duration `env:"REPORT_RETENTION" envDefault:"2160h"`

	DefaultLocale         string        `env:"DEFAULT_LOCALE" envDefault:"en-US"`
	TeacherAPIKey         string        `env:"TEACHER_API_KEY"`
	LogLevel              string        `env:"LOG_LEVEL" envDefault:"info"`
	SessionIdleTTL        time.Duration `env:"SESSION_IDLE_TTL" envDefault:"6h"`
	GuardrailExtraPhrases []string      `env:"GUARDRAIL_EXTRA_PHRASES" envSeparator:","`
}

// Postgres holds the single-container POSTGRES_* / PG* variables.
type Postgres struct {
	User     string `env:"POSTGRES_USER" envDefault:"barchart"`
	Password string `env:"POSTGRES_PASSWORD"`
	Host     string `env:"PGHOST"`
	Port     string `env:"PGPORT" envDefault:"5432"`
	DB       string `env:"POSTGRES_DB" envDefault:"barchart"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Port = strings.TrimSpace(c.Port)
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	phrases := c.GuardrailExtraPhrases[:0]
	for _, p := range c.GuardrailExtraPhrases {
		if p = strings.TrimSpace(p); p != "" {
			phrases = append(phrases, p)
		}
	}
	c.GuardrailExtraPhrases = phrases
}

func (c *Config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %q", c.Port)
	}
	if _, err := language.Parse(c.DefaultLocale); err != nil {
		return fmt.Errorf("DEFAULT_LOCALE %q: %w", c.DefaultLocale, err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL must be positive, got %s", c.SessionIdleTTL)
	}
	if c.ReportRetention < 0 {
		return fmt.Errorf("REPORT_RETENTION must not be negative, got %s", c.ReportRetention)
	}
	if c.WebhookURL != "" {
		u, err := url.Parse(c.WebhookURL)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return fmt.Errorf("WEBHOOK_URL must be an absolute https URL, got %q", c.WebhookURL)
		}
	}
	return nil
}

// RequireBot checks the settings only the Telegram bot needs.
func (c *Config) RequireBot() error {
	if strings.TrimSpace(c.TelegramBotToken) == "" {
		return errors.New("TELEGRAM_BOT_TOKEN must not be empty")
	}
	return nil
}

// Addr is the listen address for the HTTP side of every binary.
func (c *Config) Addr() string {
	return net.JoinHostPort("0.0.0.0", c.Port)
}

// DSN prefers DATABASE_URL, then builds a URL from POSTGRES_* when PGHOST
// is set. An empty result means the archive is disabled.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	p := c.Postgres
	if strings.TrimSpace(p.Host) == "" {
		return ""
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, p.Port),
		Path:     "/" + p.DB,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// SafeDSNSummary renders a DSN for logs without the password.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
