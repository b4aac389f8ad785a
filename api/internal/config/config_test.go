package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "en-US", cfg.DefaultLocale)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 6*time.Hour, cfg.SessionIdleTTL)
	assert.Equal(t, 90*24*time.Hour, cfg.ReportRetention)
	assert.Empty(t, cfg.GuardrailExtraPhrases)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", " 9000 ")
	t.Setenv("DEFAULT_LOCALE", "fr-FR")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SESSION_IDLE_TTL", "30m")
	t.Setenv("GUARDRAIL_EXTRA_PHRASES", "excel chart, ,sheets")
	t.Setenv("WEBHOOK_URL", "https://coach.example.org")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "fr-FR", cfg.DefaultLocale)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, []string{"excel chart", "sheets"}, cfg.GuardrailExtraPhrases)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"port out of range": {"PORT": "70000"},
		"port not a number": {"PORT": "http"},
		"bad log level":     {"LOG_LEVEL": "verbose"},
		"bad locale":        {"DEFAULT_LOCALE": "not a locale!"},
		"zero idle ttl":     {"SESSION_IDLE_TTL": "0s"},
		"bad duration":      {"SESSION_IDLE_TTL": "soon"},
		"http webhook":      {"WEBHOOK_URL": "http://coach.example.org"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestRequireBot(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Error(t, cfg.RequireBot())

	cfg.TelegramBotToken = "123:abc"
	assert.NoError(t, cfg.RequireBot())
}

func TestDSN(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		assert.Empty(t, cfg.DSN())
	})

	t.Run("database url wins", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")
		t.Setenv("PGHOST", "ignored")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DSN())
	})

	t.Run("built from postgres vars", func(t *testing.T) {
		t.Setenv("PGHOST", "db")
		t.Setenv("POSTGRES_PASSWORD", "s3cret")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "postgres://barchart:s3cret@db:5432/barchart?sslmode=disable", cfg.DSN())
		assert.Equal(t, "host=db port=5432 db=barchart user=barchart", SafeDSNSummary(cfg.DSN()))
	})
}
