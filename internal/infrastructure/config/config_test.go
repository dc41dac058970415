package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "freely-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8000", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "freely", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.False(t, cfg.Redis.Enabled())
		assert.Equal(t, "freely_session", cfg.Session.CookieName)
		assert.Equal(t, "freely_cart_session", cfg.Session.CartCookieName)
		assert.Equal(t, 30*24*time.Hour, cfg.Session.TTL)
		assert.Equal(t, "lax", cfg.Session.CookieSameSite)
		assert.False(t, cfg.Session.CookieSecure)
		assert.Equal(t, int64(2048), cfg.Anthropic.MaxTokens)
		assert.Equal(t, cfg.Session.Secret, cfg.JWT.Secret)
		assert.Equal(t, 72*time.Hour, cfg.Stripe.WebhookDedupTTL)
		assert.Equal(t, 3*time.Minute, cfg.Redis.LockLease)
		assert.Equal(t, 50*time.Millisecond, cfg.Redis.LockRetryInterval)
		assert.False(t, cfg.Telemetry.DBMetricsEnabled)
		assert.False(t, cfg.Telemetry.LogsEnabled)
	})

	t.Run("loads values from environment variables with FREELY prefix", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("FREELY_APP_PORT", "9000")
		t.Setenv("FREELY_DATABASE_HOST", "testdb.local")
		t.Setenv("FREELY_DATABASE_PORT", "5433")
		t.Setenv("FREELY_DATABASE_PASSWORD", "testpass")
		t.Setenv("FREELY_REDIS_HOST", "redis.local")
		t.Setenv("FREELY_STRIPE_SECRET_KEY", "sk_test_123")
		t.Setenv("FREELY_ANTHROPIC_MAX_TOKENS", "512")
		t.Setenv("FREELY_STRIPE_WEBHOOK_DEDUP_TTL", "24h")
		t.Setenv("FREELY_REDIS_LOCK_LEASE", "90s")
		t.Setenv("FREELY_REDIS_LOCK_RETRY_INTERVAL", "20ms")
		t.Setenv("FREELY_TELEMETRY_LOGS_ENABLED", "true")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.True(t, cfg.Redis.Enabled())
		assert.Equal(t, "redis.local:6379", cfg.Redis.Addr())
		assert.Equal(t, "sk_test_123", cfg.Stripe.SecretKey)
		assert.Equal(t, int64(512), cfg.Anthropic.MaxTokens)
		assert.Equal(t, 24*time.Hour, cfg.Stripe.WebhookDedupTTL)
		assert.Equal(t, 90*time.Second, cfg.Redis.LockLease)
		assert.Equal(t, 20*time.Millisecond, cfg.Redis.LockRetryInterval)
		assert.True(t, cfg.Telemetry.LogsEnabled)
	})

	t.Run("reads .env file", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FREELY_APP_NAME=from-dotenv\n"), 0o600))
		t.Cleanup(func() { _ = os.Unsetenv("FREELY_APP_NAME") })

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "from-dotenv", cfg.App.Name)
	})

	t.Run("production requires explicit secrets", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("FREELY_APP_ENV", "production")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "session.secret")
	})

	t.Run("production accepts complete configuration", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("FREELY_APP_ENV", "production")
		t.Setenv("FREELY_SESSION_SECRET", strings.Repeat("s", 40))
		t.Setenv("FREELY_DATABASE_PASSWORD", "secret")
		t.Setenv("FREELY_STRIPE_SECRET_KEY", "sk_live_123")
		t.Setenv("FREELY_STRIPE_WEBHOOK_SECRET", "whsec_123")

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.App.IsProduction())
		assert.True(t, cfg.Session.CookieSecure)
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	t.Run("idle conns above open conns", func(t *testing.T) {
		cfg := base()
		cfg.Database.MaxIdleConns = 50
		assert.Error(t, cfg.validate())
	})

	t.Run("unknown same site", func(t *testing.T) {
		cfg := base()
		cfg.Session.CookieSameSite = "loose"
		assert.Error(t, cfg.validate())
	})

	t.Run("same site none requires secure", func(t *testing.T) {
		cfg := base()
		cfg.Session.CookieSameSite = "none"
		assert.Error(t, cfg.validate())
		cfg.Session.CookieSecure = true
		assert.NoError(t, cfg.validate())
	})

	t.Run("kafka needs brokers", func(t *testing.T) {
		cfg := base()
		cfg.Kafka.Enabled = true
		assert.Error(t, cfg.validate())
		cfg.Kafka.Brokers = []string{"localhost:9092"}
		assert.NoError(t, cfg.validate())
	})

	t.Run("elasticsearch needs addresses", func(t *testing.T) {
		cfg := base()
		cfg.Elasticsearch.Enabled = true
		assert.Error(t, cfg.validate())
	})

	t.Run("storage needs bucket", func(t *testing.T) {
		cfg := base()
		cfg.Storage.Enabled = true
		assert.Error(t, cfg.validate())
	})

	t.Run("sampling ratio out of range", func(t *testing.T) {
		cfg := base()
		cfg.Telemetry.SamplingRatio = 1.5
		assert.Error(t, cfg.validate())
	})

	t.Run("wildcard cors in production", func(t *testing.T) {
		cfg := base()
		cfg.App.Env = "production"
		cfg.Session.Secret = strings.Repeat("x", 32)
		cfg.JWT.Secret = strings.Repeat("y", 32)
		cfg.Database.Password = "pw"
		cfg.Stripe.SecretKey = "sk"
		cfg.Stripe.WebhookSecret = "wh"
		require.NoError(t, cfg.validate())

		cfg.HTTP.CORSAllowOrigins = []string{"*"}
		assert.Error(t, cfg.validate())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "freely",
		Password: "p@ss word",
		DBName:   "freely",
		SSLMode:  "require",
	}
	assert.Equal(t, "postgres://freely:p%40ss%20word@db:5432/freely?sslmode=require", d.DSN())
}
