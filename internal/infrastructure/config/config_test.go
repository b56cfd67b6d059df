package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"SHOPINO_APP_NAME":               os.Getenv("SHOPINO_APP_NAME"),
		"SHOPINO_APP_ENV":                os.Getenv("SHOPINO_APP_ENV"),
		"SHOPINO_APP_PORT":               os.Getenv("SHOPINO_APP_PORT"),
		"SHOPINO_DATABASE_HOST":          os.Getenv("SHOPINO_DATABASE_HOST"),
		"SHOPINO_DATABASE_PORT":          os.Getenv("SHOPINO_DATABASE_PORT"),
		"SHOPINO_DATABASE_USER":          os.Getenv("SHOPINO_DATABASE_USER"),
		"SHOPINO_DATABASE_PASSWORD":      os.Getenv("SHOPINO_DATABASE_PASSWORD"),
		"SHOPINO_DATABASE_DBNAME":        os.Getenv("SHOPINO_DATABASE_DBNAME"),
		"SHOPINO_DATABASE_SSLMODE":       os.Getenv("SHOPINO_DATABASE_SSLMODE"),
		"SHOPINO_MAHAK_BASE_URL":         os.Getenv("SHOPINO_MAHAK_BASE_URL"),
		"SHOPINO_MAHAK_API_KEY":          os.Getenv("SHOPINO_MAHAK_API_KEY"),
		"SHOPINO_SYNC_ENABLED":           os.Getenv("SHOPINO_SYNC_ENABLED"),
		"SHOPINO_SYNC_BATCH_SIZE":        os.Getenv("SHOPINO_SYNC_BATCH_SIZE"),
		"SHOPINO_SYNC_OUTGOING_INTERVAL": os.Getenv("SHOPINO_SYNC_OUTGOING_INTERVAL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "shopino-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Equal(t, "shopino", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 30, cfg.Mahak.TimeoutSeconds)
		assert.Equal(t, 50, cfg.Sync.BatchSize)
		assert.Equal(t, 30*time.Second, cfg.Sync.OutgoingInterval)
		assert.Equal(t, 2*time.Minute, cfg.Sync.RetryInterval)
		assert.Equal(t, "*/15 * * * *", cfg.Sync.ReconciliationSchedule)
		assert.Equal(t, 10*time.Minute, cfg.Sync.StaleClaimTimeout)
	})

	t.Run("environment variables override defaults", func(t *testing.T) {
		clearEnv()
		os.Setenv("SHOPINO_APP_NAME", "sync-worker")
		os.Setenv("SHOPINO_DATABASE_HOST", "db.internal")
		os.Setenv("SHOPINO_DATABASE_PORT", "5433")
		os.Setenv("SHOPINO_MAHAK_BASE_URL", "https://api.mahak.example")
		os.Setenv("SHOPINO_SYNC_BATCH_SIZE", "25")
		os.Setenv("SHOPINO_SYNC_OUTGOING_INTERVAL", "45s")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "sync-worker", cfg.App.Name)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "https://api.mahak.example", cfg.Mahak.BaseURL)
		assert.Equal(t, 25, cfg.Sync.BatchSize)
		assert.Equal(t, 45*time.Second, cfg.Sync.OutgoingInterval)
	})

	t.Run("production requires database password", func(t *testing.T) {
		clearEnv()
		os.Setenv("SHOPINO_APP_ENV", "production")
		os.Setenv("SHOPINO_DATABASE_SSLMODE", "require")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required")
	})

	t.Run("production rejects sslmode disable", func(t *testing.T) {
		clearEnv()
		os.Setenv("SHOPINO_APP_ENV", "production")
		os.Setenv("SHOPINO_DATABASE_PASSWORD", "secret")
		os.Setenv("SHOPINO_MAHAK_BASE_URL", "https://api.mahak.example")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sslmode")
	})

	t.Run("production with sync enabled requires mahak base url", func(t *testing.T) {
		clearEnv()
		os.Setenv("SHOPINO_APP_ENV", "production")
		os.Setenv("SHOPINO_DATABASE_PASSWORD", "secret")
		os.Setenv("SHOPINO_DATABASE_SSLMODE", "require")
		os.Setenv("SHOPINO_SYNC_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mahak.base_url")
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, base().validate())
	})

	t.Run("rejects non-positive batch size", func(t *testing.T) {
		cfg := base()
		cfg.Sync.BatchSize = -1
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sync.batch_size")
	})

	t.Run("rejects stale timeout below outgoing interval", func(t *testing.T) {
		cfg := base()
		cfg.Sync.StaleClaimTimeout = 10 * time.Second
		cfg.Sync.OutgoingInterval = 30 * time.Second
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stale_claim_timeout")
	})

	t.Run("rejects idle conns above open conns", func(t *testing.T) {
		cfg := base()
		cfg.Database.MaxIdleConns = 100
		cfg.Database.MaxOpenConns = 10
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
	})
}

func TestDSN(t *testing.T) {
	t.Run("escapes special characters in password", func(t *testing.T) {
		d := &DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "app",
			Password: "p@ss/word",
			DBName:   "shopino",
			SSLMode:  "disable",
		}
		dsn := d.DSN()
		assert.Contains(t, dsn, "p%40ss%2Fword")
		assert.Contains(t, dsn, "sslmode=disable")
	})
}

func TestRedisAddr(t *testing.T) {
	r := &RedisConfig{Host: "redis.internal", Port: 6380}
	assert.Equal(t, "redis.internal:6380", r.Addr())
}
