package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Mahak    MahakConfig
	Sync     SyncConfig
	HTTP     HTTPConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// MahakConfig holds connection settings for the Mahak ERP API
type MahakConfig struct {
	BaseURL        string
	APIKey         string
	Username       string
	Password       string
	TimeoutSeconds int
}

// SyncConfig holds configuration for the sync engine and its drivers
type SyncConfig struct {
	Enabled bool
	// BatchSize is the number of queue items claimed per outgoing tick
	BatchSize int
	// OutgoingInterval is the outgoing driver period
	OutgoingInterval time.Duration
	// RetryInterval is the fixed delay applied before a failed item
	// becomes due again
	RetryInterval time.Duration
	// StartupDelay postpones the first tick after process start
	StartupDelay time.Duration
	// ReconciliationSchedule is the cron spec for the reconciliation driver
	ReconciliationSchedule string
	// ReconciliationBatchSize is the larger claim size used by reconciliation
	ReconciliationBatchSize int
	// StaleClaimTimeout is how long a processing claim may sit untouched
	// before it is considered abandoned and reclaimed
	StaleClaimTimeout time.Duration
	// CleanupRetention is how long terminal queue items are kept
	CleanupRetention time.Duration
	// MappingCacheTTL bounds staleness of cached identity lookups
	MappingCacheTTL time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodyBytes      int64
	RateLimitRequests int
	RateLimitWindow   time.Duration
	TrustedProxies    []string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SHOPINO_ prefix (e.g. SHOPINO_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SHOPINO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Mahak: MahakConfig{
			BaseURL:        v.GetString("mahak.base_url"),
			APIKey:         v.GetString("mahak.api_key"),
			Username:       v.GetString("mahak.username"),
			Password:       v.GetString("mahak.password"),
			TimeoutSeconds: v.GetInt("mahak.timeout_seconds"),
		},
		Sync: SyncConfig{
			Enabled:                 v.GetBool("sync.enabled"),
			BatchSize:               v.GetInt("sync.batch_size"),
			OutgoingInterval:        v.GetDuration("sync.outgoing_interval"),
			RetryInterval:           v.GetDuration("sync.retry_interval"),
			StartupDelay:            v.GetDuration("sync.startup_delay"),
			ReconciliationSchedule:  v.GetString("sync.reconciliation_schedule"),
			ReconciliationBatchSize: v.GetInt("sync.reconciliation_batch_size"),
			StaleClaimTimeout:       v.GetDuration("sync.stale_claim_timeout"),
			CleanupRetention:        v.GetDuration("sync.cleanup_retention"),
			MappingCacheTTL:         v.GetDuration("sync.mapping_cache_ttl"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodyBytes:      v.GetInt64("http.max_body_bytes"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "shopino-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "shopino"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Mahak.TimeoutSeconds == 0 {
		cfg.Mahak.TimeoutSeconds = 30
	}
	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = 50
	}
	if cfg.Sync.OutgoingInterval == 0 {
		cfg.Sync.OutgoingInterval = 30 * time.Second
	}
	if cfg.Sync.RetryInterval == 0 {
		cfg.Sync.RetryInterval = 2 * time.Minute
	}
	if cfg.Sync.StartupDelay == 0 {
		cfg.Sync.StartupDelay = 10 * time.Second
	}
	if cfg.Sync.ReconciliationSchedule == "" {
		cfg.Sync.ReconciliationSchedule = "*/15 * * * *"
	}
	if cfg.Sync.ReconciliationBatchSize == 0 {
		cfg.Sync.ReconciliationBatchSize = 200
	}
	if cfg.Sync.StaleClaimTimeout == 0 {
		cfg.Sync.StaleClaimTimeout = 10 * time.Minute
	}
	if cfg.Sync.CleanupRetention == 0 {
		cfg.Sync.CleanupRetention = 168 * time.Hour
	}
	if cfg.Sync.MappingCacheTTL == 0 {
		cfg.Sync.MappingCacheTTL = 10 * time.Minute
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodyBytes == 0 {
		cfg.HTTP.MaxBodyBytes = 4 << 20 // 4MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 300
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync.batch_size must be positive")
	}
	if c.Sync.OutgoingInterval <= 0 {
		return fmt.Errorf("sync.outgoing_interval must be positive")
	}
	if c.Sync.StaleClaimTimeout <= c.Sync.OutgoingInterval {
		return fmt.Errorf("sync.stale_claim_timeout (%s) must exceed sync.outgoing_interval (%s), otherwise in-flight claims would be stolen",
			c.Sync.StaleClaimTimeout, c.Sync.OutgoingInterval)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Sync.Enabled && c.Mahak.BaseURL == "" {
			return fmt.Errorf("mahak.base_url is required when sync is enabled in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis address in host:port form
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
