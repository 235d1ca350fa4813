package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all worker configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Scheduler    SchedulerConfig
	Telemetry    TelemetryConfig
	ReviewInvite ReviewInviteConfig
	Reputation   ReputationConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string
	Env     string
	Port    string
	Version string
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
	LogLevel        string
	// MigrateOnStart applies the embedded migrations before the worker starts
	MigrateOnStart bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds the trigger API server settings
type HTTPConfig struct {
	Enabled        bool
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string

	// TriggerRateLimit caps manual runs per client per minute, negative disables
	TriggerRateLimit int
	HSTSEnabled      bool
}

// SchedulerConfig controls the periodic pipeline run
type SchedulerConfig struct {
	Enabled      bool
	PollInterval time.Duration
	RunTimeout   time.Duration
	// ProcessLimit caps each scheduled run, 0 means unbounded
	ProcessLimit int
	RunOnStart   bool
}

// TelemetryConfig holds OpenTelemetry and profiling configuration
type TelemetryConfig struct {
	Enabled               bool
	CollectorEndpoint     string
	SamplingRatio         float64
	ServiceName           string
	Insecure              bool
	MetricsExportInterval time.Duration
	LogsEnabled           bool
	DBTraceEnabled        bool
	DBLogFullSQL          bool
	DBSlowQueryThresh     time.Duration
	ProfilingEnabled      bool
	PyroscopeAddress      string
}

// ReviewInviteConfig holds pipeline selection and delivery settings
type ReviewInviteConfig struct {
	TodoDelay           time.Duration
	MaxRetries          int
	BatchSize           int
	Concurrency         int
	DefaultLocale       string
	DefaultTemplateID   string
	TemplatesByLanguage map[string]string
	LocalesByCountry    map[string]string
}

// Token store backends
const (
	TokenStoreDatabase = "database"
	TokenStoreRedis    = "redis"
)

// ReputationConfig holds the external reputation platform settings
type ReputationConfig struct {
	APIBaseURL      string
	TokenURL        string
	ClientID        string
	ClientSecret    string
	Username        string
	Password        string
	TokenHostID     string
	Timeout         time.Duration
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	TokenStore      string
}

// Load reads config.toml from the default search paths
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from a TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with PRV_ prefix (e.g., PRV_REVIEW_INVITE_BATCH_SIZE)
// 2. the TOML file (path, or config.toml in ., ./config, /app)
// 3. Built-in defaults
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("PRV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			Version: v.GetString("app.version"),
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
			LogLevel:        v.GetString("database.log_level"),
			MigrateOnStart:  v.GetBool("database.migrate_on_start"),
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
		HTTP: HTTPConfig{
			Enabled:          v.GetBool("http.enabled"),
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			TriggerRateLimit: v.GetInt("http.trigger_rate_limit"),
			HSTSEnabled:      v.GetBool("http.hsts_enabled"),
		},
		Scheduler: SchedulerConfig{
			Enabled:      v.GetBool("scheduler.enabled"),
			PollInterval: v.GetDuration("scheduler.poll_interval"),
			RunTimeout:   v.GetDuration("scheduler.run_timeout"),
			ProcessLimit: v.GetInt("scheduler.process_limit"),
			RunOnStart:   v.GetBool("scheduler.run_on_start"),
		},
		Telemetry: TelemetryConfig{
			Enabled:               v.GetBool("telemetry.enabled"),
			CollectorEndpoint:     v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:         v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:           v.GetString("telemetry.service_name"),
			Insecure:              v.GetBool("telemetry.insecure"),
			MetricsExportInterval: v.GetDuration("telemetry.metrics_export_interval"),
			LogsEnabled:           v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:        v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:          v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh:     v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:      v.GetBool("telemetry.profiling_enabled"),
			PyroscopeAddress:      v.GetString("telemetry.pyroscope_address"),
		},
		ReviewInvite: ReviewInviteConfig{
			TodoDelay:           v.GetDuration("review_invite.todo_delay"),
			MaxRetries:          v.GetInt("review_invite.max_retries"),
			BatchSize:           v.GetInt("review_invite.batch_size"),
			Concurrency:         v.GetInt("review_invite.concurrency"),
			DefaultLocale:       v.GetString("review_invite.default_locale"),
			DefaultTemplateID:   v.GetString("review_invite.default_template_id"),
			TemplatesByLanguage: v.GetStringMapString("review_invite.templates_by_language"),
			LocalesByCountry:    v.GetStringMapString("review_invite.locales_by_country"),
		},
		Reputation: ReputationConfig{
			APIBaseURL:      v.GetString("reputation.api_base_url"),
			TokenURL:        v.GetString("reputation.token_url"),
			ClientID:        v.GetString("reputation.client_id"),
			ClientSecret:    v.GetString("reputation.client_secret"),
			Username:        v.GetString("reputation.username"),
			Password:        v.GetString("reputation.password"),
			TokenHostID:     v.GetString("reputation.token_host_id"),
			Timeout:         v.GetDuration("reputation.timeout"),
			AccessTokenTTL:  v.GetDuration("reputation.access_token_ttl"),
			RefreshTokenTTL: v.GetDuration("reputation.refresh_token_ttl"),
			TokenStore:      v.GetString("reputation.token_store"),
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
		cfg.App.Name = "parcelreview-worker"
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
		cfg.Database.DBName = "parcelreview"
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
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
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
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// a manual run answers only once the whole pipeline finished
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 10 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.TriggerRateLimit == 0 {
		cfg.HTTP.TriggerRateLimit = 6
	}
	if cfg.Scheduler.PollInterval == 0 {
		cfg.Scheduler.PollInterval = 15 * time.Minute
	}
	if cfg.Scheduler.RunTimeout == 0 {
		cfg.Scheduler.RunTimeout = 10 * time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsExportInterval == 0 {
		cfg.Telemetry.MetricsExportInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.ReviewInvite.TodoDelay == 0 {
		cfg.ReviewInvite.TodoDelay = 24 * time.Hour
	}
	if cfg.ReviewInvite.MaxRetries == 0 {
		cfg.ReviewInvite.MaxRetries = 3
	}
	if cfg.ReviewInvite.BatchSize == 0 {
		cfg.ReviewInvite.BatchSize = 50
	}
	if cfg.ReviewInvite.Concurrency == 0 {
		cfg.ReviewInvite.Concurrency = 10
	}
	if cfg.ReviewInvite.DefaultLocale == "" {
		cfg.ReviewInvite.DefaultLocale = "en_GB"
	}
	if cfg.Reputation.TokenHostID == "" {
		cfg.Reputation.TokenHostID = "reputation"
	}
	if cfg.Reputation.Timeout == 0 {
		cfg.Reputation.Timeout = 30 * time.Second
	}
	if cfg.Reputation.AccessTokenTTL == 0 {
		cfg.Reputation.AccessTokenTTL = time.Hour
	}
	if cfg.Reputation.RefreshTokenTTL == 0 {
		cfg.Reputation.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if cfg.Reputation.TokenStore == "" {
		cfg.Reputation.TokenStore = TokenStoreDatabase
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

	if c.ReviewInvite.TodoDelay < 0 {
		return fmt.Errorf("review_invite.todo_delay cannot be negative")
	}
	if c.ReviewInvite.MaxRetries < 0 {
		return fmt.Errorf("review_invite.max_retries cannot be negative")
	}
	if c.ReviewInvite.BatchSize < 0 {
		return fmt.Errorf("review_invite.batch_size cannot be negative")
	}
	if c.Scheduler.ProcessLimit < 0 {
		return fmt.Errorf("scheduler.process_limit cannot be negative")
	}
	if c.Scheduler.PollInterval < 0 || c.Scheduler.RunTimeout < 0 {
		return fmt.Errorf("scheduler durations cannot be negative")
	}

	switch c.Reputation.TokenStore {
	case TokenStoreDatabase, TokenStoreRedis:
	default:
		return fmt.Errorf("reputation.token_store must be %q or %q, got %q",
			TokenStoreDatabase, TokenStoreRedis, c.Reputation.TokenStore)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
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
