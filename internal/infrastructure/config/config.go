// Package config loads service configuration from config.toml with
// SAPFLOW_-prefixed environment variable overrides.
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
	App         AppConfig
	Log         LogConfig
	HTTP        HTTPConfig
	JWT         JWTConfig
	Gateway     GatewayConfig
	Tenants     []TenantConfig
	RateLimit   RateLimitConfig
	Breaker     BreakerConfig
	Workflow    WorkflowConfig
	Idempotency IdempotencyConfig
	Audit       AuditConfig
	Alerting    AlertingConfig
	Redis       RedisConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
	CORSOrigins    []string
}

// JWTConfig holds token verification settings
type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

// GatewayConfig holds settings shared by all tenant gateway connections
type GatewayConfig struct {
	Timeout         time.Duration
	MaxResponseSize int64
}

// TenantConfig is one tenant's gateway connection as declared in config.toml.
// Credentials are never read from the file; see the tenant registry.
type TenantConfig struct {
	ID          string `mapstructure:"id"`
	BaseURL     string `mapstructure:"base_url"`
	Client      string `mapstructure:"client"`
	SystemID    string `mapstructure:"system_id"`
	CompanyCode string `mapstructure:"company_code"`
	Language    string `mapstructure:"language"`
}

// RateLimitConfig holds per-client admission settings
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
}

// BreakerConfig holds circuit breaker settings for gateway calls
type BreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// WorkflowConfig holds the business thresholds used by the workflow engines
type WorkflowConfig struct {
	ApprovalThreshold     float64 // invoice amount above which approval is required
	AutoPayCeiling        float64 // amount up to which payment runs automatically
	MatchTolerancePercent float64 // PO match tolerance
	RejectVariancePercent float64 // variance above which verification rejects outright
}

// IdempotencyConfig controls duplicate-posting protection
type IdempotencyConfig struct {
	Enabled bool
	Backend string // memory, redis
	TTL     time.Duration
}

// AuditConfig holds audit trail persistence settings
type AuditConfig struct {
	Enabled  bool
	Driver   string // sqlite, postgres
	Path     string // sqlite file path
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// AlertingConfig holds webhook alerting settings
type AlertingConfig struct {
	Enabled    bool
	WebhookURL string
	Timeout    time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with SAPFLOW_ prefix (e.g. SAPFLOW_JWT_SECRET)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// no file is fine, defaults and env vars cover everything
	}

	v.SetEnvPrefix("SAPFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
			CORSOrigins:    v.GetStringSlice("http.cors_origins"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			Issuer:     v.GetString("jwt.issuer"),
			Expiration: v.GetDuration("jwt.expiration"),
		},
		Gateway: GatewayConfig{
			Timeout:         v.GetDuration("gateway.timeout"),
			MaxResponseSize: v.GetInt64("gateway.max_response_size"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           v.GetBool("ratelimit.enabled"),
			RequestsPerMinute: v.GetInt("ratelimit.requests_per_minute"),
		},
		Breaker: BreakerConfig{
			FailureThreshold: v.GetInt("breaker.failure_threshold"),
			Cooldown:         v.GetDuration("breaker.cooldown"),
		},
		Workflow: WorkflowConfig{
			ApprovalThreshold:     v.GetFloat64("workflow.approval_threshold"),
			AutoPayCeiling:        v.GetFloat64("workflow.autopay_ceiling"),
			MatchTolerancePercent: v.GetFloat64("workflow.match_tolerance_percent"),
			RejectVariancePercent: v.GetFloat64("workflow.reject_variance_percent"),
		},
		Idempotency: IdempotencyConfig{
			Enabled: v.GetBool("idempotency.enabled"),
			Backend: v.GetString("idempotency.backend"),
			TTL:     v.GetDuration("idempotency.ttl"),
		},
		Audit: AuditConfig{
			Enabled:  v.GetBool("audit.enabled"),
			Driver:   v.GetString("audit.driver"),
			Path:     v.GetString("audit.path"),
			Host:     v.GetString("audit.host"),
			Port:     v.GetInt("audit.port"),
			User:     v.GetString("audit.user"),
			Password: v.GetString("audit.password"),
			DBName:   v.GetString("audit.dbname"),
			SSLMode:  v.GetString("audit.sslmode"),
		},
		Alerting: AlertingConfig{
			Enabled:    v.GetBool("alerting.enabled"),
			WebhookURL: v.GetString("alerting.webhook_url"),
			Timeout:    v.GetDuration("alerting.timeout"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
	}

	if err := v.UnmarshalKey("tenants", &cfg.Tenants); err != nil {
		return nil, fmt.Errorf("error parsing tenants: %w", err)
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
		cfg.App.Name = "sapflow-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
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
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "sapflow-backend"
	}
	if cfg.JWT.Expiration == 0 {
		cfg.JWT.Expiration = 8 * time.Hour
	}
	if cfg.Gateway.Timeout == 0 {
		cfg.Gateway.Timeout = 30 * time.Second
	}
	if cfg.Gateway.MaxResponseSize == 0 {
		cfg.Gateway.MaxResponseSize = 10 << 20
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = 60
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = 5
	}
	if cfg.Breaker.Cooldown == 0 {
		cfg.Breaker.Cooldown = 60 * time.Second
	}
	if cfg.Workflow.ApprovalThreshold == 0 {
		cfg.Workflow.ApprovalThreshold = 10000
	}
	if cfg.Workflow.AutoPayCeiling == 0 {
		cfg.Workflow.AutoPayCeiling = 10000
	}
	if cfg.Workflow.MatchTolerancePercent == 0 {
		cfg.Workflow.MatchTolerancePercent = 5
	}
	if cfg.Workflow.RejectVariancePercent == 0 {
		cfg.Workflow.RejectVariancePercent = 10
	}
	if cfg.Idempotency.Backend == "" {
		cfg.Idempotency.Backend = "memory"
	}
	if cfg.Idempotency.TTL == 0 {
		cfg.Idempotency.TTL = 24 * time.Hour
	}
	if cfg.Audit.Driver == "" {
		cfg.Audit.Driver = "sqlite"
	}
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = "audit.db"
	}
	if cfg.Audit.Host == "" {
		cfg.Audit.Host = "localhost"
	}
	if cfg.Audit.Port == 0 {
		cfg.Audit.Port = 5432
	}
	if cfg.Audit.User == "" {
		cfg.Audit.User = "postgres"
	}
	if cfg.Audit.DBName == "" {
		cfg.Audit.DBName = "sapflow_audit"
	}
	if cfg.Audit.SSLMode == "" {
		cfg.Audit.SSLMode = "disable"
	}
	if cfg.Alerting.Timeout == 0 {
		cfg.Alerting.Timeout = 5 * time.Second
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("ratelimit.requests_per_minute cannot be negative")
	}
	if c.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("breaker.failure_threshold must be at least 1")
	}
	if c.Workflow.MatchTolerancePercent < 0 || c.Workflow.MatchTolerancePercent > 100 {
		return fmt.Errorf("workflow.match_tolerance_percent must be between 0 and 100, got %f",
			c.Workflow.MatchTolerancePercent)
	}
	if c.Workflow.RejectVariancePercent < c.Workflow.MatchTolerancePercent {
		return fmt.Errorf("workflow.reject_variance_percent (%f) cannot be below match_tolerance_percent (%f)",
			c.Workflow.RejectVariancePercent, c.Workflow.MatchTolerancePercent)
	}
	switch c.Idempotency.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("idempotency.backend must be memory or redis, got %q", c.Idempotency.Backend)
	}
	switch c.Audit.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("audit.driver must be sqlite or postgres, got %q", c.Audit.Driver)
	}

	seen := make(map[string]bool, len(c.Tenants))
	for _, t := range c.Tenants {
		if t.ID == "" {
			return fmt.Errorf("tenants entries must have an id")
		}
		if t.BaseURL == "" {
			return fmt.Errorf("tenant %s is missing base_url", t.ID)
		}
		if seen[t.ID] {
			return fmt.Errorf("tenant %s is declared twice", t.ID)
		}
		seen[t.ID] = true
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Alerting.Enabled && c.Alerting.WebhookURL == "" {
			return fmt.Errorf("alerting.webhook_url is required when alerting is enabled in production")
		}
		if c.Audit.Driver == "postgres" && c.Audit.Password == "" {
			return fmt.Errorf("audit.password is required for postgres in production")
		}
	}
	return nil
}

// DSN returns the postgres connection string for the audit database
func (a *AuditConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(a.User, a.Password),
		Host:   fmt.Sprintf("%s:%d", a.Host, a.Port),
		Path:   a.DBName,
	}
	q := u.Query()
	q.Set("sslmode", a.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port address for Redis
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
