package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Collect    CollectConfig    `yaml:"collect" mapstructure:"collect"`
	Breaker    BreakerConfig    `yaml:"breaker" mapstructure:"breaker"`
	Refine     RefineConfig     `yaml:"refine" mapstructure:"refine"`
	Recommend  RecommendConfig  `yaml:"recommend" mapstructure:"recommend"`
	Brave      BraveConfig      `yaml:"brave" mapstructure:"brave"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	AmoCRM     AmoCRMConfig     `yaml:"amocrm" mapstructure:"amocrm"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Lock       LockConfig       `yaml:"lock" mapstructure:"lock"`
	MCP        MCPConfig        `yaml:"mcp" mapstructure:"mcp"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins     []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// RequestTimeout returns the per-request bound.
func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// CollectConfig configures collection runs.
type CollectConfig struct {
	ProviderTimeoutSecs int  `yaml:"provider_timeout_secs" mapstructure:"provider_timeout_secs"`
	RefineTimeoutSecs   int  `yaml:"refine_timeout_secs" mapstructure:"refine_timeout_secs"`
	Concurrent          bool `yaml:"concurrent" mapstructure:"concurrent"`
	// RetryAttempts counts the first try; 1 disables retries.
	RetryAttempts  int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMS int `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// ProviderTimeout returns the per-call provider bound.
func (c CollectConfig) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutSecs) * time.Second
}

// RefineTimeout returns the per-call refiner bound.
func (c CollectConfig) RefineTimeout() time.Duration {
	return time.Duration(c.RefineTimeoutSecs) * time.Second
}

// RetryBackoff returns the delay before the first retry.
func (c CollectConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

// BreakerConfig configures the per-provider circuit breakers.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	CooldownSecs     int `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// Cooldown returns how long an open breaker rejects calls.
func (c BreakerConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSecs) * time.Second
}

// RefineConfig configures the structured refiner.
type RefineConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// RecommendConfig configures recommendation generation.
type RecommendConfig struct {
	DefaultModel string `yaml:"default_model" mapstructure:"default_model"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the per-call generation bound.
func (c RecommendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// BraveConfig holds Brave Search settings. Keys are per user.
type BraveConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Count   int    `yaml:"count" mapstructure:"count"`
}

// PerplexityConfig holds Perplexity API settings. Keys are per user.
type PerplexityConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings. Keys are per user.
type AnthropicConfig struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	MaxRetries int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// GeminiConfig holds Gemini API settings. Keys are per user.
type GeminiConfig struct {
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}

// AmoCRMConfig holds amoCRM settings. Tokens are per user.
type AmoCRMConfig struct {
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	MaxPages int    `yaml:"max_pages" mapstructure:"max_pages"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID  string  `yaml:"client_id" mapstructure:"client_id"`
	Username  string  `yaml:"username" mapstructure:"username"`
	KeyPath   string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL  string  `yaml:"login_url" mapstructure:"login_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// LockConfig configures the per-contact run lock. An empty RedisAddr keeps
// locks in process.
type LockConfig struct {
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
	Prefix        string `yaml:"prefix" mapstructure:"prefix"`
	TTLSecs       int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
}

// TTL returns how long a lease lives without release.
func (c LockConfig) TTL() time.Duration {
	return time.Duration(c.TTLSecs) * time.Second
}

// MCPConfig configures the MCP tool server.
type MCPConfig struct {
	UserID int64 `yaml:"user_id" mapstructure:"user_id"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("B2B")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "b2b.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.request_timeout_secs", 300)
	v.SetDefault("collect.provider_timeout_secs", 20)
	v.SetDefault("collect.refine_timeout_secs", 45)
	v.SetDefault("collect.concurrent", false)
	v.SetDefault("collect.retry_attempts", 1)
	v.SetDefault("collect.retry_backoff_ms", 500)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.cooldown_secs", 30)
	v.SetDefault("refine.enabled", true)
	v.SetDefault("refine.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("refine.max_tokens", 1024)
	v.SetDefault("recommend.default_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("recommend.timeout_secs", 90)
	v.SetDefault("brave.base_url", "https://api.search.brave.com/res/v1")
	v.SetDefault("brave.count", 10)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("anthropic.max_retries", 2)
	v.SetDefault("amocrm.max_pages", 40)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_limit", 10)
	v.SetDefault("lock.prefix", "b2b:")
	v.SetDefault("lock.ttl_secs", 300)
	v.SetDefault("mcp.user_id", 1)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings the given mode needs. Modes: "cli",
// "serve", "mcp". All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "cli":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "mcp":
		if c.MCP.UserID <= 0 {
			errs = append(errs, "mcp.user_id must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, "store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	if c.Collect.RetryAttempts < 1 || c.Collect.RetryAttempts > 5 {
		errs = append(errs, "collect.retry_attempts must be between 1 and 5")
	}
	if c.Collect.ProviderTimeoutSecs <= 0 || c.Collect.RefineTimeoutSecs <= 0 {
		errs = append(errs, "collect timeouts must be > 0")
	}
	if c.Breaker.FailureThreshold < 0 {
		errs = append(errs, "breaker.failure_threshold must be >= 0")
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
