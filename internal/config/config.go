package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Anthropic    AnthropicConfig    `yaml:"anthropic" mapstructure:"anthropic"`
	Classifier   ClassifierConfig   `yaml:"classifier" mapstructure:"classifier"`
	Notify       NotifyConfig       `yaml:"notify" mapstructure:"notify"`
	Coordinator  CoordinatorConfig  `yaml:"coordinator" mapstructure:"coordinator"`
	Verification VerificationConfig `yaml:"verification" mapstructure:"verification"`
	Resilience   ResilienceConfig   `yaml:"resilience" mapstructure:"resilience"`
	Telemetry    TelemetryConfig    `yaml:"telemetry" mapstructure:"telemetry"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the destination database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	RegionCode  string `yaml:"region_code" mapstructure:"region_code"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	Model             string  `yaml:"model" mapstructure:"model"`
	MaxTokens         int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// ClassifierConfig selects the field classification strategy.
type ClassifierConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// NotifyConfig configures where unresolved-field notifications go.
type NotifyConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	WebhookURL  string `yaml:"webhook_url" mapstructure:"webhook_url"`
	RedisURL    string `yaml:"redis_url" mapstructure:"redis_url"`
	RedisStream string `yaml:"redis_stream" mapstructure:"redis_stream"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CoordinatorConfig configures agent dispatch.
type CoordinatorConfig struct {
	MaxConcurrentAgents int `yaml:"max_concurrent_agents" mapstructure:"max_concurrent_agents"`
	CallTimeoutSecs     int `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
}

// VerificationConfig configures the post-run review.
type VerificationConfig struct {
	Threshold int `yaml:"threshold" mapstructure:"threshold"`
}

// ResilienceConfig configures retries and circuit breaking around backend calls.
type ResilienceConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// TelemetryConfig configures the in-process event log.
type TelemetryConfig struct {
	Retention int `yaml:"retention" mapstructure:"retention"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// CallTimeout returns the per-call timeout applied around external I/O.
func (c CoordinatorConfig) CallTimeout() time.Duration {
	if c.CallTimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.CallTimeoutSecs) * time.Second
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MIGRATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.region_code", "RUN")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("anthropic.requests_per_second", 2.0)
	v.SetDefault("classifier.provider", "auto")
	v.SetDefault("classifier.timeout_secs", 30)
	v.SetDefault("notify.driver", "none")
	v.SetDefault("notify.redis_stream", "migration:unresolved")
	v.SetDefault("notify.timeout_secs", 10)
	v.SetDefault("coordinator.max_concurrent_agents", 4)
	v.SetDefault("coordinator.call_timeout_secs", 30)
	v.SetDefault("verification.threshold", 3)
	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 200)
	v.SetDefault("resilience.max_backoff_ms", 5000)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)
	v.SetDefault("telemetry.retention", 200)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

	if cfg.Verification.Threshold < 1 {
		cfg.Verification.Threshold = 1
	}

	return &cfg, nil
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

// Validate checks that the settings required by the given command mode are
// present and within bounds.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve", "ingest":
		if c.Coordinator.MaxConcurrentAgents < 1 || c.Coordinator.MaxConcurrentAgents > 16 {
			errs = append(errs, "coordinator.max_concurrent_agents must be between 1 and 16")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		switch c.Classifier.Provider {
		case "auto", "rule", "anthropic":
		default:
			errs = append(errs, "classifier.provider must be one of auto, rule, anthropic")
		}
		switch c.Notify.Driver {
		case "none", "":
		case "webhook":
			if c.Notify.WebhookURL == "" {
				errs = append(errs, "notify.webhook_url is required for the webhook driver")
			}
		case "redis":
			if c.Notify.RedisURL == "" {
				errs = append(errs, "notify.redis_url is required for the redis driver")
			}
		default:
			errs = append(errs, "notify.driver must be one of none, webhook, redis")
		}
		errs = append(errs, c.validateStore()...)
	case "migrate":
		if c.Store.Driver == "none" || c.Store.Driver == "" {
			errs = append(errs, "store.driver must be postgres or sqlite to migrate")
		}
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "none", "":
	case "postgres", "sqlite":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		errs = append(errs, "store.driver must be one of none, postgres, sqlite")
	}
	if len(c.Store.RegionCode) != 3 {
		errs = append(errs, "store.region_code must be 3 characters")
	}
	return errs
}
