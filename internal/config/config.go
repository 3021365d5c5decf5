package config

import (
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config captures the runtime configuration for the router service.
type Config struct {
	Server        ServerConfig                `mapstructure:"server"`
	Redis         RedisConfig                 `mapstructure:"redis"`
	RateLimits    RateLimitConfig             `mapstructure:"rate_limits"`
	Providers     map[string]ProviderSettings `mapstructure:"providers"`
	Catalog       CatalogConfig               `mapstructure:"catalog"`
	Routing       RoutingConfig               `mapstructure:"routing"`
	Observability ObservabilityConfig         `mapstructure:"observability"`
	Health        HealthConfig                `mapstructure:"health"`
}

type ServerConfig struct {
	ListenAddr            string        `mapstructure:"listen_addr"`
	BodyLimitMB           int           `mapstructure:"body_limit_mb"`
	SyncTimeout           time.Duration `mapstructure:"sync_timeout"`
	ReadHeaderTimeout     time.Duration `mapstructure:"read_header_timeout"`
	GracefulShutdownDelay time.Duration `mapstructure:"graceful_shutdown_delay"`
	IdempotencyTTL        time.Duration `mapstructure:"idempotency_ttl"`
}

type RedisConfig struct {
	URL      string `mapstructure:"url"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// RateLimitConfig holds per-provider limiter defaults. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	TokensPerMinute   int  `mapstructure:"tokens_per_minute"`
	ParallelRequests  int  `mapstructure:"parallel_requests"`
}

// ProviderSettings is the per-provider block under providers.<name>. Fields
// that do not apply to a provider are ignored by its builder.
type ProviderSettings struct {
	Enabled     *bool             `mapstructure:"enabled"`
	APIKey      string            `mapstructure:"api_key"`
	BaseURL     string            `mapstructure:"base_url"`
	ModelID     string            `mapstructure:"model_id"`
	Temperature *float64          `mapstructure:"temperature"`
	MaxTokens   int               `mapstructure:"max_tokens"`
	MaxRetries  int               `mapstructure:"max_retries"`
	Headers     map[string]string `mapstructure:"headers"`

	Organization string `mapstructure:"organization"`

	// azure-openai
	Endpoint   string `mapstructure:"endpoint"`
	APIVersion string `mapstructure:"api_version"`

	// bedrock
	Region           string `mapstructure:"region"`
	Profile          string `mapstructure:"aws_profile"`
	AccessKeyID      string `mapstructure:"aws_access_key_id"`
	SecretAccessKey  string `mapstructure:"aws_secret_access_key"`
	SessionToken     string `mapstructure:"aws_session_token"`
	AnthropicVersion string `mapstructure:"anthropic_version"`

	// vertex
	ProjectID       string `mapstructure:"gcp_project_id"`
	Location        string `mapstructure:"gcp_location"`
	CredentialsJSON string `mapstructure:"gcp_credentials_json"`
}

func (p ProviderSettings) IsEnabled() bool {
	if p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

type CatalogConfig struct {
	TTL   time.Duration `mapstructure:"ttl"`
	Store string        `mapstructure:"store"`
}

type RoutingConfig struct {
	Fallbacks        map[string][]string `mapstructure:"fallbacks"`
	FailureThreshold int                 `mapstructure:"failure_threshold"`
	Cooldown         time.Duration       `mapstructure:"cooldown"`
}

type ObservabilityConfig struct {
	OTLPEndpoint  string `mapstructure:"otlp_endpoint"`
	EnableOTLP    bool   `mapstructure:"enable_otlp"`
	EnableMetrics bool   `mapstructure:"enable_metrics"`
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
}

type HealthConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
}

// Options controls the config loader behavior.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load returns the merged configuration sourced from YAML and environment variables.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		_ = godotenv.Load(opts.EnvFile)
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	explicitFile := false
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		explicitFile = true
	} else if cfg := os.Getenv("ROUTER_CONFIG_FILE"); cfg != "" {
		v.SetConfigFile(cfg)
		explicitFile = true
	}

	if !explicitFile {
		v.SetConfigName("router")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("ROUTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindProviderEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		timeStringToDurationHook(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// knownProviders have environment bindings even when absent from the file,
// so ROUTER_PROVIDERS_DEEPINFRA_API_KEY alone is enough to enable one.
var knownProviders = []string{
	"deepinfra", "openrouter", "openai-compatible", "azure-openai", "vertex", "anthropic", "bedrock",
}

var providerKeys = []string{
	"api_key", "base_url", "model_id", "temperature", "max_tokens", "organization",
	"endpoint", "api_version", "region", "aws_profile", "aws_access_key_id",
	"aws_secret_access_key", "aws_session_token", "gcp_project_id", "gcp_location",
	"gcp_credentials_json",
}

func bindProviderEnv(v *viper.Viper) {
	for _, provider := range knownProviders {
		envName := strings.ToUpper(strings.ReplaceAll(provider, "-", "_"))
		for _, key := range providerKeys {
			_ = v.BindEnv("providers."+provider+"."+key, "ROUTER_PROVIDERS_"+envName+"_"+strings.ToUpper(key))
		}
	}
}

// Validate fills defaults and rejects inconsistent values.
func (c *Config) Validate() error {
	if c.Server.BodyLimitMB <= 0 {
		return fmt.Errorf("server.body_limit_mb must be > 0")
	}
	if c.Redis.PoolSize < 0 {
		return fmt.Errorf("redis.pool_size must be >= 0")
	}
	if c.Catalog.TTL < 0 {
		return fmt.Errorf("catalog.ttl must be >= 0")
	}
	switch c.Catalog.Store {
	case "", "memory":
		c.Catalog.Store = "memory"
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("catalog.store=redis requires redis.url")
		}
	default:
		return fmt.Errorf("catalog.store must be memory or redis")
	}
	if c.RateLimits.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("rate_limits.enabled requires redis.url")
	}
	if c.RateLimits.RequestsPerMinute < 0 || c.RateLimits.TokensPerMinute < 0 || c.RateLimits.ParallelRequests < 0 {
		return fmt.Errorf("rate_limits values must be >= 0")
	}
	if c.Routing.FailureThreshold <= 0 {
		c.Routing.FailureThreshold = 3
	}
	if c.Routing.Cooldown <= 0 {
		c.Routing.Cooldown = time.Minute
	}
	if c.Health.ProbeTimeout <= 0 {
		c.Health.ProbeTimeout = 10 * time.Second
	}

	normalized := make(map[string]ProviderSettings, len(c.Providers))
	for name, settings := range c.Providers {
		key := strings.ToLower(strings.TrimSpace(name))
		if settings.Temperature != nil && (*settings.Temperature < 0 || *settings.Temperature > 2) {
			return fmt.Errorf("providers.%s.temperature must be between 0 and 2", key)
		}
		if settings.MaxTokens < 0 {
			return fmt.Errorf("providers.%s.max_tokens must be >= 0", key)
		}
		if settings.MaxRetries < 0 {
			return fmt.Errorf("providers.%s.max_retries must be >= 0", key)
		}
		settings.APIKey = strings.TrimSpace(settings.APIKey)
		settings.ModelID = strings.TrimSpace(settings.ModelID)
		normalized[key] = settings
	}
	c.Providers = normalized

	for primary, fallbacks := range c.Routing.Fallbacks {
		for _, fb := range fallbacks {
			if strings.EqualFold(fb, primary) {
				return fmt.Errorf("routing.fallbacks.%s cannot include itself", primary)
			}
		}
	}
	return nil
}

// Configured lists providers that carry any settings and are not disabled,
// sorted by name. Empty placeholder blocks produced by env bindings are skipped.
func (c *Config) Configured() []string {
	names := make([]string, 0, len(c.Providers))
	for name, settings := range c.Providers {
		if !settings.IsEnabled() || settings.isEmpty() {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p ProviderSettings) isEmpty() bool {
	return p.APIKey == "" && p.BaseURL == "" && p.ModelID == "" && p.Endpoint == "" &&
		p.Region == "" && p.Profile == "" && p.AccessKeyID == "" && p.ProjectID == "" &&
		p.CredentialsJSON == "" && p.Enabled == nil
}

// Provider returns the settings block for name, if any.
func (c *Config) Provider(name string) (ProviderSettings, bool) {
	settings, ok := c.Providers[strings.ToLower(strings.TrimSpace(name))]
	return settings, ok
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.body_limit_mb", 20)
	v.SetDefault("server.sync_timeout", "300s")
	v.SetDefault("server.read_header_timeout", "5s")
	v.SetDefault("server.graceful_shutdown_delay", "5s")
	v.SetDefault("server.idempotency_ttl", "30m")

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)

	v.SetDefault("rate_limits.enabled", false)

	v.SetDefault("catalog.ttl", "5m")
	v.SetDefault("catalog.store", "memory")

	v.SetDefault("routing.failure_threshold", 3)
	v.SetDefault("routing.cooldown", "1m")

	v.SetDefault("observability.enable_otlp", false)
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.otlp_endpoint", "localhost:4317")
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_format", "json")

	v.SetDefault("health.check_interval", "60s")
	v.SetDefault("health.probe_timeout", "10s")
}

func timeStringToDurationHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case time.Duration:
			return v, nil
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, err
			}
			return d, nil
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		case float64:
			return time.Duration(v * float64(time.Second)), nil
		default:
			return nil, fmt.Errorf("cannot decode %T into time.Duration", data)
		}
	}
}
