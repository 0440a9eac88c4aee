package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"web3-gateway/internal/domain/entity"
)

// Config holds all configuration for the application.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Logger        LoggerConfig        `mapstructure:"logger"`
	Chain         ChainConfig         `mapstructure:"chain"`
	Auth          AuthConfig          `mapstructure:"auth"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Confirmations ConfirmationsConfig `mapstructure:"confirmations"`
	Upstream      UpstreamConfig      `mapstructure:"upstream"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// ChainConfig selects the default network and the hosted RPC credential.
type ChainConfig struct {
	Default     string `mapstructure:"default"`
	ProviderKey string `mapstructure:"provider_key"`
	// RPCURLs overrides the hosted endpoint per chain key. Keys are matched case-insensitively.
	RPCURLs map[string]string `mapstructure:"rpc_urls"`
}

// AuthConfig holds the shared-secret API keys accepted under the protected prefix.
type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
	Realm   string   `mapstructure:"realm"`
}

// RateLimitConfig bounds requests per caller identity.
type RateLimitConfig struct {
	Max      int   `mapstructure:"max"`
	WindowMs int64 `mapstructure:"window_ms"`
}

// ConfirmationsConfig holds the finality threshold used when a request gives none.
type ConfirmationsConfig struct {
	Default int64 `mapstructure:"default"`
}

// UpstreamConfig tunes calls to the chain RPC provider.
type UpstreamConfig struct {
	// Timeout bounds a whole request's provider fan-out. Zero disables the bound.
	Timeout     time.Duration `mapstructure:"timeout"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// envBindings maps config keys to the plain environment variable names operators set.
var envBindings = map[string]string{
	"server.port":           "PORT",
	"chain.default":         "CHAIN_DEFAULT",
	"chain.provider_key":    "ALCHEMY_API_KEY",
	"auth.api_keys":         "API_KEYS",
	"rate_limit.max":        "RATE_LIMIT_MAX",
	"rate_limit.window_ms":  "RATE_LIMIT_WINDOW",
	"confirmations.default": "CONFIRMATIONS",
	"upstream.timeout":      "UPSTREAM_TIMEOUT",
	"logger.level":          "LOG_LEVEL",
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("app.name", "web3-gateway")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("chain.default", string(entity.DefaultChainKey))
	v.SetDefault("auth.realm", "web3-api")
	v.SetDefault("rate_limit.max", 60)
	v.SetDefault("rate_limit.window_ms", 60000)
	v.SetDefault("confirmations.default", 1)
	v.SetDefault("upstream.timeout", "0s")
	v.SetDefault("upstream.read_timeout", "10s")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("WEB3_GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, "WEB3_GATEWAY_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Auth.APIKeys = normalizeKeys(cfg.Auth.APIKeys)
	if cfg.Confirmations.Default < 0 {
		cfg.Confirmations.Default = 0
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports settings the gateway cannot start with. An empty API key list is
// accepted: the auth gate fails closed on it at request time.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Chain.ProviderKey) == "" {
		return fmt.Errorf("missing required env ALCHEMY_API_KEY")
	}
	if _, err := entity.ParseChainKey(c.Chain.Default); err != nil {
		return fmt.Errorf("invalid CHAIN_DEFAULT %q: %w", c.Chain.Default, err)
	}
	if c.RateLimit.Max <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must be positive, got %d", c.RateLimit.Max)
	}
	if c.RateLimit.WindowMs <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %d", c.RateLimit.WindowMs)
	}
	if c.Upstream.Timeout < 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must not be negative, got %s", c.Upstream.Timeout)
	}
	return nil
}

// normalizeKeys splits comma-joined entries, trims every key and drops empties.
func normalizeKeys(raw []string) []string {
	keys := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, k := range strings.Split(entry, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
	}
	return keys
}

func (c ChainConfig) GetDefault() entity.ChainKey {
	return entity.ChainKey(c.Default)
}

// GetRPCURL returns the configured override for chain, if any.
func (c ChainConfig) GetRPCURL(chain entity.ChainKey) (string, bool) {
	for k, u := range c.RPCURLs {
		if strings.EqualFold(k, string(chain)) && strings.TrimSpace(u) != "" {
			return strings.TrimSpace(u), true
		}
	}
	return "", false
}

func (c RateLimitConfig) GetWindow() time.Duration {
	return time.Duration(c.WindowMs) * time.Millisecond
}

func (c ConfirmationsConfig) GetDefault() uint64 {
	if c.Default < 0 {
		return 0
	}
	return uint64(c.Default)
}

func (c UpstreamConfig) GetTimeout() time.Duration {
	return c.Timeout
}

func (c UpstreamConfig) GetReadTimeout() time.Duration {
	return c.ReadTimeout
}
