// Package config loads the gateway configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/payorch/connector-gateway/internal/domain"
	"github.com/payorch/connector-gateway/internal/observability"
	"github.com/payorch/connector-gateway/internal/policy"
)

// ServerConfig is the listener and request-handling configuration.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ConnectorConfig is one processor's network configuration.
type ConnectorConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// HTTPClientConfig tunes the outbound client shared by all connectors.
type HTTPClientConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// BreakerConfig tunes the per-connector health gate.
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	CooldownPeriod   time.Duration `mapstructure:"cooldown_period"`
}

// Config is the full gateway configuration.
type Config struct {
	Server     ServerConfig                  `mapstructure:"server"`
	Client     HTTPClientConfig              `mapstructure:"client"`
	Breaker    BreakerConfig                 `mapstructure:"breaker"`
	Logging    observability.LoggerConfig    `mapstructure:"logging"`
	Tracing    observability.TracingConfig   `mapstructure:"tracing"`
	Connectors map[string]ConnectorConfig    `mapstructure:"connectors"`
	Policy     []policy.Rule                 `mapstructure:"policy"`
	TestMode   bool                          `mapstructure:"test_mode"`
}

// Load reads configuration from the optional file at path, overlaying
// environment variables prefixed with GATEWAY (GATEWAY_SERVER_ADDRESS and
// so on). A missing file is not an error; defaults plus environment must be
// enough to boot.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("client.timeout", 30*time.Second)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.cooldown_period", 30*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sampling_ratio", 1.0)

	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return Config{}, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Endpoints maps the configured connector base URLs onto the domain's
// endpoint table. Unconfigured connectors keep empty URLs and fail with a
// classified error on first use.
func (c Config) Endpoints() domain.Connectors {
	return domain.Connectors{
		Fiserv:   domain.ConnectorEndpoint{BaseURL: c.Connectors["fiserv"].BaseURL},
		Paytm:    domain.ConnectorEndpoint{BaseURL: c.Connectors["paytm"].BaseURL},
		Razorpay: domain.ConnectorEndpoint{BaseURL: c.Connectors["razorpay"].BaseURL},
	}
}
