// Package config holds the explicit runtime configuration. Callers construct
// or load a Config and pass it down; nothing reads configuration globally.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/tradesentry/tradesentry/internal/fetcher"
	"github.com/tradesentry/tradesentry/internal/logger"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

var validate = validator.New()

// Config is the full runtime configuration.
type Config struct {
	PolygonAPIKey   string `yaml:"polygon_api_key"`
	CoinGeckoAPIKey string `yaml:"coingecko_api_key"`
	CryptoProvider  string `yaml:"crypto_provider" validate:"omitempty,oneof=coingecko binance"`

	ReportDir  string `yaml:"report_dir" validate:"required"`
	ForwardDir string `yaml:"forward_dir" validate:"required"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CryptoProvider: "coingecko",
		ReportDir:      "backtest_outputs",
		ForwardDir:     "forwardtest_output",
	}
}

// Load builds the configuration: defaults, then the optional YAML file, then
// environment overrides for the API keys.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse config file %s", path)
		}
	}

	if key := os.Getenv("POLYGON_API_KEY"); key != "" {
		cfg.PolygonAPIKey = key
	}

	if key := os.Getenv("COINGECKO_API_KEY"); key != "" {
		cfg.CoinGeckoAPIKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	return nil
}

// FetcherOptions maps the configuration onto the fetcher provider options.
func (c *Config) FetcherOptions(log *logger.Logger) fetcher.Options {
	return fetcher.Options{
		PolygonAPIKey:   c.PolygonAPIKey,
		CoinGeckoAPIKey: c.CoinGeckoAPIKey,
		CryptoProvider:  c.CryptoProvider,
		Logger:          log,
	}
}
