package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/tradesentry/tradesentry/pkg/errors"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (s *ConfigTestSuite) TestDefaults() {
	cfg, err := Load("")
	s.Require().NoError(err)

	s.Assert().Equal("coingecko", cfg.CryptoProvider)
	s.Assert().Equal("backtest_outputs", cfg.ReportDir)
	s.Assert().Equal("forwardtest_output", cfg.ForwardDir)
}

func (s *ConfigTestSuite) TestYAMLOverridesDefaults() {
	path := filepath.Join(s.T().TempDir(), "config.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(
		"crypto_provider: binance\nreport_dir: /tmp/reports\npolygon_api_key: from-file\n"), 0o644))

	cfg, err := Load(path)
	s.Require().NoError(err)

	s.Assert().Equal("binance", cfg.CryptoProvider)
	s.Assert().Equal("/tmp/reports", cfg.ReportDir)
	s.Assert().Equal("from-file", cfg.PolygonAPIKey)
	s.Assert().Equal("forwardtest_output", cfg.ForwardDir)
}

func (s *ConfigTestSuite) TestEnvOverridesFile() {
	path := filepath.Join(s.T().TempDir(), "config.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("polygon_api_key: from-file\n"), 0o644))

	s.T().Setenv("POLYGON_API_KEY", "from-env")
	s.T().Setenv("COINGECKO_API_KEY", "gecko-env")

	cfg, err := Load(path)
	s.Require().NoError(err)

	s.Assert().Equal("from-env", cfg.PolygonAPIKey)
	s.Assert().Equal("gecko-env", cfg.CoinGeckoAPIKey)
}

func (s *ConfigTestSuite) TestInvalidProviderRejected() {
	path := filepath.Join(s.T().TempDir(), "config.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("crypto_provider: kraken\n"), 0o644))

	_, err := Load(path)
	s.Require().Error(err)
	s.Assert().Equal(errors.ErrCodeInvalidConfiguration, errors.GetCode(err))
}

func (s *ConfigTestSuite) TestMissingFileFails() {
	_, err := Load("/nonexistent/config.yaml")
	s.Require().Error(err)
	s.Assert().Equal(errors.ErrCodeInvalidConfiguration, errors.GetCode(err))
}

func (s *ConfigTestSuite) TestFetcherOptions() {
	cfg := Default()
	cfg.PolygonAPIKey = "pk"
	cfg.CoinGeckoAPIKey = "gk"

	opts := cfg.FetcherOptions(nil)
	s.Assert().Equal("pk", opts.PolygonAPIKey)
	s.Assert().Equal("gk", opts.CoinGeckoAPIKey)
	s.Assert().Equal("coingecko", opts.CryptoProvider)
}
