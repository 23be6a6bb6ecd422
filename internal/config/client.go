package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// BreakerConfig tunes the circuit breaker in front of the document store.
type BreakerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	MinRequests  uint32        `yaml:"min_requests"`
	FailureRatio float64       `yaml:"failure_ratio"`
	OpenTimeout  time.Duration `yaml:"open_timeout"`
}

// ClientConfig configures the docflow front-end.
type ClientConfig struct {
	APIURL      string        `yaml:"api_url"`
	SessionFile string        `yaml:"session_file"`
	PageSize    int           `yaml:"page_size"`
	Timeout     time.Duration `yaml:"timeout"`
	LogLevel    string        `yaml:"log_level"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

func defaultClient() ClientConfig {
	return ClientConfig{
		APIURL:      "http://localhost:8080",
		SessionFile: defaultSessionFile(),
		PageSize:    10,
		Timeout:     30 * time.Second,
		LogLevel:    "warn",
		Breaker: BreakerConfig{
			Enabled:      true,
			MinRequests:  5,
			FailureRatio: 0.6,
			OpenTimeout:  30 * time.Second,
		},
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".docflow-session.yaml"
	}
	return filepath.Join(dir, "docflow", "session.yaml")
}

// ClientConfigPath is DOCFLOW_CONFIG, else config.yaml next to the default session file.
func ClientConfigPath() string {
	if p := os.Getenv("DOCFLOW_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(filepath.Dir(defaultSessionFile()), "config.yaml")
}

// LoadClient builds the front-end configuration: defaults, then the YAML file
// at path (if it exists), then environment variables.
func LoadClient(path string) (*ClientConfig, error) {
	cfg := defaultClient()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read client config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse client config %s: %w", path, err)
			}
		}
	}

	cfg.APIURL = getEnv("DOCFLOW_API_URL", cfg.APIURL)
	cfg.SessionFile = getEnv("DOCFLOW_SESSION_FILE", cfg.SessionFile)
	cfg.PageSize = getEnvInt("DOCFLOW_PAGE_SIZE", cfg.PageSize)
	cfg.Timeout = getEnvDuration("DOCFLOW_TIMEOUT", cfg.Timeout)
	cfg.LogLevel = getEnv("DOCFLOW_LOG_LEVEL", cfg.LogLevel)
	cfg.Breaker.Enabled = getEnvBool("DOCFLOW_BREAKER_ENABLED", cfg.Breaker.Enabled)
	if n := getEnvInt("DOCFLOW_BREAKER_MIN_REQUESTS", int(cfg.Breaker.MinRequests)); n > 0 {
		cfg.Breaker.MinRequests = uint32(n)
	}
	cfg.Breaker.FailureRatio = getEnvFloat("DOCFLOW_BREAKER_FAILURE_RATIO", cfg.Breaker.FailureRatio)
	cfg.Breaker.OpenTimeout = getEnvDuration("DOCFLOW_BREAKER_OPEN_TIMEOUT", cfg.Breaker.OpenTimeout)

	if cfg.APIURL == "" {
		return nil, errors.New("api url is required")
	}
	return &cfg, nil
}
