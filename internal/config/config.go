// Package config holds the single run configuration object. It is built
// once at process start (YAML file plus environment overrides) and passed by
// reference; nothing reads process-wide state after that.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Environment names. DEV targets the staging portal behind basic auth.
const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// Config is the complete run configuration.
type Config struct {
	Environment string `yaml:"environment" env:"ODM_ENVIRONMENT"`
	Edition     string `yaml:"edition" env:"ODM_EDITION"`

	OutputDir   string `yaml:"output_dir" env:"ODM_OUTPUT_DIR"`
	ManifestDir string `yaml:"manifest_dir"`
	DataDir     string `yaml:"data_dir"`

	Browser     BrowserConfig     `yaml:"browser"`
	Credentials CredentialsConfig `yaml:"-"`
}

// BrowserConfig configures the controlled Chrome instance.
type BrowserConfig struct {
	Headless            bool `yaml:"headless" env:"ODM_HEADLESS"`
	ViewportWidth       int  `yaml:"viewport_width"`
	ViewportHeight      int  `yaml:"viewport_height"`
	NavigationTimeoutMs int  `yaml:"navigation_timeout_ms"`
	DownloadTimeoutMs   int  `yaml:"download_timeout_ms"`
	// SettleDelayMs is the pause after UI interactions while the SPA
	// re-renders.
	SettleDelayMs int `yaml:"settle_delay_ms"`
}

// CredentialsConfig carries the portal basic-auth credentials. Environment
// only; never serialized to the config file.
type CredentialsConfig struct {
	Username string `env:"ODM_USERNAME"`
	Password string `env:"ODM_PASSWORD"`
}

// NavigationTimeout returns the page navigation timeout.
func (c BrowserConfig) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// DownloadTimeout bounds one triggered download.
func (c BrowserConfig) DownloadTimeout() time.Duration {
	if c.DownloadTimeoutMs <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.DownloadTimeoutMs) * time.Millisecond
}

// SettleDelay returns the post-interaction settle pause.
func (c BrowserConfig) SettleDelay() time.Duration {
	if c.SettleDelayMs <= 0 {
		return time.Second
	}
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}

// DefaultConfig returns the defaults for a PROD run of the current edition.
func DefaultConfig() Config {
	return Config{
		Environment: EnvProd,
		Edition:     "2024",
		OutputDir:   "downloads",
		ManifestDir: "manifests",
		DataDir:     "data",
		Browser: BrowserConfig{
			Headless:            true,
			ViewportWidth:       1920,
			ViewportHeight:      1080,
			NavigationTimeoutMs: 30000,
			DownloadTimeoutMs:   60000,
			SettleDelayMs:       1000,
		},
	}
}

// Load reads a YAML config file, then applies environment overrides. A
// missing file is not an error: defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// fall through to defaults
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: env overrides: %w", err)
	}
	if err := env.Parse(&cfg.Credentials); err != nil {
		return nil, fmt.Errorf("config: credentials: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the YAML representation (credentials excluded).
func (c *Config) Save(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}

// Validate checks the invariants the rest of the program assumes.
func (c *Config) Validate() error {
	if c.Environment != EnvDev && c.Environment != EnvProd {
		return fmt.Errorf("config: invalid environment %q: must be %s or %s", c.Environment, EnvDev, EnvProd)
	}
	if c.Edition == "" {
		return fmt.Errorf("config: edition required")
	}
	return nil
}

// RequireCredentials fails unless both credential halves are set. Only the
// acquisition path needs them; offline validation runs without.
func (c *Config) RequireCredentials() error {
	if c.Credentials.Username == "" || c.Credentials.Password == "" {
		return fmt.Errorf("config: missing credentials: set ODM_USERNAME and ODM_PASSWORD")
	}
	return nil
}

// PortalURL returns the edition page for the selected environment.
func (c *Config) PortalURL() string {
	base := "https://data.europa.eu"
	if c.Environment == EnvDev {
		base = "https://edp.dev.agiledrop.com"
	}
	return fmt.Sprintf("%s/en/open-data-maturity/%s", base, c.Edition)
}
