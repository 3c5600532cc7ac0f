package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config describes the top-level application configuration loaded from YAML and ENV.
type Config struct {
	Version  string         `mapstructure:"version"`
	Server   ServerConfig   `mapstructure:"server"`
	Client   ClientConfig   `mapstructure:"client"`
	Executor ExecutorConfig `mapstructure:"executor"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Lint     LintConfig     `mapstructure:"lint"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig describes executor daemon settings.
type ServerConfig struct {
	Addr           string `mapstructure:"addr"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
}

// ClientConfig describes how the CLI reaches the daemon.
type ClientConfig struct {
	// ServerURL is the WebSocket endpoint, e.g. ws://localhost:8080/ws.
	// Plain host:port values are normalized by the client.
	ServerURL string `mapstructure:"server_url"`
}

// ExecutorConfig controls server-side task execution.
type ExecutorConfig struct {
	// Workspace is the directory task handlers operate in (checkouts,
	// generated files).
	Workspace string `mapstructure:"workspace"`
	// Mock replaces git/GitHub side effects with in-process fakes; used by
	// local development and the custom task's sleep-and-report choreography.
	Mock bool `mapstructure:"mock"`
	// StepDelay paces the mock task's progress events.
	StepDelay time.Duration `mapstructure:"step_delay"`
	// PreviewTTL bounds how long a preview-id -> port mapping stays routable.
	PreviewTTL time.Duration `mapstructure:"preview_ttl"`
	// PreviewPortMin/Max bound the port range handed to preview servers.
	PreviewPortMin int `mapstructure:"preview_port_min"`
	PreviewPortMax int `mapstructure:"preview_port_max"`
}

// GitHubConfig describes the source-hosting REST API endpoint.
type GitHubConfig struct {
	// APIBaseURL overrides the GitHub API endpoint (GHE installs). Empty
	// means api.github.com.
	APIBaseURL string `mapstructure:"api_base_url"`
	// BaseBranch is the branch pull requests target.
	BaseBranch string `mapstructure:"base_branch"`
}

// LintConfig configures the repo-config linter.
type LintConfig struct {
	// RequiredFiles are paths that must exist at the repository root, in
	// addition to the built-in jbish.json / jbish.toml checks.
	RequiredFiles []string `mapstructure:"required_files"`
}

// LoggingConfig controls logger behaviour.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console or json
}

// Load reads configuration from the provided path or defaults to configs/config.yaml.
// Environment variables override file values (prefix: JBISH_, dots replaced with underscores).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("JBISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
	} else {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// no config file: defaults plus env is a valid configuration
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults populates sensible defaults for optional fields.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_enabled", true)

	v.SetDefault("client.server_url", "ws://localhost:8080/ws")

	v.SetDefault("executor.workspace", ".")
	v.SetDefault("executor.mock", false)
	v.SetDefault("executor.step_delay", 200*time.Millisecond)
	v.SetDefault("executor.preview_ttl", 30*time.Minute)
	v.SetDefault("executor.preview_port_min", 4000)
	v.SetDefault("executor.preview_port_max", 4999)

	v.SetDefault("github.api_base_url", "")
	v.SetDefault("github.base_branch", "main")

	v.SetDefault("lint.required_files", []string{})
}

// Validate performs basic sanity checks on configuration values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}

	if strings.TrimSpace(c.Client.ServerURL) == "" {
		return errors.New("client.server_url must be set")
	}

	if strings.TrimSpace(c.Executor.Workspace) == "" {
		return errors.New("executor.workspace must be set")
	}

	if c.Executor.StepDelay < 0 {
		return errors.New("executor.step_delay must be >= 0")
	}

	if c.Executor.PreviewTTL <= 0 {
		return errors.New("executor.preview_ttl must be > 0")
	}

	if c.Executor.PreviewPortMin <= 0 || c.Executor.PreviewPortMax <= 0 {
		return errors.New("executor preview ports must be > 0")
	}

	if c.Executor.PreviewPortMin > c.Executor.PreviewPortMax {
		return fmt.Errorf("executor.preview_port_min %d exceeds preview_port_max %d",
			c.Executor.PreviewPortMin, c.Executor.PreviewPortMax)
	}

	if strings.TrimSpace(c.GitHub.BaseBranch) == "" {
		return errors.New("github.base_branch must be set")
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}

	return nil
}
