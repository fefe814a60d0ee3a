// Package config loads the agent's YAML configuration and applies environment
// overrides. A missing file means defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Provider      string `yaml:"provider"` // openai, anthropic
	Model         string `yaml:"model"`
	BaseURL       string `yaml:"base_url"`
	APIKey        string `yaml:"api_key"`
	SystemPrompt  string `yaml:"system_prompt"`
	Stream        bool   `yaml:"stream"`
	MaxIterations int    `yaml:"max_iterations"`
	// TokenBudget > 0 windows the transcript before each request.
	TokenBudget int `yaml:"token_budget"`

	Store      string `yaml:"store"` // file, sqlite
	SessionDir string `yaml:"session_dir"`

	Log   LogConfig   `yaml:"log"`
	Tools ToolsConfig `yaml:"tools"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`
}

type ToolsConfig struct {
	ReadRoot       string `yaml:"read_root"`
	WriteRoot      string `yaml:"write_root"`
	CommandTimeout string `yaml:"command_timeout"`
}

var (
	ValidProviders = []string{"openai", "anthropic"}
	ValidStores    = []string{"file", "sqlite"}
)

// Dir is the per-user config and data directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".go-agent"
	}
	return filepath.Join(home, ".go-agent")
}

func DefaultPath() string { return filepath.Join(Dir(), "config.yaml") }

func DefaultConfig() *Config {
	return &Config{
		Provider:      "openai",
		MaxIterations: 16,
		Store:         "file",
		SessionDir:    filepath.Join(Dir(), "sessions"),
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Tools: ToolsConfig{
			CommandTimeout: "10s",
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("AGT_PROVIDER"); v != "" {
		c.Provider = v
	}
	// the key matching the active provider wins
	switch c.Provider {
	case "anthropic":
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			c.APIKey = key
		}
	default:
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			c.APIKey = key
		}
		if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
			c.BaseURL = url
		}
	}
	if v := os.Getenv("AGT_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("AGT_TOKEN_BUDGET"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid AGT_TOKEN_BUDGET %q: %w", v, err)
		}
		c.TokenBudget = n
	}
	if v := os.Getenv("AGT_SESSION_DIR"); v != "" {
		c.SessionDir = v
	}
	if v := os.Getenv("AGT_STORE"); v != "" {
		c.Store = v
	}
	if v := os.Getenv("AGT_READ_ROOT"); v != "" {
		c.Tools.ReadRoot = v
	}
	if v := os.Getenv("AGT_WRITE_ROOT"); v != "" {
		c.Tools.WriteRoot = v
	}
	return nil
}

// CommandTimeout falls back to 10s when unset or unparsable.
func (c *Config) CommandTimeout() time.Duration {
	d, err := time.ParseDuration(c.Tools.CommandTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// SQLitePath is the database file used when Store is "sqlite".
func (c *Config) SQLitePath() string {
	return filepath.Join(c.SessionDir, "sessions.db")
}

func (c *Config) Validate() error {
	if !contains(ValidProviders, c.Provider) {
		return fmt.Errorf("invalid provider: %s (valid: %v)", c.Provider, ValidProviders)
	}
	if !contains(ValidStores, c.Store) {
		return fmt.Errorf("invalid store: %s (valid: %v)", c.Store, ValidStores)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", c.MaxIterations)
	}
	if c.TokenBudget < 0 {
		return fmt.Errorf("token_budget must not be negative, got %d", c.TokenBudget)
	}
	if c.SessionDir == "" {
		return fmt.Errorf("session_dir must be set")
	}
	if c.Tools.CommandTimeout != "" {
		if _, err := time.ParseDuration(c.Tools.CommandTimeout); err != nil {
			return fmt.Errorf("invalid tools.command_timeout %q: %w", c.Tools.CommandTimeout, err)
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
