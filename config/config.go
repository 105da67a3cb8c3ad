// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.parlo.dev/parlo/agent"
	"go.parlo.dev/parlo/internal/types"
)

const (
	appName        = "parlo"
	configFileName = "config.json"
)

// Config represents the application configuration.
type Config struct {
	APIKey   string         `json:"api_key,omitempty"`
	AgentURL string         `json:"agent_url,omitempty"`
	Model    string         `json:"model,omitempty"`
	Voice    string         `json:"voice,omitempty"`
	Mode     types.Mode     `json:"mode,omitempty"`
	Scenario types.Scenario `json:"scenario,omitempty"`

	// GraderKey authorizes the post-session report. Falls back to APIKey
	// when empty.
	GraderKey string `json:"grader_key,omitempty"`
}

// Load loads configuration from the config file.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save persists the configuration to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return fmt.Errorf("get config path: %w", err)
	}
	return c.SaveTo(path)
}

// SaveTo persists the configuration to an explicit path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.AgentURL == "" {
		c.AgentURL = agent.DefaultURL
	}
	if c.Voice == "" {
		c.Voice = types.DefaultVoice
	}
	if c.Mode == "" {
		c.Mode = types.ModeFreeTalk
	}
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}
