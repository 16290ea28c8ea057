package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level dehost configuration, corresponding to dehost.yml.
type Config struct {
	Server     ServerConfig     `yaml:"server" koanf:"server"`
	Database   DatabaseConfig   `yaml:"database" koanf:"database"`
	LLM        LLMConfig        `yaml:"llm" koanf:"llm"`
	Lighthouse LighthouseConfig `yaml:"lighthouse" koanf:"lighthouse"`
	Deploy     DeployConfig     `yaml:"deploy" koanf:"deploy"`
	Log        LogConfig        `yaml:"log" koanf:"log"`
}

type ServerConfig struct {
	Addr     string `yaml:"addr" koanf:"addr"`
	WebDir   string `yaml:"web_dir" koanf:"web_dir"`
	AllowAll bool   `yaml:"allow_all" koanf:"allow_all"` // allow all CORS origins (dev mode)
}

type DatabaseConfig struct {
	Path string `yaml:"path" koanf:"path"`
}

type LLMConfig struct {
	BaseURL      string        `yaml:"base_url" koanf:"base_url"`
	APIKey       string        `yaml:"api_key" koanf:"api_key"`
	Model        string        `yaml:"model" koanf:"model"`
	Timeout      time.Duration `yaml:"timeout" koanf:"timeout"`
	HistoryLimit int           `yaml:"history_limit" koanf:"history_limit"`
	// SystemPrompt replaces the built-in prompt when set.
	SystemPrompt string `yaml:"system_prompt" koanf:"system_prompt"`
}

// LighthouseConfig configures the pinning service. When APIKey is empty and
// APIKeyParam is set, the key is read from AWS SSM Parameter Store.
type LighthouseConfig struct {
	APIKey      string        `yaml:"api_key" koanf:"api_key"`
	APIKeyParam string        `yaml:"api_key_param" koanf:"api_key_param"`
	UploadURL   string        `yaml:"upload_url" koanf:"upload_url"`
	Timeout     time.Duration `yaml:"timeout" koanf:"timeout"`
}

type DeployConfig struct {
	Timeout     time.Duration `yaml:"timeout" koanf:"timeout"`
	HistorySize int           `yaml:"history_size" koanf:"history_size"`
}

type LogConfig struct {
	Level       string `yaml:"level" koanf:"level"`
	Development bool   `yaml:"development" koanf:"development"`
}

// DefaultConfig returns the configuration used when no file or env override is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:   ":8100",
			WebDir: "web",
		},
		Database: DatabaseConfig{Path: "dehost.db"},
		LLM: LLMConfig{
			BaseURL:      "http://localhost:11434/v1/",
			Model:        "llama3.1:8b",
			Timeout:      2 * time.Minute,
			HistoryLimit: 20,
		},
		Lighthouse: LighthouseConfig{
			UploadURL: "https://node.lighthouse.storage/api/v0/add",
			Timeout:   60 * time.Second,
		},
		Deploy: DeployConfig{
			Timeout:     90 * time.Second,
			HistorySize: 50,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (DEHOST_*). Nested keys use a double
// underscore: DEHOST_LIGHTHOUSE__API_KEY -> lighthouse.api_key.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("DEHOST_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "DEHOST_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Conventional variables, honoured when nothing more specific is set.
	if cfg.Lighthouse.APIKey == "" {
		cfg.Lighthouse.APIKey = os.Getenv("LIGHTHOUSE_API_KEY")
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg, nil
}

var validLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the configuration contains usable values. A missing
// Lighthouse key is not an error here: deploys report it to the user instead.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.Lighthouse.UploadURL == "" {
		return fmt.Errorf("lighthouse.upload_url is required")
	}
	if c.Lighthouse.Timeout <= 0 {
		return fmt.Errorf("lighthouse.timeout must be positive")
	}
	if c.Deploy.Timeout <= 0 {
		return fmt.Errorf("deploy.timeout must be positive")
	}
	if c.Deploy.HistorySize <= 0 {
		return fmt.Errorf("deploy.history_size must be positive")
	}
	if c.LLM.HistoryLimit < 0 {
		return fmt.Errorf("llm.history_limit must be non-negative")
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
