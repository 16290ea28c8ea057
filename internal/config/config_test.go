package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, ":8100", cfg.Server.Addr)
	require.Equal(t, "https://node.lighthouse.storage/api/v0/add", cfg.Lighthouse.UploadURL)
	require.Equal(t, 90*time.Second, cfg.Deploy.Timeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().Server, cfg.Server)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dehost.yml")
	body := `
server:
  addr: ":9000"
lighthouse:
  timeout: 5s
deploy:
  timeout: 10s
  history_size: 5
llm:
  system_prompt: "Only answer in haiku."
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	t.Setenv("DEHOST_LIGHTHOUSE__API_KEY", "key-from-env")
	t.Setenv("DEHOST_DATABASE__PATH", filepath.Join(dir, "x.db"))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Server.Addr)
	require.Equal(t, 5*time.Second, cfg.Lighthouse.Timeout)
	require.Equal(t, 10*time.Second, cfg.Deploy.Timeout)
	require.Equal(t, 5, cfg.Deploy.HistorySize)
	require.Equal(t, "Only answer in haiku.", cfg.LLM.SystemPrompt)
	require.Equal(t, "key-from-env", cfg.Lighthouse.APIKey)
	require.Equal(t, filepath.Join(dir, "x.db"), cfg.Database.Path)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "web", cfg.Server.WebDir, "unset keys keep their defaults")
}

func TestLoadConventionalKey(t *testing.T) {
	t.Setenv("LIGHTHOUSE_API_KEY", "conventional")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "conventional", cfg.Lighthouse.APIKey)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"empty db", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"zero deploy timeout", func(c *Config) { c.Deploy.Timeout = 0 }, "deploy.timeout"},
		{"zero history", func(c *Config) { c.Deploy.HistorySize = 0 }, "deploy.history_size"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.errMsg)
		})
	}
}
