package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "https://api.robinhood.com", cfg.Robinhood.BaseURL)
	assert.Equal(t, 30, cfg.Robinhood.TimeoutSeconds)
	assert.Equal(t, "0 */15 * * * *", cfg.Session.KeepaliveCron)
	assert.NoError(t, cfg.Validate(), "missing credentials are not a config error")
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
robinhood:
  username: file-user
  password: file-pass
session:
  cache_path: /tmp/rh.json
  allow_mfa: false
server:
  transport: HTTP
database:
  driver: none
`)
	t.Setenv("RH_USERNAME", "env-user")
	t.Setenv("RH_ALLOW_MFA", "1")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-user", cfg.Robinhood.Username)
	assert.Equal(t, "file-pass", cfg.Robinhood.Password)
	assert.True(t, cfg.Session.AllowMFA)
	assert.Equal(t, "/tmp/rh.json", cfg.Session.CachePath)
	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, "none", cfg.Database.Driver)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "robinhood: [unclosed"))
	assert.Error(t, err)
}

func TestFromArgs_FlagsWin(t *testing.T) {
	path := writeConfig(t, "session:\n  allow_mfa: true\n")
	t.Setenv("RH_USERNAME", "env-user")
	t.Setenv("RH_PASSWORD", "env-pass")

	cfg, err := FromArgs("test", []string{
		"-config", path,
		"-username", "flag-user",
		"-allow-mfa=false",
		"-session-path", "/tmp/flag.json",
		"-transport", "HTTP",
	})
	require.NoError(t, err)
	assert.Equal(t, "flag-user", cfg.Robinhood.Username)
	assert.Equal(t, "env-pass", cfg.Robinhood.Password)
	assert.False(t, cfg.Session.AllowMFA)
	assert.Equal(t, "/tmp/flag.json", cfg.Session.CachePath)
	assert.Equal(t, "http", cfg.Server.Transport)
}

func TestFromArgs_ConfigPathEnv(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: 0.0.0.0:9000\n")
	t.Setenv("CONFIG_PATH", path)

	cfg, err := FromArgs("test", nil)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"transport":       func(c *Config) { c.Server.Transport = "grpc" },
		"driver":          func(c *Config) { c.Database.Driver = "mysql" },
		"postgres no dsn": func(c *Config) { c.Database.Driver = "postgres" },
		"half telegram":   func(c *Config) { c.Telegram.BotToken = "t" },
		"retention":       func(c *Config) { c.Database.RetentionDays = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := &Config{}
			cfg.applyDefaults()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLogValueHidesSecrets(t *testing.T) {
	cfg := &Config{}
	cfg.Robinhood.Username = "trader"
	cfg.Robinhood.Password = "hunter2"
	cfg.Telegram.BotToken = "123:abc"
	cfg.applyDefaults()

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("config", "config", cfg)
	assert.NotContains(t, buf.String(), "hunter2")
	assert.NotContains(t, buf.String(), "123:abc")
	assert.Contains(t, buf.String(), "credentials=true")
}
