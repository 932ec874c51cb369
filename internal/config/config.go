package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when neither -config nor CONFIG_PATH is given.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Robinhood struct {
		Username       string `yaml:"username"`
		Password       string `yaml:"password"`
		BaseURL        string `yaml:"base_url"`
		CryptoURL      string `yaml:"crypto_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		Proxy          string `yaml:"proxy"`
	} `yaml:"robinhood"`
	Session struct {
		CachePath     string `yaml:"cache_path"`
		AllowMFA      bool   `yaml:"allow_mfa"`
		EagerLogin    bool   `yaml:"eager_login"`
		KeepaliveCron string `yaml:"keepalive_cron"`
	} `yaml:"session"`
	Server struct {
		Transport          string `yaml:"transport"`
		Addr               string `yaml:"addr"`
		CallTimeoutSeconds int    `yaml:"call_timeout_seconds"`
	} `yaml:"server"`
	Database struct {
		Driver         string `yaml:"driver"`
		SQLitePath     string `yaml:"sqlite_path"`
		PostgresDSN    string `yaml:"postgres_dsn"`
		PostgresSchema string `yaml:"postgres_schema"`
		RetentionDays  int    `yaml:"retention_days"`
		PruneCron      string `yaml:"prune_cron"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		Polling  bool   `yaml:"polling"`
	} `yaml:"telegram"`
	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
}

// FromArgs resolves the config file from -config or CONFIG_PATH, loads it and
// applies the command-line flags on top. Flags beat environment variables,
// which beat the file.
func FromArgs(name string, args []string) (*Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var (
		path        = fs.String("config", "", "path to YAML config (default $CONFIG_PATH or "+DefaultPath+")")
		username    = fs.String("username", "", "Robinhood username (overrides RH_USERNAME)")
		password    = fs.String("password", "", "Robinhood password (overrides RH_PASSWORD)")
		sessionPath = fs.String("session-path", "", "session cache file (overrides RH_SESSION_PATH)")
		allowMFA    = fs.Bool("allow-mfa", false, "enable MFA fallback (overrides RH_ALLOW_MFA)")
		eagerLogin  = fs.Bool("eager-login", false, "log in at startup instead of on first use")
		transport   = fs.String("transport", "", "stdio or http")
		addr        = fs.String("addr", "", "listen address for the http transport")
		logLevel    = fs.String("log-level", "", "debug, info, warn or error")
	)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *path == "" {
		*path = os.Getenv("CONFIG_PATH")
	}
	if *path == "" {
		*path = DefaultPath
	}
	cfg, err := Load(*path)
	if err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "username":
			cfg.Robinhood.Username = *username
		case "password":
			cfg.Robinhood.Password = *password
		case "session-path":
			cfg.Session.CachePath = *sessionPath
		case "allow-mfa":
			cfg.Session.AllowMFA = *allowMFA
		case "eager-login":
			cfg.Session.EagerLogin = *eagerLogin
		case "transport":
			cfg.Server.Transport = strings.ToLower(*transport)
		case "addr":
			cfg.Server.Addr = *addr
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})
	return cfg, nil
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	setString(&cfg.Robinhood.Username, "RH_USERNAME")
	setString(&cfg.Robinhood.Password, "RH_PASSWORD")
	setString(&cfg.Robinhood.BaseURL, "RH_BASE_URL")
	setString(&cfg.Robinhood.Proxy, "HTTPS_PROXY")
	setString(&cfg.Session.CachePath, "RH_SESSION_PATH")
	setBool(&cfg.Session.AllowMFA, "RH_ALLOW_MFA")
	setBool(&cfg.Session.EagerLogin, "RH_EAGER_LOGIN")
	setString(&cfg.Server.Transport, "MCP_TRANSPORT")
	setString(&cfg.Server.Addr, "MCP_ADDR")
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.SQLitePath, "SQLITE_PATH")
	setString(&cfg.Database.PostgresDSN, "POSTGRES_DSN")
	setString(&cfg.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.File, "LOG_FILE")

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Robinhood.BaseURL == "" {
		c.Robinhood.BaseURL = "https://api.robinhood.com"
	}
	if c.Robinhood.CryptoURL == "" {
		c.Robinhood.CryptoURL = "https://nummus.robinhood.com"
	}
	if c.Robinhood.TimeoutSeconds == 0 {
		c.Robinhood.TimeoutSeconds = 30
	}
	if c.Session.KeepaliveCron == "" {
		c.Session.KeepaliveCron = "0 */15 * * * *"
	}
	c.Server.Transport = strings.ToLower(c.Server.Transport)
	if c.Server.Transport == "" {
		c.Server.Transport = "stdio"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8765"
	}
	if c.Server.CallTimeoutSeconds == 0 {
		c.Server.CallTimeoutSeconds = 60
	}
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/robinhood_mcp.db"
	}
	if c.Database.PostgresSchema == "" {
		c.Database.PostgresSchema = "robinhood_mcp"
	}
	if c.Database.RetentionDays == 0 {
		c.Database.RetentionDays = 30
	}
	if c.Database.PruneCron == "" {
		c.Database.PruneCron = "0 0 3 * * *"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks the settings that would otherwise fail late. Missing
// credentials are allowed: tools report AUTH_REQUIRED instead.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("server.transport must be stdio or http, got %q", c.Server.Transport)
	}
	switch c.Database.Driver {
	case "sqlite", "none":
	case "postgres":
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("database.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite, postgres or none, got %q", c.Database.Driver)
	}
	if c.Robinhood.TimeoutSeconds < 0 || c.Server.CallTimeoutSeconds < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.Database.RetentionDays < 0 {
		return fmt.Errorf("database.retention_days must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// HTTPTimeout is the upstream client timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Robinhood.TimeoutSeconds) * time.Second
}

// CallTimeout bounds one tool call.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Server.CallTimeoutSeconds) * time.Second
}

// LogValue renders the config without secrets.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("credentials", c.Robinhood.Username != "" && c.Robinhood.Password != ""),
		slog.String("base_url", c.Robinhood.BaseURL),
		slog.Bool("proxy", c.Robinhood.Proxy != ""),
		slog.Bool("session_cache", c.Session.CachePath != ""),
		slog.Bool("allow_mfa", c.Session.AllowMFA),
		slog.Bool("eager_login", c.Session.EagerLogin),
		slog.String("transport", c.Server.Transport),
		slog.String("database", c.Database.Driver),
		slog.Bool("telegram", c.Telegram.BotToken != ""),
	)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setBool accepts 1/0 as well as the strconv spellings.
func setBool(dst *bool, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}
