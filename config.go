package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// --- Config Types ---

type Config struct {
	BotToken         string        `json:"botToken"` // $ENV_VAR supported
	AppID            string        `json:"appID"`
	GuildID          string        `json:"guildID"`
	TicketChannelID  string        `json:"ticketChannelID"`            // channel where /ticket is allowed
	TicketCategoryID string        `json:"ticketCategoryID,omitempty"` // category to nest ticket channels under; created if missing
	SupportRoleID    string        `json:"supportRoleID"`
	CloseDelay       string        `json:"closeDelay,omitempty"` // delay before a closed ticket's channels are deleted, default "5s"
	ListenAddr       string        `json:"listenAddr,omitempty"` // ops HTTP server (healthz/metrics), disabled if empty
	Logging          LoggingConfig `json:"logging,omitempty"`

	// Resolved at runtime (not serialized).
	baseDir string
}

type LoggingConfig struct {
	Level     string `json:"level,omitempty"`  // debug, info, warn, error
	Format    string `json:"format,omitempty"` // text, json
	File      string `json:"file,omitempty"`   // log file path, stderr-only if empty
	MaxSizeMB int    `json:"maxSizeMB,omitempty"`
	MaxFiles  int    `json:"maxFiles,omitempty"`
}

func (c LoggingConfig) levelOrDefault() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

func (c LoggingConfig) formatOrDefault() string {
	if c.Format == "" {
		return "text"
	}
	return c.Format
}

func (c LoggingConfig) maxSizeMBOrDefault() int {
	if c.MaxSizeMB <= 0 {
		return 50
	}
	return c.MaxSizeMB
}

func (c LoggingConfig) maxFilesOrDefault() int {
	if c.MaxFiles <= 0 {
		return 5
	}
	return c.MaxFiles
}

// closeDelayOrDefault parses the configured close delay, falling back to the
// 5-second default on empty or unparseable values.
func (cfg *Config) closeDelayOrDefault() time.Duration {
	if cfg.CloseDelay == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(cfg.CloseDelay)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// --- Loading ---

func loadConfig(path string) *Config {
	cfg, err := tryLoadConfig(path)
	if err != nil {
		logError("config load failed", "error", err)
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// tryLoadConfig loads and validates the config file, returning an error
// instead of calling os.Exit.
func tryLoadConfig(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.baseDir = filepath.Dir(path)

	cfg.resolveSecrets()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate errors on missing identifiers the bot cannot run without and warns
// on soft issues.
func (cfg *Config) validate() error {
	var missing []string
	for _, f := range []struct{ name, val string }{
		{"botToken", cfg.BotToken},
		{"appID", cfg.AppID},
		{"guildID", cfg.GuildID},
		{"ticketChannelID", cfg.TicketChannelID},
		{"supportRoleID", cfg.SupportRoleID},
	} {
		if f.val == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("config missing required fields: %s", strings.Join(missing, ", "))
	}

	if cfg.TicketCategoryID == "" {
		logWarn("ticketCategoryID is empty, a Tickets category will be created on first use")
	}

	// Validate listen address format.
	if cfg.ListenAddr != "" {
		parts := strings.SplitN(cfg.ListenAddr, ":", 2)
		if len(parts) != 2 {
			logWarn("listenAddr should be host:port", "listenAddr", cfg.ListenAddr, "example", "127.0.0.1:7777")
		} else if _, err := strconv.Atoi(parts[1]); err != nil {
			logWarn("listenAddr port is not a valid number", "port", parts[1])
		}
	}

	// Validate close delay is parseable.
	if cfg.CloseDelay != "" {
		if _, err := time.ParseDuration(cfg.CloseDelay); err != nil {
			logWarn("closeDelay is not a valid duration, using 5s", "closeDelay", cfg.CloseDelay, "example", "5s, 30s")
		}
	}

	return nil
}

// resolveEnvRef resolves a value starting with $ to the environment variable.
// Returns the original value if it doesn't start with $, or the env var value.
// Logs a warning if the env var is not set.
func resolveEnvRef(value, fieldName string) string {
	if !strings.HasPrefix(value, "$") {
		return value
	}
	envKey := value[1:]
	if envKey == "" {
		return value
	}
	envVal := os.Getenv(envKey)
	if envVal == "" {
		logWarn("env var reference not set", "field", fieldName, "envVar", envKey)
		return ""
	}
	return envVal
}

// resolveSecrets resolves $ENV_VAR references in secret config fields.
func (cfg *Config) resolveSecrets() {
	cfg.BotToken = resolveEnvRef(cfg.BotToken, "botToken")
}
