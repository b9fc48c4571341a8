package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// resolveEnvRef
// ---------------------------------------------------------------------------

func TestResolveEnvRef_NoDollarPrefix(t *testing.T) {
	got := resolveEnvRef("plaintext", "testField")
	if got != "plaintext" {
		t.Errorf("resolveEnvRef(%q) = %q, want %q", "plaintext", got, "plaintext")
	}
}

func TestResolveEnvRef_WithSetEnvVar(t *testing.T) {
	t.Setenv("TICKETBOT_TEST_SECRET", "mysecret")

	got := resolveEnvRef("$TICKETBOT_TEST_SECRET", "testField")
	if got != "mysecret" {
		t.Errorf("resolveEnvRef(%q) = %q, want %q", "$TICKETBOT_TEST_SECRET", got, "mysecret")
	}
}

func TestResolveEnvRef_WithUnsetEnvVar(t *testing.T) {
	got := resolveEnvRef("$TICKETBOT_UNSET_VAR_12345", "testField")
	if got != "" {
		t.Errorf("resolveEnvRef(%q) = %q, want %q", "$TICKETBOT_UNSET_VAR_12345", got, "")
	}
}

func TestResolveEnvRef_DollarOnly(t *testing.T) {
	got := resolveEnvRef("$", "testField")
	if got != "$" {
		t.Errorf("resolveEnvRef(%q) = %q, want %q", "$", got, "$")
	}
}

// ---------------------------------------------------------------------------
// tryLoadConfig
// ---------------------------------------------------------------------------

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validConfigJSON = `{
	"botToken": "token-123",
	"appID": "app-1",
	"guildID": "guild-1",
	"ticketChannelID": "chan-1",
	"ticketCategoryID": "cat-1",
	"supportRoleID": "role-1",
	"closeDelay": "10s",
	"listenAddr": "127.0.0.1:7777"
}`

func TestTryLoadConfig_Valid(t *testing.T) {
	path := writeConfigFile(t, validConfigJSON)

	cfg, err := tryLoadConfig(path)
	if err != nil {
		t.Fatalf("tryLoadConfig: %v", err)
	}
	if cfg.BotToken != "token-123" {
		t.Errorf("BotToken = %q", cfg.BotToken)
	}
	if cfg.GuildID != "guild-1" || cfg.SupportRoleID != "role-1" {
		t.Errorf("identifiers not loaded: %+v", cfg)
	}
	if cfg.baseDir != filepath.Dir(path) {
		t.Errorf("baseDir = %q, want %q", cfg.baseDir, filepath.Dir(path))
	}
	if got := cfg.closeDelayOrDefault(); got != 10*time.Second {
		t.Errorf("closeDelayOrDefault = %v, want 10s", got)
	}
}

func TestTryLoadConfig_MissingFile(t *testing.T) {
	_, err := tryLoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestTryLoadConfig_BadJSON(t *testing.T) {
	path := writeConfigFile(t, "{not json")
	if _, err := tryLoadConfig(path); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestTryLoadConfig_MissingRequiredFields(t *testing.T) {
	path := writeConfigFile(t, `{"botToken": "t", "guildID": "g"}`)
	_, err := tryLoadConfig(path)
	if err == nil {
		t.Fatal("expected error for missing required fields")
	}
	for _, field := range []string{"appID", "ticketChannelID", "supportRoleID"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error should name missing field %q: %v", field, err)
		}
	}
}

func TestTryLoadConfig_TokenEnvRef(t *testing.T) {
	t.Setenv("TICKETBOT_TOKEN", "from-env")
	path := writeConfigFile(t, `{
		"botToken": "$TICKETBOT_TOKEN",
		"appID": "app-1",
		"guildID": "guild-1",
		"ticketChannelID": "chan-1",
		"supportRoleID": "role-1"
	}`)

	cfg, err := tryLoadConfig(path)
	if err != nil {
		t.Fatalf("tryLoadConfig: %v", err)
	}
	if cfg.BotToken != "from-env" {
		t.Errorf("BotToken = %q, want from-env", cfg.BotToken)
	}
}

// ---------------------------------------------------------------------------
// closeDelayOrDefault
// ---------------------------------------------------------------------------

func TestCloseDelayOrDefault(t *testing.T) {
	tests := []struct {
		closeDelay string
		want       time.Duration
	}{
		{"", 5 * time.Second},
		{"5s", 5 * time.Second},
		{"30s", 30 * time.Second},
		{"2m", 2 * time.Minute},
		{"bogus", 5 * time.Second},
		{"-10s", 5 * time.Second},
		{"0s", 5 * time.Second},
	}
	for _, tt := range tests {
		cfg := &Config{CloseDelay: tt.closeDelay}
		if got := cfg.closeDelayOrDefault(); got != tt.want {
			t.Errorf("closeDelayOrDefault(%q) = %v, want %v", tt.closeDelay, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// LoggingConfig defaults
// ---------------------------------------------------------------------------

func TestLoggingConfigDefaults(t *testing.T) {
	var c LoggingConfig
	if c.levelOrDefault() != "info" {
		t.Errorf("levelOrDefault = %q, want info", c.levelOrDefault())
	}
	if c.formatOrDefault() != "text" {
		t.Errorf("formatOrDefault = %q, want text", c.formatOrDefault())
	}
	if c.maxSizeMBOrDefault() != 50 {
		t.Errorf("maxSizeMBOrDefault = %d, want 50", c.maxSizeMBOrDefault())
	}
	if c.maxFilesOrDefault() != 5 {
		t.Errorf("maxFilesOrDefault = %d, want 5", c.maxFilesOrDefault())
	}

	c = LoggingConfig{Level: "debug", Format: "json", MaxSizeMB: 10, MaxFiles: 2}
	if c.levelOrDefault() != "debug" || c.formatOrDefault() != "json" {
		t.Error("explicit logging config should win over defaults")
	}
}
