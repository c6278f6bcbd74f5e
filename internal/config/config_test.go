package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"assistant-inbox/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	tmpFile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if _, err := tmpFile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	_ = tmpFile.Close()

	return tmpFile.Name()
}

func TestLoad(t *testing.T) {
	yamlContent := `source: imap
refreshTime: 30s
email:
  imap: "imap.test.com:993"
  login: "test@example.com"
  password: "testpass"
  mailbox: "Archive"
search:
  days: 7
  limit: 25
  unreadOnly: true
  from: "linkedin"
normalizer:
  recipientFallback: "Unknown Recipient"
log:
  level: debug
  format: text
`

	cfg, err := Load(writeConfig(t, yamlContent))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Source != models.SourceIMAP {
		t.Errorf("Expected source 'imap', got '%s'", cfg.Source)
	}

	if cfg.Email.Imap != "imap.test.com:993" {
		t.Errorf("Expected imap 'imap.test.com:993', got '%s'", cfg.Email.Imap)
	}

	if cfg.Email.MailBox != "Archive" {
		t.Errorf("Expected mailbox 'Archive', got '%s'", cfg.Email.MailBox)
	}

	if cfg.RefreshTime != 30*time.Second {
		t.Errorf("Expected refreshTime 30s, got %v", cfg.RefreshTime)
	}

	if cfg.Search.Days != 7 || cfg.Search.Limit != 25 {
		t.Errorf("Expected days 7 and limit 25, got %d and %d", cfg.Search.Days, cfg.Search.Limit)
	}

	if cfg.Search.Sort != DefaultSort {
		t.Errorf("Expected default sort %q, got %q", DefaultSort, cfg.Search.Sort)
	}

	if !cfg.Search.UnreadOnly {
		t.Error("Expected unreadOnly to be true")
	}

	if cfg.Normalizer.RecipientFallback != "Unknown Recipient" {
		t.Errorf("Expected recipientFallback 'Unknown Recipient', got '%s'", cfg.Normalizer.RecipientFallback)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "log:\n  level: info\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Source != models.SourceBackend {
		t.Errorf("Expected default source 'backend', got '%s'", cfg.Source)
	}
	if cfg.Backend.BaseURL != DefaultBackendURL {
		t.Errorf("Expected default baseURL %q, got %q", DefaultBackendURL, cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != DefaultTimeout {
		t.Errorf("Expected default timeout %v, got %v", DefaultTimeout, cfg.Backend.Timeout)
	}
	if cfg.Search.Days != DefaultDays {
		t.Errorf("Expected default days %d, got %d", DefaultDays, cfg.Search.Days)
	}
	if cfg.Search.Limit != DefaultLimit {
		t.Errorf("Expected default limit %d, got %d", DefaultLimit, cfg.Search.Limit)
	}
	if cfg.RefreshTime != DefaultRefreshTime {
		t.Errorf("Expected default refreshTime %v, got %v", DefaultRefreshTime, cfg.RefreshTime)
	}
}

func TestLoadAllTimeWindow(t *testing.T) {
	cfg, err := Load(writeConfig(t, "search:\n  days: 0\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Search.Days != 0 {
		t.Errorf("Expected days 0 to be kept as all time, got %d", cfg.Search.Days)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(envBackendURL, "http://backend.internal:8000/")
	t.Setenv(envIMAPPassword, "from-env")

	cfg, err := Load(writeConfig(t, "backend:\n  baseURL: http://localhost:1234\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Backend.BaseURL != "http://backend.internal:8000" {
		t.Errorf("Expected baseURL from env without trailing slash, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Email.Password != "from-env" {
		t.Errorf("Expected password from env, got %q", cfg.Email.Password)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "Unknown source", content: "source: pop3\n"},
		{name: "IMAP without server", content: "source: imap\nemail:\n  login: me@example.com\n"},
		{name: "IMAP without login", content: "source: imap\nemail:\n  imap: imap.example.com:993\n"},
		{name: "Invalid YAML", content: "search: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Errorf("Load() expected error for %s", tt.name)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}
