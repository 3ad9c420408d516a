package pocketbase_test

import (
	"log/slog"
	"os"
	"testing"

	pocketbase "github.com/chimerakang/pocketbase-go"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("POCKETBASE_URL", "http://127.0.0.1:8090/")
	t.Setenv("POCKETBASE_LOG_LEVEL", "debug")
	t.Setenv("POCKETBASE_AUDIT_BUFFER", "64")

	cfg, err := pocketbase.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.BaseURL != "http://127.0.0.1:8090/" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.AuditBufferSize != 64 {
		t.Errorf("AuditBufferSize = %d, want 64", cfg.AuditBufferSize)
	}
	if cfg.MetricsEnabled || cfg.AuditEnabled {
		t.Error("metrics and audit should default to disabled")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("POCKETBASE_URL", "http://localhost:8090")
	t.Setenv("POCKETBASE_AUDIT_BUFFER", "")
	_ = os.Unsetenv("POCKETBASE_AUDIT_BUFFER")

	cfg, err := pocketbase.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.AuditBufferSize != 1000 {
		t.Errorf("AuditBufferSize = %d, want 1000", cfg.AuditBufferSize)
	}
}

func TestLoadConfig_MissingURL(t *testing.T) {
	t.Setenv("POCKETBASE_URL", "")
	_ = os.Unsetenv("POCKETBASE_URL")

	if _, err := pocketbase.LoadConfig(); err == nil {
		t.Fatal("LoadConfig() expected error without POCKETBASE_URL")
	}
}

func TestNewFromConfig(t *testing.T) {
	c, err := pocketbase.NewFromConfig[pocketbase.DefaultAuthRecord](pocketbase.Config{
		BaseURL:  "http://127.0.0.1:8090/",
		LogLevel: "warn",
	}, pocketbase.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("NewFromConfig() error: %v", err)
	}
	if c.BaseURL() != "http://127.0.0.1:8090" {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}
}

func TestNewFromConfig_Invalid(t *testing.T) {
	tests := []pocketbase.Config{
		{BaseURL: "not a url"},
		{BaseURL: "http://127.0.0.1:8090", LogLevel: "loud"},
	}
	for _, cfg := range tests {
		if _, err := pocketbase.NewFromConfig[pocketbase.DefaultAuthRecord](cfg); err == nil {
			t.Errorf("NewFromConfig(%+v) expected error", cfg)
		}
	}
}
