package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BitratePreference != 160 {
		t.Errorf("BitratePreference = %d, want 160", cfg.BitratePreference)
	}
	if cfg.Assetstore.Backend != "local" {
		t.Errorf("Assetstore.Backend = %q, want local", cfg.Assetstore.Backend)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q, want localhost:6379", cfg.Redis.Addr)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BRIDGE_BITRATE_PREFERENCE", "320")
	t.Setenv("BRIDGE_HTTP_PORT", "9090")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BitratePreference != 320 {
		t.Errorf("BitratePreference = %d, want 320", cfg.BitratePreference)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("HTTP.Port = %d, want 9090", cfg.HTTP.Port)
	}
}

func TestLoadExplicitMissingConfigFileFails(t *testing.T) {
	if _, err := os.Stat("/nonexistent-bridge-config.yaml"); err == nil {
		t.Skip("unexpected file exists")
	}
	if _, err := Load("/nonexistent-bridge-config.yaml"); err == nil {
		t.Fatalf("expected error for explicit missing config file path")
	}
}
