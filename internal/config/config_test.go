package config

import "testing"

func TestDefaultPassesValidateWithDatabaseURL(t *testing.T) {
	cfg := Default()
	cfg.Database.URL = "postgres://localhost/ragqa"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateRejectsUnknownPIIStrategy(t *testing.T) {
	cfg := Default()
	cfg.Database.URL = "postgres://localhost/ragqa"
	cfg.PII.DefaultStrategy = "delete"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown pii strategy")
	}
}

func TestEnvOverlayOverridesServerPort(t *testing.T) {
	t.Setenv("RAGQA_SERVER_PORT", "9999")
	cfg := Default()
	applyEnvOverlay(cfg)
	if cfg.Server.Port != 9999 {
		t.Fatalf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
}
