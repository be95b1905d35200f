package config

import (
	"testing"
	"time"
)

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("KATANA_PORT", "9001")
	t.Setenv("KATANA_WORKERS", "4")
	t.Setenv("KATANA_REUSEPORT", "false")
	t.Setenv("KATANA_SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KATANA_ENV", "production")

	cfg := &Config{Port: 8080, ReusePort: true, ShutdownTimeout: 5 * time.Second, Env: "development"}
	cfg.ApplyEnv()

	if cfg.Port != 9001 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.Workers != 4 {
		t.Errorf("workers = %d", cfg.Workers)
	}
	if cfg.ReusePort {
		t.Error("reuseport not overridden")
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("shutdown timeout = %v", cfg.ShutdownTimeout)
	}
	if cfg.Env != "production" {
		t.Errorf("env = %q", cfg.Env)
	}
}

func TestApplyEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("KATANA_PORT", "not-a-number")
	t.Setenv("KATANA_SHUTDOWN_TIMEOUT", "soon")

	cfg := &Config{Port: 8080, ShutdownTimeout: 5 * time.Second}
	cfg.ApplyEnv()

	if cfg.Port != 8080 {
		t.Errorf("port changed to %d on bad input", cfg.Port)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("timeout changed to %v on bad input", cfg.ShutdownTimeout)
	}
}
