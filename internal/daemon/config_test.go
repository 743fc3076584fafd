package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8090 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8090)
	}
	if cfg.Economy.SignupBonus != 1000 {
		t.Errorf("Economy.SignupBonus = %v, want 1000", cfg.Economy.SignupBonus)
	}
	if len(cfg.Economy.AdminAccounts) != 0 {
		t.Errorf("Economy.AdminAccounts should be empty by default, got %v", cfg.Economy.AdminAccounts)
	}
	if !cfg.Sweep.Enabled {
		t.Error("Sweep.Enabled should be true by default")
	}
	if cfg.Sweep.IntervalDuration() != 10*time.Minute {
		t.Errorf("Sweep interval = %v, want 10m", cfg.Sweep.IntervalDuration())
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be true by default")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 8090 {
		t.Errorf("API.Port = %d, want default 8090", cfg.API.Port)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[api]
host = "0.0.0.0"
port = 9000

[economy]
admin_accounts = ["111", "222"]
signup_bonus = 500.0

[sweep]
enabled = false
interval = "1h"

[log]
level = "debug"
pretty = true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Addr() != "0.0.0.0:9000" {
		t.Errorf("Addr = %q, want 0.0.0.0:9000", cfg.API.Addr())
	}
	if len(cfg.Economy.AdminAccounts) != 2 || cfg.Economy.AdminAccounts[0] != "111" {
		t.Errorf("AdminAccounts = %v", cfg.Economy.AdminAccounts)
	}
	if cfg.Economy.SignupBonus != 500 {
		t.Errorf("SignupBonus = %v, want 500", cfg.Economy.SignupBonus)
	}
	if cfg.Sweep.Enabled {
		t.Error("Sweep.Enabled should be overridden to false")
	}
	if cfg.Sweep.IntervalDuration() != time.Hour {
		t.Errorf("Sweep interval = %v, want 1h", cfg.Sweep.IntervalDuration())
	}
	if !cfg.Log.Pretty {
		t.Error("Log.Pretty should be true")
	}
	// Sections absent from the file keep their defaults.
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should keep its default")
	}
}

func TestSweepInterval_Malformed(t *testing.T) {
	c := SweepConfig{Interval: "soon"}
	if c.IntervalDuration() != 10*time.Minute {
		t.Errorf("malformed interval should fall back to 10m, got %v", c.IntervalDuration())
	}
}
