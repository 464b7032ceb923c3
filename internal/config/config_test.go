package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if cfg.TickInterval != 20 || cfg.SimHz != 60 {
		t.Fatalf("tick interval = %d, sim hz = %d", cfg.TickInterval, cfg.SimHz)
	}
	if cfg.IdleTimeout != 5*time.Minute {
		t.Fatalf("idle timeout = %v", cfg.IdleTimeout)
	}
	if cfg.NetMode != "single" || cfg.CommandRate != 20 {
		t.Fatalf("net mode = %q, command rate = %v", cfg.NetMode, cfg.CommandRate)
	}
	if cfg.DBPath != "" || cfg.CatalogPath != "" || cfg.WatchCatalog {
		t.Fatalf("unexpected optional values: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MISSIONS_ADDR", "127.0.0.1:9000")
	t.Setenv("MISSIONS_DB_PATH", "/tmp/m.db")
	t.Setenv("MISSIONS_SIM_HZ", "30")
	t.Setenv("MISSIONS_IDLE_TIMEOUT", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" || cfg.DBPath != "/tmp/m.db" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.TickPeriod() != time.Second/30 {
		t.Fatalf("tick period = %v", cfg.TickPeriod())
	}
	if cfg.IdleTimeout != 90*time.Second {
		t.Fatalf("idle timeout = %v", cfg.IdleTimeout)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("MISSIONS_SIM_HZ", "fast")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := Config{Addr: ":1", TickInterval: 20, SimHz: 60, CommandRate: 5}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := []Config{
		{TickInterval: 20, SimHz: 60, CommandRate: 5},
		{Addr: ":1", TickInterval: 0, SimHz: 60, CommandRate: 5},
		{Addr: ":1", TickInterval: 20, SimHz: 0, CommandRate: 5},
		{Addr: ":1", TickInterval: 20, SimHz: 60, CommandRate: 0},
		{Addr: ":1", TickInterval: 20, SimHz: 60, CommandRate: 5, WatchCatalog: true},
	}
	for i, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: expected error for %+v", i, cfg)
		}
	}
}
