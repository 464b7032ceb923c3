// Package config holds the process configuration of the mission server.
package config

import (
	"fmt"
	"time"
)

// Config is read from MISSIONS_* environment variables; CLI flags override it.
type Config struct {
	Addr         string        `env:"MISSIONS_ADDR"          envDefault:":8080"`
	DBPath       string        `env:"MISSIONS_DB_PATH"       envDefault:""` // empty keeps saves in memory
	CatalogPath  string        `env:"MISSIONS_CATALOG_PATH"  envDefault:""` // empty uses the built-in catalog
	TickInterval int           `env:"MISSIONS_TICK_INTERVAL" envDefault:"20"`
	SimHz        int           `env:"MISSIONS_SIM_HZ"        envDefault:"60"`
	IdleTimeout  time.Duration `env:"MISSIONS_IDLE_TIMEOUT"  envDefault:"5m"`
	WatchCatalog bool          `env:"MISSIONS_WATCH_CATALOG" envDefault:"false"`
	CommandRate  float64       `env:"MISSIONS_COMMAND_RATE"  envDefault:"20"` // inbound ws commands per second
	NetMode      string        `env:"MISSIONS_NET_MODE"      envDefault:"single"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr is required")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("config: tick interval must be positive, got %d", c.TickInterval)
	}
	if c.SimHz <= 0 || c.SimHz > 1000 {
		return fmt.Errorf("config: sim hz must be in 1..1000, got %d", c.SimHz)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("config: idle timeout must not be negative")
	}
	if c.CommandRate <= 0 {
		return fmt.Errorf("config: command rate must be positive")
	}
	if c.WatchCatalog && c.CatalogPath == "" {
		return fmt.Errorf("config: catalog watching needs MISSIONS_CATALOG_PATH")
	}
	return nil
}

// TickPeriod is the wall-clock duration of one simulated frame.
func (c Config) TickPeriod() time.Duration {
	return time.Second / time.Duration(c.SimHz)
}
