package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"EverglowMissions/internal/config"
	"EverglowMissions/internal/server"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "missions",
		Short:         "Mission orchestration server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("catalog", "", "mission catalog YAML (overrides MISSIONS_CATALOG_PATH; built-in catalog when empty)")
	root.AddCommand(newServeCmd(), newInspectCmd(), newValidateCmd())
	return root
}

// loadConfig reads the environment and applies any flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if err := config.ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("catalog") {
		cfg.CatalogPath, _ = flags.GetString("catalog")
	}
	if flags.Lookup("addr") == nil {
		return cfg, nil
	}
	if flags.Changed("addr") {
		cfg.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("db") {
		cfg.DBPath, _ = flags.GetString("db")
	}
	if flags.Changed("tick-interval") {
		cfg.TickInterval, _ = flags.GetInt("tick-interval")
	}
	if flags.Changed("sim-hz") {
		cfg.SimHz, _ = flags.GetInt("sim-hz")
	}
	if flags.Changed("idle-timeout") {
		cfg.IdleTimeout, _ = flags.GetDuration("idle-timeout")
	}
	if flags.Changed("watch") {
		cfg.WatchCatalog, _ = flags.GetBool("watch")
	}
	if flags.Changed("net-mode") {
		cfg.NetMode, _ = flags.GetString("net-mode")
	}
	if flags.Changed("command-rate") {
		cfg.CommandRate, _ = flags.GetFloat64("command-rate")
	}
	return cfg, nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket mission server",
		Long: `Run the mission server.

Every setting is read from MISSIONS_* environment variables first; flags
given on the command line take precedence.

Examples:
  missions serve --addr 127.0.0.1:8080
  missions serve --db missions.db --catalog missions.yaml --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Run(ctx, cfg, log.Default())
		},
	}
	f := cmd.Flags()
	f.String("addr", ":8080", "address to listen on (e.g., 127.0.0.1:8080)")
	f.String("db", "", "SQLite save database (in-memory saves when empty)")
	f.Int("tick-interval", 20, "frames between mission updates")
	f.Int("sim-hz", 60, "simulated frames per second")
	f.Duration("idle-timeout", 5*time.Minute, "drop sessions without connections after this long")
	f.Bool("watch", false, "reload the catalog file when it changes")
	f.String("net-mode", "single", "event gating: single, client or server")
	f.Float64("command-rate", 20, "websocket commands accepted per second per connection")
	return cmd
}
