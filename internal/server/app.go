package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"EverglowMissions/internal/catalog"
	"EverglowMissions/internal/config"
	"EverglowMissions/internal/game"
	"EverglowMissions/internal/storage"
	"EverglowMissions/internal/storage/sqlite"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// LoadCatalog returns the catalog at cfg.CatalogPath, or the built-in one.
func LoadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.Default()
	}
	return catalog.Load(cfg.CatalogPath)
}

func openStore(cfg config.Config) (storage.Store, error) {
	if cfg.DBPath == "" {
		return storage.NewMemory(), nil
	}
	return sqlite.Open(cfg.DBPath)
}

// Run listens on cfg.Addr and serves until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	return Serve(ctx, ln, cfg, logger)
}

// Serve runs the mission server on ln: HTTP, the simulation clock, idle
// session cleanup and, when enabled, catalog hot reload. Sessions are saved
// on the way out.
func Serve(ctx context.Context, ln net.Listener, cfg config.Config, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	if err := cfg.Validate(); err != nil {
		ln.Close()
		return err
	}
	mode, err := game.ParseNetMode(cfg.NetMode)
	if err != nil {
		ln.Close()
		return err
	}
	cat, err := LoadCatalog(cfg)
	if err != nil {
		ln.Close()
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		ln.Close()
		return err
	}
	defer store.Close()

	hub := game.NewHub(store, game.SessionOptions{
		UpdateInterval: cfg.TickInterval,
		Mode:           mode,
		Campaign:       catalog.NewCampaign(cat, logger),
		Logger:         logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	httpSrv := &http.Server{
		Handler:     NewServer(hub, cfg, logger).Handler(),
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		logger.Printf("starting mission server on %s (%d templates, %s mode, %d Hz)",
			ln.Addr(), cat.Len(), mode, cfg.SimHz)
		if err := httpSrv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	// Simulation clock
	g.Go(func() error {
		ticker := time.NewTicker(cfg.TickPeriod())
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				hub.TickAll()
			}
		}
	})

	if cfg.IdleTimeout > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(min(cfg.IdleTimeout, time.Minute))
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case now := <-ticker.C:
					if n := hub.CleanupIdle(gctx, cfg.IdleTimeout, now); n > 0 {
						logger.Printf("hub: dropped %d idle sessions", n)
					}
				}
			}
		})
	}

	if cfg.WatchCatalog {
		g.Go(func() error {
			return catalog.Watch(gctx, cfg.CatalogPath, logger, func(c *catalog.Catalog) {
				hub.SetCampaign(catalog.NewCampaign(c, logger))
			})
		})
	}

	err = g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if cerr := hub.Close(closeCtx); cerr != nil {
		err = errors.Join(err, fmt.Errorf("saving sessions: %w", cerr))
	}
	return err
}
