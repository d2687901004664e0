// Package main provides the worker daemon entry point for nova.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sosagent/nova/internal/config"
	"github.com/sosagent/nova/internal/db"
	"github.com/sosagent/nova/internal/watcher"
	"github.com/sosagent/nova/internal/worker"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	port := flag.Int("port", 0, "Listen port (default: configured worker port)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	// Ensure data directory and settings exist
	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directories")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if *port != 0 {
		cfg.WorkerPort = *port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down worker")
		cancel()
	}()

	// Open the transcript database (migrations run automatically)
	store, err := db.NewStore(db.Config{
		Driver:   cfg.DBDriver,
		Path:     config.DBPath(),
		DSN:      cfg.PostgresDSN,
		MaxConns: cfg.MaxConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer store.Close()

	svc := worker.NewService(Version, cfg, store)
	svc.Start()

	startWatchers(cfg, svc)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.WorkerPort)
	server := &http.Server{
		Addr:    addr,
		Handler: svc.Router(),
		// No write timeout: SSE streams stay open indefinitely.
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", addr).Str("version", Version).Msg("Worker listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		svc.Shutdown(shutdownCtx)
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Worker error")
	}
	log.Info().Msg("Worker stopped")
}

// startWatchers wires file watchers for the custom catalog files and the
// settings file. Catalog edits swap the engine in place; settings changes
// exit the process so a supervisor can restart it with the new values.
func startWatchers(cfg *config.Config, svc *worker.Service) {
	for _, path := range cfg.CatalogPaths {
		path := path
		w, err := watcher.New(path, func() {
			log.Info().Str("path", path).Msg("Catalog file changed, reloading")
			svc.ReloadCatalog()
		})
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to create catalog watcher")
			continue
		}
		if err := w.Start(); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to start catalog watcher")
			continue
		}
		log.Info().Str("path", path).Msg("Catalog file watcher started")
	}

	configPath := config.SettingsPath()
	configWatcher, err := watcher.New(configPath, func() {
		log.Warn().Str("path", configPath).Msg("Settings changed, exiting for restart...")
		time.Sleep(100 * time.Millisecond) // Give logs time to flush
		os.Exit(0)
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create settings watcher")
		return
	}
	if err := configWatcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start settings watcher")
		return
	}
	log.Info().Str("path", configPath).Msg("Settings file watcher started")
}
