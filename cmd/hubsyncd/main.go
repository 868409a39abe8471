// hubsyncd is the local gateway daemon of the Ivoire Hub sync stack: it
// serves the notification API, the websocket change feed and the fetch-news
// function over one SQLite database.
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

	"github.com/ivoirehub/hubsync/internal/build"
	"github.com/ivoirehub/hubsync/internal/db"
	"github.com/ivoirehub/hubsync/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "hubsyncd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile = flag.String("config", "",
			"Path to YAML config file (default ~/.hubsync/hubsyncd.yaml)")
		dbPath = flag.String("db", "", "Path to SQLite database")
		addr   = flag.String("addr", "", "Gateway listen address")
		logDir = flag.String("logdir", "", "Log directory")
		debug  = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}

	// Flags override file and environment settings.
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *logDir != "" {
		cfg.LogDir = *logDir
	}
	if *debug {
		cfg.Debug = true
	}

	logger, closeLogs, err := build.SetupLogging(build.LogConfig{
		Dir:   cfg.LogDir,
		Debug: cfg.Debug,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closeLogs()

	store, err := db.Open(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	webCfg := web.DefaultConfig()
	webCfg.Addr = cfg.Addr
	webCfg.Logger = logger
	webCfg.NewsRateLimit = cfg.NewsRateLimit

	server := web.NewServer(webCfg, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Shutting down", "signal", sig.String())
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("hubsyncd started", "addr", cfg.Addr, "db", cfg.DBPath)

	select {
	case <-ctx.Done():
		return server.Shutdown(context.Background())
	case err := <-errCh:
		return fmt.Errorf("gateway server failed: %w", err)
	}
}
