package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	"github.com/dgallion1/formlens/internal/api"
	"github.com/dgallion1/formlens/internal/config"
	"github.com/dgallion1/formlens/internal/extract"
	"github.com/dgallion1/formlens/internal/pipeline"
	"github.com/dgallion1/formlens/internal/raster"
	"github.com/dgallion1/formlens/internal/session"
)

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func main() {
	level := new(slog.LevelVar)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level.Set(parseLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	model, credKey, err := extract.NewModel(cfg.ProviderSpec())
	if err != nil {
		log.Error("invalid provider", "error", err)
		os.Exit(1)
	}
	client := extract.NewClient(model, config.Credential(credKey),
		extract.NewCache(cfg.CacheSize, cfg.CacheTTL),
		extract.Options{
			MaxImages:         cfg.MaxImages,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
		}, log)
	if os.Getenv(credKey) == "" {
		log.Warn("extraction credential not set; requests will fail until it is", "key", credKey)
	}

	// Initialize pipeline.
	sessions := session.NewStore(cfg.SessionTTL)
	proc := pipeline.NewProcessor(raster.New(cfg.Pdftoppm, log), client, cfg.RenderScale, log)
	orch := pipeline.NewOrchestrator(proc, sessions, pipeline.Options{
		WorkerCount:  cfg.WorkerCount,
		MaxQueueSize: cfg.MaxQueueSize,
		JobTimeout:   cfg.RequestTimeout,
	}, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, sessions, client, log, cfg)

	httpServer := &http.Server{
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Address())
	if err != nil {
		log.Error("listen failed", "addr", cfg.Address(), "error", err)
		os.Exit(1)
	}
	if cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, cfg.MaxConnections)
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		client.Close()
	}()

	log.Info("starting formlens",
		"addr", cfg.Address(),
		"provider", cfg.Provider,
		"model", client.Model(),
		"workers", cfg.WorkerCount,
	)
	if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
	log.Info("shutdown complete")
}
