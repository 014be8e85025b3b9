package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dgallion1/formlens/internal/config"
	"github.com/dgallion1/formlens/internal/extract"
	"github.com/dgallion1/formlens/internal/mcpserver"
	"github.com/dgallion1/formlens/internal/pipeline"
	"github.com/dgallion1/formlens/internal/raster"
)

func main() {
	// stdout carries the protocol
	level := new(slog.LevelVar)
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	_ = level.UnmarshalText([]byte(cfg.LogLevel))

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
	defer client.Close()

	proc := pipeline.NewProcessor(raster.New(cfg.Pdftoppm, log), client, cfg.RenderScale, log)
	fetch := mcpserver.GetFromURL(&http.Client{Timeout: cfg.RequestTimeout}, cfg.MaxUploadBytes)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting formlens-mcp", "provider", cfg.Provider, "model", client.Model())
	srv := mcpserver.CreateServer(proc, fetch, log)
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}
