package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction_go/internal/api"
	"auction_go/internal/app"
	"auction_go/internal/engine"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Engine loop (The Hotpath) in its own goroutine
	loop := engine.NewLoop(1024, bootstrap.Registry)
	go loop.Run(ctx)
	slog.InfoContext(ctx, "✅ Engine loop (Hotpath) started")

	// 5. Expiry sweep ticker, serialized through the loop like every mutation
	sweepEvery := time.Duration(bootstrap.Config.Market.SweepIntervalSecs) * time.Second
	go func() {
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := loop.Tick(ctx); err != nil {
					return
				}
			}
		}
	}()
	slog.InfoContext(ctx, "✅ Expiry sweep scheduled", slog.Duration("interval", sweepEvery))

	// 6. HTTP API
	handler := api.NewHandler(loop)
	server := &http.Server{
		Addr:    bootstrap.Config.API.Addr,
		Handler: handler.SetupRoutes(),
	}
	go func() {
		slog.Info("✅ HTTP API listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", slog.Any("error", err))
			stop()
		}
	}()

	slog.InfoContext(ctx, "✨ Marketplace fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", slog.Any("error", err))
	}
}
