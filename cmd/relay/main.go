// Package main starts the same-origin relay in front of the catalog
// backend, setting up configuration, logging, the forwarding handler
// and graceful shutdown.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/brickfolio/brickfolio/internal/config"
	"github.com/brickfolio/brickfolio/internal/logger"
	"github.com/brickfolio/brickfolio/internal/relay"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	// Build the forwarding handler and the router over it.
	handler := relay.New(options.BackendBase, nil, zapLogger)
	router := relay.NewRouter(handler, zapLogger)

	server := &nethttp.Server{
		Addr:    options.RelayAddr,
		Handler: router,
	}

	// Shut down cleanly on SIGINT/SIGTERM.
	idle := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			zapLogger.Error("shutdown error", zap.Error(err))
		}
		close(idle)
	}()

	zapLogger.Info("starting relay",
		zap.String("addr", options.RelayAddr),
		zap.String("backend", options.BackendBase),
	)
	if err := server.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
		zapLogger.Fatal("failed to start relay", zap.Error(err))
	}
	<-idle
}
