// Package main runs the sensor dashboard once: it fetches the latest reading
// from the API and prints the display targets to stdout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/lorasense/lorasense/internal/config"
	"github.com/lorasense/lorasense/internal/dashboard"
	"github.com/lorasense/lorasense/internal/resilience"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	// Diagnostics go to stderr so stdout carries only the rendered board.
	log := zerolog.New(os.Stderr).
		With().
		Timestamp().
		Str("service", "lorasense-dashboard").
		Str("version", Version).
		Logger()

	if err := run(log); err != nil {
		os.Exit(1)
	}
}

func run(log zerolog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return err
	}
	if level, err := zerolog.ParseLevel(cfg.App.LogLevel); err == nil {
		log = log.Level(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clientCfg := resilience.DefaultConfig("dashboard")
	clientCfg.Timeout = cfg.Dashboard.Timeout
	clientCfg.Logger = log

	board := dashboard.NewBoard()
	updater := dashboard.NewUpdater(dashboard.Config{
		BaseURL: cfg.Dashboard.APIURL,
		Client:  resilience.NewClient(clientCfg),
		Display: board,
		Logger:  log,
	})

	runErr := updater.Run(ctx)
	if err := board.Render(os.Stdout); err != nil {
		return fmt.Errorf("render board: %w", err)
	}
	return runErr
}
