package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/allisson/orders/internal/app"
	"github.com/allisson/orders/internal/config"
)

// RunWorker starts the outbox relay as a standalone worker process.
// Loads configuration, initializes the DI container, and runs the relay loop
// until receiving SIGINT/SIGTERM. The relay finishes the in-flight record
// before stopping.
func RunWorker(ctx context.Context, version string) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("starting outbox relay worker", slog.String("version", version))

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get relay from container (this initializes all dependencies)
	relay, err := container.Relay()
	if err != nil {
		return fmt.Errorf("failed to initialize outbox relay: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("outbox relay error: %w", err)
	}

	logger.Info("outbox relay worker stopped")
	return nil
}
