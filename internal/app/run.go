// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AccelByte/extend-pbis-collection/internal/config"
	"github.com/AccelByte/extend-pbis-collection/pkg/collection"
	"github.com/sirupsen/logrus"
)

// Run starts the application and blocks until a shutdown signal is received.
func (a *App) Run(ctx context.Context) error {
	// Start servers
	if err := a.grpcServer.Start(ctx); err != nil {
		return err
	}
	if err := a.metricsServer.Start(ctx); err != nil {
		return err
	}
	if err := a.httpServer.Start(ctx); err != nil {
		return err
	}

	logrus.Info("application started successfully")

	// Wait for shutdown signal
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logrus.Info("shutdown signal received")
	return a.Shutdown(context.WithoutCancel(ctx))
}

// Shutdown gracefully shuts down all application components.
//
// ============================================================
// DEVELOPER: Shutdown order is critical
// ============================================================
// Components are shut down in reverse dependency order:
// 1. Stop accepting new requests (gRPC, metrics and admin servers)
// 2. Close the store connection
// 3. Flush telemetry data (OpenTelemetry)
//
// IMPORTANT: Shutdown errors are logged but don't stop the
// shutdown sequence. Each component gets a chance to clean up.
// ============================================================
func (a *App) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down application...")

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			logrus.Errorf("admin HTTP server shutdown error: %v", err)
		}
	}
	if a.grpcServer != nil {
		if err := a.grpcServer.Shutdown(ctx); err != nil {
			logrus.Errorf("gRPC server shutdown error: %v", err)
		}
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			logrus.Errorf("metrics server shutdown error: %v", err)
		}
	}

	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			logrus.Errorf("store close error: %v", err)
		}
	}

	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(ctx); err != nil {
			logrus.Errorf("telemetry shutdown error: %v", err)
		}
	}

	logrus.Info("application shutdown complete")
	return nil
}

// CollectOnce connects the store, arms the orchestrator and runs a single
// collection without starting any server.
func CollectOnce(ctx context.Context, cfg *config.Config) (collection.Result, error) {
	a := &App{cfg: cfg}
	if err := a.initCollection(ctx, nil); err != nil {
		return collection.Result{}, err
	}
	defer func() {
		if err := a.store.Close(context.WithoutCancel(ctx)); err != nil {
			logrus.Errorf("store close error: %v", err)
		}
	}()

	if err := a.orchestrator.SetArmed(ctx, true); err != nil {
		return collection.Result{}, fmt.Errorf("failed to arm collection: %w", err)
	}

	return a.orchestrator.Run(ctx), nil
}
