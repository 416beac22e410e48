// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/AccelByte/extend-pbis-collection/internal/bootstrap"
	"github.com/AccelByte/extend-pbis-collection/internal/config"
	"github.com/AccelByte/extend-pbis-collection/internal/server"
	"github.com/AccelByte/extend-pbis-collection/pkg/collection"
	"github.com/AccelByte/extend-pbis-collection/pkg/service"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

// App holds all application dependencies and manages the application lifecycle.
type App struct {
	cfg               *config.Config
	store             service.Store
	orchestrator      *collection.Orchestrator
	grpcServer        *server.GRPCServer
	metricsServer     *server.MetricsServer
	httpServer        *server.HTTPServer
	shutdownTelemetry func(context.Context) error
}

// New creates and initializes a new application instance.
//
// ============================================================
// DEVELOPER: Application initialization order
// ============================================================
// Components are initialized in dependency order:
// 1. Store (Redis or MongoDB, selected by STORE_DRIVER)
// 2. Collection config (YAML configuration)
// 3. Collection orchestrator
// 4. Servers (gRPC health, metrics, admin HTTP)
// 5. Telemetry (OpenTelemetry tracing)
// ============================================================
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logrus.Info("initializing application...")

	app := &App{cfg: cfg}
	metrics := collection.NewMetrics()

	if err := app.initCollection(ctx, metrics); err != nil {
		return nil, err
	}

	app.grpcServer = server.NewGRPCServer(cfg.GRPCPort, app.store)
	if err := app.grpcServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup gRPC server: %w", err)
	}

	app.metricsServer = server.NewMetricsServer(cfg.MetricsPort, "/metrics", metrics)
	if err := app.metricsServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup metrics server: %w", err)
	}

	app.httpServer = server.NewHTTPServer(cfg.HTTPPort, app.orchestrator, app.store, app.store)
	if err := app.httpServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup admin HTTP server: %w", err)
	}

	shutdownTelemetry, err := server.SetupTelemetry(ctx, cfg.ServiceName, cfg.Environment, cfg.OtelEnabled)
	if err != nil {
		return nil, fmt.Errorf("failed to setup telemetry: %w", err)
	}
	app.shutdownTelemetry = shutdownTelemetry

	logrus.Info("application initialized successfully")

	return app, nil
}

// initCollection connects the store and builds the orchestrator.
func (a *App) initCollection(ctx context.Context, metrics *collection.Metrics) error {
	store, err := initStore(ctx, a.cfg)
	if err != nil {
		return err
	}
	a.store = store

	collectionConfig, err := collection.LoadConfig(a.cfg.CollectionConfigPath)
	if err != nil {
		_ = store.Close(ctx)
		return fmt.Errorf("failed to load collection config from %s: %w", a.cfg.CollectionConfigPath, err)
	}
	logrus.Infof("loaded collection configuration from %s", a.cfg.CollectionConfigPath)

	a.orchestrator, err = bootstrap.InitOrchestrator(store, collectionConfig, metrics, a.cfg.DrawSeed)
	if err != nil {
		_ = store.Close(ctx)
		return fmt.Errorf("failed to init orchestrator: %w", err)
	}

	return nil
}

// initStore connects to the store selected by STORE_DRIVER.
func initStore(ctx context.Context, cfg *config.Config) (service.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		client, err := initMongo(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to init MongoDB: %w", err)
		}
		return service.NewMongoStore(client.Database(cfg.MongoDatabase), service.MongoStoreConfig{}), nil
	default:
		client, err := initRedis(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to init Redis: %w", err)
		}
		return service.NewRedisStore(client, service.RedisStoreConfig{KeyPrefix: cfg.RedisKeyPrefix}), nil
	}
}

// retryPolicy backs off exponentially from the configured delay.
func retryPolicy(ctx context.Context, cfg *config.Config) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(cfg.RedisRetryDelayMs) * time.Millisecond
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(cfg.RedisMaxRetries)), ctx)
}

// initRedis initializes the Redis client.
func initRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	err := backoff.Retry(
		func() error {
			_, err := client.Ping(ctx).Result()
			if err != nil {
				logrus.Warnf("Redis connection failed: %v, retrying...", err)
				return err
			}
			return nil
		},
		retryPolicy(ctx, cfg),
	)

	if err != nil {
		_ = client.Close()
		return nil, err
	}

	logrus.Info("Redis client initialized")
	return client, nil
}

// initMongo initializes the MongoDB client.
func initMongo(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	var client *mongo.Client

	err := backoff.Retry(
		func() error {
			c, err := service.ConnectMongo(ctx, cfg.MongoURI)
			if err != nil {
				logrus.Warnf("MongoDB connection failed: %v, retrying...", err)
				return err
			}
			client = c
			return nil
		},
		retryPolicy(ctx, cfg),
	)

	if err != nil {
		return nil, err
	}

	logrus.Infof("MongoDB client initialized (database %s)", cfg.MongoDatabase)
	return client, nil
}
