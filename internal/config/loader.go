// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Load reads configuration from environment variables.
// It attempts to load from .env file first (for local development),
// then parses environment variables into the Config struct.
func Load() (*Config, error) {
	// In production (Docker/K8s), environment variables are injected directly
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	} else {
		logrus.Infof("loaded environment variables from .env file")
	}

	return Parse()
}

// Parse parses the current environment into a Config without reading .env.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}

	return cfg, nil
}

// Validate performs custom validation on the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	for name, port := range map[string]int{
		"GRPC_PORT":    c.GRPCPort,
		"METRICS_PORT": c.MetricsPort,
		"HTTP_PORT":    c.HTTPPort,
	} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid %s: %d (must be 1-65535)", name, port)
		}
	}

	switch c.StoreDriver {
	case StoreDriverRedis:
		if c.RedisHost == "" {
			return fmt.Errorf("REDIS_HOST is required for the redis store")
		}
		if c.RedisMaxRetries < 0 {
			return fmt.Errorf("invalid REDIS_MAX_RETRIES: %d (must be >= 0)", c.RedisMaxRetries)
		}
	case StoreDriverMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return fmt.Errorf("MONGO_URI and MONGO_DATABASE are required for the mongo store")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER: %q (must be %q or %q)", c.StoreDriver, StoreDriverRedis, StoreDriverMongo)
	}

	if c.CollectionConfigPath == "" {
		return fmt.Errorf("COLLECTION_CONFIG_PATH is required")
	}

	return nil
}
