// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

const (
	StoreDriverRedis = "redis"
	StoreDriverMongo = "mongo"
)

// Config holds all application configuration loaded from environment variables.
// This struct uses github.com/caarlos0/env for automatic environment variable parsing.
//
// Collection tunables (thresholds, drawing size) live in the YAML file at
// CollectionConfigPath, not here.
type Config struct {
	// ============================================================
	// Server configuration
	// ============================================================
	GRPCPort    int    `env:"GRPC_PORT" envDefault:"6565"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"8080"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8000"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"PBISCollection"`

	// ============================================================
	// Logging configuration
	// ============================================================
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"true"`

	// ============================================================
	// Store configuration
	// ============================================================
	StoreDriver string `env:"STORE_DRIVER" envDefault:"redis"`

	RedisHost         string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort         string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisDB           int    `env:"REDIS_DB" envDefault:"0"`
	RedisKeyPrefix    string `env:"REDIS_KEY_PREFIX" envDefault:"pbis:"`
	RedisMaxRetries   int    `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	RedisRetryDelayMs int    `env:"REDIS_RETRY_DELAY_MS" envDefault:"1000"`

	MongoURI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"pbis"`

	// ============================================================
	// Collection configuration
	// ============================================================
	CollectionConfigPath string `env:"COLLECTION_CONFIG_PATH" envDefault:"config/collection.yaml"`
	// DrawSeed fixes the drawing's random source. Zero seeds from the clock.
	DrawSeed int64 `env:"DRAW_SEED" envDefault:"0"`

	// ============================================================
	// Telemetry configuration
	// ============================================================
	OtelEnabled bool `env:"OTEL_ENABLED" envDefault:"true"`
}

// RedisAddr returns the host:port address of the Redis server.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}
