// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"strings"
	"testing"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.GRPCPort != 6565 || cfg.MetricsPort != 8080 || cfg.HTTPPort != 8000 {
		t.Errorf("unexpected default ports: %d/%d/%d", cfg.GRPCPort, cfg.MetricsPort, cfg.HTTPPort)
	}
	if cfg.StoreDriver != StoreDriverRedis {
		t.Errorf("StoreDriver = %q, expected %q", cfg.StoreDriver, StoreDriverRedis)
	}
	if cfg.RedisAddr() != "localhost:6379" {
		t.Errorf("RedisAddr() = %q, expected localhost:6379", cfg.RedisAddr())
	}
	if cfg.CollectionConfigPath != "config/collection.yaml" {
		t.Errorf("CollectionConfigPath = %q", cfg.CollectionConfigPath)
	}
	if cfg.DrawSeed != 0 {
		t.Errorf("DrawSeed = %d, expected 0", cfg.DrawSeed)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid, got %v", err)
	}
}

func TestParse_Environment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("DRAW_SEED", "99")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.StoreDriver != StoreDriverMongo || cfg.MongoURI != "mongodb://db:27017" {
		t.Errorf("unexpected store settings: %q %q", cfg.StoreDriver, cfg.MongoURI)
	}
	if cfg.HTTPPort != 9000 {
		t.Errorf("HTTPPort = %d, expected 9000", cfg.HTTPPort)
	}
	if cfg.DrawSeed != 99 {
		t.Errorf("DrawSeed = %d, expected 99", cfg.DrawSeed)
	}
}

func TestParse_InvalidValue(t *testing.T) {
	t.Setenv("GRPC_PORT", "not-a-port")

	if _, err := Parse(); err == nil {
		t.Error("expected error for non-numeric GRPC_PORT")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Parse()
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"grpc port out of range", func(c *Config) { c.GRPCPort = 0 }, "GRPC_PORT"},
		{"http port out of range", func(c *Config) { c.HTTPPort = 70000 }, "HTTP_PORT"},
		{"unknown store driver", func(c *Config) { c.StoreDriver = "sqlite" }, "STORE_DRIVER"},
		{"mongo without database", func(c *Config) {
			c.StoreDriver = StoreDriverMongo
			c.MongoDatabase = ""
		}, "MONGO_DATABASE"},
		{"negative redis retries", func(c *Config) { c.RedisMaxRetries = -1 }, "REDIS_MAX_RETRIES"},
		{"missing collection config", func(c *Config) { c.CollectionConfigPath = "" }, "COLLECTION_CONFIG_PATH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %s", err, tt.wantErr)
			}
		})
	}
}
