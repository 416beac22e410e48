// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/AccelByte/extend-pbis-collection/internal/app"
	"github.com/AccelByte/extend-pbis-collection/internal/config"
	"github.com/AccelByte/extend-pbis-collection/pkg/common"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	collectSeed int64
	collectJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "pbis-collection",
	Short: "PBIS card collection and leveling engine",
	Long: `Collects the PBIS cards given to students since the last collection,
levels up teams and students, and draws the weekly winners.

Available subcommands:
  serve   - Run the service (admin HTTP API, gRPC health, metrics)
  collect - Run a single collection and exit`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the collection service",
	RunE:  runServe,
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run a single collection and exit",
	Long: `Arms the collection with a fresh snapshot, runs it once and prints the
status. Exits non-zero when the run fails.`,
	RunE: runCollect,
}

func init() {
	collectCmd.Flags().Int64Var(&collectSeed, "seed", 0, "fixed seed for the drawing (overrides DRAW_SEED)")
	collectCmd.Flags().BoolVar(&collectJSON, "json", false, "print the full result as JSON")

	rootCmd.AddCommand(serveCmd, collectCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	common.ConfigureLogger(cfg.LogLevel, cfg.LogJSON)
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	logrus.Infof("starting app server..")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return application.Run(ctx)
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if collectSeed != 0 {
		cfg.DrawSeed = collectSeed
	}

	result, err := app.CollectOnce(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	if collectJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), result.Status())
	}

	if !result.OK {
		return fmt.Errorf("collection failed: %s", result.Reason)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
