// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/ClimateLake/services/datalake/cachestore"
	"github.com/AleutianAI/ClimateLake/services/datalake/catalog"
	"github.com/AleutianAI/ClimateLake/services/datalake/collector"
	"github.com/AleutianAI/ClimateLake/services/datalake/config"
	"github.com/AleutianAI/ClimateLake/services/datalake/observability"
	"github.com/AleutianAI/ClimateLake/services/datalake/routes"
	"github.com/AleutianAI/ClimateLake/services/datalake/worldbank"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "climatelake",
	Short: "World Bank climate and development indicator data lake",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the data lake and serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (optional)")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	slog.Info("Configuration loaded",
		"port", cfg.Port, "cache_file", cfg.CacheFile, "cache_max_age", cfg.CacheMaxAge,
		"fetch_workers", cfg.FetchWorkers, "target_year", cfg.TargetYear)

	observability.InitMetrics()

	client := worldbank.NewClient(
		&http.Client{Timeout: cfg.FetchTimeout},
		worldbank.WithWorkers(cfg.FetchWorkers),
	)
	cache := cachestore.New(cfg.CacheFile, cfg.CacheMaxAge)
	col := collector.New(catalog.Default(), client, cache, observability.DefaultMetrics)

	// Queries require a complete table set, so the load runs to completion
	// before the listener opens.
	if err := col.Load(ctx); err != nil {
		return fmt.Errorf("initial data load failed: %w", err)
	}

	router := gin.Default()
	routes.SetupRoutes(router, col, cfg)

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("ClimateLake API listening", "addr", addr)
	return router.Run(addr)
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
