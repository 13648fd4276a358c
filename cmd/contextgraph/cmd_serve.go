// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/contextgraph/config"
	"github.com/AleutianAI/contextgraph/graph"
	"github.com/AleutianAI/contextgraph/httpapi"
	"github.com/AleutianAI/contextgraph/insert"
	"github.com/AleutianAI/contextgraph/pkg/logging"
	"github.com/AleutianAI/contextgraph/search"
	"github.com/AleutianAI/contextgraph/telemetry"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logDebug {
		cfg.Log.Level = "debug"
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Log.Level),
		LogDir:  cfg.Log.Dir,
		Service: "contextgraph",
		JSON:    cfg.Log.JSON,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	g := graph.New()

	var searchOpts []search.Option
	if cfg.Search.StepBudget > 0 {
		searchOpts = append(searchOpts, search.WithStepBudget(cfg.Search.StepBudget))
	}
	engine := search.NewEngine(g, searchOpts...)

	insertOpts := []insert.Option{insert.WithSearchEngine(engine)}
	if cfg.Insert.BatchConcurrency > 0 {
		insertOpts = append(insertOpts, insert.WithBatchConcurrency(cfg.Insert.BatchConcurrency))
	}
	inserter := insert.New(g, insertOpts...)

	if cfg.Log.Level != "debug" && !logDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers := httpapi.NewHandlers(g, inserter, engine)
	server := httpapi.NewServer(cfg.Server, httpapi.NewRouter(handlers))

	// Log level follows the config file without a restart.
	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, func(next config.Config) {
			logger.SetLevel(logging.ParseLevel(next.Log.Level))
			logger.Info("configuration reloaded", "log_level", next.Log.Level)
		})
		if err != nil {
			logger.Warn("config watcher unavailable", "error", err)
		} else {
			defer watcher.Stop()
			if err := watcher.Start(ctx); err != nil {
				logger.Warn("config watcher failed to start", "error", err)
			}
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}
