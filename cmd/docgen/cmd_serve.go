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
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/docgen/pkg/logging"
	"github.com/AleutianAI/docgen/services/docgen/orchestrator"
	"github.com/AleutianAI/docgen/services/docgen/scanner"
	"github.com/AleutianAI/docgen/services/docgen/service"
	"github.com/AleutianAI/docgen/services/docgen/telemetry"
)

var (
	serveAddrFlag  string
	serveWatchFlag bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the docgen HTTP API",
		Long: `serve exposes the update pipeline over HTTP and, with --watch, keeps
the README current by reacting to file changes in the repository.`,
		RunE: runServe,
	}
)

func init() {
	serveCmd.Flags().StringVar(&serveAddrFlag, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveWatchFlag, "watch", false, "watch the repository and update on change")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.DefaultConfig())
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	pipeline, cfg, err := buildPipeline(logger)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	addr := cfg.Server.Addr
	if serveAddrFlag != "" {
		addr = serveAddrFlag
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	handlers := service.NewHandlers(pipeline, logger.Slog())
	v1 := router.Group("/v1")
	service.RegisterRoutes(v1, handlers)

	if handler := telemetry.MetricsHandler(); handler != nil {
		router.GET("/metrics", gin.WrapH(handler))
	}
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("docgen API listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if serveWatchFlag {
		go watchRepository(ctx, pipeline, cfg.Watch.DebounceSeconds, logger)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// watchRepository runs incremental updates whenever watched files change.
// Watch errors end the loop; the API keeps serving explicit requests.
func watchRepository(ctx context.Context, pipeline *orchestrator.Pipeline, debounceSeconds int, logger *logging.Logger) {
	watcher := scanner.NewWatcher(pipeline.Scanner(), logger.Slog(), time.Duration(debounceSeconds)*time.Second)

	root, err := repoRoot()
	if err != nil {
		logger.Error("watch disabled", "error", err)
		return
	}

	err = watcher.Watch(ctx, root, func(changed map[string]struct{}) {
		report, updateErr := pipeline.Update(ctx, changed)
		if updateErr != nil {
			logger.Error("watch update failed", "error", updateErr)
			return
		}
		logger.Info("watch update complete",
			"strategy", report.Strategy,
			"sections", len(report.Sections),
			"document_changed", report.DocumentChanged)
	})
	if err != nil {
		logger.Error("repository watch stopped", "error", err)
	}
}
