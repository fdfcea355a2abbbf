// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/astmine/astmine/services/mine/config"
	"github.com/astmine/astmine/services/mine/idioms"
	"github.com/astmine/astmine/services/mine/pipeline"
	badgerstore "github.com/astmine/astmine/services/mine/storage/badger"
)

// Flag values for the run command. Empty or zero means "use the config
// file value".
var (
	runInput       string
	runOutput      string
	runWatchDir    string
	runTokenBudget int
	runWorkers     int
	runIdiomsPath  string
	runCheckpoint  string
	runMetricsAddr string
	runTraceStdout bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process change entries into function change records",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "input JSONL file (- or empty for stdin)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "output JSONL file (- or empty for stdout)")
	runCmd.Flags().StringVar(&runWatchDir, "watch", "", "consume new .jsonl chunks from this directory instead of --input")
	runCmd.Flags().IntVar(&runTokenBudget, "token-budget", 0, "projection token budget")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "concurrent entry processors")
	runCmd.Flags().StringVar(&runIdiomsPath, "idioms", "", "idiom table JSON")
	runCmd.Flags().StringVar(&runCheckpoint, "checkpoint-dir", "", "badger directory for resumable runs")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "bind address for /metrics and /healthz")
	runCmd.Flags().BoolVar(&runTraceStdout, "trace-stdout", false, "print OpenTelemetry spans to stdout")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyRunOverrides(cmd, cfg)

	if cfg.TraceStdout {
		shutdown, err := setupTracing()
		if err != nil {
			return err
		}
		defer shutdown()
	}
	if cfg.MetricsAddr != "" {
		stopMetrics := startMetricsListener(cfg.MetricsAddr)
		defer stopMetrics()
	}

	var db *idioms.Database
	if cfg.IdiomsPath != "" {
		db, err = idioms.Load(cfg.IdiomsPath)
		if err != nil {
			return err
		}
	}

	var store *badgerstore.DB
	if cfg.CheckpointDir != "" {
		storeCfg := badgerstore.DefaultConfig()
		storeCfg.Path = cfg.CheckpointDir
		store, err = badgerstore.OpenDB(storeCfg)
		if err != nil {
			// Resuming is an optimization; a broken store must not
			// block the batch.
			slog.Warn("checkpoint store unavailable, resuming disabled",
				slog.String("path", cfg.CheckpointDir),
				slog.String("error", err.Error()))
			store = nil
		} else {
			defer func() { _ = store.Close() }()
		}
	}

	output, closeOutput, err := openOutput(runOutput)
	if err != nil {
		return err
	}
	defer closeOutput()

	runner := pipeline.NewRunner(cfg, db, store, slog.Default())

	if runWatchDir != "" {
		_, err = runner.Watch(ctx, runWatchDir, output)
		return err
	}

	input, closeInput, err := openInput(runInput)
	if err != nil {
		return err
	}
	defer closeInput()

	_, err = runner.Run(ctx, input, output)
	return err
}

// applyRunOverrides lets explicitly set flags win over the config file.
func applyRunOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("token-budget") {
		cfg.TokenBudget = runTokenBudget
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = runWorkers
	}
	if cmd.Flags().Changed("idioms") {
		cfg.IdiomsPath = runIdiomsPath
	}
	if cmd.Flags().Changed("checkpoint-dir") {
		cfg.CheckpointDir = runCheckpoint
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr = runMetricsAddr
	}
	if cmd.Flags().Changed("trace-stdout") {
		cfg.TraceStdout = runTraceStdout
	}
}

// openInput resolves the input flag to a reader. "-" or empty is stdin.
func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening input: %w", err)
	}
	return file, func() { _ = file.Close() }, nil
}

// openOutput resolves the output flag to a writer. "-" or empty is stdout.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output: %w", err)
	}
	return file, func() { _ = file.Close() }, nil
}

// startMetricsListener serves /metrics and /healthz on addr until the
// returned stop function runs.
func startMetricsListener(addr string) func() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{Addr: addr, Handler: router}
	go func() {
		slog.Info("metrics listener started", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics listener failed", slog.String("error", err.Error()))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
}

// setupTracing installs a stdout span exporter for debugging runs.
func setupTracing() (func(), error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}, nil
}
