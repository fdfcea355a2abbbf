// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command astmine mines function-level change pairs from before/after
// Python file revisions.
//
// Usage:
//
//	astmine run --input entries.jsonl --output changes.jsonl
//	astmine run --watch chunks/ --output changes.jsonl
//	astmine idioms corpus/ --out idioms.json
//	astmine extract file.py
//	astmine normalize before.py after.py
//	astmine diff before.py after.py
//	astmine checkpoints /data/checkpoints
//
// The run subcommand reads one JSON change entry per input line and
// writes one JSON function change record per output line. The remaining
// subcommands are debugging entry points into the individual stages.
package main

import (
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// configPath and verbose are the persistent flags shared by every
// subcommand.
var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "astmine",
	Short: "Mine function change pairs from Python file revisions",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging(verbose)
	},
	SilenceUsage: true,
}

// setupLogging installs the process-wide slog handler: human-readable
// text on a terminal, JSON when piped.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
