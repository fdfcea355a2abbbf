// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/astmine/astmine/services/mine/idioms"
)

var (
	idiomsOut         string
	idiomsIdentifiers int
	idiomsInts        int
	idiomsFloats      int
	idiomsStrings     int
)

var idiomsCmd = &cobra.Command{
	Use:   "idioms <corpus-dir>",
	Short: "Build an idiom table from a Python corpus",
	Long: `Walks a directory tree, counts identifiers and literal values in
every .py file, and writes the most frequent ones as the idiom table the
run command loads through --idioms. Files that fail to parse are skipped
with a warning.`,
	Args: cobra.ExactArgs(1),
	RunE: runIdioms,
}

func init() {
	idiomsCmd.Flags().StringVar(&idiomsOut, "out", "idioms.json", "output path for the idiom table")
	idiomsCmd.Flags().IntVar(&idiomsIdentifiers, "identifiers", idioms.DefaultLimits.Identifiers, "identifier entries kept")
	idiomsCmd.Flags().IntVar(&idiomsInts, "ints", idioms.DefaultLimits.Ints, "integer entries kept")
	idiomsCmd.Flags().IntVar(&idiomsFloats, "floats", idioms.DefaultLimits.Floats, "float entries kept")
	idiomsCmd.Flags().IntVar(&idiomsStrings, "strings", idioms.DefaultLimits.Strings, "string entries kept")
	rootCmd.AddCommand(idiomsCmd)
}

func runIdioms(cmd *cobra.Command, args []string) error {
	counter := idioms.NewCounter()
	counted := 0
	skipped := 0

	err := filepath.WalkDir(args[0], func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".py") {
			return nil
		}
		if err := counter.CountFile(cmd.Context(), path); err != nil {
			slog.Warn("corpus file skipped",
				slog.String("path", path),
				slog.String("error", err.Error()))
			skipped++
			return nil
		}
		counted++
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking corpus: %w", err)
	}

	table := counter.Table(idioms.Limits{
		Identifiers: idiomsIdentifiers,
		Ints:        idiomsInts,
		Floats:      idiomsFloats,
		Strings:     idiomsStrings,
	})
	if err := idioms.WriteTable(idiomsOut, table); err != nil {
		return err
	}

	slog.Info("idiom table written",
		slog.String("path", idiomsOut),
		slog.Int("files", counted),
		slog.Int("skipped", skipped),
		slog.Int("identifiers", len(table.Identifiers)),
		slog.Int("ints", len(table.Ints)),
		slog.Int("floats", len(table.Floats)),
		slog.Int("strings", len(table.Strings)))
	return nil
}
