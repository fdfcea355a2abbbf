// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/astmine/astmine/services/mine/ast"
	"github.com/astmine/astmine/services/mine/extract"
	"github.com/astmine/astmine/services/mine/idioms"
	"github.com/astmine/astmine/services/mine/normalize"
)

var normalizeIdiomsPath string

var normalizeCmd = &cobra.Command{
	Use:   "normalize <before.py> <after.py>",
	Short: "Print normalized sources and the replacement map for two revisions",
	Long: `Parses both files, strips literal statements, canonicalizes the two
whole-file trees in one shared session, and prints the normalized sources
followed by the replacement map JSON.`,
	Args: cobra.ExactArgs(2),
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeIdiomsPath, "idioms", "", "idiom table JSON")
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	db := idioms.Empty()
	if normalizeIdiomsPath != "" {
		loaded, err := idioms.Load(normalizeIdiomsPath)
		if err != nil {
			return err
		}
		db = loaded
	}

	before, err := parseCleanFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	after, err := parseCleanFile(cmd.Context(), args[1])
	if err != nil {
		return err
	}

	session, err := normalize.NormalizePair(db, before, after)
	if err != nil {
		return fmt.Errorf("normalizing: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "# before")
	fmt.Fprint(out, ast.Render(before))
	fmt.Fprintln(out, "# after")
	fmt.Fprint(out, ast.Render(after))

	raw, err := json.MarshalIndent(session.ReplacementMap(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding replacement map: %w", err)
	}
	fmt.Fprintln(out, "# replacement map")
	fmt.Fprintln(out, string(raw))
	return nil
}

// parseCleanFile reads, parses, and literal-strips one Python file.
func parseCleanFile(ctx context.Context, path string) (*ast.Node, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	root, err := ast.Parse(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	extract.RemoveLiteralStatements(root)
	return root, nil
}
