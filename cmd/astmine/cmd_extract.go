// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/astmine/astmine/services/mine/ast"
	"github.com/astmine/astmine/services/mine/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file.py>",
	Short: "Print the qualified-name map of one Python file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	root, err := ast.Parse(cmd.Context(), src)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}
	extract.RemoveLiteralStatements(root)
	functions := extract.Functions(root, slog.Default())

	out := cmd.OutOrStdout()
	for _, name := range functions.Names() {
		node, _ := functions.Get(name)
		fmt.Fprintf(out, "%s\toffset=%d\n", name, node.Span.Offset)
	}
	if d := functions.Duplicates(); d > 0 {
		fmt.Fprintf(out, "# %d duplicate name(s) dropped\n", d)
	}
	return nil
}
