// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/astmine/astmine/services/mine/gumtree"
)

var diffCmd = &cobra.Command{
	Use:   "diff <before.py> <after.py>",
	Short: "Print the structural edit script between two revisions",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	beforeSrc, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	afterSrc, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[1], err)
	}

	result, err := gumtree.Diff(cmd.Context(), beforeSrc, afterSrc)
	if err != nil {
		return fmt.Errorf("diffing: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, action := range result.Actions {
		fmt.Fprintln(out, action.String())
	}
	fmt.Fprintf(out, "# %d action(s), %d match(es)\n", len(result.Actions), len(result.Matches))
	return nil
}
