// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// In-process command tests. Nothing here touches the network or a
// long-running store; the run command's full path is covered by the
// pipeline package tests.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/astmine/astmine/services/mine/config"
)

// execute runs the root command with args and returns its combined
// output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestExtractCommand(t *testing.T) {
	path := writeFile(t, "mod.py", `def top(x):
    return x

class Box:
    def get(self):
        return self.value
`)
	out, err := execute(t, "extract", path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(out, "top\t") {
		t.Errorf("output missing top-level function: %q", out)
	}
	if !strings.Contains(out, "Box.get\t") {
		t.Errorf("output missing method: %q", out)
	}
}

func TestExtractCommandBadSyntax(t *testing.T) {
	path := writeFile(t, "bad.py", "def broken(:\n")
	if _, err := execute(t, "extract", path); err == nil {
		t.Fatal("extract accepted unparsable source")
	}
}

func TestNormalizeCommand(t *testing.T) {
	dir := t.TempDir()
	before := filepath.Join(dir, "before.py")
	after := filepath.Join(dir, "after.py")
	if err := os.WriteFile(before, []byte("total = 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(after, []byte("total = 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "normalize", before, after)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !strings.Contains(out, "IDENTIFIER_0 = INT_0") {
		t.Errorf("normalized before missing placeholders: %q", out)
	}
	if !strings.Contains(out, "IDENTIFIER_0 = INT_1") {
		t.Errorf("normalized after missing placeholders: %q", out)
	}
	if !strings.Contains(out, `"identifiers"`) {
		t.Errorf("replacement map not printed: %q", out)
	}
}

func TestDiffCommand(t *testing.T) {
	dir := t.TempDir()
	before := filepath.Join(dir, "before.py")
	after := filepath.Join(dir, "after.py")
	if err := os.WriteFile(before, []byte("x = 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(after, []byte("x = 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "diff", before, after)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if !strings.Contains(out, "update-node") {
		t.Errorf("expected an update action, got %q", out)
	}
	if !strings.Contains(out, "# 1 action(s)") {
		t.Errorf("expected action summary, got %q", out)
	}
}

func TestIdiomsCommand(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "corpus")
	if err := os.MkdirAll(corpus, 0o700); err != nil {
		t.Fatal(err)
	}
	src := "def handler(request):\n    return request\n"
	if err := os.WriteFile(filepath.Join(corpus, "a.py"), []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "idioms.json")

	if _, err := execute(t, "idioms", corpus, "--out", out); err != nil {
		t.Fatalf("idioms: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading table: %v", err)
	}
	if !strings.Contains(string(raw), `"handler"`) {
		t.Errorf("table missing counted identifier: %s", raw)
	}
}

func TestApplyRunOverrides(t *testing.T) {
	cfg := config.Default()
	if err := runCmd.Flags().Set("workers", "7"); err != nil {
		t.Fatal(err)
	}
	if err := runCmd.Flags().Set("token-budget", "99"); err != nil {
		t.Fatal(err)
	}
	applyRunOverrides(runCmd, cfg)

	if cfg.Workers != 7 {
		t.Errorf("Workers = %d, want 7", cfg.Workers)
	}
	if cfg.TokenBudget != 99 {
		t.Errorf("TokenBudget = %d, want 99", cfg.TokenBudget)
	}
	if cfg.MetricsAddr != config.DefaultMetricsAddr {
		t.Errorf("MetricsAddr changed without its flag: %q", cfg.MetricsAddr)
	}
}
