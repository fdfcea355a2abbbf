// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline turns change entries into function change records.
//
// One entry carries a file's before and after revisions. The pipeline
// parses both, strips literal statements, extracts matching functions,
// canonicalizes each pair in its own session, projects the budgeted
// one-line forms, diffs the raw snippets, and emits one JSON record per
// surviving pair. Data-quality problems skip an entry or a pair and are
// reported as structured log events and counters; they never abort the
// batch.
package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/astmine/astmine/services/mine/normalize"
)

// ChangeEntry is one input record: a single file's revision pair as the
// crawler emits it, one JSON object per line.
type ChangeEntry struct {
	Repository   string `json:"repository"`
	CommitBefore string `json:"commit_before"`
	CommitAfter  string `json:"commit_after"`
	PathBefore   string `json:"path_before"`
	PathAfter    string `json:"path_after"`
	CodeBefore   string `json:"code_before"`
	CodeAfter    string `json:"code_after"`
}

// DecodeEntry parses one input line.
func DecodeEntry(line []byte) (*ChangeEntry, error) {
	entry := &ChangeEntry{}
	if err := json.Unmarshal(line, entry); err != nil {
		return nil, fmt.Errorf("DecodeEntry: %w", err)
	}
	return entry, nil
}

// FunctionChange is one output record. Field order is part of the output
// contract with the downstream training consumers; do not reorder.
type FunctionChange struct {
	QualifiedName        string                    `json:"qualified_name"`
	BeforeCode           string                    `json:"before_code"`
	AfterCode            string                    `json:"after_code"`
	BeforeCodeNormalized string                    `json:"before_code_normalized"`
	AfterCodeNormalized  string                    `json:"after_code_normalized"`
	EditActions          []string                  `json:"edit_actions"`
	ReplacementMap       *normalize.ReplacementMap `json:"replacement_map"`
}
