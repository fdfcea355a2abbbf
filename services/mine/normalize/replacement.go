// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package normalize

import "math/big"

// ReplacementMap inverts a session: placeholder name back to the original
// value, one map per category. Int values are arbitrary precision and
// serialize as plain JSON numbers. All maps are non-nil so an empty
// category serializes as {} rather than null.
type ReplacementMap struct {
	Identifiers map[string]string   `json:"identifiers"`
	Floats      map[string]float64  `json:"floats"`
	Ints        map[string]*big.Int `json:"ints"`
	Strings     map[string]string   `json:"strs"`
	Templates   map[string]string   `json:"f_strings"`
}

// ReplacementMap materializes the session's inverse mapping. Call it after
// both trees of a pair have been rewritten; rewrites after the call are
// not reflected.
func (s *Session) ReplacementMap() *ReplacementMap {
	m := &ReplacementMap{
		Identifiers: make(map[string]string, len(s.identifiers)),
		Floats:      make(map[string]float64, len(s.floats)),
		Ints:        make(map[string]*big.Int, len(s.ints)),
		Strings:     make(map[string]string, len(s.strings)),
		Templates:   make(map[string]string, len(s.templates)),
	}
	for value, placeholder := range s.identifiers {
		m.Identifiers[placeholder] = value
	}
	for value, placeholder := range s.floats {
		m.Floats[placeholder] = value
	}
	for text, placeholder := range s.ints {
		// Keys are produced by big.Int.String and always parse.
		value, _ := new(big.Int).SetString(text, 10)
		m.Ints[placeholder] = value
	}
	for value, placeholder := range s.strings {
		m.Strings[placeholder] = value
	}
	for value, placeholder := range s.templates {
		m.Templates[placeholder] = value
	}
	return m
}

// Len reports the total number of placeholder bindings across all
// categories.
func (m *ReplacementMap) Len() int {
	return len(m.Identifiers) + len(m.Floats) + len(m.Ints) + len(m.Strings) + len(m.Templates)
}

// Lookup resolves one placeholder to its original value. The returned
// value is a string for identifiers, strings, and templated strings, a
// float64 for floats, and a *big.Int for ints.
func (m *ReplacementMap) Lookup(placeholder string) (any, bool) {
	if value, ok := m.Identifiers[placeholder]; ok {
		return value, true
	}
	if value, ok := m.Floats[placeholder]; ok {
		return value, true
	}
	if value, ok := m.Ints[placeholder]; ok {
		return value, true
	}
	if value, ok := m.Strings[placeholder]; ok {
		return value, true
	}
	if value, ok := m.Templates[placeholder]; ok {
		return value, true
	}
	return nil, false
}
