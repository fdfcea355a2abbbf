// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"math/big"
	"strconv"
	"strings"
)

// ParseIntLiteral parses a Python integer literal (any base, underscores
// allowed) to its numeric value. Two spellings of one value, "16" and
// "0x10" say, parse equal, which is the identity the canonicalizer and
// idiom table use for integers.
func ParseIntLiteral(text string) (*big.Int, bool) {
	clean := strings.ReplaceAll(text, "_", "")
	if clean == "" {
		return nil, false
	}
	value, ok := new(big.Int).SetString(clean, 0)
	return value, ok
}

// ParseFloatLiteral parses a Python float literal to its value. "1.0",
// "1.00", and "1e0" all parse equal.
func ParseFloatLiteral(text string) (float64, bool) {
	clean := strings.ReplaceAll(text, "_", "")
	value, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// IsImaginaryLiteral reports a number token with an imaginary suffix.
// Imaginary literals are left untouched by normalization.
func IsImaginaryLiteral(text string) bool {
	return strings.ContainsAny(text, "jJ")
}
