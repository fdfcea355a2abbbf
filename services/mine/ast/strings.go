// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"errors"
	"strings"
)

// ErrMalformedLiteral reports a string token that does not look like a
// Python string literal. Cannot happen for tokens produced by Parse; guards
// direct callers.
var ErrMalformedLiteral = errors.New("malformed string literal")

// LiteralPrefix holds the decoded prefix flags of a string literal.
type LiteralPrefix struct {
	Raw       bool
	Bytes     bool
	Formatted bool
}

// SplitLiteral separates a raw string literal into its prefix flags and the
// text between the quotes. The legacy "u" prefix is accepted and ignored.
func SplitLiteral(raw string) (LiteralPrefix, string, error) {
	var prefix LiteralPrefix
	i := 0
	for i < len(raw) && raw[i] != '\'' && raw[i] != '"' {
		switch raw[i] {
		case 'r', 'R':
			prefix.Raw = true
		case 'b', 'B':
			prefix.Bytes = true
		case 'f', 'F':
			prefix.Formatted = true
		case 'u', 'U':
		default:
			return prefix, "", ErrMalformedLiteral
		}
		i++
	}
	if i >= len(raw) {
		return prefix, "", ErrMalformedLiteral
	}
	quote := string(raw[i])
	if strings.HasPrefix(raw[i:], quote+quote+quote) {
		quote = quote + quote + quote
	}
	body := raw[i:]
	if len(body) < 2*len(quote) || !strings.HasSuffix(body, quote) {
		return prefix, "", ErrMalformedLiteral
	}
	return prefix, body[len(quote) : len(body)-len(quote)], nil
}

// IsBytesLiteral reports whether the literal carries a bytes prefix.
func IsBytesLiteral(raw string) bool {
	prefix, _, err := SplitLiteral(raw)
	return err == nil && prefix.Bytes
}

// DecodeString maps a string literal's source text to its runtime value:
// prefix and quotes are stripped and escape sequences are processed (raw
// literals skip escape processing). Two spellings of the same value decode
// identically, which is what lets the canonicalizer and the idiom table
// compare literals by value rather than by source text.
func DecodeString(raw string) (string, error) {
	prefix, body, err := SplitLiteral(raw)
	if err != nil {
		return "", err
	}
	if prefix.Raw {
		return body, nil
	}
	return unescape(body), nil
}

// unescape processes backslash escapes the way the Python lexer does.
// Unrecognized escapes keep the backslash, named escapes (\N{...}) are kept
// verbatim because resolving them needs the Unicode name table.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			i++
			continue
		}
		esc := s[i+1]
		switch esc {
		case '\n':
			i += 2
		case '\\', '\'', '"':
			b.WriteByte(esc)
			i += 2
		case 'n':
			b.WriteByte('\n')
			i += 2
		case 't':
			b.WriteByte('\t')
			i += 2
		case 'r':
			b.WriteByte('\r')
			i += 2
		case 'a':
			b.WriteByte(0x07)
			i += 2
		case 'b':
			b.WriteByte(0x08)
			i += 2
		case 'f':
			b.WriteByte(0x0c)
			i += 2
		case 'v':
			b.WriteByte(0x0b)
			i += 2
		case '0', '1', '2', '3', '4', '5', '6', '7':
			value, width := 0, 0
			for width < 3 && i+1+width < len(s) && s[i+1+width] >= '0' && s[i+1+width] <= '7' {
				value = value*8 + int(s[i+1+width]-'0')
				width++
			}
			b.WriteRune(rune(value))
			i += 1 + width
		case 'x':
			if value, ok := hexValue(s, i+2, 2); ok {
				b.WriteRune(rune(value))
				i += 4
			} else {
				b.WriteByte(c)
				i++
			}
		case 'u':
			if value, ok := hexValue(s, i+2, 4); ok {
				b.WriteRune(rune(value))
				i += 6
			} else {
				b.WriteByte(c)
				i++
			}
		case 'U':
			if value, ok := hexValue(s, i+2, 8); ok {
				b.WriteRune(rune(value))
				i += 10
			} else {
				b.WriteByte(c)
				i++
			}
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func hexValue(s string, start, width int) (int, bool) {
	if start+width > len(s) {
		return 0, false
	}
	value := 0
	for _, c := range []byte(s[start : start+width]) {
		switch {
		case c >= '0' && c <= '9':
			value = value*16 + int(c-'0')
		case c >= 'a' && c <= 'f':
			value = value*16 + int(c-'a'+10)
		case c >= 'A' && c <= 'F':
			value = value*16 + int(c-'A'+10)
		default:
			return 0, false
		}
	}
	return value, true
}
