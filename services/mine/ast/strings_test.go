// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"errors"
	"testing"
)

func TestSplitLiteral(t *testing.T) {
	tests := []struct {
		raw    string
		prefix LiteralPrefix
		body   string
	}{
		{`"hi"`, LiteralPrefix{}, "hi"},
		{`'x'`, LiteralPrefix{}, "x"},
		{`''`, LiteralPrefix{}, ""},
		{`r"a\b"`, LiteralPrefix{Raw: true}, `a\b`},
		{`b'data'`, LiteralPrefix{Bytes: true}, "data"},
		{`f"v={x}"`, LiteralPrefix{Formatted: true}, "v={x}"},
		{`rb'\x00'`, LiteralPrefix{Raw: true, Bytes: true}, `\x00`},
		{`BR"esc"`, LiteralPrefix{Raw: true, Bytes: true}, "esc"},
		{`u'legacy'`, LiteralPrefix{}, "legacy"},
		{`"""doc"""`, LiteralPrefix{}, "doc"},
		{`f'''multi'''`, LiteralPrefix{Formatted: true}, "multi"},
	}
	for _, tt := range tests {
		prefix, body, err := SplitLiteral(tt.raw)
		if err != nil {
			t.Errorf("SplitLiteral(%q) failed: %v", tt.raw, err)
			continue
		}
		if prefix != tt.prefix {
			t.Errorf("SplitLiteral(%q) prefix = %+v, want %+v", tt.raw, prefix, tt.prefix)
		}
		if body != tt.body {
			t.Errorf("SplitLiteral(%q) body = %q, want %q", tt.raw, body, tt.body)
		}
	}
}

func TestSplitLiteralMalformed(t *testing.T) {
	for _, raw := range []string{"", "hi", "q'x'", `"unterminated`, "b"} {
		if _, _, err := SplitLiteral(raw); !errors.Is(err, ErrMalformedLiteral) {
			t.Errorf("SplitLiteral(%q): err = %v, want ErrMalformedLiteral", raw, err)
		}
	}
}

func TestIsBytesLiteral(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{`b'x'`, true},
		{`rb"x"`, true},
		{`B'''x'''`, true},
		{`'x'`, false},
		{`f"x"`, false},
		{"broken", false},
	}
	for _, tt := range tests {
		if got := IsBytesLiteral(tt.raw); got != tt.want {
			t.Errorf("IsBytesLiteral(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestDecodeStringEscapes(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`'plain'`, "plain"},
		{`'a\nb'`, "a\nb"},
		{`'\t\r\a\b\f\v'`, "\t\r\x07\x08\x0c\x0b"},
		{`'don\'t'`, "don't"},
		{`"say \"hi\""`, `say "hi"`},
		{`'back\\slash'`, `back\slash`},
		{`"h\x69"`, "hi"},
		{`'\101'`, "A"},
		{`'A'`, "A"},
		{`'\U0001F600'`, "\U0001F600"},
		{`r'\n'`, `\n`},
		{`'\q'`, `\q`},
		{`'\x4'`, `\x4`},
		{`'\N{BULLET}'`, `\N{BULLET}`},
		{"'a\\\nb'", "ab"},
	}
	for _, tt := range tests {
		got, err := DecodeString(tt.raw)
		if err != nil {
			t.Errorf("DecodeString(%q) failed: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("DecodeString(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

// Different spellings of one value must decode identically: the canonicalizer
// and the idiom table both compare string literals by decoded value.
func TestDecodeStringValueIdentity(t *testing.T) {
	spellings := []string{`"hi"`, `'hi'`, `"h\x69"`, `'h\151'`, `"""hi"""`}
	for _, raw := range spellings {
		got, err := DecodeString(raw)
		if err != nil {
			t.Fatalf("DecodeString(%q) failed: %v", raw, err)
		}
		if got != "hi" {
			t.Errorf("DecodeString(%q) = %q, want %q", raw, got, "hi")
		}
	}
}

func TestDecodeStringMalformed(t *testing.T) {
	if _, err := DecodeString("naked"); !errors.Is(err, ErrMalformedLiteral) {
		t.Errorf("err = %v, want ErrMalformedLiteral", err)
	}
}
