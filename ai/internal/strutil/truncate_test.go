package strutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"empty string", "", 10, ""},
		{"short string", "hello", 10, "hello"},
		{"exact length", "hello", 5, "hello"},
		{"needs truncation", "hello world", 5, "hello..."},
		{"negative maxLen", "hello", -1, ""},
		{"zero maxLen", "hello", 0, ""},
		{"multi-byte", "señor dentist", 5, "señor..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Truncate(tt.input, tt.maxLen))
		})
	}
}

func TestPrefix(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"empty", "", 5, ""},
		{"shorter than limit", "abc", 5, "abc"},
		{"cut", "abcdef", 3, "abc"},
		{"zero", "abc", 0, ""},
		{"runes not bytes", "ñññññ", 2, "ññ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Prefix(tt.input, tt.maxLen))
		})
	}
}

func TestCollapseSpace(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"clinic timing", "clinic_timing"},
		{"clinic   timing", "clinic_timing"},
		{"clinic\t\n timing", "clinic_timing"},
		{"a b  c", "a_b_c"},
		{"nospace", "nospace"},
		{"", ""},
		{"wide　space", "wide_space"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, CollapseSpace(tt.input, "_"))
		})
	}
}
