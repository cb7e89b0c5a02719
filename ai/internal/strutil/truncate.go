// Package strutil provides string helpers shared by the ai packages.
package strutil

import (
	"strings"
	"unicode"
)

// Truncate shortens s to maxLen runes for log output, appending "..." when
// anything was cut. Returns "" when maxLen <= 0.
func Truncate(s string, maxLen int) string {
	if s == "" || maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// Prefix returns the first maxLen runes of s with no marker appended.
// Cache keys are built from it, so the result must stay stable across
// releases.
func Prefix(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

// CollapseSpace replaces every run of Unicode whitespace in s with sep.
// Leading and trailing runs are replaced as well; callers trim first.
func CollapseSpace(s, sep string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteString(sep)
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
