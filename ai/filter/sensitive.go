// Package filter masks caller contact details before transcripts reach logs.
package filter

import (
	"regexp"
	"strings"
	"sync"
)

// FilterType selects a kind of sensitive token.
type FilterType int

const (
	// Number covers phone, card and account numbers: ten or more digits,
	// optionally with a leading + and space, underscore or dash separators.
	Number FilterType = iota
	// Email covers e-mail addresses.
	Email
)

var patterns = sync.OnceValue(func() map[FilterType]*regexp.Regexp {
	return map[FilterType]*regexp.Regexp{
		Number: regexp.MustCompile(`\+?\d[\d _\-]{8,}\d`),
		Email:  regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
	}
})

// KeepLastDigits is how many trailing digits of a masked number stay visible.
const KeepLastDigits = 4

// Filter masks the enabled token types.
type Filter struct {
	enabled []FilterType
}

// NewFilter returns a filter for the given types; none means all.
func NewFilter(types ...FilterType) *Filter {
	if len(types) == 0 {
		types = []FilterType{Number, Email}
	}
	return &Filter{enabled: types}
}

var defaultFilter = NewFilter()

// Mask masks text with the default filter.
func Mask(text string) string {
	return defaultFilter.FilterText(text)
}

// FilterText returns text with every enabled token masked.
func (f *Filter) FilterText(text string) string {
	if text == "" {
		return text
	}
	re := patterns()
	for _, ft := range f.enabled {
		switch ft {
		case Number:
			text = re[Number].ReplaceAllStringFunc(text, maskNumber)
		case Email:
			text = re[Email].ReplaceAllStringFunc(text, maskEmail)
		}
	}
	return text
}

// maskNumber replaces every digit but the last KeepLastDigits with '*'.
// Separators are kept.
func maskNumber(s string) string {
	digits := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits++
		}
	}
	b := []byte(s)
	seen := 0
	for i := range b {
		if b[i] < '0' || b[i] > '9' {
			if b[i] == '+' {
				b[i] = '*'
			}
			continue
		}
		seen++
		if seen <= digits-KeepLastDigits {
			b[i] = '*'
		}
	}
	return string(b)
}

// maskEmail keeps the first character of the local part and the domain.
func maskEmail(s string) string {
	at := strings.IndexByte(s, '@')
	if at <= 1 {
		return "*" + s[max(at, 0):]
	}
	return s[:1] + "***" + s[at:]
}
