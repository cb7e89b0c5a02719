package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMask(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "I want to book a cleaning", "I want to book a cleaning"},
		{"empty", "", ""},
		{"mobile", "call me back on 9876543210", "call me back on ******3210"},
		{"international", "my number is +91 98765 43210", "my number is *** ***** *3210"},
		{"dashes", "card 4111-1111-1111-1234 was charged twice", "card ****-****-****-1234 was charged twice"},
		{"short numbers untouched", "at 10 30 tomorrow", "at 10 30 tomorrow"},
		{"email", "mail the bill to priya.s@example.com", "mail the bill to p***@example.com"},
		{"one letter local part", "a@example.com", "*@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Mask(tt.input))
		})
	}
}

func TestFilter_EnabledTypes(t *testing.T) {
	numbersOnly := NewFilter(Number)
	in := "9876543210 or priya@example.com"

	assert.Equal(t, "******3210 or priya@example.com", numbersOnly.FilterText(in))
	assert.Equal(t, "9876543210", NewFilter(Email).FilterText("9876543210"))
}

func BenchmarkMask(b *testing.B) {
	in := "Hi, this is about my insurance claim, reach me at 9876543210 or priya@example.com"
	for i := 0; i < b.N; i++ {
		Mask(in)
	}
}
