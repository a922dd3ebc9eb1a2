package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRelativeAge(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"45m", 45 * time.Minute, true},
		{"5h", 5 * time.Hour, true},
		{"3d", 3 * 24 * time.Hour, true},
		{"2w", 14 * 24 * time.Hour, true},
		{"1mo", 30 * 24 * time.Hour, true},
		{"1yr", 365 * 24 * time.Hour, true},
		{"3d • Edited", 3 * 24 * time.Hour, true},
		{"  2w  ", 14 * 24 * time.Hour, true},
		{"Just now", 0, false},
		{"", 0, false},
		{"yesterday", 0, false},
		{"d3", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseRelativeAge(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "input %q", tt.in)
		}
	}
}
