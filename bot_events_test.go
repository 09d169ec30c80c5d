package cogs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPanicReport(t *testing.T) {
	tests := []struct {
		name   string
		reason any
		want   string
	}{
		{
			name:   "short",
			reason: "index out of range",
			want: "```ini\n[Panic in a command!]\nCommand = quote\nGuild   = 1\nChannel = 2\n```" +
				"```\nindex out of range\n```",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, panicReport("quote", "1", "2", tt.reason))
		})
	}

	long := panicReport("quote", "1", "2", strings.Repeat("x", 3000))
	assert.Len(t, []rune(long), 2000)
	assert.True(t, strings.HasSuffix(long, "```"))
}
