package guild

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIDs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"mentions", "<@&163454407999094786> <@&163454407999094787>", []string{"163454407999094786", "163454407999094787"}},
		{"bare and mixed", "163454407999094786,<#163454407999094787>", []string{"163454407999094786", "163454407999094787"}},
		{"duplicates", "<@&163454407999094786> 163454407999094786", []string{"163454407999094786"}},
		{"short numbers ignored", "role 12345", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIDs(tt.in))
		})
	}
}
