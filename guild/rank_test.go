package guild

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestRankCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Rank
		want int
	}{
		{
			name: "higher position",
			a:    Rank{Position: 5, ID: "200"},
			b:    Rank{Position: 2, ID: "100"},
			want: 1,
		},
		{
			name: "lower position",
			a:    Rank{Position: 1, ID: "100"},
			b:    Rank{Position: 2, ID: "200"},
			want: -1,
		},
		{
			name: "tie broken by older id",
			a:    Rank{Position: 3, ID: "99"},
			b:    Rank{Position: 3, ID: "100"},
			want: 1,
		},
		{
			name: "tie broken by newer id",
			a:    Rank{Position: 3, ID: "163454407999094786"},
			b:    Rank{Position: 3, ID: "163454407999094785"},
			want: -1,
		},
		{
			name: "same role",
			a:    Rank{Position: 3, ID: "42"},
			b:    Rank{Position: 3, ID: "42"},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
			assert.Equal(t, -tt.want, tt.b.Compare(tt.a))
			assert.Equal(t, tt.want < 0, tt.a.Below(tt.b))
			assert.Equal(t, tt.want > 0, tt.a.Above(tt.b))
		})
	}
}

func TestRankOf(t *testing.T) {
	r := RankOf(&discordgo.Role{ID: "1234", Position: 7})
	assert.Equal(t, Rank{Position: 7, ID: "1234"}, r)
}
