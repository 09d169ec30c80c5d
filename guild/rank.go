// Package guild holds the vocabulary shared by the cogs: error kinds and the
// total order over the roles of a guild.
package guild

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Rank is the place of a role in its guild's hierarchy. Roles are ordered by
// position; on equal positions the role with the smaller id ranks higher,
// which is how discord itself breaks ties.
type Rank struct {
	Position int
	ID       string
}

// RankOf returns the rank of r.
func RankOf(r *discordgo.Role) Rank {
	return Rank{Position: r.Position, ID: r.ID}
}

// Compare returns -1 if r ranks below o, 1 if above and 0 if they are the same role.
func (r Rank) Compare(o Rank) int {
	switch {
	case r.Position < o.Position:
		return -1
	case r.Position > o.Position:
		return 1
	}
	switch c := CompareIDs(r.ID, o.ID); {
	case c < 0:
		return 1
	case c > 0:
		return -1
	}
	return 0
}

// Below reports whether r ranks strictly below o.
func (r Rank) Below(o Rank) bool {
	return r.Compare(o) < 0
}

// Above reports whether r ranks strictly above o.
func (r Rank) Above(o Rank) bool {
	return r.Compare(o) > 0
}

// CompareIDs orders two snowflakes numerically. Snowflakes are decimal
// strings without leading zeros, so length then lexical order is numeric order.
func CompareIDs(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
