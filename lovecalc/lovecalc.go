// Package lovecalc calculates how compatible two members are.
package lovecalc

import (
	"fmt"
	"math/rand/v2"
	"strconv"
)

var hearts = [...]string{
	"\U0001F494",
	"❤️",
	"\U0001F496",
	"\U0001F49D",
	"\U0001F497\U0001F497\U0001F497",
}

// Compatibility returns a score from 0 to 100 for two user ids. The score
// only depends on the pair, not on its order.
func Compatibility(a, b string) int {
	x, _ := strconv.ParseUint(a, 10, 64)
	y, _ := strconv.ParseUint(b, 10, 64)
	r := rand.New(rand.NewPCG(x+y, 0))
	return r.IntN(101)
}

// Message describes a score as a chat reply.
func Message(nameA, nameB string, love int) string {
	heart := hearts[min(max(love, 0)/25, len(hearts)-1)]
	return fmt.Sprintf("%v **%v** and **%v** are %v%% compatible! %v", heart, nameA, nameB, love, heart)
}
