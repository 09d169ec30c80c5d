package guild

import "regexp"

var idRegex = regexp.MustCompile(`\d{15,21}`)

// ParseIDs returns every snowflake in s, in order and without duplicates.
// Mentions such as <@&id> and <#id> are reduced to their id.
func ParseIDs(s string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, id := range idRegex.FindAllString(s, -1) {
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
