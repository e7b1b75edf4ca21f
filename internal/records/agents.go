package records

import (
	"sort"
	"strings"
)

// DefaultAgents seeds a store that has never registered an agent.
var DefaultAgents = []string{
	"Agente 0",
	"Agente 1(chiru, Finlay, tiam, 156 )",
	"Agente 2 ( Madaly,Rous,Dasha, 108)",
	"Agente 4",
	"Agente 6",
	"Agente 7",
	"Agente 8",
	"Agente 9",
	"Agente 10",
	"Liam",
	"Teffy y Ceci",
	"Agente Herlan",
}

// SortedAgents trims, drops blanks and duplicates, and sorts by name.
func SortedAgents(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
