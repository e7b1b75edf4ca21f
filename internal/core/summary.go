package core

import (
	"sort"
	"strings"
)

// FilterHistory keeps the payments whose agent, reference or amount
// contains term, ignoring case.
func FilterHistory(ps []Payment, term string) []Payment {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return ps
	}
	out := make([]Payment, 0, len(ps))
	for _, p := range ps {
		if containsFold(p.Agent, term) || containsFold(p.Reference, term) || containsFold(p.Amount.String(), term) {
			out = append(out, p)
		}
	}
	return out
}

// FilterSummary keeps the payments whose agent or reference contains term,
// ignoring case.
func FilterSummary(ps []Payment, term string) []Payment {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return ps
	}
	out := make([]Payment, 0, len(ps))
	for _, p := range ps {
		if containsFold(p.Agent, term) || containsFold(p.Reference, term) {
			out = append(out, p)
		}
	}
	return out
}

// SummaryGroups returns the per-agent groups of stats matching term by agent
// name or any reference, sorted by total descending and then by agent name.
func SummaryGroups(stats Stats, term string) []AgentTotal {
	term = strings.ToLower(strings.TrimSpace(term))
	groups := make([]AgentTotal, 0, len(stats.PerAgent))
	for _, g := range stats.PerAgent {
		if term == "" || groupMatches(g, term) {
			groups = append(groups, g)
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		if c := groups[i].Total.Cmp(groups[j].Total); c != 0 {
			return c > 0
		}
		return groups[i].Agent < groups[j].Agent
	})
	return groups
}

func groupMatches(g AgentTotal, term string) bool {
	if containsFold(g.Agent, term) {
		return true
	}
	for _, ref := range g.References {
		if containsFold(ref, term) {
			return true
		}
	}
	return false
}

// containsFold expects term already lowercased.
func containsFold(s, term string) bool {
	return strings.Contains(strings.ToLower(s), term)
}
