package core

import "github.com/shopspring/decimal"

// DefaultFeeRate is the share of collected payments kept as fee.
var DefaultFeeRate = decimal.RequireFromString("0.03")

// AgentTotal aggregates the payments of one agent.
type AgentTotal struct {
	Agent string          `json:"agent"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
	// References in the iteration order of the aggregated subset. Left nil
	// by RangeStats.
	References []string `json:"references,omitempty"`
}

// Stats is the aggregate view over a subset of payments.
type Stats struct {
	Total        decimal.Decimal       `json:"total"`
	Profit       decimal.Decimal       `json:"profit"`
	NetRemainder decimal.Decimal       `json:"net_remainder"`
	PerAgent     map[string]AgentTotal `json:"per_agent"`
}

// FilterByDate keeps the payments whose business date equals date. An empty
// date keeps everything.
func FilterByDate(ps []Payment, date string) []Payment {
	if date == "" {
		return ps
	}
	out := make([]Payment, 0, len(ps))
	for _, p := range ps {
		if p.BusinessDate() == date {
			out = append(out, p)
		}
	}
	return out
}

// ComputeStats aggregates ps with the given fee rate.
func ComputeStats(ps []Payment, feeRate decimal.Decimal) Stats {
	return aggregate(ps, feeRate, true)
}

// RangeStats aggregates every payment whose business date falls in
// [start, end], both inclusive. Per-agent reference lists are omitted.
func RangeStats(ps []Payment, start, end string, feeRate decimal.Decimal) (Stats, error) {
	if _, err := ParseBusinessDate(start); err != nil {
		return Stats{}, err
	}
	if _, err := ParseBusinessDate(end); err != nil {
		return Stats{}, err
	}
	if start > end {
		return Stats{}, ErrInvalidRange
	}

	in := make([]Payment, 0, len(ps))
	for _, p := range ps {
		// YYYY-MM-DD sorts lexically.
		if d := p.BusinessDate(); d >= start && d <= end {
			in = append(in, p)
		}
	}
	return aggregate(in, feeRate, false), nil
}

func aggregate(ps []Payment, feeRate decimal.Decimal, withRefs bool) Stats {
	total := decimal.Zero
	perAgent := make(map[string]AgentTotal)
	for _, p := range ps {
		total = total.Add(p.Amount)
		g := perAgent[p.Agent]
		g.Agent = p.Agent
		g.Total = g.Total.Add(p.Amount)
		g.Count++
		if withRefs {
			g.References = append(g.References, p.Reference)
		}
		perAgent[p.Agent] = g
	}
	profit := total.Mul(feeRate)
	return Stats{
		Total:        total,
		Profit:       profit,
		NetRemainder: total.Sub(profit),
		PerAgent:     perAgent,
	}
}
