package core

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pay(id, agent, amount, ref string, ts time.Time) Payment {
	return Payment{ID: id, Agent: agent, Amount: dec(amount), Reference: ref, Timestamp: ts}
}

// day returns noon business time on the given date.
func day(date string) time.Time {
	d, err := ParseBusinessDate(date)
	if err != nil {
		panic(err)
	}
	return d.Add(12 * time.Hour)
}

func TestComputeStats_Scenario(t *testing.T) {
	ts := day("2025-03-10")
	ps := []Payment{
		pay("1", "X", "100", "a1", ts),
		pay("2", "X", "50", "a2", ts),
		pay("3", "Y", "30", "b1", ts),
	}

	s := ComputeStats(FilterByDate(ps, "2025-03-10"), DefaultFeeRate)

	if !s.Total.Equal(dec("180")) {
		t.Errorf("total = %s, want 180", s.Total)
	}
	if !s.Profit.Equal(dec("5.4")) {
		t.Errorf("profit = %s, want 5.4", s.Profit)
	}
	if !s.NetRemainder.Equal(dec("174.6")) {
		t.Errorf("net = %s, want 174.6", s.NetRemainder)
	}
	x := s.PerAgent["X"]
	if !x.Total.Equal(dec("150")) || x.Count != 2 {
		t.Errorf("X = %+v, want total 150 count 2", x)
	}
	if !reflect.DeepEqual(x.References, []string{"a1", "a2"}) {
		t.Errorf("X references = %v", x.References)
	}
	y := s.PerAgent["Y"]
	if !y.Total.Equal(dec("30")) || y.Count != 1 {
		t.Errorf("Y = %+v, want total 30 count 1", y)
	}
}

func TestComputeStats_Invariants(t *testing.T) {
	ps := []Payment{
		pay("1", "A", "12.35", "r1", day("2025-03-09")),
		pay("2", "B", "0.01", "r2", day("2025-03-10")),
		pay("3", "A", "999999.99", "r3", day("2025-03-10")),
		pay("4", "C", "7", "r4", day("2025-03-11")),
	}
	s := ComputeStats(ps, DefaultFeeRate)

	if !s.NetRemainder.Equal(s.Total.Sub(s.Profit)) {
		t.Errorf("net %s != total %s - profit %s", s.NetRemainder, s.Total, s.Profit)
	}
	if !s.Profit.Div(DefaultFeeRate).Equal(s.Total) {
		t.Errorf("profit / rate = %s, want %s", s.Profit.Div(DefaultFeeRate), s.Total)
	}

	sum := decimal.Zero
	count := 0
	for _, g := range s.PerAgent {
		sum = sum.Add(g.Total)
		count += g.Count
	}
	if !sum.Equal(s.Total) || count != len(ps) {
		t.Errorf("groups sum %s/%d, want %s/%d", sum, count, s.Total, len(ps))
	}

	// Recomputing from the same snapshot yields identical results.
	if again := ComputeStats(ps, DefaultFeeRate); !reflect.DeepEqual(s, again) {
		t.Errorf("recompute differs: %+v vs %+v", s, again)
	}
}

func TestFilterByDate(t *testing.T) {
	ps := []Payment{
		pay("1", "A", "1", "r1", day("2025-03-09")),
		pay("2", "A", "1", "r2", day("2025-03-10")),
		// 01:00 UTC on the 11th is still the 10th in business time.
		pay("3", "A", "1", "r3", time.Date(2025, 3, 11, 1, 0, 0, 0, time.UTC)),
	}

	got := FilterByDate(ps, "2025-03-10")
	if len(got) != 2 || got[0].ID != "2" || got[1].ID != "3" {
		t.Fatalf("filtered = %+v", got)
	}
	if len(FilterByDate(ps, "2025-04-01")) != 0 {
		t.Fatal("expected empty result for a date with no payments")
	}
	if len(FilterByDate(ps, "")) != len(ps) {
		t.Fatal("empty date must keep everything")
	}
}

func TestRangeStats(t *testing.T) {
	ps := []Payment{
		pay("1", "A", "10", "r1", day("2025-03-01")),
		pay("2", "B", "20", "r2", day("2025-03-05")),
		pay("3", "A", "30", "r3", day("2025-03-10")),
		pay("4", "A", "40", "r4", day("2025-03-11")),
	}

	s, err := RangeStats(ps, "2025-03-01", "2025-03-10", DefaultFeeRate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Total.Equal(dec("60")) {
		t.Errorf("total = %s, want 60", s.Total)
	}
	if a := s.PerAgent["A"]; a.Count != 2 || a.References != nil {
		t.Errorf("A = %+v, want count 2 and no references", a)
	}

	if _, err := RangeStats(ps, "2025-03-10", "2025-03-01", DefaultFeeRate); err != ErrInvalidRange {
		t.Errorf("reversed range error = %v, want ErrInvalidRange", err)
	}
	if _, err := RangeStats(ps, "bad", "2025-03-01", DefaultFeeRate); err == nil {
		t.Error("expected error for malformed start date")
	}
}

func TestFilterHistory(t *testing.T) {
	ts := day("2025-03-10")
	ps := []Payment{
		pay("1", "Liam", "150.5", "7788", ts),
		pay("2", "Agente 4", "20", "1500", ts),
		pay("3", "Teffy y Ceci", "33", "9090", ts),
	}
	cases := []struct {
		term string
		want []string
	}{
		{"", []string{"1", "2", "3"}},
		{"LIAM", []string{"1"}},
		{"150", []string{"1", "2"}},
		{"90", []string{"3"}},
		{"zzz", nil},
	}
	for _, tc := range cases {
		var ids []string
		for _, p := range FilterHistory(ps, tc.term) {
			ids = append(ids, p.ID)
		}
		if !reflect.DeepEqual(ids, tc.want) {
			t.Errorf("FilterHistory(%q) = %v, want %v", tc.term, ids, tc.want)
		}
	}
}

func TestFilterSummary(t *testing.T) {
	ts := day("2025-03-10")
	ps := []Payment{
		pay("1", "Liam", "150", "7788", ts),
		pay("2", "Agente 4", "20", "1500", ts),
	}
	// Amounts are not searched by the summary view.
	if got := FilterSummary(ps, "150"); len(got) != 1 || got[0].ID != "2" {
		t.Errorf("FilterSummary(150) = %+v", got)
	}
	if got := FilterSummary(ps, "agente"); len(got) != 1 || got[0].ID != "2" {
		t.Errorf("FilterSummary(agente) = %+v", got)
	}
}

func TestSummaryGroups(t *testing.T) {
	ts := day("2025-03-10")
	ps := []Payment{
		pay("1", "B", "10", "1111", ts),
		pay("2", "A", "50", "2222", ts),
		pay("3", "C", "10", "3333", ts),
		pay("4", "B", "5", "4444", ts),
	}
	s := ComputeStats(ps, DefaultFeeRate)

	var order []string
	for _, g := range SummaryGroups(s, "") {
		order = append(order, g.Agent)
	}
	if !reflect.DeepEqual(order, []string{"A", "B", "C"}) {
		t.Errorf("order = %v, want [A B C]", order)
	}

	got := SummaryGroups(s, "444")
	if len(got) != 1 || got[0].Agent != "B" {
		t.Errorf("reference match = %+v, want B", got)
	}
}
