package google

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pagos/internal/sheets"
)

func TestRowForDate(t *testing.T) {
	values := [][]interface{}{
		{"Fecha"},
		{"2025-03-08"},
		{},
		{" 2025-03-10 "},
	}

	tests := []struct {
		date      string
		wantRow   int
		wantFound bool
	}{
		{"2025-03-08", 2, true},
		{"2025-03-10", 4, true},
		{"2025-03-11", 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			row, found := rowForDate(values, tt.date)
			if row != tt.wantRow || found != tt.wantFound {
				t.Errorf("rowForDate(%q) = %d, %v; want %d, %v", tt.date, row, found, tt.wantRow, tt.wantFound)
			}
		})
	}
}

func TestSummaryRow(t *testing.T) {
	row := summaryRow(sheets.DailySummary{
		Date:  "2025-03-10",
		Total: decimal.RequireFromString("1000.5"),
		Fee:   decimal.RequireFromString("30.015"),
		Net:   decimal.RequireFromString("970.485"),
		Count: 3,
	})
	want := []interface{}{"2025-03-10", "1000.50", "30.02", "970.49", 3}
	if len(row) != len(want) {
		t.Fatalf("row = %v", row)
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("cell %d = %v, want %v", i, row[i], want[i])
		}
	}
	if len(summaryHeader()) != len(row) {
		t.Error("header and row widths differ")
	}
}

func TestClosingRow(t *testing.T) {
	closedAt := time.Date(2025, 3, 11, 1, 0, 0, 0, time.UTC)
	row := closingRow(sheets.Closing{Report: "REPORTE", ClosedAt: closedAt})
	if row[0] != "todo" {
		t.Errorf("date cell = %v, want todo", row[0])
	}
	if row[5] != "2025-03-11T01:00:00Z" || row[6] != "REPORTE" {
		t.Errorf("row = %v", row)
	}
}

func TestLastColumn(t *testing.T) {
	for n, want := range map[int]string{0: "A", 1: "A", 5: "E", 7: "G", 40: "Z"} {
		if got := lastColumn(n); got != want {
			t.Errorf("lastColumn(%d) = %q, want %q", n, got, want)
		}
	}
}
