package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pagos/internal/core"
)

func sampleStats() (core.Stats, []core.AgentTotal) {
	ts := time.Date(2025, 3, 10, 14, 30, 0, 0, core.BusinessZone)
	ps := []core.Payment{
		{ID: "1", Agent: "Liam", Amount: decimal.NewFromInt(1000), Reference: "1111", Timestamp: ts},
		{ID: "2", Agent: "Liam", Amount: decimal.NewFromInt(500), Reference: "2222", Timestamp: ts},
		{ID: "3", Agent: "Andrés", Amount: decimal.NewFromInt(200), Reference: "3333", Timestamp: ts},
	}
	stats := core.ComputeStats(ps, core.DefaultFeeRate)
	return stats, core.SummaryGroups(stats, "")
}

func TestClosingText(t *testing.T) {
	stats, groups := sampleStats()

	got := ClosingText("2025-03-10", core.DefaultFeeRate, stats, groups)
	want := "REPORTE 2025-03-10\n\n" +
		"Total: Bs. 1.700,00\n" +
		"Honorarios (3%): Bs. 51,00\n" +
		"A Pasar (USDT): Bs. 1.649,00\n\n" +
		"Detalle:\n" +
		"- Liam: Bs. 1.500,00 (2 pagos)\n" +
		"- Andrés: Bs. 200,00 (1 pagos)"
	if got != want {
		t.Errorf("ClosingText() =\n%s\nwant\n%s", got, want)
	}
}

func TestClosingText_NoGroups(t *testing.T) {
	got := ClosingText("2025-03-10", core.DefaultFeeRate, core.Stats{}, nil)
	if !strings.HasSuffix(got, "Detalle:") {
		t.Errorf("ClosingText() = %q, want empty detail section", got)
	}
}

func TestFeeLabel(t *testing.T) {
	tests := []struct {
		rate string
		want string
	}{
		{"0.03", "Honorarios (3%)"},
		{"0.025", "Honorarios (2.5%)"},
		{"0.1", "Honorarios (10%)"},
	}
	for _, tt := range tests {
		if got := FeeLabel(decimal.RequireFromString(tt.rate)); got != tt.want {
			t.Errorf("FeeLabel(%s) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("2025-03-10"); got != "reporte-2025-03-10.pdf" {
		t.Errorf("FileName() = %q", got)
	}
	if got := FileName(""); got != "reporte-todo.pdf" {
		t.Errorf("FileName(\"\") = %q", got)
	}
}

func TestSummaryTable(t *testing.T) {
	_, groups := sampleStats()
	var buf bytes.Buffer
	SummaryTable(&buf, groups)

	out := buf.String()
	for _, want := range []string{"Agente", "Liam", "Andrés", "1.500,00", "1.700,00"} {
		if !strings.Contains(out, want) {
			t.Errorf("SummaryTable output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Liam") > strings.Index(out, "Andrés") {
		t.Error("SummaryTable should keep group order")
	}
}

func TestAgentChart(t *testing.T) {
	_, groups := sampleStats()

	t.Run("renders png", func(t *testing.T) {
		var buf bytes.Buffer
		if err := AgentChart(&buf, "Pagos", groups); err != nil {
			t.Fatalf("AgentChart() error = %v", err)
		}
		if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
			t.Error("AgentChart() did not write a PNG")
		}
	})

	t.Run("single bar", func(t *testing.T) {
		var buf bytes.Buffer
		if err := AgentChart(&buf, "Pagos", groups[:1]); err != nil {
			t.Fatalf("AgentChart() error = %v", err)
		}
	})

	t.Run("no data", func(t *testing.T) {
		var buf bytes.Buffer
		if err := AgentChart(&buf, "Pagos", nil); !errors.Is(err, ErrNoData) {
			t.Errorf("AgentChart() error = %v, want ErrNoData", err)
		}
		if buf.Len() != 0 {
			t.Error("AgentChart() wrote output without data")
		}
	})
}

func TestPDF(t *testing.T) {
	stats, _ := sampleStats()
	ts := time.Date(2025, 3, 10, 9, 0, 0, 0, core.BusinessZone)

	// Enough rows to span several pages.
	var ps []core.Payment
	for i := 0; i < 120; i++ {
		ps = append(ps, core.Payment{Agent: "Andrés", Reference: "12345", Amount: decimal.NewFromInt(10), Timestamp: ts})
	}

	var buf bytes.Buffer
	err := PDF(&buf, Document{
		Title:       "Reporte de pagos",
		Date:        "2025-03-10",
		FeeRate:     core.DefaultFeeRate,
		Stats:       stats,
		Payments:    ps,
		GeneratedAt: ts,
	})
	if err != nil {
		t.Fatalf("PDF() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatal("PDF() output is not a PDF")
	}

	buf.Reset()
	if err := PDF(&buf, Document{Title: "Reporte de pagos"}); err != nil {
		t.Fatalf("PDF() empty error = %v", err)
	}
}
