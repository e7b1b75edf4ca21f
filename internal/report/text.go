// Package report renders ledger state for people: the closing text, a PDF
// of the filtered payments, a per-agent bar chart and a plain-text table.
package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"pagos/internal/core"
)

// FeeLabel names the fee column, e.g. "Honorarios (3%)".
func FeeLabel(feeRate decimal.Decimal) string {
	return fmt.Sprintf("Honorarios (%s%%)", feeRate.Shift(2).String())
}

// ClosingText is the closing report copied to the clipboard before the
// payments are cleared.
func ClosingText(date string, feeRate decimal.Decimal, stats core.Stats, groups []core.AgentTotal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "REPORTE %s\n\n", date)
	fmt.Fprintf(&b, "Total: %s\n", core.FormatBs(stats.Total))
	fmt.Fprintf(&b, "%s: %s\n", FeeLabel(feeRate), core.FormatBs(stats.Profit))
	fmt.Fprintf(&b, "A Pasar (USDT): %s\n\n", core.FormatBs(stats.NetRemainder))
	b.WriteString("Detalle:")
	for _, g := range groups {
		fmt.Fprintf(&b, "\n- %s: %s (%d pagos)", g.Agent, core.FormatBs(g.Total), g.Count)
	}
	return b.String()
}
