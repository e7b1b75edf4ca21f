package report

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"pagos/internal/core"
)

// SummaryTable writes the per-agent groups as a text table with a totals
// footer.
func SummaryTable(w io.Writer, groups []core.AgentTotal) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Agente", "Pagos", "Total"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})

	total := decimal.Zero
	count := 0
	for _, g := range groups {
		table.Append([]string{g.Agent, strconv.Itoa(g.Count), core.FormatNumber(g.Total)})
		total = total.Add(g.Total)
		count += g.Count
	}
	table.SetFooter([]string{"Total", strconv.Itoa(count), core.FormatNumber(total)})
	table.Render()
}
