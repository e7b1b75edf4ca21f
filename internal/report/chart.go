package report

import (
	"errors"
	"io"

	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"

	"pagos/internal/core"
)

// ErrNoData is returned by AgentChart when there is nothing to plot.
var ErrNoData = errors.New("no payments to plot")

// AgentChart renders per-agent totals as a PNG bar chart, in group order.
func AgentChart(w io.Writer, title string, groups []core.AgentTotal) error {
	if len(groups) == 0 {
		return ErrNoData
	}

	bars := make([]chart.Value, 0, len(groups))
	top := 0.0
	for _, g := range groups {
		v := g.Total.InexactFloat64()
		if v > top {
			top = v
		}
		bars = append(bars, chart.Value{Label: g.Agent, Value: v})
	}
	if top <= 0 {
		return ErrNoData
	}

	barChart := chart.BarChart{
		Title: title,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
		},
		Width:    800,
		Height:   400,
		BarWidth: 40,
		Bars:     bars,
	}
	// A fixed range keeps single-bar charts renderable.
	barChart.YAxis.Range = &chart.ContinuousRange{Min: 0, Max: top * 1.1}
	barChart.YAxis.ValueFormatter = func(v interface{}) string {
		if vf, ok := v.(float64); ok {
			return core.FormatNumber(decimal.NewFromFloat(vf))
		}
		return ""
	}

	return barChart.Render(chart.PNG, w)
}
