package google

import (
	"fmt"
	"strings"

	"pagos/internal/sheets"
)

func summaryHeader() []interface{} {
	return []interface{}{"Fecha", "Total", "Honorarios", "Neto", "Pagos"}
}

func summaryRow(s sheets.DailySummary) []interface{} {
	return []interface{}{s.Date, s.Total.StringFixed(2), s.Fee.StringFixed(2), s.Net.StringFixed(2), s.Count}
}

// rowForDate returns the 1-based row whose first cell equals date, or the
// row after the last one when date is absent.
func rowForDate(values [][]interface{}, date string) (row int, found bool) {
	for i, r := range values {
		if len(r) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(r[0])) == date {
			return i + 1, true
		}
	}
	return len(values) + 1, false
}

// lastColumn returns the letter of the n-th column, n in 1..26.
func lastColumn(n int) string {
	if n < 1 {
		n = 1
	}
	if n > 26 {
		n = 26
	}
	return string(rune('A' + n - 1))
}
