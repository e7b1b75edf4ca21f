package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"pagos/internal/core"
)

// Document is the input of PDF: the filtered payments and their stats.
type Document struct {
	Title string
	// Date is the active filter; empty means every date.
	Date        string
	FeeRate     decimal.Decimal
	Stats       core.Stats
	Payments    []core.Payment
	GeneratedAt time.Time
}

// FileName is the download name for a report filtered by date.
func FileName(date string) string {
	if date == "" {
		return "reporte-todo.pdf"
	}
	return "reporte-" + date + ".pdf"
}

var columns = []struct {
	title string
	width float64
	align string
}{
	{"Agente", 60, "L"},
	{"Referencia", 45, "L"},
	{"Hora", 30, "C"},
	{"Monto", 45, "R"},
}

const (
	rowHeight    = 7.0
	bottomMargin = 20.0
)

// PDF writes an A4 report. The payment table continues over as many pages
// as needed and repeats its header on each.
func PDF(w io.Writer, doc Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(doc.Title, true)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("%d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.SetAutoPageBreak(false, bottomMargin)
	pdf.AddPage()

	filter := doc.Date
	if filter == "" {
		filter = "Todas las fechas"
	}
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr("Fecha: "+filter), "", 1, "L", false, 0, "")
	if !doc.GeneratedAt.IsZero() {
		pdf.CellFormat(0, 6, tr("Generado: "+doc.GeneratedAt.In(core.BusinessZone).Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	totals := [][2]string{
		{"Total", core.FormatBs(doc.Stats.Total)},
		{FeeLabel(doc.FeeRate), core.FormatBs(doc.Stats.Profit)},
		{"A Pasar (USDT)", core.FormatBs(doc.Stats.NetRemainder)},
	}
	for _, t := range totals {
		pdf.CellFormat(60, 7, tr(t[0]), "", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, tr(t[1]), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	_, pageHeight := pdf.GetPageSize()
	tableHeader(pdf, tr)
	pdf.SetFont("Helvetica", "", 10)
	for _, p := range doc.Payments {
		if pdf.GetY()+rowHeight > pageHeight-bottomMargin {
			pdf.AddPage()
			tableHeader(pdf, tr)
			pdf.SetFont("Helvetica", "", 10)
		}
		cells := []string{p.Agent, p.Reference, core.TimeOfDay(p.Timestamp), core.FormatNumber(p.Amount)}
		for i, c := range columns {
			pdf.CellFormat(c.width, rowHeight, tr(cells[i]), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(doc.Payments) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, rowHeight, "Sin pagos", "", 1, "L", false, 0, "")
	}

	return pdf.Output(w)
}

func tableHeader(pdf *fpdf.Fpdf, tr func(string) string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range columns {
		pdf.CellFormat(c.width, rowHeight, tr(c.title), "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)
}
