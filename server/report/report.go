// Package report builds traffic monitoring reports from the live pipeline
// state, exported as JSON or PDF.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"codeberg.org/go-pdf/fpdf"
	"github.com/vigiacam/vigia/pkg/analytics"
	"github.com/vigiacam/vigia/pkg/colorclass"
	"github.com/vigiacam/vigia/pkg/counter"
	"github.com/vigiacam/vigia/pkg/gen"
	"github.com/vigiacam/vigia/server/monitor"
)

// Report is the exportable snapshot of a monitoring session.
type Report struct {
	GeneratedAt       time.Time                `json:"generatedAt"`
	Counting          counter.Stats            `json:"counting"`
	Records           []counter.VehicleRecord  `json:"records"`
	ColorDistribution map[colorclass.Color]int `json:"colorDistribution"`
	MostCommonColor   colorclass.Color         `json:"mostCommonColor"` // "" when nothing was counted
	Summary           analytics.Summary        `json:"summary"`
	Alerts            []analytics.Alert        `json:"alerts"`
}

// Build assembles a report from the monitor's current state.
func Build(m *monitor.Monitor) *Report {
	records := m.Records()
	colors := make([]colorclass.Color, 0, len(records))
	for _, rec := range records {
		colors = append(colors, rec.Color)
	}
	mostCommon, _ := gen.Mode(colors)
	return &Report{
		GeneratedAt:       time.Now(),
		Counting:          m.CountingStats(),
		Records:           records,
		ColorDistribution: m.ColorDistribution(),
		MostCommonColor:   mostCommon,
		Summary:           m.Summary(),
		Alerts:            m.RecentAlerts(50),
	}
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WritePDF renders the report as an A4 PDF.
func (r *Report) WritePDF(w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Relatorio de Monitoramento de Trafego", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Gerado em "+r.GeneratedAt.Format("2006-01-02 15:04:05"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	r.pdfTotals(pdf)
	r.pdfTallyTable(pdf, "Por cor", colorTallyRows(r.Counting.ByColor))
	r.pdfTallyTable(pdf, "Por tipo", typeTallyRows(r.Counting.ByType))
	r.pdfSummary(pdf)
	r.pdfAlerts(pdf)

	return pdf.Output(w)
}

func (r *Report) pdfTotals(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Contagem", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Entrada: %v    Saida: %v    Total: %v",
		r.Counting.TotalEntrada, r.Counting.TotalSaida, r.Counting.TotalGeral), "", 1, "L", false, 0, "")
	if r.MostCommonColor != "" {
		pdf.CellFormat(0, 6, "Cor mais comum: "+colorclass.DisplayName(r.MostCommonColor), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
}

type tallyRow struct {
	label string
	tally counter.DirectionTally
}

func sortRows(rows []tallyRow) {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].label < rows[j].label
	})
}

func colorTallyRows(byColor map[colorclass.Color]counter.DirectionTally) []tallyRow {
	rows := make([]tallyRow, 0, len(byColor))
	for color, tally := range byColor {
		rows = append(rows, tallyRow{colorclass.DisplayName(color), tally})
	}
	sortRows(rows)
	return rows
}

func typeTallyRows(byType map[string]counter.DirectionTally) []tallyRow {
	rows := make([]tallyRow, 0, len(byType))
	for vehicleType, tally := range byType {
		rows = append(rows, tallyRow{vehicleType, tally})
	}
	sortRows(rows)
	return rows
}

func (r *Report) pdfTallyTable(pdf *fpdf.Fpdf, title string, rows []tallyRow) {
	if len(rows) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(60, 6, "", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 6, "Entrada", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Saida", "1", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		pdf.CellFormat(60, 6, row.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%v", row.tally.Entrada), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%v", row.tally.Saida), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(2)
}

func (r *Report) pdfSummary(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Analise", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Velocidade media: %.1f km/h", r.Summary.AverageSpeedKmh), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Tempo medio na area: %.1f s", r.Summary.AverageDwellTimeS), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Fluxo: %.1f veiculos/min", r.Summary.FlowRatePerMinute), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Densidade: "+string(r.Summary.TrafficDensity), "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func (r *Report) pdfAlerts(pdf *fpdf.Fpdf) {
	if len(r.Alerts) == 0 {
		return
	}
	// Alert messages are Portuguese with accented characters, which the
	// built-in fonts only cover via the cp1252 translator.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Alertas", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, a := range r.Alerts {
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("[%v] %v", a.Severity, a.Message)), "", 1, "L", false, 0, "")
	}
}
