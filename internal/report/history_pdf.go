// Package report renders the hospital's SOS case history as a PDF.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"SOSDesk/internal/models"

	"github.com/jung-kurt/gofpdf"
)

type column struct {
	title string
	width float64
	value func(h models.HistoryEntry, now time.Time) string
}

var columns = []column{
	{"Case", 22, func(h models.HistoryEntry, _ time.Time) string { return h.SOSID.String() }},
	{"Patient", 42, func(h models.HistoryEntry, _ time.Time) string { return h.Name }},
	{"Gender", 18, func(h models.HistoryEntry, _ time.Time) string { return h.Gender }},
	{"Age", 12, func(h models.HistoryEntry, now time.Time) string {
		if age, ok := h.Age(now); ok {
			return strconv.Itoa(age)
		}
		return "-"
	}},
	{"Blood", 14, func(h models.HistoryEntry, _ time.Time) string { return h.BloodGroup }},
	{"Phone", 32, func(h models.HistoryEntry, _ time.Time) string { return h.PhoneNumber }},
	{"Received", 40, func(h models.HistoryEntry, _ time.Time) string { return h.CreatedAt }},
}

// WriteHistory writes a one-table PDF of the given cases to w.
func WriteHistory(w io.Writer, hospital string, rows []models.HistoryEntry, now time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("SOS history - "+hospital, true)
	pdf.SetCreator("SOSDesk", true)
	pdf.SetCreationDate(now)
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 8, tr("Emergency history - "+hospital), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 5, fmt.Sprintf("Generated %s, %d cases", now.Format("2006-01-02 15:04"), len(rows)), "", 1, "L", false, 0, "")
		pdf.Ln(3)

		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(220, 53, 69)
		pdf.SetTextColor(255, 255, 255)
		for _, c := range columns {
			pdf.CellFormat(c.width, 7, c.title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 9)

	if len(rows) == 0 {
		pdf.CellFormat(0, 8, "No emergency cases recorded.", "", 1, "L", false, 0, "")
	}
	for i, row := range rows {
		fill := i%2 == 1
		pdf.SetFillColor(245, 245, 245)
		for _, c := range columns {
			pdf.CellFormat(c.width, 6, tr(c.value(row, now)), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render history pdf: %w", err)
	}
	return nil
}
