// Package invoice numbers, renders and stores invoice documents.
package invoice

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// Line is one row of the invoice table.
type Line struct {
	Description string
	Plan        string
	Quantity    int
	UnitPrice   decimal.Decimal // plan adjusted
	Total       decimal.Decimal
}

// Document is everything printed on an invoice.
type Document struct {
	Number         string
	IssuedAt       time.Time
	CustomerEmail  string
	BillingAddress []string
	PaymentSummary string
	Currency       string
	Lines          []Line
	Subtotal       decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
}

// Renderer draws invoices as single-column A4 PDFs.
type Renderer struct {
	BusinessName    string
	BusinessAddress []string
}

func NewRenderer(businessName string, businessAddress ...string) *Renderer {
	return &Renderer{BusinessName: businessName, BusinessAddress: businessAddress}
}

// Render writes doc as PDF to w.
func (r *Renderer) Render(w io.Writer, doc Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Invoice %s", doc.Number), false)
	pdf.SetAuthor(r.BusinessName, false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(r.BusinessName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, l := range r.BusinessAddress {
		pdf.CellFormat(0, 4.5, tr(l), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "INVOICE", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, "Invoice number: "+doc.Number, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Date: "+doc.IssuedAt.Format("2006-01-02"), "", 1, "L", false, 0, "")
	if doc.PaymentSummary != "" {
		pdf.CellFormat(0, 5, tr("Paid with: "+doc.PaymentSummary), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 5, "Bill to", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if doc.CustomerEmail != "" {
		pdf.CellFormat(0, 5, tr(doc.CustomerEmail), "", 1, "L", false, 0, "")
	}
	for _, l := range doc.BillingAddress {
		pdf.CellFormat(0, 5, tr(l), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	widths := []float64{80, 30, 15, 30, 35}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range []string{"Product", "Plan", "Qty", "Unit price", "Amount"} {
		align := "L"
		if i >= 2 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 7, h, "B", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	cur := strings.ToUpper(doc.Currency)
	pdf.SetFont("Helvetica", "", 10)
	for _, l := range doc.Lines {
		pdf.CellFormat(widths[0], 6, tr(l.Description), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, l.Plan, "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, fmt.Sprintf("%d", l.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, money(l.UnitPrice, cur), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, money(l.Total, cur), "", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	label := widths[0] + widths[1] + widths[2] + widths[3]
	totals := []struct {
		name string
		amt  decimal.Decimal
		bold bool
	}{
		{"Subtotal", doc.Subtotal, false},
		{"Tax (20%)", doc.Tax, false},
		{"Total", doc.Total, true},
	}
	for _, t := range totals {
		style := ""
		if t.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(label, 6, t.name, "T", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, money(t.amt, cur), "T", 1, "R", false, 0, "")
	}

	return pdf.Output(w)
}

// RenderBytes is Render into memory.
func (r *Renderer) RenderBytes(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func money(d decimal.Decimal, currency string) string {
	return d.StringFixed(2) + " " + currency
}
