package invoice

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/seu-repo/handover-engine/internal/domain"
	"github.com/seu-repo/handover-engine/internal/ports"
)

// Renderer produces a PDF invoice for a booking whose bill is final.
type Renderer struct {
	issuer   string
	currency string
}

func NewRenderer(issuer, currency string) *Renderer {
	if issuer == "" {
		issuer = "Handover Engine"
	}
	return &Renderer{issuer: issuer, currency: strings.ToUpper(currency)}
}

var _ ports.InvoiceRenderer = (*Renderer)(nil)

func (r *Renderer) Render(b *domain.Booking) ([]byte, error) {
	if !b.Billing.IsFinal {
		return nil, domain.NewBookingError(domain.ErrPreconditionFailed, b, "invoice requires a final bill")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+b.ID, false)
	pdf.SetAuthor(r.issuer, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "INVOICE")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	r.line(pdf, "Invoice no", invoiceNumber(b))
	r.line(pdf, "Issued by", r.issuer)
	r.line(pdf, "Booking", b.ID)
	r.line(pdf, "Vehicle", b.VehicleID)
	r.line(pdf, "Customer", b.CustomerID)
	r.line(pdf, "Status", string(b.Status))
	if b.ActualWindow.Start != nil {
		r.line(pdf, "Picked up", b.ActualWindow.Start.Format(time.RFC1123))
	}
	if b.ActualWindow.End != nil {
		r.line(pdf, "Dropped off", b.ActualWindow.End.Format(time.RFC1123))
	}
	pdf.Ln(6)

	plan := b.RatePlan
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Charges")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(95, 7, "Description", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 7, "Qty", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, "Rate", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Amount", "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	timeCharge := plan.PerTimeUnitRate * domain.Money(b.Billing.TimeUnits)
	distanceCharge := plan.PerDistanceRate * domain.Money(b.Billing.Distance)
	r.row(pdf, fmt.Sprintf("Time (%d min units)", plan.TimeUnitMinutes), fmt.Sprint(b.Billing.TimeUnits), plan.PerTimeUnitRate.String(), timeCharge)
	r.row(pdf, "Distance", fmt.Sprint(b.Billing.Distance), plan.PerDistanceRate.String(), distanceCharge)
	if b.Billing.Subtotal > timeCharge+distanceCharge {
		r.row(pdf, "Minimum charge adjustment", "", "", b.Billing.Subtotal-timeCharge-distanceCharge)
	}
	pdf.Ln(2)

	r.total(pdf, "Subtotal", b.Billing.Subtotal, false)
	r.total(pdf, "Tax ("+strconv.FormatFloat(plan.TaxPercent, 'f', -1, 64)+"%)", b.Billing.Tax, false)
	r.total(pdf, "Total", b.Billing.Total, true)
	pdf.Ln(6)

	if len(b.Payments) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, "Payments")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		for _, p := range b.Payments {
			desc := fmt.Sprintf("%s  %s", p.CollectedAt.Format("2006-01-02 15:04"), p.Mode)
			if p.Reference != "" {
				desc += "  " + p.Reference
			}
			pdf.CellFormat(155, 6, desc, "", 0, "L", false, 0, "")
			pdf.CellFormat(35, 6, r.money(p.Amount), "", 1, "R", false, 0, "")
		}
		pdf.Ln(2)
	}

	r.total(pdf, "Amount paid", b.AmountPaid(), false)
	r.total(pdf, "Balance due", b.BalanceDue(), true)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename is the suggested download name for a booking's invoice.
func Filename(b *domain.Booking) string {
	return invoiceNumber(b) + ".pdf"
}

func invoiceNumber(b *domain.Booking) string {
	id := b.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return "INV-" + strings.ToUpper(id)
}

func (r *Renderer) line(pdf *gofpdf.Fpdf, label, value string) {
	pdf.CellFormat(35, 6, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
}

func (r *Renderer) row(pdf *gofpdf.Fpdf, desc, qty, rate string, amount domain.Money) {
	pdf.CellFormat(95, 6, desc, "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 6, qty, "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 6, rate, "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, r.money(amount), "1", 1, "R", false, 0, "")
}

func (r *Renderer) total(pdf *gofpdf.Fpdf, label string, amount domain.Money, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	pdf.SetFont("Helvetica", style, 11)
	pdf.CellFormat(155, 7, label, "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, r.money(amount), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
}

func (r *Renderer) money(m domain.Money) string {
	if r.currency == "" {
		return m.String()
	}
	return r.currency + " " + m.String()
}
