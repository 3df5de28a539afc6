// Package render produces printable invoice documents.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/roomledger/internal/billingperiod"
	invoicedomain "github.com/smallbiznis/roomledger/internal/invoice/domain"
	tenantdomain "github.com/smallbiznis/roomledger/internal/tenant/domain"
)

// InvoiceData is the flattened view handed to the PDF layout.
type InvoiceData struct {
	Invoice invoicedomain.Invoice
	Tenant  tenantdomain.Tenant
	Room    tenantdomain.Room
}

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderInvoice lays out a single-page rent invoice.
func (r *Renderer) RenderInvoice(ctx context.Context, data InvoiceData) (io.Reader, error) {
	inv := data.Invoice

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Invoice", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Invoice number: "+inv.InvoiceNumber, props.Text{Top: 0}),
			text.New("Date of issue: "+inv.CreatedAt.Format("Jan 2, 2006"), props.Text{Top: 4}),
			text.New("Date due: "+formatDate(inv.DueAt), props.Text{Top: 8}),
			text.New("Rent period: "+periodLabel(inv.RentPeriod), props.Text{Top: 12}),
			text.New("Utility period: "+periodLabel(inv.UtilityPeriod), props.Text{Top: 16}),
		),
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(data.Tenant.Name, props.Text{Top: 5}),
			text.New("Room "+data.Room.Code, props.Text{Top: 9}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, formatAmount(inv.Remaining())+" due "+formatDate(inv.DueAt), props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(8, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, line := range invoiceLines(inv) {
		m.AddRow(8,
			text.NewCol(8, line.description, props.Text{Size: 9}),
			text.NewCol(4, line.amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(6),
		text.NewCol(3, "Total", props.Text{Size: 9}),
		text.NewCol(3, formatAmount(inv.TotalAmount), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(6),
		text.NewCol(3, "Amount paid", props.Text{Size: 9}),
		text.NewCol(3, formatAmount(inv.AmountPaid), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(6),
		text.NewCol(3, "Amount due", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, formatAmount(inv.Remaining()), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

type invoiceLine struct {
	description string
	amount      string
}

func invoiceLines(inv invoicedomain.Invoice) []invoiceLine {
	lines := []invoiceLine{
		{"Room rent", formatAmount(inv.RentAmount)},
		{fmt.Sprintf("Water (%s -> %s)", formatReading(inv.WaterPrev), formatReading(inv.WaterCurr)), formatAmount(inv.WaterCost)},
		{fmt.Sprintf("Electricity (%s -> %s)", formatReading(inv.ElecPrev), formatReading(inv.ElecCurr)), formatAmount(inv.ElecCost)},
	}
	if inv.Penalty > 0 {
		lines = append(lines, invoiceLine{"Penalty", formatAmount(inv.Penalty)})
	}
	if inv.PrevBalance > 0 {
		lines = append(lines, invoiceLine{"Previous balance", formatAmount(inv.PrevBalance)})
	}
	if inv.Credit > 0 {
		lines = append(lines, invoiceLine{"Credit", "-" + formatAmount(inv.Credit)})
	}
	return lines
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("Jan 2, 2006")
}

func periodLabel(raw string) string {
	period, err := billingperiod.Parse(raw)
	if err != nil {
		return raw
	}
	return period.Label()
}

func formatReading(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

// formatAmount renders minor units with thousands separators.
func formatAmount(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := fmt.Sprintf("%d", v)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
		if len(digits) > lead {
			b.WriteByte(',')
		}
	}
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteByte(',')
		}
	}
	return b.String()
}
