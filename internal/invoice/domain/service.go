package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/roomledger/pkg/db/pagination"
)

type GenerateInvoiceRequest struct {
	TenantID        string  `json:"tenant_id"`
	WaterCurrent    float64 `json:"water_current"`
	ElectricCurrent float64 `json:"electric_current"`
	Penalty         int64   `json:"penalty"`
	PrevBalance     int64   `json:"prev_balance"`
	Credit          int64   `json:"credit"`
	RentPeriod      string  `json:"rent_period"`
	UtilityPeriod   string  `json:"utility_period"`
}

type RecordPaymentRequest struct {
	// Ref accepts either the opaque invoice id or the invoice number.
	Ref    string `json:"ref"`
	Amount int64  `json:"amount"`
}

type RecordPaymentResponse struct {
	InvoiceID     string        `json:"invoice_id"`
	InvoiceNumber string        `json:"invoice_number"`
	AmountPaid    int64         `json:"amount_paid"`
	TotalAmount   int64         `json:"total_amount"`
	Status        InvoiceStatus `json:"status"`
}

// UpdateInvoiceRequest carries the administrative edit of cost fields.
// Nil fields are left untouched; the total is always recomputed.
type UpdateInvoiceRequest struct {
	RentAmount  *int64 `json:"rent_amount"`
	WaterCost   *int64 `json:"water_cost"`
	ElecCost    *int64 `json:"elec_cost"`
	Penalty     *int64 `json:"penalty"`
	PrevBalance *int64 `json:"prev_balance"`
	Credit      *int64 `json:"credit"`
}

type ListInvoiceRequest struct {
	pagination.Pagination
	Status   *InvoiceStatus
	TenantID *string
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type Service interface {
	Generate(ctx context.Context, req GenerateInvoiceRequest) (Invoice, error)
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (RecordPaymentResponse, error)
	Update(ctx context.Context, id string, req UpdateInvoiceRequest) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	MarkOverdue(ctx context.Context, before time.Time) (int64, error)
}

var (
	ErrTenantNotFound         = errors.New("tenant_not_found")
	ErrRoomNotAssigned        = errors.New("room_not_assigned")
	ErrInvalidMeterReading    = errors.New("invalid_meter_reading")
	ErrInvalidAmount          = errors.New("invalid_amount")
	ErrInvalidInvoiceID       = errors.New("invalid_invoice_id")
	ErrInvoiceNotFound        = errors.New("invoice_not_found")
	ErrInvoiceRevoked         = errors.New("invoice_revoked")
	ErrInvalidPageToken       = errors.New("invalid_page_token")
	ErrDuplicateInvoiceNumber = errors.New("duplicate_invoice_number")
)
