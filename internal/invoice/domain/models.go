// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPartial InvoiceStatus = "PARTIAL"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
	InvoiceStatusRevoked InvoiceStatus = "REVOKED"
)

// Unpaid reports whether the status still carries an open balance that a
// later generation cycle must roll forward.
func (s InvoiceStatus) Unpaid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPartial, InvoiceStatusOverdue:
		return true
	default:
		return false
	}
}

// UnpaidStatuses are the states subject to balance rollover.
var UnpaidStatuses = []InvoiceStatus{
	InvoiceStatusPending,
	InvoiceStatusPartial,
	InvoiceStatusOverdue,
}

// Invoice is the durable record produced by the generator and settled by
// the payment ledger. All money fields are minor currency units; meter
// readings keep their metered precision.
type Invoice struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceNumber string       `gorm:"type:text;not null;uniqueIndex" json:"invoice_number"`
	TenantID      snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	RoomID        snowflake.ID `gorm:"not null;index" json:"room_id"`

	RentPeriod    string `gorm:"type:text;not null" json:"rent_period"`
	UtilityPeriod string `gorm:"type:text;not null" json:"utility_period"`

	WaterPrev float64 `gorm:"not null;default:0" json:"water_prev"`
	WaterCurr float64 `gorm:"not null;default:0" json:"water_curr"`
	ElecPrev  float64 `gorm:"not null;default:0" json:"elec_prev"`
	ElecCurr  float64 `gorm:"not null;default:0" json:"elec_curr"`

	RentAmount  int64 `gorm:"not null;default:0" json:"rent_amount"`
	WaterCost   int64 `gorm:"not null;default:0" json:"water_cost"`
	ElecCost    int64 `gorm:"not null;default:0" json:"elec_cost"`
	Penalty     int64 `gorm:"not null;default:0" json:"penalty"`
	PrevBalance int64 `gorm:"not null;default:0" json:"prev_balance"`
	Credit      int64 `gorm:"not null;default:0" json:"credit"`
	TotalAmount int64 `gorm:"not null;default:0" json:"total_amount"`
	AmountPaid  int64 `gorm:"not null;default:0" json:"amount_paid"`

	Status    InvoiceStatus `gorm:"type:text;not null;default:'PENDING';index" json:"status"`
	DueAt     *time.Time    `gorm:"index" json:"due_at"`
	PaidAt    *time.Time    `json:"paid_at"`
	RevokedAt *time.Time    `json:"revoked_at"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Remaining is the unpaid balance on the invoice.
func (i Invoice) Remaining() int64 {
	remaining := i.TotalAmount - i.AmountPaid
	if remaining < 0 {
		return 0
	}
	return remaining
}
