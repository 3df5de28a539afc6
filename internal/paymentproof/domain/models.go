// Package domain contains tenant-submitted payment proof models. Proofs are
// evidence only; invoice state changes exclusively through the payment
// ledger, which verifies pending proofs as a side effect.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ProofStatus represents payment proof review states.
type ProofStatus string

const (
	ProofStatusPending  ProofStatus = "PENDING"
	ProofStatusVerified ProofStatus = "VERIFIED"
	ProofStatusRejected ProofStatus = "REJECTED"
)

// PaymentProof is a tenant-submitted payment claim.
type PaymentProof struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	Ref        string        `gorm:"type:text;not null;uniqueIndex" json:"ref"`
	TenantID   snowflake.ID  `gorm:"not null;index" json:"tenant_id"`
	InvoiceID  *snowflake.ID `gorm:"index" json:"invoice_id"`
	Amount     int64         `gorm:"not null" json:"amount"`
	Note       string        `gorm:"type:text" json:"note"`
	FileURL    string        `gorm:"type:text" json:"file_url"`
	Status     ProofStatus   `gorm:"type:text;not null;default:'PENDING';index" json:"status"`
	VerifiedAt *time.Time    `json:"verified_at"`
	CreatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (PaymentProof) TableName() string { return "payment_proofs" }

type SubmitProofRequest struct {
	TenantID  string `json:"tenant_id"`
	InvoiceID string `json:"invoice_id"`
	Amount    int64  `json:"amount"`
	Note      string `json:"note"`
	FileURL   string `json:"file_url"`
}

type Service interface {
	Submit(ctx context.Context, req SubmitProofRequest) (PaymentProof, error)
	ListByTenant(ctx context.Context, tenantID string) ([]PaymentProof, error)
}

var (
	ErrInvalidTenant  = errors.New("invalid_tenant_id")
	ErrInvalidInvoice = errors.New("invalid_invoice_id")
	ErrInvalidAmount  = errors.New("invalid_amount")
)
