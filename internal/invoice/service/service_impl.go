package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/roomledger/internal/audit/domain"
	"github.com/smallbiznis/roomledger/internal/billingperiod"
	"github.com/smallbiznis/roomledger/internal/clock"
	"github.com/smallbiznis/roomledger/internal/config"
	invoicedomain "github.com/smallbiznis/roomledger/internal/invoice/domain"
	"github.com/smallbiznis/roomledger/internal/observability/metrics"
	proofdomain "github.com/smallbiznis/roomledger/internal/paymentproof/domain"
	rateconfigdomain "github.com/smallbiznis/roomledger/internal/rateconfig/domain"
	tenantdomain "github.com/smallbiznis/roomledger/internal/tenant/domain"
	"github.com/smallbiznis/roomledger/pkg/db"
	"github.com/smallbiznis/roomledger/pkg/db/pagination"
	"github.com/smallbiznis/roomledger/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Cfg      config.Config
	AuditSvc auditdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	cfg     config.Config
	audit   auditdomain.Service
	metrics *metrics.Metrics

	invoicerepo repository.Repository[invoicedomain.Invoice]

	// sqlite has no row-level locks; tests run on it, production does not.
	supportsRowLocks bool
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("invoice.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		cfg:     p.Cfg,
		audit:   p.AuditSvc,
		metrics: p.Metrics,

		invoicerepo:      repository.ProvideStore[invoicedomain.Invoice](p.DB),
		supportsRowLocks: p.DB.Dialector.Name() != "sqlite",
	}
}

// Generate produces exactly one new invoice for the tenant. The whole
// sequence runs in a single transaction: rate read, meter validation,
// rollover of unpaid invoices (revoking them), invoice number allocation
// and insert. Any failure rolls everything back.
//
// The rollover takes max(manual previous balance, calculated remainder),
// so a manual value can add out-of-band debt but never erase tracked debt.
// Debt forgiveness is intentionally not expressible through this path.
func (s *Service) Generate(ctx context.Context, req invoicedomain.GenerateInvoiceRequest) (invoicedomain.Invoice, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrTenantNotFound
	}
	if req.Penalty < 0 || req.PrevBalance < 0 || req.Credit < 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidAmount
	}

	rentPeriod, err := billingperiod.Parse(req.RentPeriod)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	utilityPeriod, err := billingperiod.Parse(req.UtilityPeriod)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	var created invoicedomain.Invoice
	var revoked int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now(ctx)

		tenant, err := s.loadTenantForUpdate(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		if tenant == nil || tenant.Status != tenantdomain.TenantStatusActive {
			return invoicedomain.ErrTenantNotFound
		}
		if tenant.RoomID == nil {
			return invoicedomain.ErrRoomNotAssigned
		}

		room, err := s.loadRoom(ctx, tx, *tenant.RoomID)
		if err != nil {
			return err
		}
		if room == nil {
			return invoicedomain.ErrRoomNotAssigned
		}

		rates, err := s.loadRatesForUpdate(ctx, tx, now)
		if err != nil {
			return err
		}

		waterPrev, elecPrev, err := s.lastReadings(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		if req.WaterCurrent < waterPrev || req.ElectricCurrent < elecPrev {
			return invoicedomain.ErrInvalidMeterReading
		}

		unpaid, err := s.listUnpaid(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		var calculated int64
		for _, inv := range unpaid {
			calculated += inv.Remaining()
		}
		if len(unpaid) > 0 {
			if err := tx.WithContext(ctx).
				Model(&invoicedomain.Invoice{}).
				Where("tenant_id = ? AND status IN ?", tenantID, invoicedomain.UnpaidStatuses).
				Updates(map[string]any{
					"status":     invoicedomain.InvoiceStatusRevoked,
					"revoked_at": now,
					"updated_at": now,
				}).Error; err != nil {
				return err
			}
		}

		prevBalance := req.PrevBalance
		if calculated > prevBalance {
			prevBalance = calculated
		}

		waterCost := usageCost(req.WaterCurrent-waterPrev, rates.WaterRate)
		elecCost := usageCost(req.ElectricCurrent-elecPrev, rates.ElectricityRate)
		total := room.Rent + waterCost + elecCost + req.Penalty + prevBalance - req.Credit

		number, err := s.nextInvoiceNumber(ctx, tx, now)
		if err != nil {
			return err
		}

		dueAt := now.AddDate(0, 0, s.cfg.InvoiceDueDays)
		invoice := invoicedomain.Invoice{
			ID:            s.genID.Generate(),
			InvoiceNumber: number,
			TenantID:      tenantID,
			RoomID:        room.ID,
			RentPeriod:    rentPeriod.String(),
			UtilityPeriod: utilityPeriod.String(),
			WaterPrev:     waterPrev,
			WaterCurr:     req.WaterCurrent,
			ElecPrev:      elecPrev,
			ElecCurr:      req.ElectricCurrent,
			RentAmount:    room.Rent,
			WaterCost:     waterCost,
			ElecCost:      elecCost,
			Penalty:       req.Penalty,
			PrevBalance:   prevBalance,
			Credit:        req.Credit,
			TotalAmount:   total,
			AmountPaid:    0,
			Status:        invoicedomain.InvoiceStatusPending,
			DueAt:         &dueAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
			if db.IsDuplicateKeyErr(err) {
				return invoicedomain.ErrDuplicateInvoiceNumber
			}
			return err
		}

		created = invoice
		revoked = len(unpaid)
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.metrics.RecordInvoiceGenerated(ctx, revoked)
	s.emitAudit(ctx, "invoice.generated", created, map[string]any{
		"revoked_count": revoked,
	})
	s.log.Info("invoice generated",
		zap.String("invoice_number", created.InvoiceNumber),
		zap.String("tenant_id", created.TenantID.String()),
		zap.Int64("total_amount", created.TotalAmount),
		zap.Int("revoked", revoked),
	)

	return created, nil
}

// RecordPayment applies an additional payment amount to an invoice and
// derives the resulting reconciliation state. The amount is additive per
// call; retries double-count by contract, idempotency belongs to the
// caller. Pending payment proofs of the invoice's tenant are verified in
// the same transaction.
func (s *Service) RecordPayment(ctx context.Context, req invoicedomain.RecordPaymentRequest) (invoicedomain.RecordPaymentResponse, error) {
	ref := strings.TrimSpace(req.Ref)
	if ref == "" {
		return invoicedomain.RecordPaymentResponse{}, invoicedomain.ErrInvoiceNotFound
	}
	if req.Amount <= 0 {
		return invoicedomain.RecordPaymentResponse{}, invoicedomain.ErrInvalidAmount
	}

	var resp invoicedomain.RecordPaymentResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now(ctx)

		invoice, err := s.findByRefForUpdate(ctx, tx, ref)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		if invoice.Status == invoicedomain.InvoiceStatusRevoked {
			return invoicedomain.ErrInvoiceRevoked
		}

		newPaid := invoice.AmountPaid + req.Amount
		status := invoicedomain.InvoiceStatusPartial
		updates := map[string]any{
			"amount_paid": newPaid,
			"updated_at":  now,
		}
		if newPaid >= invoice.TotalAmount {
			status = invoicedomain.InvoiceStatusPaid
			updates["paid_at"] = now
		}
		updates["status"] = status

		if err := tx.WithContext(ctx).
			Model(&invoicedomain.Invoice{}).
			Where("id = ?", invoice.ID).
			Updates(updates).Error; err != nil {
			return err
		}

		// Best-effort reconciliation of tenant-submitted evidence; not
		// scoped to this specific invoice.
		if err := tx.WithContext(ctx).
			Model(&proofdomain.PaymentProof{}).
			Where("tenant_id = ? AND status = ?", invoice.TenantID, proofdomain.ProofStatusPending).
			Updates(map[string]any{
				"status":      proofdomain.ProofStatusVerified,
				"verified_at": now,
			}).Error; err != nil {
			return err
		}

		resp = invoicedomain.RecordPaymentResponse{
			InvoiceID:     invoice.ID.String(),
			InvoiceNumber: invoice.InvoiceNumber,
			AmountPaid:    newPaid,
			TotalAmount:   invoice.TotalAmount,
			Status:        status,
		}
		return nil
	})
	if err != nil {
		return invoicedomain.RecordPaymentResponse{}, err
	}

	s.metrics.RecordPayment(ctx, string(resp.Status))
	targetID := resp.InvoiceID
	if s.audit != nil {
		_ = s.audit.AuditLog(ctx, "invoice.payment_recorded", "invoice", &targetID, map[string]any{
			"invoice_number": resp.InvoiceNumber,
			"amount":         req.Amount,
			"amount_paid":    resp.AmountPaid,
			"status":         string(resp.Status),
		})
	}

	return resp, nil
}

// Update applies an administrative edit of cost fields and recomputes the
// total. Revoked invoices are immutable.
func (s *Service) Update(ctx context.Context, id string, req invoicedomain.UpdateInvoiceRequest) (invoicedomain.Invoice, error) {
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidInvoiceID
	}

	var updated invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now(ctx)

		invoice, err := s.loadForUpdate(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		if invoice.Status == invoicedomain.InvoiceStatusRevoked {
			return invoicedomain.ErrInvoiceRevoked
		}

		apply := func(dst *int64, src *int64) error {
			if src == nil {
				return nil
			}
			if *src < 0 {
				return invoicedomain.ErrInvalidAmount
			}
			*dst = *src
			return nil
		}
		for _, pair := range []struct {
			dst *int64
			src *int64
		}{
			{&invoice.RentAmount, req.RentAmount},
			{&invoice.WaterCost, req.WaterCost},
			{&invoice.ElecCost, req.ElecCost},
			{&invoice.Penalty, req.Penalty},
			{&invoice.PrevBalance, req.PrevBalance},
			{&invoice.Credit, req.Credit},
		} {
			if err := apply(pair.dst, pair.src); err != nil {
				return err
			}
		}

		invoice.TotalAmount = invoice.RentAmount + invoice.WaterCost + invoice.ElecCost +
			invoice.Penalty + invoice.PrevBalance - invoice.Credit

		status := invoice.Status
		switch {
		case invoice.AmountPaid >= invoice.TotalAmount:
			status = invoicedomain.InvoiceStatusPaid
		case invoice.AmountPaid > 0:
			status = invoicedomain.InvoiceStatusPartial
		}
		invoice.Status = status
		invoice.UpdatedAt = now

		if err := tx.WithContext(ctx).
			Model(&invoicedomain.Invoice{}).
			Where("id = ?", invoice.ID).
			Updates(map[string]any{
				"rent_amount":  invoice.RentAmount,
				"water_cost":   invoice.WaterCost,
				"elec_cost":    invoice.ElecCost,
				"penalty":      invoice.Penalty,
				"prev_balance": invoice.PrevBalance,
				"credit":       invoice.Credit,
				"total_amount": invoice.TotalAmount,
				"status":       invoice.Status,
				"updated_at":   now,
			}).Error; err != nil {
			return err
		}

		updated = *invoice
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.emitAudit(ctx, "invoice.edited", updated, nil)
	return updated, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	if pageSize > 250 {
		pageSize = 250
	}

	stmt := s.db.WithContext(ctx).Model(&invoicedomain.Invoice{})
	if req.Status != nil {
		stmt = stmt.Where("status = ?", *req.Status)
	}
	if req.TenantID != nil {
		tenantID, err := snowflake.ParseString(strings.TrimSpace(*req.TenantID))
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidInvoiceID
		}
		stmt = stmt.Where("tenant_id = ?", tenantID)
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidPageToken
		}
		stmt = stmt.Where("created_at < ?", createdAt)
	}

	var items []*invoicedomain.Invoice
	if err := stmt.Order("created_at DESC").Limit(pageSize + 1).Find(&items).Error; err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	pageInfo, items := pagination.BuildCursorPageInfo(items, pageSize, func(inv *invoicedomain.Invoice) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:        inv.ID.String(),
			CreatedAt: inv.CreatedAt.Format(time.RFC3339Nano),
		})
		return token
	})

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}

	return invoicedomain.ListInvoiceResponse{PageInfo: *pageInfo, Invoices: invoices}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidInvoiceID
	}

	item, err := s.invoicerepo.FindOne(ctx, &invoicedomain.Invoice{ID: invoiceID})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if item == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceNotFound
	}

	return *item, nil
}

// MarkOverdue flips pending invoices past their due date to overdue.
// Partial invoices keep their state; the rollover treats both the same.
func (s *Service) MarkOverdue(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("status = ? AND due_at IS NOT NULL AND due_at < ?", invoicedomain.InvoiceStatusPending, before).
		Updates(map[string]any{
			"status":     invoicedomain.InvoiceStatusOverdue,
			"updated_at": before,
		})
	if result.Error != nil {
		return 0, result.Error
	}

	s.metrics.RecordOverdueSwept(ctx, result.RowsAffected)
	return result.RowsAffected, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, invoice invoicedomain.Invoice, extra map[string]any) {
	if s.audit == nil {
		return
	}
	metadata := map[string]any{
		"invoice_number": invoice.InvoiceNumber,
		"tenant_id":      invoice.TenantID.String(),
		"room_id":        invoice.RoomID.String(),
		"total_amount":   invoice.TotalAmount,
		"status":         string(invoice.Status),
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	targetID := invoice.ID.String()
	_ = s.audit.AuditLog(ctx, action, "invoice", &targetID, metadata)
}

func (s *Service) lockingStmt(tx *gorm.DB) *gorm.DB {
	if s.supportsRowLocks {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (s *Service) loadTenantForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*tenantdomain.Tenant, error) {
	var tenant tenantdomain.Tenant
	err := s.lockingStmt(tx.WithContext(ctx)).
		Where("id = ?", id).
		First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

func (s *Service) loadRoom(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*tenantdomain.Room, error) {
	var room tenantdomain.Room
	err := tx.WithContext(ctx).Where("id = ?", id).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// loadRatesForUpdate reads the singleton rate row under a row lock. The
// lock doubles as the serialization point for concurrent generations, so
// sequential invoice numbers cannot collide and a mid-cycle rate update
// cannot split one invoice across two rates.
func (s *Service) loadRatesForUpdate(ctx context.Context, tx *gorm.DB, now time.Time) (rateconfigdomain.RateConfig, error) {
	var rates rateconfigdomain.RateConfig
	err := s.lockingStmt(tx.WithContext(ctx)).
		Where("id = ?", rateconfigdomain.DefaultID).
		First(&rates).Error
	if err == nil {
		return rates, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return rateconfigdomain.RateConfig{}, err
	}

	rates = rateconfigdomain.RateConfig{
		ID:              rateconfigdomain.DefaultID,
		ElectricityRate: s.cfg.DefaultElectricRate,
		WaterRate:       s.cfg.DefaultWaterRate,
		UpdatedAt:       now,
	}
	if err := tx.WithContext(ctx).Create(&rates).Error; err != nil {
		return rateconfigdomain.RateConfig{}, err
	}
	return rates, nil
}

// lastReadings returns the meter positions from the tenant's most recently
// dated invoice, or zeros when none exists.
func (s *Service) lastReadings(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID) (water, elec float64, err error) {
	var last invoicedomain.Invoice
	err = tx.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC, id DESC").
		First(&last).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	return last.WaterCurr, last.ElecCurr, nil
}

func (s *Service) listUnpaid(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID) ([]invoicedomain.Invoice, error) {
	var unpaid []invoicedomain.Invoice
	err := s.lockingStmt(tx.WithContext(ctx)).
		Where("tenant_id = ? AND status IN ?", tenantID, invoicedomain.UnpaidStatuses).
		Find(&unpaid).Error
	if err != nil {
		return nil, err
	}
	return unpaid, nil
}

// nextInvoiceNumber allocates INV-YYYYMM-NNNN, sequential within the
// generation month. Callers must hold the rate row lock.
func (s *Service) nextInvoiceNumber(ctx context.Context, tx *gorm.DB, now time.Time) (string, error) {
	prefix := fmt.Sprintf("INV-%s-", now.Format("200601"))

	var count int64
	err := tx.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("invoice_number LIKE ?", prefix+"%").
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func (s *Service) findByRefForUpdate(ctx context.Context, tx *gorm.DB, ref string) (*invoicedomain.Invoice, error) {
	if id, err := snowflake.ParseString(ref); err == nil {
		var invoice invoicedomain.Invoice
		err := s.lockingStmt(tx.WithContext(ctx)).
			Where("id = ?", id).
			First(&invoice).Error
		if err == nil {
			return &invoice, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	var invoice invoicedomain.Invoice
	err := s.lockingStmt(tx.WithContext(ctx)).
		Where("invoice_number = ?", ref).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (s *Service) loadForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := s.lockingStmt(tx.WithContext(ctx)).
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func usageCost(usage float64, rate int64) int64 {
	if usage <= 0 {
		return 0
	}
	return int64(math.Round(usage * float64(rate)))
}
