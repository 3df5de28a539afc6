package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/roomledger/internal/audit/domain"
	"github.com/smallbiznis/roomledger/internal/clock"
	"github.com/smallbiznis/roomledger/internal/config"
	invoicedomain "github.com/smallbiznis/roomledger/internal/invoice/domain"
	proofdomain "github.com/smallbiznis/roomledger/internal/paymentproof/domain"
	rateconfigdomain "github.com/smallbiznis/roomledger/internal/rateconfig/domain"
	tenantdomain "github.com/smallbiznis/roomledger/internal/tenant/domain"
	"github.com/smallbiznis/roomledger/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db    *gorm.DB
	svc   *Service
	node  *snowflake.Node
	clock *clock.FakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&tenantdomain.Room{},
		&tenantdomain.Tenant{},
		&rateconfigdomain.RateConfig{},
		&invoicedomain.Invoice{},
		&proofdomain.PaymentProof{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fc := clock.NewFakeClock(time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC))

	cfg := config.Config{
		DefaultWaterRate:    7000,
		DefaultElectricRate: 2100,
		InvoiceDueDays:      10,
	}

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fc,
		Cfg:   cfg,
	}).(*Service)

	return &testEnv{db: db, svc: svc, node: node, clock: fc}
}

func (e *testEnv) seedTenant(t *testing.T, rent int64) tenantdomain.Tenant {
	t.Helper()

	room := tenantdomain.Room{ID: e.node.Generate(), Code: "A-" + e.node.Generate().String()[:4], Rent: rent}
	require.NoError(t, e.db.Create(&room).Error)

	tenant := tenantdomain.Tenant{
		ID:     e.node.Generate(),
		Name:   "Budi",
		RoomID: &room.ID,
		Status: tenantdomain.TenantStatusActive,
	}
	require.NoError(t, e.db.Create(&tenant).Error)
	return tenant
}

func (e *testEnv) generate(t *testing.T, req invoicedomain.GenerateInvoiceRequest) invoicedomain.Invoice {
	t.Helper()
	inv, err := e.svc.Generate(context.Background(), req)
	require.NoError(t, err)
	return inv
}

func baseRequest(tenantID snowflake.ID) invoicedomain.GenerateInvoiceRequest {
	return invoicedomain.GenerateInvoiceRequest{
		TenantID:        tenantID.String(),
		WaterCurrent:    0.1,
		ElectricCurrent: 1,
		RentPeriod:      "2025-07",
		UtilityPeriod:   "2025-06-25 to 2025-07-25",
	}
}

func TestGenerate_FirstInvoice(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, 10000)

	inv := env.generate(t, baseRequest(tenant.ID))

	assert.Equal(t, "INV-202507-0001", inv.InvoiceNumber)
	assert.Equal(t, invoicedomain.InvoiceStatusPending, inv.Status)
	assert.Equal(t, float64(0), inv.WaterPrev)
	assert.Equal(t, float64(0), inv.ElecPrev)
	assert.Equal(t, int64(10000), inv.RentAmount)
	assert.Equal(t, int64(700), inv.WaterCost)
	assert.Equal(t, int64(2100), inv.ElecCost)
	assert.Equal(t, int64(0), inv.PrevBalance)
	assert.Equal(t, int64(12800), inv.TotalAmount)
	require.NotNil(t, inv.DueAt)
	assert.Equal(t, time.Date(2025, 7, 11, 9, 0, 0, 0, time.UTC), inv.DueAt.UTC())
}

func TestGenerate_SequentialNumbersWithinMonth(t *testing.T) {
	env := newTestEnv(t)
	first := env.seedTenant(t, 10000)
	second := env.seedTenant(t, 8000)

	inv1 := env.generate(t, baseRequest(first.ID))
	env.clock.Advance(time.Minute)
	inv2 := env.generate(t, baseRequest(second.ID))

	assert.Equal(t, "INV-202507-0001", inv1.InvoiceNumber)
	assert.Equal(t, "INV-202507-0002", inv2.InvoiceNumber)
}

func TestGenerate_RollsOverAndRevokesUnpaid(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, 10000)

	first := env.generate(t, baseRequest(tenant.ID))
	env.clock.Advance(31 * 24 * time.Hour)

	req := baseRequest(tenant.ID)
	req.WaterCurrent = 0.2
	req.ElectricCurrent = 2
	req.RentPeriod = "2025-08"
	req.UtilityPeriod = "2025-07-25 to 2025-08-25"
	second := env.generate(t, req)

	// Previous balance carries the full unpaid remainder.
	assert.Equal(t, int64(12800), second.PrevBalance)
	assert.Equal(t, float64(0.1), second.WaterPrev)
	assert.Equal(t, float64(1), second.ElecPrev)
	assert.Equal(t, int64(10000+700+2100+12800), second.TotalAmount)

	var reloaded invoicedomain.Invoice
	require.NoError(t, env.db.First(&reloaded, "id = ?", first.ID).Error)
	assert.Equal(t, invoicedomain.InvoiceStatusRevoked, reloaded.Status)
	assert.NotNil(t, reloaded.RevokedAt)
}

func TestGenerate_ManualBalanceNeverErasesDebt(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, 10000)

	env.generate(t, baseRequest(tenant.ID))
	env.clock.Advance(time.Hour)

	req := baseRequest(tenant.ID)
	req.WaterCurrent = 0.2
	req.ElectricCurrent = 2
	req.PrevBalance = 5000
	second := env.generate(t, req)

	// Calculated 12800 beats the lower manual value.
	assert.Equal(t, int64(12800), second.PrevBalance)

	env.clock.Advance(time.Hour)
	req.WaterCurrent = 0.3
	req.ElectricCurrent = 3
	req.PrevBalance = 50000
	third := env.generate(t, req)

	// A larger manual value wins.
	assert.Equal(t, int64(50000), third.PrevBalance)
}

func TestGenerate_RollsOverOverdueInvoices(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, 10000)

	first := env.generate(t, baseRequest(tenant.ID))
	env.clock.Advance(30 * 24 * time.Hour)

	swept, err := env.svc.MarkOverdue(context.Background(), env.clock.Now(context.Background()))
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	req := baseRequest(tenant.ID)
	req.WaterCurrent = 0.2
	req.ElectricCurrent = 2
	second := env.generate(t, req)

	assert.Equal(t, int64(12800), second.PrevBalance)

	var reloaded invoicedomain.Invoice
	require.NoError(t, env.db.First(&reloaded, "id = ?", first.ID).Error)
	assert.Equal(t, invoicedomain.InvoiceStatusRevoked, reloaded.Status)
}

func TestGenerate_RejectsLowerMeterReading(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, 10000)

	first := env.generate(t, baseRequest(tenant.ID))
	env.clock.Advance(time.Hour)

	req := baseRequest(tenant.ID)
	req.WaterCurrent = 0.05
	req.ElectricCurrent = 2
	_, err := env.svc.Generate(context.Background(), req)
	require.ErrorIs(t, err, invoicedomain.ErrInvalidMeterReading)

	// Nothing changed: no new invoice, no revocation.
	var count int64
	require.NoError(t, env.db.Model(&invoicedomain.Invoice{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var reloaded invoicedomain.Invoice
	require.NoError(t, env.db.First(&reloaded, "id = ?", first.ID).Error)
	assert.Equal(t, invoicedomain.InvoiceStatusPending, reloaded.Status)
}

func TestGenerate_TenantValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Generate(context.Background(), baseRequest(env.node.Generate()))
	assert.ErrorIs(t, err, invoicedomain.ErrTenantNotFound)

	archived := tenantdomain.Tenant{ID: env.node.Generate(), Name: "Old", Status: tenantdomain.TenantStatusArchived}
	require.NoError(t, env.db.Create(&archived).Error)
	_, err = env.svc.Generate(context.Background(), baseRequest(archived.ID))
	assert.ErrorIs(t, err, invoicedomain.ErrTenantNotFound)

	roomless := tenantdomain.Tenant{ID: env.node.Generate(), Name: "Waiting", Status: tenantdomain.TenantStatusActive}
	require.NoError(t, env.db.Create(&roomless).Error)
	_, err = env.svc.Generate(context.Background(), baseRequest(roomless.ID))
	assert.ErrorIs(t, err, invoicedomain.ErrRoomNotAssigned)
}

func TestGenerate_RejectsNegativeAdjustments(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, 10000)

	req := baseRequest(tenant.ID)
	req.Penalty = -1
	_, err := env.svc.Generate(context.Background(), req)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidAmount)

	req = baseRequest(tenant.ID)
	req.Credit = -1
	_, err = env.svc.Generate(context.Background(), req)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidAmount)
}

func TestGenerate_RejectsInvalidPeriod(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, 10000)

	req := baseRequest(tenant.ID)
	req.RentPeriod = "July 2025"
	_, err := env.svc.Generate(context.Background(), req)
	assert.Error(t, err)
}

func TestGenerate_AppliesPenaltyAndCredit(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, 10000)

	req := baseRequest(tenant.ID)
	req.Penalty = 500
	req.Credit = 300
	inv := env.generate(t, req)

	assert.Equal(t, int64(10000+700+2100+500-300), inv.TotalAmount)
}

func TestRecordPayment_PartialThenPaid(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, 10000)
	inv := env.generate(t, baseRequest(tenant.ID))

	resp, err := env.svc.RecordPayment(context.Background(), invoicedomain.RecordPaymentRequest{
		Ref:    inv.ID.String(),
		Amount: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPartial, resp.Status)
	assert.Equal(t, int64(5000), resp.AmountPaid)

	// Second payment settles the invoice, addressed by invoice number.
	resp, err = env.svc.RecordPayment(context.Background(), invoicedomain.RecordPaymentRequest{
		Ref:    inv.InvoiceNumber,
		Amount: 7800,
	})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, resp.Status)
	assert.Equal(t, int64(12800), resp.AmountPaid)

	var reloaded invoicedomain.Invoice
	require.NoError(t, env.db.First(&reloaded, "id = ?", inv.ID).Error)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, reloaded.Status)
	assert.NotNil(t, reloaded.PaidAt)
}

func TestRecordPayment_OverpayStillPaid(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, 10000)
	inv := env.generate(t, baseRequest(tenant.ID))

	resp, err := env.svc.RecordPayment(context.Background(), invoicedomain.RecordPaymentRequest{
		Ref:    inv.ID.String(),
		Amount: 20000,
	})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, resp.Status)
	assert.Equal(t, int64(20000), resp.AmountPaid)
}

func TestRecordPayment_Validation(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, 10000)
	inv := env.generate(t, baseRequest(tenant.ID))

	_, err := env.svc.RecordPayment(context.Background(), invoicedomain.RecordPaymentRequest{
		Ref:    inv.ID.String(),
		Amount: 0,
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidAmount)

	_, err = env.svc.RecordPayment(context.Background(), invoicedomain.RecordPaymentRequest{
		Ref:    "INV-209901-0001",
		Amount: 100,
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
}

func TestRecordPayment_RevokedGuard(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, 10000)
	first := env.generate(t, baseRequest(tenant.ID))

	env.clock.Advance(time.Hour)
	req := baseRequest(tenant.ID)
	req.WaterCurrent = 0.2
	req.ElectricCurrent = 2
	env.generate(t, req)

	_, err := env.svc.RecordPayment(context.Background(), invoicedomain.RecordPaymentRequest{
		Ref:    first.ID.String(),
		Amount: 5000,
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceRevoked)
}

func TestRecordPayment_VerifiesPendingProofs(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, 10000)
	inv := env.generate(t, baseRequest(tenant.ID))

	proof := proofdomain.PaymentProof{
		ID:       env.node.Generate(),
		Ref:      "01J0000000000000000000PRF1",
		TenantID: tenant.ID,
		Amount:   5000,
		Status:   proofdomain.ProofStatusPending,
	}
	require.NoError(t, env.db.Create(&proof).Error)

	_, err := env.svc.RecordPayment(context.Background(), invoicedomain.RecordPaymentRequest{
		Ref:    inv.ID.String(),
		Amount: 5000,
	})
	require.NoError(t, err)

	var reloaded proofdomain.PaymentProof
	require.NoError(t, env.db.First(&reloaded, "id = ?", proof.ID).Error)
	assert.Equal(t, proofdomain.ProofStatusVerified, reloaded.Status)
	assert.NotNil(t, reloaded.VerifiedAt)
}

func TestUpdate_RecomputesTotalAndStatus(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, 10000)
	inv := env.generate(t, baseRequest(tenant.ID))

	_, err := env.svc.RecordPayment(context.Background(), invoicedomain.RecordPaymentRequest{
		Ref:    inv.ID.String(),
		Amount: 5000,
	})
	require.NoError(t, err)

	// Lowering costs below the paid amount flips the invoice to paid.
	rent := int64(2000)
	water := int64(0)
	elec := int64(0)
	updated, err := env.svc.Update(context.Background(), inv.ID.String(), invoicedomain.UpdateInvoiceRequest{
		RentAmount: &rent,
		WaterCost:  &water,
		ElecCost:   &elec,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), updated.TotalAmount)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, updated.Status)
}

func TestUpdate_Validation(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, 10000)
	inv := env.generate(t, baseRequest(tenant.ID))

	negative := int64(-1)
	_, err := env.svc.Update(context.Background(), inv.ID.String(), invoicedomain.UpdateInvoiceRequest{
		Penalty: &negative,
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidAmount)

	_, err = env.svc.Update(context.Background(), "not-an-id", invoicedomain.UpdateInvoiceRequest{})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidInvoiceID)

	env.clock.Advance(time.Hour)
	req := baseRequest(tenant.ID)
	req.WaterCurrent = 0.2
	req.ElectricCurrent = 2
	env.generate(t, req)

	penalty := int64(100)
	_, err = env.svc.Update(context.Background(), inv.ID.String(), invoicedomain.UpdateInvoiceRequest{
		Penalty: &penalty,
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceRevoked)
}

func TestMarkOverdue_OnlySweepsPendingPastDue(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, 10000)
	first := env.generate(t, baseRequest(tenant.ID))

	_, err := env.svc.RecordPayment(context.Background(), invoicedomain.RecordPaymentRequest{
		Ref:    first.ID.String(),
		Amount: 12800,
	})
	require.NoError(t, err)

	other := env.seedTenant(t, 9000)
	env.clock.Advance(time.Minute)
	pending := env.generate(t, baseRequest(other.ID))

	swept, err := env.svc.MarkOverdue(context.Background(), env.clock.Now(context.Background()).Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	var reloaded invoicedomain.Invoice
	require.NoError(t, env.db.First(&reloaded, "id = ?", pending.ID).Error)
	assert.Equal(t, invoicedomain.InvoiceStatusOverdue, reloaded.Status)

	require.NoError(t, env.db.First(&reloaded, "id = ?", first.ID).Error)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, reloaded.Status)
}

func TestList_FiltersAndPaginates(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, 10000)

	env.generate(t, baseRequest(tenant.ID))
	env.clock.Advance(time.Hour)
	req := baseRequest(tenant.ID)
	req.WaterCurrent = 0.2
	req.ElectricCurrent = 2
	env.generate(t, req)
	env.clock.Advance(time.Hour)
	req.WaterCurrent = 0.3
	req.ElectricCurrent = 3
	latest := env.generate(t, req)

	status := invoicedomain.InvoiceStatusRevoked
	resp, err := env.svc.List(context.Background(), invoicedomain.ListInvoiceRequest{
		Status: &status,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Invoices, 2)

	tenantID := tenant.ID.String()
	resp, err = env.svc.List(context.Background(), invoicedomain.ListInvoiceRequest{
		TenantID: &tenantID,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Invoices, 3)
	assert.Equal(t, latest.ID, resp.Invoices[0].ID)

	first, err := env.svc.List(context.Background(), invoicedomain.ListInvoiceRequest{})
	require.NoError(t, err)
	require.Len(t, first.Invoices, 3)

	page, err := env.svc.List(context.Background(), invoicedomain.ListInvoiceRequest{
		Pagination: pagination.Pagination{PageSize: 1},
	})
	require.NoError(t, err)
	require.Len(t, page.Invoices, 1)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextPageToken)

	next, err := env.svc.List(context.Background(), invoicedomain.ListInvoiceRequest{
		Pagination: pagination.Pagination{PageSize: 10, PageToken: page.NextPageToken},
	})
	require.NoError(t, err)
	assert.Len(t, next.Invoices, 2)

	_, err = env.svc.List(context.Background(), invoicedomain.ListInvoiceRequest{
		Pagination: pagination.Pagination{PageSize: 10, PageToken: "not-base64!"},
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPageToken)
}

func TestGetByID(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, 10000)
	inv := env.generate(t, baseRequest(tenant.ID))

	found, err := env.svc.GetByID(context.Background(), inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, inv.InvoiceNumber, found.InvoiceNumber)

	_, err = env.svc.GetByID(context.Background(), env.node.Generate().String())
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)

	_, err = env.svc.GetByID(context.Background(), "garbage")
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidInvoiceID)
}

func TestUsageCostRounding(t *testing.T) {
	assert.Equal(t, int64(0), usageCost(0, 7000))
	assert.Equal(t, int64(700), usageCost(0.1, 7000))
	assert.Equal(t, int64(2100), usageCost(1, 2100))
	assert.Equal(t, int64(1051), usageCost(0.5005, 2100))
}
