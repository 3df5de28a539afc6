package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/roomledger/internal/clock"
	proofdomain "github.com/smallbiznis/roomledger/internal/paymentproof/domain"
	tenantdomain "github.com/smallbiznis/roomledger/internal/tenant/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (proofdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tenantdomain.Tenant{}, &proofdomain.PaymentProof{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)),
	})
	return svc, db, node
}

func seedTenant(t *testing.T, db *gorm.DB, node *snowflake.Node) tenantdomain.Tenant {
	t.Helper()
	tenant := tenantdomain.Tenant{ID: node.Generate(), Name: "Sari", Status: tenantdomain.TenantStatusActive}
	require.NoError(t, db.Create(&tenant).Error)
	return tenant
}

func TestSubmit(t *testing.T) {
	svc, db, node := newTestService(t)
	tenant := seedTenant(t, db, node)

	proof, err := svc.Submit(context.Background(), proofdomain.SubmitProofRequest{
		TenantID: tenant.ID.String(),
		Amount:   5000,
		Note:     "transfer via BCA",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, proof.Ref)
	assert.Equal(t, proofdomain.ProofStatusPending, proof.Status)
	assert.Equal(t, int64(5000), proof.Amount)
}

func TestSubmit_Validation(t *testing.T) {
	svc, db, node := newTestService(t)
	tenant := seedTenant(t, db, node)

	_, err := svc.Submit(context.Background(), proofdomain.SubmitProofRequest{
		TenantID: "garbage",
		Amount:   5000,
	})
	assert.ErrorIs(t, err, proofdomain.ErrInvalidTenant)

	_, err = svc.Submit(context.Background(), proofdomain.SubmitProofRequest{
		TenantID: tenant.ID.String(),
		Amount:   0,
	})
	assert.ErrorIs(t, err, proofdomain.ErrInvalidAmount)

	_, err = svc.Submit(context.Background(), proofdomain.SubmitProofRequest{
		TenantID: node.Generate().String(),
		Amount:   5000,
	})
	assert.ErrorIs(t, err, tenantdomain.ErrNotFound)

	_, err = svc.Submit(context.Background(), proofdomain.SubmitProofRequest{
		TenantID:  tenant.ID.String(),
		InvoiceID: "garbage",
		Amount:    5000,
	})
	assert.ErrorIs(t, err, proofdomain.ErrInvalidInvoice)
}

func TestListByTenant(t *testing.T) {
	svc, db, node := newTestService(t)
	tenant := seedTenant(t, db, node)

	for i := 0; i < 3; i++ {
		_, err := svc.Submit(context.Background(), proofdomain.SubmitProofRequest{
			TenantID: tenant.ID.String(),
			Amount:   int64(1000 * (i + 1)),
		})
		require.NoError(t, err)
	}

	proofs, err := svc.ListByTenant(context.Background(), tenant.ID.String())
	require.NoError(t, err)
	assert.Len(t, proofs, 3)

	other := seedTenant(t, db, node)
	proofs, err = svc.ListByTenant(context.Background(), other.ID.String())
	require.NoError(t, err)
	assert.Empty(t, proofs)
}
