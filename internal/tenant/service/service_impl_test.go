package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	tenantdomain "github.com/smallbiznis/roomledger/internal/tenant/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (tenantdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tenantdomain.Room{}, &tenantdomain.Tenant{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{DB: db, Log: zap.NewNop()})
	return svc, db, node
}

func TestList_FiltersByStatus(t *testing.T) {
	svc, db, node := newTestService(t)

	require.NoError(t, db.Create(&tenantdomain.Tenant{ID: node.Generate(), Name: "Budi", Status: tenantdomain.TenantStatusActive}).Error)
	require.NoError(t, db.Create(&tenantdomain.Tenant{ID: node.Generate(), Name: "Sari", Status: tenantdomain.TenantStatusActive}).Error)
	require.NoError(t, db.Create(&tenantdomain.Tenant{ID: node.Generate(), Name: "Old", Status: tenantdomain.TenantStatusArchived}).Error)

	resp, err := svc.List(context.Background(), tenantdomain.ListTenantRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Tenants, 3)

	active := tenantdomain.TenantStatusActive
	resp, err = svc.List(context.Background(), tenantdomain.ListTenantRequest{Status: &active})
	require.NoError(t, err)
	assert.Len(t, resp.Tenants, 2)
}

func TestGetDetail(t *testing.T) {
	svc, db, node := newTestService(t)

	room := tenantdomain.Room{ID: node.Generate(), Code: "B-02", Rent: 9000}
	require.NoError(t, db.Create(&room).Error)
	tenant := tenantdomain.Tenant{ID: node.Generate(), Name: "Budi", RoomID: &room.ID, Status: tenantdomain.TenantStatusActive}
	require.NoError(t, db.Create(&tenant).Error)

	detail, err := svc.GetDetail(context.Background(), tenant.ID.String())
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, detail.Tenant.ID)
	require.NotNil(t, detail.Room)
	assert.Equal(t, "B-02", detail.Room.Code)

	roomless := tenantdomain.Tenant{ID: node.Generate(), Name: "Waiting", Status: tenantdomain.TenantStatusActive}
	require.NoError(t, db.Create(&roomless).Error)
	detail, err = svc.GetDetail(context.Background(), roomless.ID.String())
	require.NoError(t, err)
	assert.Nil(t, detail.Room)

	_, err = svc.GetDetail(context.Background(), node.Generate().String())
	assert.ErrorIs(t, err, tenantdomain.ErrNotFound)

	_, err = svc.GetDetail(context.Background(), "garbage")
	assert.ErrorIs(t, err, tenantdomain.ErrInvalidID)
}
