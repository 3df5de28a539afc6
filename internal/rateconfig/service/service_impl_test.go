package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/roomledger/internal/clock"
	"github.com/smallbiznis/roomledger/internal/config"
	rateconfigdomain "github.com/smallbiznis/roomledger/internal/rateconfig/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) rateconfigdomain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&rateconfigdomain.RateConfig{}))

	return NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		Cfg:   config.Config{DefaultWaterRate: 7000, DefaultElectricRate: 2100},
		Clock: clock.NewFakeClock(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)),
	})
}

func TestGet_CreatesDefaultsLazily(t *testing.T) {
	svc := newTestService(t)

	rates, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7000), rates.WaterRate)
	assert.Equal(t, int64(2100), rates.ElectricityRate)

	// Second read returns the same row, not a new one.
	again, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rates.ID, again.ID)
}

func TestUpdate_PersistsNewRates(t *testing.T) {
	svc := newTestService(t)

	updated, err := svc.Update(context.Background(), rateconfigdomain.UpdateRateConfigRequest{
		ElectricityRate: 2500,
		WaterRate:       8000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2500), updated.ElectricityRate)
	assert.Equal(t, int64(8000), updated.WaterRate)

	rates, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2500), rates.ElectricityRate)
	assert.Equal(t, int64(8000), rates.WaterRate)
}

func TestUpdate_RejectsNegativeRates(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Update(context.Background(), rateconfigdomain.UpdateRateConfigRequest{
		ElectricityRate: -1,
		WaterRate:       8000,
	})
	assert.ErrorIs(t, err, rateconfigdomain.ErrInvalidRate)
}
