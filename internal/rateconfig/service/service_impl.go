package service

import (
	"context"
	"errors"
	"time"

	auditdomain "github.com/smallbiznis/roomledger/internal/audit/domain"
	"github.com/smallbiznis/roomledger/internal/clock"
	"github.com/smallbiznis/roomledger/internal/config"
	rateconfigdomain "github.com/smallbiznis/roomledger/internal/rateconfig/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	Clock    clock.Clock
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      config.Config
	clock    clock.Clock
	auditSvc auditdomain.Service
}

func NewService(p ServiceParam) rateconfigdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("rateconfig.service"),
		cfg:      p.Cfg,
		clock:    p.Clock,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Get(ctx context.Context) (rateconfigdomain.RateConfig, error) {
	var cfg rateconfigdomain.RateConfig
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := Ensure(ctx, tx, s.cfg, s.clock.Now(ctx))
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	})
	if err != nil {
		return rateconfigdomain.RateConfig{}, err
	}
	return cfg, nil
}

func (s *Service) Update(ctx context.Context, req rateconfigdomain.UpdateRateConfigRequest) (rateconfigdomain.RateConfig, error) {
	if req.ElectricityRate < 0 || req.WaterRate < 0 {
		return rateconfigdomain.RateConfig{}, rateconfigdomain.ErrInvalidRate
	}

	now := s.clock.Now(ctx)
	updated := rateconfigdomain.RateConfig{
		ID:              rateconfigdomain.DefaultID,
		ElectricityRate: req.ElectricityRate,
		WaterRate:       req.WaterRate,
		UpdatedAt:       now,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := Ensure(ctx, tx, s.cfg, now); err != nil {
			return err
		}
		return tx.WithContext(ctx).
			Model(&rateconfigdomain.RateConfig{}).
			Where("id = ?", rateconfigdomain.DefaultID).
			Updates(map[string]any{
				"electricity_rate": req.ElectricityRate,
				"water_rate":       req.WaterRate,
				"updated_at":       now,
			}).Error
	})
	if err != nil {
		return rateconfigdomain.RateConfig{}, err
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(ctx, "rates.updated", "rate_config", nil, map[string]any{
			"electricity_rate": req.ElectricityRate,
			"water_rate":       req.WaterRate,
		})
	}

	return updated, nil
}

// Ensure loads the singleton rate row inside tx, creating it with the
// configured defaults when absent.
func Ensure(ctx context.Context, tx *gorm.DB, cfg config.Config, now time.Time) (rateconfigdomain.RateConfig, error) {
	var rates rateconfigdomain.RateConfig
	err := tx.WithContext(ctx).
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
		ElectricityRate: cfg.DefaultElectricRate,
		WaterRate:       cfg.DefaultWaterRate,
		UpdatedAt:       now,
	}
	if err := tx.WithContext(ctx).Create(&rates).Error; err != nil {
		return rateconfigdomain.RateConfig{}, err
	}
	return rates, nil
}
