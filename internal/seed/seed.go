// Package seed bootstraps the minimum rows a fresh install needs.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/roomledger/internal/config"
	rateconfigdomain "github.com/smallbiznis/roomledger/internal/rateconfig/domain"
	"gorm.io/gorm"
)

// EnsureDefaultRates seeds the singleton rate row so the first invoice
// generation does not race the first rate read.
func EnsureDefaultRates(db *gorm.DB, cfg config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing rateconfigdomain.RateConfig
		err := tx.Where("id = ?", rateconfigdomain.DefaultID).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return tx.Create(&rateconfigdomain.RateConfig{
			ID:              rateconfigdomain.DefaultID,
			ElectricityRate: cfg.DefaultElectricRate,
			WaterRate:       cfg.DefaultWaterRate,
			UpdatedAt:       time.Now().UTC(),
		}).Error
	})
}
