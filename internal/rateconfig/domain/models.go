// Package domain contains the utility rate configuration model.
package domain

import "time"

// DefaultID pins the configuration to a single row.
const DefaultID int64 = 1

// RateConfig holds the per-unit utility rates in minor currency units.
// A single row exists; it is created lazily with defaults on first read.
type RateConfig struct {
	ID              int64     `gorm:"primaryKey" json:"-"`
	ElectricityRate int64     `gorm:"not null;default:0" json:"electricity_rate"`
	WaterRate       int64     `gorm:"not null;default:0" json:"water_rate"`
	UpdatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (RateConfig) TableName() string { return "rate_configs" }
