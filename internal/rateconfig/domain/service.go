package domain

import (
	"context"
	"errors"
)

type UpdateRateConfigRequest struct {
	ElectricityRate int64 `json:"electricity_rate"`
	WaterRate       int64 `json:"water_rate"`
}

type Service interface {
	Get(ctx context.Context) (RateConfig, error)
	Update(ctx context.Context, req UpdateRateConfigRequest) (RateConfig, error)
}

var ErrInvalidRate = errors.New("invalid_rate")
