// Package scheduler runs the periodic housekeeping jobs.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/roomledger/internal/clock"
	"github.com/smallbiznis/roomledger/internal/config"
	invoicedomain "github.com/smallbiznis/roomledger/internal/invoice/domain"
	obscontext "github.com/smallbiznis/roomledger/internal/observability/context"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

type Params struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.Config
	Clock      clock.Clock
	InvoiceSvc invoicedomain.Service
}

type Scheduler struct {
	log        *zap.Logger
	clock      clock.Clock
	invoiceSvc invoicedomain.Service

	interval time.Duration
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.InvoiceSvc == nil {
		return nil, ErrInvalidConfig
	}
	interval := time.Duration(p.Cfg.OverdueSweepMinutes) * time.Minute
	if interval <= 0 {
		interval = 60 * time.Minute
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		clock:      p.Clock,
		invoiceSvc: p.InvoiceSvc,
		interval:   interval,
	}, nil
}

// RunOnce executes a single sweep: pending invoices past their due date
// become overdue.
func (s *Scheduler) RunOnce(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()
	ctx = obscontext.WithActor(ctx, "scheduler")

	now := s.clock.Now(ctx)
	swept, err := s.invoiceSvc.MarkOverdue(ctx, now)
	if err != nil {
		s.log.Error("overdue sweep failed", zap.Error(err))
		return err
	}
	if swept > 0 {
		s.log.Info("overdue sweep completed", zap.Int64("invoices", swept))
	}
	return nil
}

// RunForever loops until the context is canceled. Sweep errors are logged
// and the loop keeps going.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
