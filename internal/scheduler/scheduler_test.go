package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/roomledger/internal/clock"
	"github.com/smallbiznis/roomledger/internal/config"
	invoicedomain "github.com/smallbiznis/roomledger/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeInvoiceSvc stubs MarkOverdue; the embedded interface panics on any
// other call, which the sweep never makes.
type fakeInvoiceSvc struct {
	invoicedomain.Service

	swept  int64
	err    error
	before time.Time
	calls  int
}

func (f *fakeInvoiceSvc) MarkOverdue(ctx context.Context, before time.Time) (int64, error) {
	f.calls++
	f.before = before
	return f.swept, f.err
}

func TestRunOnce_SweepsWithClockTime(t *testing.T) {
	now := time.Date(2025, 7, 15, 3, 0, 0, 0, time.UTC)
	svc := &fakeInvoiceSvc{swept: 2}

	sched, err := New(Params{
		Log:        zap.NewNop(),
		Cfg:        config.Config{OverdueSweepMinutes: 30},
		Clock:      clock.NewFakeClock(now),
		InvoiceSvc: svc,
	})
	require.NoError(t, err)

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, now, svc.before)
}

func TestRunOnce_PropagatesError(t *testing.T) {
	svc := &fakeInvoiceSvc{err: errors.New("boom")}

	sched, err := New(Params{
		Log:        zap.NewNop(),
		Cfg:        config.Config{},
		Clock:      clock.NewFakeClock(time.Now()),
		InvoiceSvc: svc,
	})
	require.NoError(t, err)

	assert.Error(t, sched.RunOnce(context.Background()))
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
