package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	invoicesGenerated metric.Int64Counter
	paymentsRecorded  metric.Int64Counter
	invoicesRevoked   metric.Int64Counter
	overdueSwept      metric.Int64Counter
	proofsSubmitted   metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "roomledger"
	}
	meter := provider.Meter(name)

	invoicesGenerated, err := meter.Int64Counter("roomledger_invoices_generated_total")
	if err != nil {
		return nil, err
	}
	paymentsRecorded, err := meter.Int64Counter("roomledger_payments_recorded_total")
	if err != nil {
		return nil, err
	}
	invoicesRevoked, err := meter.Int64Counter("roomledger_invoices_revoked_total")
	if err != nil {
		return nil, err
	}
	overdueSwept, err := meter.Int64Counter("roomledger_invoices_overdue_total")
	if err != nil {
		return nil, err
	}
	proofsSubmitted, err := meter.Int64Counter("roomledger_payment_proofs_submitted_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		invoicesGenerated: invoicesGenerated,
		paymentsRecorded:  paymentsRecorded,
		invoicesRevoked:   invoicesRevoked,
		overdueSwept:      overdueSwept,
		proofsSubmitted:   proofsSubmitted,
	}, nil
}

// RecordInvoiceGenerated counts one generated invoice plus its revocations.
func (m *Metrics) RecordInvoiceGenerated(ctx context.Context, revoked int) {
	if m == nil {
		return
	}
	m.invoicesGenerated.Add(ctx, 1)
	if revoked > 0 {
		m.invoicesRevoked.Add(ctx, int64(revoked))
	}
}

// RecordPayment counts one recorded payment by resulting status.
func (m *Metrics) RecordPayment(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.paymentsRecorded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", strings.ToLower(strings.TrimSpace(status))),
	))
}

// RecordOverdueSwept counts invoices flipped to overdue by the sweep.
func (m *Metrics) RecordOverdueSwept(ctx context.Context, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.overdueSwept.Add(ctx, count)
}

// RecordProofSubmitted counts one tenant payment-proof submission.
func (m *Metrics) RecordProofSubmitted(ctx context.Context) {
	if m == nil {
		return
	}
	m.proofsSubmitted.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}
