package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/roomledger/internal/clock"
	"github.com/smallbiznis/roomledger/internal/observability/metrics"
	proofdomain "github.com/smallbiznis/roomledger/internal/paymentproof/domain"
	tenantdomain "github.com/smallbiznis/roomledger/internal/tenant/domain"
	"github.com/smallbiznis/roomledger/pkg/db/option"
	"github.com/smallbiznis/roomledger/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxProofsPerTenant caps the portal listing; tenants upload at most a
// handful of proofs per billing period.
const maxProofsPerTenant = 100

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *metrics.Metrics

	proofrepo  repository.Repository[proofdomain.PaymentProof]
	tenantrepo repository.Repository[tenantdomain.Tenant]
}

func NewService(p ServiceParam) proofdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("paymentproof.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,

		proofrepo:  repository.ProvideStore[proofdomain.PaymentProof](p.DB),
		tenantrepo: repository.ProvideStore[tenantdomain.Tenant](p.DB),
	}
}

func (s *Service) Submit(ctx context.Context, req proofdomain.SubmitProofRequest) (proofdomain.PaymentProof, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil {
		return proofdomain.PaymentProof{}, proofdomain.ErrInvalidTenant
	}
	if req.Amount <= 0 {
		return proofdomain.PaymentProof{}, proofdomain.ErrInvalidAmount
	}

	tenant, err := s.tenantrepo.FindOne(ctx, &tenantdomain.Tenant{ID: tenantID})
	if err != nil {
		return proofdomain.PaymentProof{}, err
	}
	if tenant == nil {
		return proofdomain.PaymentProof{}, tenantdomain.ErrNotFound
	}

	proof := proofdomain.PaymentProof{
		ID:        s.genID.Generate(),
		Ref:       ulid.Make().String(),
		TenantID:  tenantID,
		Amount:    req.Amount,
		Note:      strings.TrimSpace(req.Note),
		FileURL:   strings.TrimSpace(req.FileURL),
		Status:    proofdomain.ProofStatusPending,
		CreatedAt: s.clock.Now(ctx),
	}
	if invoiceID := strings.TrimSpace(req.InvoiceID); invoiceID != "" {
		parsed, err := snowflake.ParseString(invoiceID)
		if err != nil {
			return proofdomain.PaymentProof{}, proofdomain.ErrInvalidInvoice
		}
		proof.InvoiceID = &parsed
	}

	if err := s.proofrepo.Create(ctx, &proof); err != nil {
		return proofdomain.PaymentProof{}, err
	}

	s.metrics.RecordProofSubmitted(ctx)
	s.log.Info("payment proof submitted",
		zap.String("ref", proof.Ref),
		zap.String("tenant_id", tenantID.String()),
	)

	return proof, nil
}

func (s *Service) ListByTenant(ctx context.Context, tenantID string) ([]proofdomain.PaymentProof, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil {
		return nil, proofdomain.ErrInvalidTenant
	}

	items, err := s.proofrepo.Find(ctx, &proofdomain.PaymentProof{TenantID: id},
		option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"created_at": true}}),
		option.WithLimit(maxProofsPerTenant),
	)
	if err != nil {
		return nil, err
	}

	proofs := make([]proofdomain.PaymentProof, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		proofs = append(proofs, *item)
	}
	return proofs, nil
}
