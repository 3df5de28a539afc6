package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	tenantdomain "github.com/smallbiznis/roomledger/internal/tenant/domain"
	"github.com/smallbiznis/roomledger/pkg/db/option"
	"github.com/smallbiznis/roomledger/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	tenantrepo repository.Repository[tenantdomain.Tenant]
	roomrepo   repository.Repository[tenantdomain.Room]
}

func NewService(p ServiceParam) tenantdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("tenant.service"),

		tenantrepo: repository.ProvideStore[tenantdomain.Tenant](p.DB),
		roomrepo:   repository.ProvideStore[tenantdomain.Room](p.DB),
	}
}

func (s *Service) List(ctx context.Context, req tenantdomain.ListTenantRequest) (tenantdomain.ListTenantResponse, error) {
	filter := &tenantdomain.Tenant{}
	if req.Status != nil {
		filter.Status = *req.Status
	}

	items, err := s.tenantrepo.Find(ctx, filter, option.WithSortBy(option.QuerySortBy{
		Allow: map[string]bool{"created_at": true},
	}))
	if err != nil {
		return tenantdomain.ListTenantResponse{}, err
	}

	tenants := make([]tenantdomain.Tenant, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		tenants = append(tenants, *item)
	}

	return tenantdomain.ListTenantResponse{Tenants: tenants}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (tenantdomain.Tenant, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return tenantdomain.Tenant{}, tenantdomain.ErrInvalidID
	}

	item, err := s.tenantrepo.FindOne(ctx, &tenantdomain.Tenant{ID: tenantID})
	if err != nil {
		return tenantdomain.Tenant{}, err
	}
	if item == nil {
		return tenantdomain.Tenant{}, tenantdomain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) GetDetail(ctx context.Context, id string) (tenantdomain.TenantDetail, error) {
	tenant, err := s.GetByID(ctx, id)
	if err != nil {
		return tenantdomain.TenantDetail{}, err
	}

	detail := tenantdomain.TenantDetail{Tenant: tenant}
	if tenant.RoomID != nil {
		room, err := s.roomrepo.FindOne(ctx, &tenantdomain.Room{ID: *tenant.RoomID})
		if err != nil {
			return tenantdomain.TenantDetail{}, err
		}
		detail.Room = room
	}

	return detail, nil
}
