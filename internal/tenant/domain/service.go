package domain

import (
	"context"
	"errors"
)

type ListTenantRequest struct {
	Status *TenantStatus
}

type ListTenantResponse struct {
	Tenants []Tenant `json:"tenants"`
}

// TenantDetail pairs a tenant with its assigned room, when any.
type TenantDetail struct {
	Tenant Tenant `json:"tenant"`
	Room   *Room  `json:"room"`
}

type Service interface {
	List(ctx context.Context, req ListTenantRequest) (ListTenantResponse, error)
	GetByID(ctx context.Context, id string) (Tenant, error)
	GetDetail(ctx context.Context, id string) (TenantDetail, error)
}

var (
	ErrNotFound  = errors.New("tenant_not_found")
	ErrInvalidID = errors.New("invalid_tenant_id")
)
