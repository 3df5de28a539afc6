package repository

import (
	"context"

	"github.com/smallbiznis/roomledger/pkg/db/option"
)

// Repository is the shared typed read/insert surface over gorm. Services
// that need locking, batch updates or raw SQL go through the *gorm.DB
// transaction directly instead.
type Repository[T any] interface {
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
}
