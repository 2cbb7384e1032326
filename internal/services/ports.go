package services

import (
	"context"
	"net/url"

	"backoffice/internal/core"
)

// Lister reads a collection. *erp.Resource satisfies it.
type Lister[T any] interface {
	List(ctx context.Context, query url.Values) ([]T, error)
}

// Store is a full ERP collection.
type Store[T any] interface {
	Lister[T]
	Get(ctx context.Context, id int64) (T, error)
	Create(ctx context.Context, v T) (T, error)
	Update(ctx context.Context, id int64, v T) (T, error)
	Delete(ctx context.Context, id int64) error
}

// CostCenterSource lists cost centers, usually through the erp.Catalog cache.
type CostCenterSource interface {
	CostCenters(ctx context.Context) ([]core.CostCenter, error)
}
