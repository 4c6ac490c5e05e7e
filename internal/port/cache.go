package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

// CatalogCache is a best-effort read cache for catalog browsing. It sits
// outside the transaction boundary; a stale or missing entry is never an
// error, only a slower read.
type CatalogCache interface {
	// GetProduct returns the cached product, or nil on a miss.
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)

	SetProduct(ctx context.Context, product domain.Product) error

	InvalidateProduct(ctx context.Context, productID string) error

	// GetProductList returns the cached catalog listing, or nil on a miss.
	GetProductList(ctx context.Context) ([]domain.Product, error)

	SetProductList(ctx context.Context, products []domain.Product) error

	InvalidateProductList(ctx context.Context) error
}
