package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// CatalogService serves product reads and administration outside the
// reconciliation path. Reads go through the cache; the store stays the
// source of truth.
type CatalogService struct {
	inv   port.InventoryStore
	cache port.CatalogCache
	log   *logrus.Logger
}

func NewCatalogService(inv port.InventoryStore, cache port.CatalogCache, log *logrus.Logger) *CatalogService {
	return &CatalogService{inv: inv, cache: cache, log: log}
}

func (s *CatalogService) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetProduct(ctx, productID); err != nil {
			s.log.WithError(err).Warn("product cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	product, err := s.inv.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}

	if s.cache != nil {
		if err := s.cache.SetProduct(ctx, *product); err != nil {
			s.log.WithError(err).Warn("product cache write failed")
		}
	}
	return product, nil
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetProductList(ctx); err != nil {
			s.log.WithError(err).Warn("product list cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	products, err := s.inv.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetProductList(ctx, products); err != nil {
			s.log.WithError(err).Warn("product list cache write failed")
		}
	}
	return products, nil
}

// CreateProducts assigns IDs and timestamps to a batch of new products and
// persists them. Initial stock must not be negative.
func (s *CatalogService) CreateProducts(ctx context.Context, products []domain.Product) ([]domain.Product, error) {
	if len(products) == 0 {
		return nil, fmt.Errorf("%w: empty product batch", domain.ErrInvalidInput)
	}

	now := time.Now()
	for i := range products {
		if products[i].Name == "" {
			return nil, fmt.Errorf("%w: product name is required", domain.ErrInvalidInput)
		}
		if products[i].Stock < 0 {
			return nil, fmt.Errorf("%w: stock must not be negative", domain.ErrInvalidInput)
		}
		products[i].ID = uuid.New().String()
		products[i].CreatedAt = now
		products[i].UpdatedAt = now
	}

	if err := s.inv.CreateProducts(ctx, products); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateProductList(ctx); err != nil {
			s.log.WithError(err).Warn("failed to invalidate product list cache")
		}
	}
	return products, nil
}
