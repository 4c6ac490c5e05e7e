package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// maxTxAttempts bounds retries of a unit of work after a transaction
// conflict. Business failures are never retried.
const maxTxAttempts = 3

// CartService reconciles cart lines against product stock. Every mutation
// runs inside one transaction so the cart-line quantity and the stock
// counter move together or not at all.
type CartService struct {
	tx     port.TxRunner
	carts  port.CartStore
	inv    port.InventoryStore
	cache  port.CatalogCache
	log    *logrus.Logger
	tracer trace.Tracer
}

func NewCartService(tx port.TxRunner, carts port.CartStore, inv port.InventoryStore, cache port.CatalogCache, log *logrus.Logger) *CartService {
	return &CartService{
		tx:     tx,
		carts:  carts,
		inv:    inv,
		cache:  cache,
		log:    log,
		tracer: otel.Tracer("cart-service"),
	}
}

// AddToCart puts one unit of the product into the user's cart: it creates
// the line with quantity 1 or increments an existing one, and decrements
// the product's stock in the same transaction. Stock never goes below zero;
// an exhausted product fails with domain.ErrOutOfStock and no mutation.
func (s *CartService) AddToCart(ctx context.Context, userID, productID string) (*domain.CartItem, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.AddToCart",
		trace.WithAttributes(attribute.String("product.id", productID)))
	defer span.End()

	var item *domain.CartItem
	err := s.withConflictRetry(ctx, func(ctx context.Context) error {
		product, err := s.inv.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrProductNotFound
		}
		if product.Stock <= 0 {
			return domain.ErrOutOfStock
		}

		line, err := s.carts.GetCartLine(ctx, userID, productID)
		if err != nil {
			return err
		}

		now := time.Now()
		if line == nil {
			line = &domain.CartLine{
				ID:        uuid.New().String(),
				UserID:    userID,
				ProductID: productID,
				Quantity:  1,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.carts.CreateCartLine(ctx, *line); err != nil {
				return err
			}
		} else {
			if err := s.carts.UpdateCartLineQuantity(ctx, line.ID, line.Quantity, line.Quantity+1); err != nil {
				return err
			}
			line.Quantity++
		}

		if err := s.inv.UpdateProductStock(ctx, productID, product.Stock, product.Stock-1); err != nil {
			return err
		}
		product.Stock--

		item = cartItemView(product, line)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx, productID)
	return item, nil
}

// RemoveFromCart takes one unit of the product back out of the user's cart
// and returns it to stock. A line at quantity 1 is deleted and the result
// carries the Removed marker. Removing a product that is not in the cart is
// a caller error, not a no-op.
func (s *CartService) RemoveFromCart(ctx context.Context, userID, productID string) (*domain.CartItem, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.RemoveFromCart",
		trace.WithAttributes(attribute.String("product.id", productID)))
	defer span.End()

	var item *domain.CartItem
	err := s.withConflictRetry(ctx, func(ctx context.Context) error {
		line, err := s.carts.GetCartLine(ctx, userID, productID)
		if err != nil {
			return err
		}
		if line == nil {
			return domain.ErrNotInCart
		}

		// Guards against a line referencing a product that disappeared.
		product, err := s.inv.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrProductNotFound
		}

		removed := line.Quantity == 1
		if removed {
			if err := s.carts.DeleteCartLine(ctx, line.ID); err != nil {
				return err
			}
			line.Quantity = 0
		} else {
			if err := s.carts.UpdateCartLineQuantity(ctx, line.ID, line.Quantity, line.Quantity-1); err != nil {
				return err
			}
			line.Quantity--
		}

		if err := s.inv.UpdateProductStock(ctx, productID, product.Stock, product.Stock+1); err != nil {
			return err
		}
		product.Stock++

		item = cartItemView(product, line)
		item.Removed = removed
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx, productID)
	return item, nil
}

// ListCart returns the user's cart lines enriched with product display
// fields. An empty cart yields an empty slice.
func (s *CartService) ListCart(ctx context.Context, userID string) ([]domain.CartItem, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.ListCart")
	defer span.End()

	lines, err := s.carts.ListCartLines(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]domain.CartItem, 0, len(lines))
	for i := range lines {
		line := lines[i]
		product, err := s.inv.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			// Dangling reference; the line is unusable for display.
			s.log.WithFields(logrus.Fields{
				"cart_line_id": line.ID,
				"product_id":   line.ProductID,
			}).Warn("cart line references missing product")
			continue
		}
		items = append(items, *cartItemView(product, &line))
	}
	return items, nil
}

// withConflictRetry reruns the whole unit of work after a transaction
// conflict, up to maxTxAttempts. Anything else propagates unchanged.
func (s *CartService) withConflictRetry(ctx context.Context, fn port.UnitOfWork) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.tx.RunInTransaction(ctx, fn)
		if err == nil || !errors.Is(err, domain.ErrTxConflict) {
			return err
		}
		s.log.WithFields(logrus.Fields{"attempt": attempt}).Warn("transaction conflict, retrying")
	}
	return fmt.Errorf("%w: %v", domain.ErrConflict, err)
}

// invalidateCatalog drops cache entries made stale by a committed stock
// change. Failures only cost freshness, never correctness.
func (s *CartService) invalidateCatalog(ctx context.Context, productID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProduct(ctx, productID); err != nil {
		s.log.WithError(err).WithField("product_id", productID).Warn("failed to invalidate product cache")
	}
	if err := s.cache.InvalidateProductList(ctx); err != nil {
		s.log.WithError(err).Warn("failed to invalidate product list cache")
	}
}

func cartItemView(p *domain.Product, l *domain.CartLine) *domain.CartItem {
	return &domain.CartItem{
		ProductID:  p.ID,
		CartLineID: l.ID,
		Name:       p.Name,
		Image:      p.Image,
		Price:      p.Price,
		Rating:     p.Rating,
		Stock:      p.Stock,
		Quantity:   l.Quantity,
	}
}
