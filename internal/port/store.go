package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

// UnitOfWork is a bounded set of store reads and writes executed with
// all-or-nothing visibility.
type UnitOfWork func(ctx context.Context) error

type TxRunner interface {
	// RunInTransaction executes fn atomically across the cart and product
	// collections. An error from fn aborts the transaction and is returned
	// to the caller; transient collisions surface as domain.ErrTxConflict.
	// The runner performs no retries and rejects nested transactions.
	RunInTransaction(ctx context.Context, fn UnitOfWork) error
}

type InventoryStore interface {
	// GetProduct returns the product, or nil when it does not exist.
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)

	// ListProducts returns all products sorted by name.
	ListProducts(ctx context.Context) ([]domain.Product, error)

	// CreateProducts persists a batch of new products.
	CreateProducts(ctx context.Context, products []domain.Product) error

	// UpdateProductStock moves stock from fromStock to toStock. The write
	// matches only when the current value still equals fromStock; a
	// mismatch returns domain.ErrTxConflict.
	UpdateProductStock(ctx context.Context, productID string, fromStock, toStock int) error
}

type CartStore interface {
	// GetCartLine returns the line for (userID, productID), or nil when
	// the user has no line for that product.
	GetCartLine(ctx context.Context, userID, productID string) (*domain.CartLine, error)

	// ListCartLines returns all lines owned by userID.
	ListCartLines(ctx context.Context, userID string) ([]domain.CartLine, error)

	// CreateCartLine persists a new line. A concurrent create for the same
	// (userID, productID) pair returns domain.ErrTxConflict.
	CreateCartLine(ctx context.Context, line domain.CartLine) error

	// UpdateCartLineQuantity moves the line quantity from fromQty to toQty
	// with the same conditional-write discipline as UpdateProductStock.
	UpdateCartLineQuantity(ctx context.Context, lineID string, fromQty, toQty int) error

	// DeleteCartLine removes the line, returning domain.ErrNotInCart when
	// it no longer exists.
	DeleteCartLine(ctx context.Context, lineID string) error
}

type UserStore interface {
	// FindUserByEmailOrPhone returns a profile matching either credential,
	// or nil when none exists. Empty arguments are not matched.
	FindUserByEmailOrPhone(ctx context.Context, email, phone string) (*domain.User, error)

	// CreateUser persists a new profile; a duplicate email or phone
	// returns domain.ErrUserExists.
	CreateUser(ctx context.Context, user domain.User) error
}
