package domain

import "errors"

var (
	// ErrProductNotFound means the referenced product does not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrNotInCart means the caller has no cart line for the product.
	ErrNotInCart = errors.New("item not in cart")

	// ErrOutOfStock means stock was already zero at decrement time.
	ErrOutOfStock = errors.New("out of stock")

	// ErrTxConflict is a transient write collision; the whole unit of work
	// may be retried.
	ErrTxConflict = errors.New("transaction conflict")

	// ErrConflict means the operation could not be serialized against
	// concurrent writers within the retry budget.
	ErrConflict = errors.New("conflict with concurrent writers")

	// ErrUnavailable means the persistence infrastructure failed.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrUnauthorized means the bearer credential could not be verified.
	ErrUnauthorized = errors.New("invalid token")

	// ErrUserExists means a profile with the same email or phone exists.
	ErrUserExists = errors.New("email or phone already registered")

	// ErrInvalidInput means the request failed validation.
	ErrInvalidInput = errors.New("invalid input")
)
