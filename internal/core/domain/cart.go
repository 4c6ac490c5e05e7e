package domain

import "time"

// CartLine records one user's chosen quantity of one product. At most one
// line exists per (UserID, ProductID) pair, and Quantity is always >= 1;
// a line whose quantity would drop to zero is deleted instead.
type CartLine struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	ProductID string    `bson:"product_id" json:"product_id"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}

// CartItem is the caller-facing view of a cart line merged with a snapshot
// of its product's display fields. Removed marks a removal that deleted the
// line, as opposed to decrementing it.
type CartItem struct {
	ProductID  string `json:"product_id"`
	CartLineID string `json:"cart_line_id"`
	Name       string `json:"name"`
	Image      string `json:"image"`
	Price      string `json:"price"`
	Rating     string `json:"rating"`
	Stock      int    `json:"stock"`
	Quantity   int    `json:"quantity"`
	Removed    bool   `json:"removed,omitempty"`
}
