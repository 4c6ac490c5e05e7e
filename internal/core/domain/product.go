package domain

import "time"

// Product is a catalog entry. Price and Rating are opaque display values;
// Stock is the only field the reconciliation path mutates.
type Product struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Image     string    `bson:"image" json:"image"`
	Price     string    `bson:"price" json:"price"`
	Rating    string    `bson:"rating" json:"rating"`
	Stock     int       `bson:"stock" json:"stock"`
	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}
