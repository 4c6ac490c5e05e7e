package domain

import "time"

// User is the local profile record for an externally-authenticated account.
// Authentication itself lives with the identity provider; this record only
// carries profile data and anchors cart ownership.
type User struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email" json:"email"`
	Phone     string    `bson:"phone" json:"phone"`
	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}
