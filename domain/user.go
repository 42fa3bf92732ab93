package domain

import "time"

// User is the single operator identity. Exactly one record exists; it is
// fixed at deployment time and has no runtime mutation API.
type User struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Email        string    `bson:"email"         json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	CreatedAt    time.Time `bson:"created_at"    json:"created_at"`
}
