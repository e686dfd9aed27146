package models

import "time"

// User is an API account binding login credentials to a ledger address.
// The ledger itself only ever sees the address; accounts exist so the
// HTTP surface can authenticate callers.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Address      string    `db:"address" json:"address"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
