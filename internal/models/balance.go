package models

import "time"

// Balance tracks funds the ledger has released to an address. Escrow
// for booked sessions is held on the session rows; a balance row only
// ever grows by completed-session releases.
type Balance struct {
	Address   string    `db:"address" json:"address"`
	Available int64     `db:"available" json:"available"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
