package models

import "time"

// TutorProfile is a minted tutor identity and its booking aggregates.
// Token ids are allocated strictly increasing, starting at 1, and are
// never reused.
type TutorProfile struct {
	TokenID       int64     `db:"token_id" json:"token_id"`
	Owner         string    `db:"owner_address" json:"owner"`
	Name          string    `db:"name" json:"name"`
	Subject       string    `db:"subject" json:"subject"`
	Bio           string    `db:"bio" json:"bio"`
	HourlyRate    int64     `db:"hourly_rate" json:"hourly_rate"`
	TokenURI      string    `db:"token_uri" json:"token_uri,omitempty"`
	TotalSessions int64     `db:"total_sessions" json:"total_sessions"`
	RatingSum     int64     `db:"rating_sum" json:"rating_sum"`
	RatingCount   int64     `db:"rating_count" json:"rating_count"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Rating derives the average rating on the 0-5 scale multiplied by 100
// for two-decimal display. Never stored; recomputed on every read.
func (p *TutorProfile) Rating() int64 {
	if p.RatingCount == 0 {
		return 0
	}
	return p.RatingSum * 100 / p.RatingCount
}

// RequiredEscrow computes the exact escrow a booking of the given
// duration must carry: hourly rate prorated by seconds, truncated
// toward zero.
func (p *TutorProfile) RequiredEscrow(durationSeconds int64) int64 {
	return p.HourlyRate * durationSeconds / 3600
}
