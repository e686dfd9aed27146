package dto

import (
	"time"

	"github.com/tutorbase/ledger-api/internal/models"
)

// TutorProfileResponse is the profile tuple the ledger exposes. Rating
// is the derived 0-5 average scaled by 100.
type TutorProfileResponse struct {
	TokenID       int64     `json:"token_id"`
	Name          string    `json:"name"`
	Subject       string    `json:"subject"`
	Bio           string    `json:"bio"`
	HourlyRate    int64     `json:"hourly_rate"`
	TokenURI      string    `json:"token_uri,omitempty"`
	TotalSessions int64     `json:"total_sessions"`
	Rating        int64     `json:"rating"`
	RatingCount   int64     `json:"rating_count"`
	IsActive      bool      `json:"is_active"`
	Owner         string    `json:"owner"`
	CreatedAt     time.Time `json:"created_at"`
}

// TutorProfileFromModel maps a stored profile to its response tuple,
// deriving the scaled rating.
func TutorProfileFromModel(p *models.TutorProfile) TutorProfileResponse {
	return TutorProfileResponse{
		TokenID:       p.TokenID,
		Name:          p.Name,
		Subject:       p.Subject,
		Bio:           p.Bio,
		HourlyRate:    p.HourlyRate,
		TokenURI:      p.TokenURI,
		TotalSessions: p.TotalSessions,
		Rating:        p.Rating(),
		RatingCount:   p.RatingCount,
		IsActive:      p.IsActive,
		Owner:         p.Owner,
		CreatedAt:     p.CreatedAt,
	}
}

// RegisterTutorResponse returns the minted token id.
type RegisterTutorResponse struct {
	TokenID int64 `json:"token_id"`
}

// TokenIDsResponse wraps an ordered token id sequence.
type TokenIDsResponse struct {
	TokenIDs []int64 `json:"token_ids"`
}

// EscrowLiabilityResponse reports ledger-held escrow for booked sessions.
type EscrowLiabilityResponse struct {
	TotalEscrow int64 `json:"total_escrow"`
}
