package models

import "time"

// SessionState enumerates the session lifecycle. A session is created
// booked and transitions exactly once to completed; it is never deleted.
type SessionState string

const (
	SessionStateBooked    SessionState = "booked"
	SessionStateCompleted SessionState = "completed"
)

// Session is one booked engagement between a student and a tutor
// identity, keyed by (tutor token id, per-tutor sequential index).
type Session struct {
	TutorTokenID    int64        `db:"tutor_token_id" json:"tutor_token_id"`
	SessionIndex    int64        `db:"session_index" json:"session_index"`
	Student         string       `db:"student_address" json:"student"`
	DurationSeconds int64        `db:"duration_seconds" json:"duration_seconds"`
	EscrowAmount    int64        `db:"escrow_amount" json:"escrow_amount"`
	State           SessionState `db:"state" json:"state"`
	Rating          *int16       `db:"rating" json:"rating,omitempty"`
	BookedAt        time.Time    `db:"booked_at" json:"booked_at"`
	CompletedAt     *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
}

// SessionFilter captures filtering options for listing a tutor's sessions.
type SessionFilter struct {
	State SessionState
}
