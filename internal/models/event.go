package models

import (
	"encoding/json"
	"time"
)

// EventType names a ledger notification kind.
type EventType string

const (
	EventTutorRegistered EventType = "tutor.registered"
	EventSessionBooked   EventType = "session.booked"
)

// LedgerEvent is one entry in the append-only notification log. Events
// are written in the same transaction as the state change they describe
// and consumed by polling, never by callbacks.
type LedgerEvent struct {
	ID           int64           `db:"id" json:"id"`
	Type         EventType       `db:"event_type" json:"type"`
	TutorTokenID int64           `db:"tutor_token_id" json:"tutor_token_id"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// TutorRegisteredPayload is the body of an EventTutorRegistered entry.
type TutorRegisteredPayload struct {
	TokenID int64  `json:"token_id"`
	Owner   string `json:"owner"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
}

// SessionBookedPayload is the body of an EventSessionBooked entry.
type SessionBookedPayload struct {
	TutorTokenID    int64  `json:"tutor_token_id"`
	SessionIndex    int64  `json:"session_index"`
	Student         string `json:"student"`
	DurationSeconds int64  `json:"duration_seconds"`
	Payment         int64  `json:"payment"`
}
