package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tutorbase/ledger-api/internal/models"
)

// EventRepository appends to and reads the ledger notification log.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Append writes one event inside the transaction of the operation that
// produced it, so the event exists exactly when the state change does.
func (r *EventRepository) Append(ctx context.Context, tx *sqlx.Tx, eventType models.EventType, tutorTokenID int64, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	const query = `INSERT INTO ledger_events (event_type, tutor_token_id, payload) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, query, eventType, tutorTokenID, raw); err != nil {
		return fmt.Errorf("append %s event: %w", eventType, err)
	}
	return nil
}

// List returns up to limit events with id greater than afterID, oldest
// first. Pollers keep their own cursor.
func (r *EventRepository) List(ctx context.Context, afterID int64, limit int) ([]models.LedgerEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const query = `SELECT id, event_type, tutor_token_id, payload, created_at
		FROM ledger_events WHERE id > $1 ORDER BY id LIMIT $2`
	events := []models.LedgerEvent{}
	if err := r.db.SelectContext(ctx, &events, query, afterID, limit); err != nil {
		return nil, fmt.Errorf("list events after %d: %w", afterID, err)
	}
	return events, nil
}
