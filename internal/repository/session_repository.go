package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tutorbase/ledger-api/internal/models"
)

const sessionColumns = "tutor_token_id, session_index, student_address, duration_seconds, escrow_amount, state, rating, booked_at, completed_at"

// SessionRepository manages persistence for booked sessions and their
// escrowed funds.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// NextIndex allocates the next sequential session index for a tutor,
// starting at 0, inside the booking transaction.
func (r *SessionRepository) NextIndex(ctx context.Context, tx *sqlx.Tx, tutorTokenID int64) (int64, error) {
	var next int64
	if err := tx.GetContext(ctx, &next, "SELECT COALESCE(MAX(session_index), -1) + 1 FROM sessions WHERE tutor_token_id = $1", tutorTokenID); err != nil {
		return 0, fmt.Errorf("allocate session index for tutor %d: %w", tutorTokenID, err)
	}
	return next, nil
}

// Create inserts a booked session, moving its payment into ledger-held
// escrow.
func (r *SessionRepository) Create(ctx context.Context, tx *sqlx.Tx, session *models.Session) error {
	session.BookedAt = time.Now().UTC()

	const query = `INSERT INTO sessions (tutor_token_id, session_index, student_address, duration_seconds, escrow_amount, state, rating, booked_at, completed_at)
		VALUES (:tutor_token_id, :session_index, :student_address, :duration_seconds, :escrow_amount, :state, :rating, :booked_at, :completed_at)`
	if _, err := tx.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Find fetches a session by its composite key.
func (r *SessionRepository) Find(ctx context.Context, tutorTokenID, sessionIndex int64) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE tutor_token_id = $1 AND session_index = $2", sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, tutorTokenID, sessionIndex); err != nil {
		return nil, err
	}
	return &session, nil
}

// Lock fetches a session inside the transaction, holding its row lock
// until commit.
func (r *SessionRepository) Lock(ctx context.Context, tx *sqlx.Tx, tutorTokenID, sessionIndex int64) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE tutor_token_id = $1 AND session_index = $2 FOR UPDATE", sessionColumns)
	var session models.Session
	if err := tx.GetContext(ctx, &session, query, tutorTokenID, sessionIndex); err != nil {
		return nil, err
	}
	return &session, nil
}

// Complete marks a booked session completed with its rating. The state
// guard in the WHERE clause makes the transition first-writer-wins even
// if a caller bypasses the service lock.
func (r *SessionRepository) Complete(ctx context.Context, tx *sqlx.Tx, tutorTokenID, sessionIndex int64, rating int16) error {
	const query = `UPDATE sessions
		SET state = $3, rating = $4, completed_at = $5
		WHERE tutor_token_id = $1 AND session_index = $2 AND state = $6`
	res, err := tx.ExecContext(ctx, query, tutorTokenID, sessionIndex, models.SessionStateCompleted, rating, time.Now().UTC(), models.SessionStateBooked)
	if err != nil {
		return fmt.Errorf("complete session (%d,%d): %w", tutorTokenID, sessionIndex, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete session (%d,%d): %w", tutorTokenID, sessionIndex, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns a tutor's sessions in index order, optionally filtered
// by state.
func (r *SessionRepository) List(ctx context.Context, tutorTokenID int64, filter models.SessionFilter) ([]models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE tutor_token_id = $1", sessionColumns)
	args := []interface{}{tutorTokenID}
	if filter.State != "" {
		query += " AND state = $2"
		args = append(args, filter.State)
	}
	query += " ORDER BY session_index"

	sessions := []models.Session{}
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions for tutor %d: %w", tutorTokenID, err)
	}
	return sessions, nil
}

// EscrowLiability sums escrow held for all booked sessions: funds the
// ledger owns until completion releases them.
func (r *SessionRepository) EscrowLiability(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COALESCE(SUM(escrow_amount), 0) FROM sessions WHERE state = $1", models.SessionStateBooked); err != nil {
		return 0, fmt.Errorf("sum escrow liability: %w", err)
	}
	return total, nil
}
