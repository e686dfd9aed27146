package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tutorbase/ledger-api/internal/models"
)

const tutorColumns = "token_id, owner_address, name, subject, bio, hourly_rate, token_uri, total_sessions, rating_sum, rating_count, is_active, created_at, updated_at"

// TutorRepository manages persistence for tutor identities.
type TutorRepository struct {
	db *sqlx.DB
}

// NewTutorRepository constructs a TutorRepository.
func NewTutorRepository(db *sqlx.DB) *TutorRepository {
	return &TutorRepository{db: db}
}

// NextTokenID allocates the next token id inside the operation's
// transaction. Ids start at 1 and advance by exactly one per successful
// registration; a rolled-back transaction never consumes one.
func (r *TutorRepository) NextTokenID(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	var next int64
	if err := tx.GetContext(ctx, &next, "SELECT COALESCE(MAX(token_id), 0) + 1 FROM tutors"); err != nil {
		return 0, fmt.Errorf("allocate token id: %w", err)
	}
	return next, nil
}

// Create inserts a new tutor profile.
func (r *TutorRepository) Create(ctx context.Context, tx *sqlx.Tx, profile *models.TutorProfile) error {
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	const query = `INSERT INTO tutors (token_id, owner_address, name, subject, bio, hourly_rate, token_uri, total_sessions, rating_sum, rating_count, is_active, created_at, updated_at)
		VALUES (:token_id, :owner_address, :name, :subject, :bio, :hourly_rate, :token_uri, :total_sessions, :rating_sum, :rating_count, :is_active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create tutor: %w", err)
	}
	return nil
}

// FindByID fetches a tutor profile by token id.
func (r *TutorRepository) FindByID(ctx context.Context, tokenID int64) (*models.TutorProfile, error) {
	query := fmt.Sprintf("SELECT %s FROM tutors WHERE token_id = $1", tutorColumns)
	var profile models.TutorProfile
	if err := r.db.GetContext(ctx, &profile, query, tokenID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Lock fetches a tutor profile inside the transaction, holding its row
// lock until commit.
func (r *TutorRepository) Lock(ctx context.Context, tx *sqlx.Tx, tokenID int64) (*models.TutorProfile, error) {
	query := fmt.Sprintf("SELECT %s FROM tutors WHERE token_id = $1 FOR UPDATE", tutorColumns)
	var profile models.TutorProfile
	if err := tx.GetContext(ctx, &profile, query, tokenID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListActiveIDs returns the active index: token ids of active tutors in
// registration order.
func (r *TutorRepository) ListActiveIDs(ctx context.Context) ([]int64, error) {
	ids := []int64{}
	if err := r.db.SelectContext(ctx, &ids, "SELECT token_id FROM tutors WHERE is_active ORDER BY token_id"); err != nil {
		return nil, fmt.Errorf("list active tutors: %w", err)
	}
	return ids, nil
}

// ListIDsByOwner returns all token ids owned by the address, active or
// not, in registration order.
func (r *TutorRepository) ListIDsByOwner(ctx context.Context, owner string) ([]int64, error) {
	ids := []int64{}
	if err := r.db.SelectContext(ctx, &ids, "SELECT token_id FROM tutors WHERE owner_address = $1 ORDER BY token_id", owner); err != nil {
		return nil, fmt.Errorf("list tutors by owner: %w", err)
	}
	return ids, nil
}

// ApplyCompletion folds one completed, rated session into the profile
// aggregates. The three counters move together, always.
func (r *TutorRepository) ApplyCompletion(ctx context.Context, tx *sqlx.Tx, tokenID int64, rating int16) error {
	const query = `UPDATE tutors
		SET rating_sum = rating_sum + $2,
			rating_count = rating_count + 1,
			total_sessions = total_sessions + 1,
			updated_at = $3
		WHERE token_id = $1`
	if _, err := tx.ExecContext(ctx, query, tokenID, rating, time.Now().UTC()); err != nil {
		return fmt.Errorf("apply completion to tutor %d: %w", tokenID, err)
	}
	return nil
}

// SetActive flips the activation flag. The active index query reflects
// the flag directly, so flag and index can never diverge.
func (r *TutorRepository) SetActive(ctx context.Context, tx *sqlx.Tx, tokenID int64, active bool) error {
	const query = `UPDATE tutors SET is_active = $2, updated_at = $3 WHERE token_id = $1`
	if _, err := tx.ExecContext(ctx, query, tokenID, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("set tutor %d active=%t: %w", tokenID, active, err)
	}
	return nil
}
