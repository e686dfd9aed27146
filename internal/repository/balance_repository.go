package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tutorbase/ledger-api/internal/models"
)

// BalanceRepository tracks funds released out of escrow per address.
type BalanceRepository struct {
	db *sqlx.DB
}

// NewBalanceRepository constructs a BalanceRepository.
func NewBalanceRepository(db *sqlx.DB) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// Credit adds the released escrow amount to the address balance inside
// the completion transaction.
func (r *BalanceRepository) Credit(ctx context.Context, tx *sqlx.Tx, address string, amount int64) error {
	const query = `INSERT INTO balances (address, available, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (address) DO UPDATE
		SET available = balances.available + EXCLUDED.available, updated_at = EXCLUDED.updated_at`
	if _, err := tx.ExecContext(ctx, query, address, amount, time.Now().UTC()); err != nil {
		return fmt.Errorf("credit balance for %s: %w", address, err)
	}
	return nil
}

// Find returns the balance for an address. Addresses the ledger never
// paid report a zero balance rather than an error.
func (r *BalanceRepository) Find(ctx context.Context, address string) (*models.Balance, error) {
	const query = `SELECT address, available, updated_at FROM balances WHERE address = $1`
	var balance models.Balance
	if err := r.db.GetContext(ctx, &balance, query, address); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.Balance{Address: address}, nil
		}
		return nil, fmt.Errorf("find balance for %s: %w", address, err)
	}
	return &balance, nil
}
