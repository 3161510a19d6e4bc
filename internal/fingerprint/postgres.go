package fingerprint

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scanearn/coinvault/internal/apperror"
)

// PostgresRegistry stores fingerprints in a table whose primary key enforces uniqueness.
type PostgresRegistry struct {
	db *pgxpool.Pool
}

// NewPostgresRegistry builds a registry backed by PostgreSQL.
func NewPostgresRegistry(db *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

// Reserve inserts the id; a conflicting row means it was consumed earlier.
func (r *PostgresRegistry) Reserve(ctx context.Context, res Reservation) error {
	id := Normalize(res.TransactionID)
	if id == "" {
		return apperror.Validation("transaction id is required")
	}
	if res.ReservedAt.IsZero() {
		res.ReservedAt = time.Now().UTC()
	}
	cmd, err := r.db.Exec(ctx, `INSERT INTO transaction_fingerprints (transaction_id, user_id, purpose, reserved_at)
        VALUES ($1, $2, $3, $4) ON CONFLICT (transaction_id) DO NOTHING`,
		id, res.UserID, string(res.Purpose), res.ReservedAt.UTC())
	if err != nil {
		return apperror.Backend("reserve transaction id", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyUsed
	}
	return nil
}

// Lookup fetches a reservation by id.
func (r *PostgresRegistry) Lookup(ctx context.Context, transactionID string) (Reservation, bool, error) {
	var res Reservation
	var purpose string
	err := r.db.QueryRow(ctx, `SELECT transaction_id, user_id, purpose, reserved_at
        FROM transaction_fingerprints WHERE transaction_id = $1`, Normalize(transactionID)).
		Scan(&res.TransactionID, &res.UserID, &purpose, &res.ReservedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Reservation{}, false, nil
		}
		return Reservation{}, false, apperror.Backend("lookup transaction id", err)
	}
	res.Purpose = Purpose(purpose)
	res.ReservedAt = res.ReservedAt.UTC()
	return res, true, nil
}
