package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scanearn/coinvault/internal/apperror"
)

// ErrWalletNotFound is returned when the user has no wallet yet.
var ErrWalletNotFound = apperror.New(apperror.KindNotFound, "wallet not found")

// Repository persists wallet metadata.
type Repository interface {
	// Create stores w unless the owner already has a wallet.
	Create(ctx context.Context, w Wallet) error
	GetByOwner(ctx context.Context, ownerID string) (Wallet, error)
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a wallet record.
func (r *PostgresRepository) Create(ctx context.Context, w Wallet) error {
	ownerID, err := uuid.Parse(w.OwnerID)
	if err != nil {
		return apperror.Validation("invalid owner id")
	}
	_, err = r.db.Exec(ctx, `INSERT INTO wallets (owner_id, account_code, status, created_at)
        VALUES ($1, $2, $3, $4) ON CONFLICT (owner_id) DO NOTHING`, ownerID, w.AccountCode, w.Status, w.CreatedAt.UTC())
	return apperror.Backend("create wallet", err)
}

// GetByOwner fetches the wallet of a user.
func (r *PostgresRepository) GetByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	ownerUUID, err := uuid.Parse(ownerID)
	if err != nil {
		return Wallet{}, ErrWalletNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT owner_id, account_code, status, created_at
        FROM wallets WHERE owner_id = $1`, ownerUUID)
	var (
		w         Wallet
		owner     uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&owner, &w.AccountCode, &w.Status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, apperror.Backend("load wallet", err)
	}
	w.OwnerID = owner.String()
	w.CreatedAt = createdAt.UTC()
	return w, nil
}
