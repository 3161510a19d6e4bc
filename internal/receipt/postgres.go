package receipt

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scanearn/coinvault/internal/apperror"
)

// PostgresStore keeps receipt blobs in a bytea column.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres receipt store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Put inserts the receipt and its content.
func (s *PostgresStore) Put(ctx context.Context, r Receipt, data []byte) error {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return apperror.Validation("invalid receipt id")
	}
	_, err = s.db.Exec(ctx, `INSERT INTO receipts (id, owner_id, content_type, size, data, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, id, r.OwnerID, r.ContentType, r.Size, data, r.CreatedAt.UTC())
	return apperror.Backend("store receipt", err)
}

// Get loads a receipt with its content.
func (s *PostgresStore) Get(ctx context.Context, id string) (Receipt, []byte, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return Receipt{}, nil, ErrNotFound
	}
	var r Receipt
	var data []byte
	var rowID uuid.UUID
	err = s.db.QueryRow(ctx, `SELECT id, owner_id, content_type, size, data, created_at FROM receipts WHERE id = $1`, rid).
		Scan(&rowID, &r.OwnerID, &r.ContentType, &r.Size, &data, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Receipt{}, nil, ErrNotFound
		}
		return Receipt{}, nil, apperror.Backend("load receipt", err)
	}
	r.ID = rowID.String()
	r.CreatedAt = r.CreatedAt.UTC()
	return r, data, nil
}

// Meta loads receipt metadata without the content.
func (s *PostgresStore) Meta(ctx context.Context, id string) (Receipt, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return Receipt{}, ErrNotFound
	}
	var r Receipt
	var rowID uuid.UUID
	err = s.db.QueryRow(ctx, `SELECT id, owner_id, content_type, size, created_at FROM receipts WHERE id = $1`, rid).
		Scan(&rowID, &r.OwnerID, &r.ContentType, &r.Size, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Receipt{}, ErrNotFound
		}
		return Receipt{}, apperror.Backend("load receipt", err)
	}
	r.ID = rowID.String()
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}
