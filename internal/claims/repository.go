package claims

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scanearn/coinvault/internal/apperror"
)

var (
	// ErrNotFound is returned when no payment request has the transaction id.
	ErrNotFound = apperror.New(apperror.KindNotFound, "payment request not found")
	// ErrNotPending is returned when a transition targets a resolved request.
	ErrNotPending = apperror.ErrNotPending
	// ErrDuplicateTransaction is returned when a request with the id already exists.
	ErrDuplicateTransaction = apperror.ErrDuplicateTransaction
)

// Repository persists payment requests.
type Repository interface {
	Create(ctx context.Context, pr PaymentRequest) error
	Get(ctx context.Context, transactionID string) (PaymentRequest, error)
	List(ctx context.Context, f Filter) ([]PaymentRequest, error)
	// Transition moves a request from one status to another only if it is still
	// in from. It returns ErrNotFound or ErrNotPending without mutating anything
	// otherwise.
	Transition(ctx context.Context, transactionID string, from, to Status, review Review) (PaymentRequest, error)
}

// PostgresRepository stores payment requests in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const requestColumns = `transaction_id, user_id, tier_inr, amount, COALESCE(utr_id, ''), COALESCE(receipt_id, ''),
        status, flagged, flag_reason, submitted_at, reviewed_at, reviewed_by, review_note`

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Create inserts a pending request.
func (r *PostgresRepository) Create(ctx context.Context, pr PaymentRequest) error {
	_, err := r.db.Exec(ctx, `INSERT INTO payment_requests
        (transaction_id, user_id, tier_inr, amount, utr_id, receipt_id, status, flagged, flag_reason, submitted_at, reviewed_by, review_note)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, '', '')`,
		pr.TransactionID, pr.UserID, pr.TierINR, pr.Amount, nullable(pr.UTR), nullable(pr.ReceiptID),
		string(pr.Status), pr.Flagged, pr.FlagReason, pr.SubmittedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateTransaction
		}
		return apperror.Backend("create payment request", err)
	}
	return nil
}

// Get fetches a request by transaction id.
func (r *PostgresRepository) Get(ctx context.Context, transactionID string) (PaymentRequest, error) {
	row := r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM payment_requests WHERE transaction_id = $1`, transactionID)
	pr, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentRequest{}, ErrNotFound
		}
		return PaymentRequest{}, apperror.Backend("load payment request", err)
	}
	return pr, nil
}

// List returns requests matching f, newest first.
func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]PaymentRequest, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.UTR != "" {
		add("utr_id = $%d", f.UTR)
	}
	if f.FlaggedOnly {
		conds = append(conds, "flagged")
	}
	if !f.SubmittedSince.IsZero() {
		add("submitted_at >= $%d", f.SubmittedSince.UTC())
	}
	if !f.SubmittedTo.IsZero() {
		add("submitted_at < $%d", f.SubmittedTo.UTC())
	}
	if !f.ReviewedSince.IsZero() {
		add("reviewed_at >= $%d", f.ReviewedSince.UTC())
	}

	query := `SELECT ` + requestColumns + ` FROM payment_requests`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY submitted_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.Backend("list payment requests", err)
	}
	defer rows.Close()

	out := make([]PaymentRequest, 0)
	for rows.Next() {
		pr, err := scanRequest(rows)
		if err != nil {
			return nil, apperror.Backend("scan payment request", err)
		}
		out = append(out, pr)
	}
	return out, apperror.Backend("iterate payment requests", rows.Err())
}

// Transition performs a conditional status update.
func (r *PostgresRepository) Transition(ctx context.Context, transactionID string, from, to Status, review Review) (PaymentRequest, error) {
	var reviewedAt any = review.At.UTC()
	if to == StatusPending {
		reviewedAt = nil
	}
	row := r.db.QueryRow(ctx, `UPDATE payment_requests
        SET status = $3, reviewed_at = $4::timestamptz, reviewed_by = $5, review_note = $6
        WHERE transaction_id = $1 AND status = $2
        RETURNING `+requestColumns,
		transactionID, string(from), string(to), reviewedAt, review.Reviewer, review.Note)
	pr, err := scanRequest(row)
	if err == nil {
		return pr, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return PaymentRequest{}, apperror.Backend("transition payment request", err)
	}
	if _, getErr := r.Get(ctx, transactionID); getErr != nil {
		return PaymentRequest{}, getErr
	}
	return PaymentRequest{}, ErrNotPending
}

func scanRequest(row pgx.Row) (PaymentRequest, error) {
	var (
		pr         PaymentRequest
		status     string
		reviewedAt *time.Time
	)
	if err := row.Scan(&pr.TransactionID, &pr.UserID, &pr.TierINR, &pr.Amount, &pr.UTR, &pr.ReceiptID,
		&status, &pr.Flagged, &pr.FlagReason, &pr.SubmittedAt, &reviewedAt, &pr.ReviewedBy, &pr.ReviewNote); err != nil {
		return PaymentRequest{}, err
	}
	pr.Status = Status(status)
	pr.SubmittedAt = pr.SubmittedAt.UTC()
	if reviewedAt != nil {
		at := reviewedAt.UTC()
		pr.ReviewedAt = &at
	}
	return pr, nil
}
