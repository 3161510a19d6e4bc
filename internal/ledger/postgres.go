package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scanearn/coinvault/internal/apperror"
)

const uniqueViolation = "23505"

// PostgresLedger persists ledger entries in PostgreSQL ensuring double-entry balance.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureAccount guarantees an account exists for the user.
func (l *PostgresLedger) EnsureAccount(ctx context.Context, userID string) error {
	return ensureAccountCode(ctx, l.db, AccountCode(userID))
}

// EnsureSystemAccounts creates the contra accounts used for issuance and payouts.
func (l *PostgresLedger) EnsureSystemAccounts(ctx context.Context) error {
	for _, code := range []string{IssuanceAccountCode, PayoutAccountCode} {
		if err := ensureAccountCode(ctx, l.db, code); err != nil {
			return err
		}
	}
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func ensureAccountCode(ctx context.Context, db execer, code string) error {
	_, err := db.Exec(ctx, `INSERT INTO accounts (id, code) VALUES ($1, $2)
        ON CONFLICT (code) DO NOTHING`, uuid.New(), code)
	return apperror.Backend("ensure account", err)
}

// Balance returns the summed balance for the user's account.
func (l *PostgresLedger) Balance(ctx context.Context, userID string) (int64, error) {
	const query = `
        SELECT COALESCE(SUM(e.amount), 0)
        FROM entries e
        INNER JOIN accounts a ON a.id = e.account_id
        WHERE a.code = $1`
	var balance int64
	if err := l.db.QueryRow(ctx, query, AccountCode(userID)).Scan(&balance); err != nil {
		return 0, apperror.Backend("query balance", err)
	}
	return balance, nil
}

// Credit mints coins into the user's account from the issuance account.
func (l *PostgresLedger) Credit(ctx context.Context, userID, clientTxID string, amount int64, reason string) (PostingResult, error) {
	return l.post(ctx, KindAddFunds, userID, clientTxID, amount, reason)
}

// Debit moves coins from the user's account into the payout account. The user row
// is locked for the duration so concurrent debits cannot both pass the balance check.
func (l *PostgresLedger) Debit(ctx context.Context, userID, clientTxID string, amount int64, reason string) (PostingResult, error) {
	return l.post(ctx, KindWithdrawal, userID, clientTxID, amount, reason)
}

func (l *PostgresLedger) post(ctx context.Context, kind Kind, userID, clientTxID string, amount int64, reason string) (PostingResult, error) {
	if amount <= 0 {
		return PostingResult{}, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PostingResult{}, apperror.Backend("begin posting", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	userCode := AccountCode(userID)
	if err := ensureAccountCode(ctx, tx, userCode); err != nil {
		return PostingResult{}, err
	}
	userAccountID, err := accountIDForCode(ctx, tx, userCode)
	if err != nil {
		return PostingResult{}, err
	}
	contraCode := IssuanceAccountCode
	if kind == KindWithdrawal {
		contraCode = PayoutAccountCode
	}
	var contraAccountID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM accounts WHERE code = $1`, contraCode).Scan(&contraAccountID)
	if err != nil {
		return PostingResult{}, apperror.Backend("load contra account "+contraCode, err)
	}

	const existingQuery = `SELECT client_tx_id, kind, user_id, amount, reason, created_at
        FROM transactions WHERE client_tx_id = $1 AND kind = $2`
	var existing Transaction
	var existingKind string
	if err := tx.QueryRow(ctx, existingQuery, clientTxID, string(kind)).Scan(
		&existing.TransactionID, &existingKind, &existing.UserID, &existing.Amount, &existing.Reason, &existing.CreatedAt,
	); err == nil {
		existing.Kind = Kind(existingKind)
		bal, balErr := balanceForAccount(ctx, tx, userAccountID)
		if balErr != nil {
			return PostingResult{}, balErr
		}
		return PostingResult{Transaction: existing, Balance: bal}, ErrDuplicateTransaction
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return PostingResult{}, apperror.Backend("lookup transaction", err)
	}

	balance, err := balanceForAccount(ctx, tx, userAccountID)
	if err != nil {
		return PostingResult{}, err
	}
	userDelta, contraDelta := amount, -amount
	if kind == KindWithdrawal {
		if balance < amount {
			return PostingResult{}, ErrInsufficientFunds
		}
		userDelta, contraDelta = -amount, amount
	}

	posted := Transaction{
		TransactionID: clientTxID,
		Kind:          kind,
		UserID:        userID,
		Amount:        amount,
		Reason:        reason,
		CreatedAt:     time.Now().UTC(),
	}
	txID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO transactions (id, client_tx_id, kind, status, user_id, amount, reason, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		txID, clientTxID, string(kind), statusSettled, userID, amount, reason, posted.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return PostingResult{}, ErrDuplicateTransaction
		}
		return PostingResult{}, apperror.Backend("insert transaction", err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`, uuid.New(), txID, userAccountID, userDelta); err != nil {
		return PostingResult{}, apperror.Backend("insert entry", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`, uuid.New(), txID, contraAccountID, contraDelta); err != nil {
		return PostingResult{}, apperror.Backend("insert entry", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return PostingResult{}, apperror.Backend("commit posting", err)
	}

	return PostingResult{Transaction: posted, Balance: balance + userDelta}, nil
}

// Transactions lists a user's settled postings, newest first. An empty kind returns both streams.
func (l *PostgresLedger) Transactions(ctx context.Context, userID string, kind Kind) ([]Transaction, error) {
	rows, err := l.db.Query(ctx, `SELECT client_tx_id, kind, user_id, amount, reason, created_at
        FROM transactions
        WHERE user_id = $1 AND ($2 = '' OR kind = $2)
        ORDER BY created_at DESC`, userID, string(kind))
	if err != nil {
		return nil, apperror.Backend("list transactions", err)
	}
	defer rows.Close()

	out := make([]Transaction, 0)
	for rows.Next() {
		var t Transaction
		var k string
		if err := rows.Scan(&t.TransactionID, &k, &t.UserID, &t.Amount, &t.Reason, &t.CreatedAt); err != nil {
			return nil, apperror.Backend("scan transaction", err)
		}
		t.Kind = Kind(k)
		t.CreatedAt = t.CreatedAt.UTC()
		out = append(out, t)
	}
	return out, apperror.Backend("iterate transactions", rows.Err())
}

func accountIDForCode(ctx context.Context, tx pgx.Tx, code string) (uuid.UUID, error) {
	const query = `SELECT id FROM accounts WHERE code = $1 FOR UPDATE`
	var id uuid.UUID
	if err := tx.QueryRow(ctx, query, code).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, apperror.New(apperror.KindNotFound, "account %s not found", code)
		}
		return uuid.Nil, apperror.Backend("lock account", err)
	}
	return id, nil
}

func balanceForAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM entries WHERE account_id = $1`
	var balance int64
	if err := tx.QueryRow(ctx, query, accountID).Scan(&balance); err != nil {
		return 0, apperror.Backend("sum entries", err)
	}
	return balance, nil
}
