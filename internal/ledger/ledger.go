package ledger

import (
	"context"
	"time"

	"github.com/scanearn/coinvault/internal/apperror"
)

var (
	// ErrInsufficientFunds occurs when the user account lacks available balance
	// to cover a requested debit.
	ErrInsufficientFunds = apperror.New(apperror.KindInsufficientBalance, "insufficient balance")

	// ErrDuplicateTransaction indicates the provided client transaction identifier
	// was already posted for this kind.
	ErrDuplicateTransaction = apperror.New(apperror.KindDuplicateTransaction, "duplicate ledger transaction")

	// ErrInvalidAmount rejects zero or negative postings.
	ErrInvalidAmount = apperror.Validation("amount must be positive")
)

// Kind separates the add-funds and withdrawal history streams.
type Kind string

const (
	KindAddFunds   Kind = "add_funds"
	KindWithdrawal Kind = "withdrawal"

	// IssuanceAccountCode is the contra account coins are minted from on approved claims.
	IssuanceAccountCode = "system:issuance"
	// PayoutAccountCode collects coins debited by settled withdrawals.
	PayoutAccountCode = "system:payouts"

	statusSettled = "settled"
)

// ParseKind validates a user supplied history filter.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindAddFunds, KindWithdrawal:
		return Kind(s), nil
	}
	return "", apperror.Validation("unknown transaction type %q", s)
}

// AccountCode returns the ledger account code holding a user's coins.
func AccountCode(userID string) string {
	return "user:" + userID
}

// Transaction is a settled, immutable ledger posting.
type Transaction struct {
	TransactionID string    `json:"transaction_id"`
	Kind          Kind      `json:"type"`
	UserID        string    `json:"user_id"`
	Amount        int64     `json:"amount"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// PostingResult captures the outcome of a credit or debit.
type PostingResult struct {
	Transaction Transaction
	Balance     int64
}

// Ledger defines the contract implemented by ledger backends (e.g. Postgres).
type Ledger interface {
	EnsureAccount(ctx context.Context, userID string) error
	Balance(ctx context.Context, userID string) (int64, error)
	Credit(ctx context.Context, userID, clientTxID string, amount int64, reason string) (PostingResult, error)
	Debit(ctx context.Context, userID, clientTxID string, amount int64, reason string) (PostingResult, error)
	Transactions(ctx context.Context, userID string, kind Kind) ([]Transaction, error)
}
