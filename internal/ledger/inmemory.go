package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

type inMemoryLedger struct {
	mu           sync.RWMutex
	balances     map[string]int64
	transactions map[string]Transaction
	history      map[string][]Transaction
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests
// and development without Postgres.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		balances:     map[string]int64{IssuanceAccountCode: 0, PayoutAccountCode: 0},
		transactions: make(map[string]Transaction),
		history:      make(map[string][]Transaction),
	}
}

func (l *inMemoryLedger) EnsureAccount(_ context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	code := AccountCode(userID)
	if _, exists := l.balances[code]; !exists {
		l.balances[code] = 0
	}
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, userID string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[AccountCode(userID)], nil
}

func (l *inMemoryLedger) Credit(_ context.Context, userID, clientTxID string, amount int64, reason string) (PostingResult, error) {
	return l.post(KindAddFunds, userID, clientTxID, amount, reason)
}

func (l *inMemoryLedger) Debit(_ context.Context, userID, clientTxID string, amount int64, reason string) (PostingResult, error) {
	return l.post(KindWithdrawal, userID, clientTxID, amount, reason)
}

func (l *inMemoryLedger) post(kind Kind, userID, clientTxID string, amount int64, reason string) (PostingResult, error) {
	if amount <= 0 {
		return PostingResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := string(kind) + ":" + clientTxID
	code := AccountCode(userID)
	if existing, exists := l.transactions[key]; exists {
		return PostingResult{Transaction: existing, Balance: l.balances[code]}, ErrDuplicateTransaction
	}

	balance := l.balances[code]
	switch kind {
	case KindAddFunds:
		balance += amount
		l.balances[IssuanceAccountCode] -= amount
	case KindWithdrawal:
		if balance < amount {
			return PostingResult{}, ErrInsufficientFunds
		}
		balance -= amount
		l.balances[PayoutAccountCode] += amount
	}
	l.balances[code] = balance

	tx := Transaction{
		TransactionID: clientTxID,
		Kind:          kind,
		UserID:        userID,
		Amount:        amount,
		Reason:        reason,
		CreatedAt:     time.Now().UTC(),
	}
	l.transactions[key] = tx
	l.history[userID] = append(l.history[userID], tx)

	return PostingResult{Transaction: tx, Balance: balance}, nil
}

func (l *inMemoryLedger) Transactions(_ context.Context, userID string, kind Kind) ([]Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Transaction, 0)
	for _, tx := range l.history[userID] {
		if kind == "" || tx.Kind == kind {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// SeedBalance is a test helper that credits an account when using the in-memory ledger.
func SeedBalance(l Ledger, userID string, amount int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		code := AccountCode(userID)
		mem.balances[IssuanceAccountCode] -= amount - mem.balances[code]
		mem.balances[code] = amount
	}
}
