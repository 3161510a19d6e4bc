package fingerprint

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/scanearn/coinvault/internal/apperror"
)

// ErrAlreadyUsed is returned when a transaction id has been reserved before.
var ErrAlreadyUsed = apperror.New(apperror.KindDuplicateTransaction, "transaction id already used")

// Purpose records which flow consumed an id.
type Purpose string

const (
	PurposeClaim      Purpose = "claim"
	PurposeWithdrawal Purpose = "withdrawal"
)

// Reservation describes a consumed transaction id.
type Reservation struct {
	TransactionID string
	UserID        string
	Purpose       Purpose
	ReservedAt    time.Time
}

// Registry permanently records consumed transaction ids. Reserve must be atomic:
// of two concurrent calls with the same id exactly one succeeds.
type Registry interface {
	Reserve(ctx context.Context, r Reservation) error
	Lookup(ctx context.Context, transactionID string) (Reservation, bool, error)
}

// Normalize trims surrounding whitespace so " TXN1" and "TXN1" share a fingerprint.
func Normalize(transactionID string) string {
	return strings.TrimSpace(transactionID)
}

type memoryRegistry struct {
	mu   sync.Mutex
	used map[string]Reservation
}

// NewMemoryRegistry builds an in-process registry. Entries are never evicted.
func NewMemoryRegistry() Registry {
	return &memoryRegistry{used: make(map[string]Reservation)}
}

func (r *memoryRegistry) Reserve(_ context.Context, res Reservation) error {
	id := Normalize(res.TransactionID)
	if id == "" {
		return apperror.Validation("transaction id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.used[id]; exists {
		return ErrAlreadyUsed
	}
	res.TransactionID = id
	if res.ReservedAt.IsZero() {
		res.ReservedAt = time.Now().UTC()
	}
	r.used[id] = res
	return nil
}

func (r *memoryRegistry) Lookup(_ context.Context, transactionID string) (Reservation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.used[Normalize(transactionID)]
	return res, ok, nil
}
