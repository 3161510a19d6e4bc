package claims

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	requests map[string]PaymentRequest
}

// NewMemoryRepository constructs an in-memory repository for tests and development.
func NewMemoryRepository() Repository {
	return &memoryRepository{requests: make(map[string]PaymentRequest)}
}

func (r *memoryRepository) Create(_ context.Context, pr PaymentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.requests[pr.TransactionID]; exists {
		return ErrDuplicateTransaction
	}
	r.requests[pr.TransactionID] = pr
	return nil
}

func (r *memoryRepository) Get(_ context.Context, transactionID string) (PaymentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pr, ok := r.requests[transactionID]
	if !ok {
		return PaymentRequest{}, ErrNotFound
	}
	return pr, nil
}

func (r *memoryRepository) List(_ context.Context, f Filter) ([]PaymentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PaymentRequest, 0)
	for _, pr := range r.requests {
		if f.matches(pr) {
			out = append(out, pr)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].TransactionID > out[j].TransactionID
		}
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

func (r *memoryRepository) Transition(_ context.Context, transactionID string, from, to Status, review Review) (PaymentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pr, ok := r.requests[transactionID]
	if !ok {
		return PaymentRequest{}, ErrNotFound
	}
	if pr.Status != from {
		return PaymentRequest{}, ErrNotPending
	}
	at := review.At.UTC()
	pr.Status = to
	pr.ReviewedAt = &at
	if to == StatusPending {
		pr.ReviewedAt = nil
	}
	pr.ReviewedBy = review.Reviewer
	pr.ReviewNote = review.Note
	r.requests[transactionID] = pr
	return pr, nil
}
