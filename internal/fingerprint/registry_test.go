package fingerprint

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/scanearn/coinvault/internal/apperror"
)

func TestReserveOnce(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	if err := reg.Reserve(ctx, Reservation{TransactionID: "TXN1", UserID: "u1", Purpose: PurposeClaim}); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	err := reg.Reserve(ctx, Reservation{TransactionID: " TXN1 ", UserID: "u2", Purpose: PurposeWithdrawal})
	if !errors.Is(err, apperror.ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	res, ok, err := reg.Lookup(ctx, "TXN1")
	if err != nil || !ok {
		t.Fatalf("lookup: ok=%v err=%v", ok, err)
	}
	if res.UserID != "u1" || res.Purpose != PurposeClaim {
		t.Fatalf("failed reservation must leave state unchanged: %+v", res)
	}
}

func TestReserveRejectsEmpty(t *testing.T) {
	reg := NewMemoryRegistry()
	if err := reg.Reserve(context.Background(), Reservation{TransactionID: "   "}); !errors.Is(err, apperror.ErrValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReserveConcurrentSameID(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := reg.Reserve(ctx, Reservation{TransactionID: "race", UserID: "u"}); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}
