package withdrawal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scanearn/coinvault/internal/apperror"
	"github.com/scanearn/coinvault/internal/clock"
	"github.com/scanearn/coinvault/internal/fingerprint"
	"github.com/scanearn/coinvault/internal/ledger"
	"github.com/scanearn/coinvault/internal/logging"
	"github.com/scanearn/coinvault/internal/metrics"
	"github.com/scanearn/coinvault/internal/notification"
)

type blockSet map[string]bool

func (b blockSet) IsBlocked(_ context.Context, id string) (bool, error) {
	return b[id], nil
}

type fixture struct {
	svc      *Service
	ledger   ledger.Ledger
	registry fingerprint.Registry
	clock    *clock.Fixed
	blocks   blockSet
	notes    *notification.Recorder
	reg      *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ledger:   ledger.NewInMemory(),
		registry: fingerprint.NewMemoryRegistry(),
		clock:    clock.NewFixed(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)),
		blocks:   blockSet{},
		notes:    &notification.Recorder{},
		reg:      prometheus.NewRegistry(),
	}
	f.svc = NewService(Deps{
		Ledger:   f.ledger,
		Registry: f.registry,
		Counter:  NewMemoryCounter(),
		Blocks:   f.blocks,
		Notifier: f.notes,
		Metrics:  metrics.New(f.reg),
		Clock:    f.clock,
		Logger:   logging.Discard(),
	}, DefaultConfig())
	return f
}

func (f *fixture) balance(t *testing.T, userID string) int64 {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return b
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ledger.SeedBalance(f.ledger, "u1", 80)

	_, err := f.svc.Request(context.Background(), RequestInput{UserID: "u1", Amount: 100})
	if !errors.Is(err, apperror.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if got := f.balance(t, "u1"); got != 80 {
		t.Fatalf("balance must be unchanged, got %d", got)
	}
	if n, _ := f.svc.counter.Count(context.Background(), "u1", f.clock.Now()); n != 0 {
		t.Fatalf("rejected request must not consume a daily slot, got %d", n)
	}
}

func TestWithdrawDeductsFeeFromPayout(t *testing.T) {
	f := newFixture(t)
	ledger.SeedBalance(f.ledger, "u1", 1000)

	res, err := f.svc.Request(context.Background(), RequestInput{UserID: "u1", TransactionID: "W1", Amount: 150})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if res.Amount != 150 || res.Fee != 9 || res.Payout != 141 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Balance != 850 || f.balance(t, "u1") != 850 {
		t.Fatalf("expected balance 850, got %d", res.Balance)
	}
	if res.Transaction.TransactionID != "W1" || res.Transaction.Kind != ledger.KindWithdrawal {
		t.Fatalf("unexpected transaction: %+v", res.Transaction)
	}
	if res.RemainingToday != 1 {
		t.Fatalf("expected one remaining slot, got %d", res.RemainingToday)
	}

	msgs := f.notes.Messages()
	if len(msgs) != 1 || msgs[0].Kind != notification.KindWithdrawalSettled {
		t.Fatalf("unexpected notifications: %+v", msgs)
	}
}

func TestWithdrawDailyCapResetsAtMidnight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, "u1", 5000)
	f.clock.Set(time.Date(2024, 3, 1, 23, 58, 0, 0, time.UTC))

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Request(ctx, RequestInput{UserID: "u1", Amount: 50}); err != nil {
			t.Fatalf("withdraw %d: %v", i, err)
		}
	}
	if _, err := f.svc.Request(ctx, RequestInput{UserID: "u1", Amount: 50}); !errors.Is(err, apperror.ErrDailyLimitExceeded) {
		t.Fatalf("expected daily limit, got %v", err)
	}
	if got := f.balance(t, "u1"); got != 4900 {
		t.Fatalf("expected balance 4900, got %d", got)
	}

	f.clock.Advance(3 * time.Minute)
	if _, err := f.svc.Request(ctx, RequestInput{UserID: "u1", Amount: 50}); err != nil {
		t.Fatalf("expected reset after UTC midnight: %v", err)
	}
}

func TestWithdrawChecksRunInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, "u1", 100)

	if _, err := f.svc.Request(ctx, RequestInput{UserID: "u1", Amount: 0}); !errors.Is(err, apperror.ErrValidationFailed) {
		t.Fatalf("expected validation for zero amount, got %v", err)
	}
	if _, err := f.svc.Request(ctx, RequestInput{UserID: "u1", Amount: -5}); !errors.Is(err, apperror.ErrValidationFailed) {
		t.Fatalf("expected validation for negative amount, got %v", err)
	}
	if _, err := f.svc.Request(ctx, RequestInput{UserID: "u1", Amount: 20}); !errors.Is(err, apperror.ErrValidationFailed) {
		t.Fatalf("expected validation below minimum, got %v", err)
	}

	f.blocks["u1"] = true
	if _, err := f.svc.Request(ctx, RequestInput{UserID: "u1", Amount: 0}); !errors.Is(err, apperror.ErrUserBlocked) {
		t.Fatalf("blocked check must come first, got %v", err)
	}
	if _, err := f.svc.Request(ctx, RequestInput{UserID: "u1", Amount: 50}); !errors.Is(err, apperror.ErrUserBlocked) {
		t.Fatalf("expected blocked, got %v", err)
	}
	if got := f.balance(t, "u1"); got != 100 {
		t.Fatalf("blocked request must not debit, balance %d", got)
	}
}

func TestWithdrawTransactionIDsAreSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, "u1", 1000)
	ledger.SeedBalance(f.ledger, "u2", 1000)

	if err := f.registry.Reserve(ctx, fingerprint.Reservation{TransactionID: "CLAIM1", UserID: "u1", Purpose: fingerprint.PurposeClaim}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := f.svc.Request(ctx, RequestInput{UserID: "u1", TransactionID: "CLAIM1", Amount: 50}); !errors.Is(err, apperror.ErrDuplicateTransaction) {
		t.Fatalf("claim ids cannot be reused for withdrawals, got %v", err)
	}

	if _, err := f.svc.Request(ctx, RequestInput{UserID: "u1", TransactionID: "W1", Amount: 50}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if _, err := f.svc.Request(ctx, RequestInput{UserID: "u1", TransactionID: "W1", Amount: 50}); !errors.Is(err, apperror.ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if _, err := f.svc.Request(ctx, RequestInput{UserID: "u2", TransactionID: "W1", Amount: 50}); !errors.Is(err, apperror.ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate across users, got %v", err)
	}
	if got := f.balance(t, "u1"); got != 950 {
		t.Fatalf("expected a single debit, balance %d", got)
	}
	if n, _ := f.svc.counter.Count(ctx, "u1", f.clock.Now()); n != 1 {
		t.Fatalf("duplicates must not consume daily slots, got %d", n)
	}
}

func TestWithdrawConcurrentRequestsCannotOverdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, "u1", 100)
	f.svc.cfg.DailyLimit = 100

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Request(ctx, RequestInput{UserID: "u1", Amount: 50})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else if !errors.Is(err, apperror.ErrInsufficientBalance) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 2 {
		t.Fatalf("expected 2 withdrawals, got %d", successes)
	}
	if got := f.balance(t, "u1"); got != 0 {
		t.Fatalf("expected zero balance, got %d", got)
	}
}

func TestQuote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, "u1", 120)

	q, err := f.svc.Quote(ctx, "u1", 109)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !q.Eligible || q.Fee != 0 || q.Payout != 109 || q.RemainingToday != 2 || len(q.QuickAmounts) != 6 {
		t.Fatalf("unexpected quote: %+v", q)
	}

	q, _ = f.svc.Quote(ctx, "u1", 150)
	if q.Eligible || q.Fee != 9 || q.Reason != apperror.ErrInsufficientBalance.Message {
		t.Fatalf("unexpected quote: %+v", q)
	}

	q, _ = f.svc.Quote(ctx, "u1", 10)
	if q.Eligible || q.Reason == "" {
		t.Fatalf("expected minimum amount rejection: %+v", q)
	}
}

func TestWithdrawMetrics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, "u1", 500)

	if _, err := f.svc.Request(ctx, RequestInput{UserID: "u1", Amount: 150}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	_, _ = f.svc.Request(ctx, RequestInput{UserID: "u1", Amount: 1000})

	families, err := f.reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	results := map[string]float64{}
	var fees float64
	for _, mf := range families {
		switch mf.GetName() {
		case "coinvault_withdrawals_requests_total":
			for _, m := range mf.GetMetric() {
				results[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
			}
		case "coinvault_withdrawals_fees_total":
			fees = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	if results["ok"] != 1 || results[string(apperror.KindInsufficientBalance)] != 1 {
		t.Fatalf("unexpected request counters: %v", results)
	}
	if fees != 9 {
		t.Fatalf("expected 9 in fees, got %v", fees)
	}
}
