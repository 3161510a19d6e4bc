package claims

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scanearn/coinvault/internal/logging"
	"github.com/scanearn/coinvault/internal/metrics"
)

func TestSweepExpiresAndReportsPending(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.PendingTTL = time.Hour })
	reg := prometheus.NewRegistry()
	f.svc.metrics = metrics.New(reg)
	ctx := context.Background()

	if _, err := f.svc.Submit(ctx, SubmitInput{UserID: "u1", TransactionID: "OLD", TierINR: 10}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.clock.Advance(90 * time.Minute)
	for _, id := range []string{"P1", "P2"} {
		if _, err := f.svc.Submit(ctx, SubmitInput{UserID: "u2", TransactionID: id, TierINR: 10}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	NewSweeper(f.svc, time.Minute, logging.Discard()).Sweep(ctx)

	old, _ := f.svc.Get(ctx, "OLD")
	if old.Status != StatusDeclined {
		t.Fatalf("expected expired claim, got %+v", old)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetGauge() != nil {
				values[mf.GetName()] = m.GetGauge().GetValue()
			} else if m.GetCounter() != nil && len(m.GetLabel()) == 0 {
				values[mf.GetName()] = m.GetCounter().GetValue()
			}
		}
	}
	if values["coinvault_claims_pending"] != 2 {
		t.Fatalf("expected 2 pending, got %v", values["coinvault_claims_pending"])
	}
	if values["coinvault_claims_expired_total"] != 1 {
		t.Fatalf("expected 1 expired, got %v", values["coinvault_claims_expired_total"])
	}
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewSweeper(f.svc, time.Hour, logging.Discard()).Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("sweeper did not stop")
	}
}
