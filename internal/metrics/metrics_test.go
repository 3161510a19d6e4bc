package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scanearn/coinvault/internal/apperror"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			matched := 0
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] == lp.GetValue() {
					matched++
				}
			}
			if matched == len(labels) && m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestObserveWithdrawal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveWithdrawal(150, 9, nil)
	m.ObserveWithdrawal(150, 9, apperror.ErrDailyLimitExceeded)

	if got := counterValue(t, reg, "coinvault_withdrawals_requests_total", map[string]string{"result": "ok"}); got != 1 {
		t.Fatalf("expected 1 ok withdrawal, got %v", got)
	}
	if got := counterValue(t, reg, "coinvault_withdrawals_requests_total", map[string]string{"result": string(apperror.KindDailyLimitExceeded)}); got != 1 {
		t.Fatalf("expected 1 limited withdrawal, got %v", got)
	}
	if got := counterValue(t, reg, "coinvault_withdrawals_fees_total", nil); got != 9 {
		t.Fatalf("expected fees 9, got %v", got)
	}
}

func TestObserveClaims(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveClaimSubmitted(true, nil)
	m.ObserveClaimSubmitted(false, apperror.ErrDuplicateTransaction)
	m.ObserveClaimReviewed("approve", 99, nil)
	m.ObserveClaimReviewed("approve", 99, apperror.ErrNotPending)

	if got := counterValue(t, reg, "coinvault_claims_flagged_total", nil); got != 1 {
		t.Fatalf("expected 1 flagged claim, got %v", got)
	}
	if got := counterValue(t, reg, "coinvault_claims_credited_coins_total", nil); got != 99 {
		t.Fatalf("expected 99 credited coins, got %v", got)
	}
	if got := counterValue(t, reg, "coinvault_claims_reviewed_total", map[string]string{"decision": "approve", "result": "not_pending"}); got != 1 {
		t.Fatalf("expected 1 rejected approval, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveWithdrawal(1, 0, nil)
	m.ObserveClaimSubmitted(true, nil)
	m.SetPendingClaims(3)
}
