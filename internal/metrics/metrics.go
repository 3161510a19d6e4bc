package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/scanearn/coinvault/internal/apperror"
)

const namespace = "coinvault"

// Metrics holds the Prometheus collectors for the payment workflows. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	claimsSubmitted  *prometheus.CounterVec
	claimsFlagged    prometheus.Counter
	claimsReviewed   *prometheus.CounterVec
	claimsExpired    prometheus.Counter
	claimsPending    prometheus.Gauge
	withdrawals      *prometheus.CounterVec
	withdrawnCoins   prometheus.Counter
	withdrawalFees   prometheus.Counter
	creditedCoins    prometheus.Counter
	reconcileRepairs prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		claimsSubmitted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "claims",
				Name:      "submitted_total",
				Help:      "Payment claim submissions partitioned by result kind.",
			},
			[]string{"result"},
		),
		claimsFlagged: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "claims",
				Name:      "flagged_total",
				Help:      "Payment claims flagged for admin attention at creation.",
			},
		),
		claimsReviewed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "claims",
				Name:      "reviewed_total",
				Help:      "Admin review transitions partitioned by decision and result.",
			},
			[]string{"decision", "result"},
		),
		claimsExpired: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "claims",
				Name:      "expired_total",
				Help:      "Pending claims auto-declined after the pending TTL.",
			},
		),
		claimsPending: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "claims",
				Name:      "pending",
				Help:      "Pending claims observed by the last sweep.",
			},
		),
		withdrawals: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "withdrawals",
				Name:      "requests_total",
				Help:      "Withdrawal requests partitioned by result kind.",
			},
			[]string{"result"},
		),
		withdrawnCoins: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "withdrawals",
				Name:      "debited_coins_total",
				Help:      "Coins debited by settled withdrawals.",
			},
		),
		withdrawalFees: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "withdrawals",
				Name:      "fees_total",
				Help:      "Fees withheld from withdrawal payouts.",
			},
		),
		creditedCoins: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "claims",
				Name:      "credited_coins_total",
				Help:      "Coins credited by approved claims.",
			},
		),
		reconcileRepairs: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "claims",
				Name:      "reconcile_repairs_total",
				Help:      "Approved claims whose missing ledger credit was posted by reconciliation.",
			},
		),
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperror.KindOf(err))
}

func (m *Metrics) ObserveClaimSubmitted(flagged bool, err error) {
	if m == nil {
		return
	}
	m.claimsSubmitted.WithLabelValues(resultLabel(err)).Inc()
	if err == nil && flagged {
		m.claimsFlagged.Inc()
	}
}

func (m *Metrics) ObserveClaimReviewed(decision string, amount int64, err error) {
	if m == nil {
		return
	}
	m.claimsReviewed.WithLabelValues(decision, resultLabel(err)).Inc()
	if err == nil && decision == "approve" {
		m.creditedCoins.Add(float64(amount))
	}
}

func (m *Metrics) ObserveClaimsExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.claimsExpired.Add(float64(n))
}

func (m *Metrics) SetPendingClaims(n int) {
	if m == nil {
		return
	}
	m.claimsPending.Set(float64(n))
}

func (m *Metrics) ObserveReconcileRepair() {
	if m == nil {
		return
	}
	m.reconcileRepairs.Inc()
}

func (m *Metrics) ObserveWithdrawal(amount, fee int64, err error) {
	if m == nil {
		return
	}
	m.withdrawals.WithLabelValues(resultLabel(err)).Inc()
	if err == nil {
		m.withdrawnCoins.Add(float64(amount))
		m.withdrawalFees.Add(float64(fee))
	}
}
