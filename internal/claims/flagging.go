package claims

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// FlagPolicy is the deterministic heuristic that marks suspicious claims at
// creation. Flagged claims still enter the pending queue.
type FlagPolicy struct {
	// BurstWindow and BurstCount flag a user submitting BurstCount claims
	// (this one included) within BurstWindow.
	BurstWindow time.Duration
	BurstCount  int
	// DeclineThreshold flags users with at least this many admin declined claims.
	DeclineThreshold int
}

// DefaultFlagPolicy flags 3 claims in 10 minutes or a history of 2 declines.
func DefaultFlagPolicy() FlagPolicy {
	return FlagPolicy{BurstWindow: 10 * time.Minute, BurstCount: 3, DeclineThreshold: 2}
}

// Evaluate returns the reasons candidate should be flagged, joined by "; ".
// An empty string means the claim is clean.
func (p FlagPolicy) Evaluate(ctx context.Context, repo Repository, candidate PaymentRequest) (string, error) {
	var reasons []string

	if candidate.UTR != "" {
		same, err := repo.List(ctx, Filter{UTR: candidate.UTR})
		if err != nil {
			return "", err
		}
		for _, other := range same {
			if other.TransactionID != candidate.TransactionID {
				reasons = append(reasons, fmt.Sprintf("utr already used on claim %s", other.TransactionID))
				break
			}
		}
	}

	if p.BurstCount > 1 && p.BurstWindow > 0 {
		recent, err := repo.List(ctx, Filter{
			UserID:         candidate.UserID,
			SubmittedSince: candidate.SubmittedAt.Add(-p.BurstWindow),
		})
		if err != nil {
			return "", err
		}
		if len(recent)+1 >= p.BurstCount {
			reasons = append(reasons, fmt.Sprintf("%d claims within %s", len(recent)+1, p.BurstWindow))
		}
	}

	if p.DeclineThreshold > 0 {
		declined, err := repo.List(ctx, Filter{UserID: candidate.UserID, Status: StatusDeclined})
		if err != nil {
			return "", err
		}
		n := 0
		for _, pr := range declined {
			if pr.ReviewedBy != SystemReviewer {
				n++
			}
		}
		if n >= p.DeclineThreshold {
			reasons = append(reasons, fmt.Sprintf("%d previously declined claims", n))
		}
	}

	return strings.Join(reasons, "; "), nil
}
