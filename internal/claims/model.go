package claims

import "time"

// Status is the lifecycle state of a payment request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusDeclined
}

// PaymentRequest is a user's unverified claim of having paid for a reward tier.
// Requests are never deleted; resolved ones remain as the audit trail.
type PaymentRequest struct {
	TransactionID string     `json:"transaction_id"`
	UserID        string     `json:"user_id"`
	TierINR       int64      `json:"tier_inr"`
	Amount        int64      `json:"amount"`
	UTR           string     `json:"utr_id,omitempty"`
	ReceiptID     string     `json:"receipt_id,omitempty"`
	Status        Status     `json:"status"`
	Flagged       bool       `json:"flagged"`
	FlagReason    string     `json:"flag_reason,omitempty"`
	SubmittedAt   time.Time  `json:"submitted_at"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy    string     `json:"reviewed_by,omitempty"`
	ReviewNote    string     `json:"review_note,omitempty"`
}

// Review describes an admin (or system) decision applied to a pending request.
type Review struct {
	Reviewer string
	Note     string
	At       time.Time
}

// Filter narrows request listings. Zero fields do not filter.
type Filter struct {
	UserID         string
	Status         Status
	UTR            string
	FlaggedOnly    bool
	SubmittedSince time.Time
	SubmittedTo    time.Time
	ReviewedSince  time.Time
}

func (f Filter) matches(pr PaymentRequest) bool {
	if f.UserID != "" && pr.UserID != f.UserID {
		return false
	}
	if f.Status != "" && pr.Status != f.Status {
		return false
	}
	if f.UTR != "" && pr.UTR != f.UTR {
		return false
	}
	if f.FlaggedOnly && !pr.Flagged {
		return false
	}
	if !f.SubmittedSince.IsZero() && pr.SubmittedAt.Before(f.SubmittedSince) {
		return false
	}
	if !f.SubmittedTo.IsZero() && !pr.SubmittedAt.Before(f.SubmittedTo) {
		return false
	}
	if !f.ReviewedSince.IsZero() && (pr.ReviewedAt == nil || pr.ReviewedAt.Before(f.ReviewedSince)) {
		return false
	}
	return true
}
