package tiers

import (
	"net/url"
	"strconv"
)

// Payee is the UPI collection account users pay into.
type Payee struct {
	ID   string
	Name string
}

// PaymentLink builds the UPI deep link a payment app opens to pay inr to the payee.
// It returns an empty string when no payee id is configured.
func PaymentLink(p Payee, inr int64) string {
	if p.ID == "" || inr <= 0 {
		return ""
	}
	q := url.Values{}
	q.Set("pa", p.ID)
	q.Set("pn", p.Name)
	q.Set("am", strconv.FormatInt(inr, 10))
	q.Set("cu", "INR")
	return "upi://pay?" + q.Encode()
}

// Offer is a tier as presented to a paying user.
type Offer struct {
	RewardTier
	PayURL string `json:"pay_url,omitempty"`
}

// Offers lists the catalog with a payment link per tier.
func (c *Catalog) Offers(p Payee) []Offer {
	out := make([]Offer, 0, len(c.tiers))
	for _, t := range c.tiers {
		out = append(out, Offer{RewardTier: t, PayURL: PaymentLink(p, t.INR)})
	}
	return out
}
