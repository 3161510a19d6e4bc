package tiers

import (
	"net/url"
	"testing"
)

func TestPaymentLink(t *testing.T) {
	link := PaymentLink(Payee{ID: "coinvault@upi", Name: "Coin Vault"}, 150)
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Scheme != "upi" || u.Host != "pay" {
		t.Fatalf("unexpected link %q", link)
	}
	q := u.Query()
	if q.Get("pa") != "coinvault@upi" || q.Get("pn") != "Coin Vault" || q.Get("am") != "150" || q.Get("cu") != "INR" {
		t.Fatalf("unexpected query %v", q)
	}

	if got := PaymentLink(Payee{}, 150); got != "" {
		t.Fatalf("expected no link without a payee, got %q", got)
	}
}

func TestOffersFollowCatalogOrder(t *testing.T) {
	offers := Default().Offers(Payee{ID: "coinvault@upi", Name: "CoinVault"})
	all := Default().All()
	if len(offers) != len(all) {
		t.Fatalf("expected %d offers, got %d", len(all), len(offers))
	}
	for i, o := range offers {
		if o.RewardTier != all[i] || o.PayURL == "" {
			t.Fatalf("offer %d mismatch: %+v", i, o)
		}
	}
}
