package tiers

import (
	"errors"
	"testing"

	"github.com/scanearn/coinvault/internal/apperror"
)

func TestCoinsForExactTable(t *testing.T) {
	c := Default()
	want := map[int64]int64{10: 15, 50: 85, 100: 99, 150: 240, 500: 870, 1000: 1985}
	for inr, coins := range want {
		got, err := c.CoinsFor(inr)
		if err != nil {
			t.Fatalf("coinsFor(%d): %v", inr, err)
		}
		if got != coins {
			t.Fatalf("coinsFor(%d) = %d, want %d", inr, got, coins)
		}
	}

	if _, err := c.CoinsFor(200); !errors.Is(err, apperror.ErrUnknownTier) {
		t.Fatalf("expected unknown tier for interpolated amount, got %v", err)
	}
}

func TestResolveRejectsMismatchedCoins(t *testing.T) {
	c := Default()

	tier, err := c.Resolve(100, 99)
	if err != nil || tier.Coins != 99 {
		t.Fatalf("expected ₹100 tier, got %+v err=%v", tier, err)
	}

	tier, err = c.Resolve(0, 1985)
	if err != nil || tier.INR != 1000 {
		t.Fatalf("expected lookup by coins, got %+v err=%v", tier, err)
	}

	if _, err := c.Resolve(100, 5000); !errors.Is(err, apperror.ErrUnknownTier) {
		t.Fatalf("expected mismatch rejection, got %v", err)
	}
	if _, err := c.Resolve(0, 0); !errors.Is(err, apperror.ErrUnknownTier) {
		t.Fatalf("expected missing tier rejection, got %v", err)
	}
}

func TestAllPreservesOrder(t *testing.T) {
	all := Default().All()
	if len(all) != 6 {
		t.Fatalf("expected 6 tiers, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].INR <= all[i-1].INR {
			t.Fatalf("tiers out of order at %d", i)
		}
	}
	all[0].Coins = 1
	if again := Default().All(); again[0].Coins != 15 {
		t.Fatalf("catalog must not be mutable through All")
	}
}
