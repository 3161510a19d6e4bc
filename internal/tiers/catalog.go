package tiers

import (
	"github.com/scanearn/coinvault/internal/apperror"
)

// RewardTier pairs an INR purchase amount with the coins it buys.
type RewardTier struct {
	INR   int64 `json:"inr"`
	Coins int64 `json:"coins"`
}

// The mapping is a table on purpose: coins are not a linear function of INR.
var defaultTiers = []RewardTier{
	{INR: 10, Coins: 15},
	{INR: 50, Coins: 85},
	{INR: 100, Coins: 99},
	{INR: 150, Coins: 240},
	{INR: 500, Coins: 870},
	{INR: 1000, Coins: 1985},
}

// Catalog is a read-only, ordered set of reward tiers.
type Catalog struct {
	tiers   []RewardTier
	byINR   map[int64]RewardTier
	byCoins map[int64]RewardTier
}

// Default returns the production tier catalog.
func Default() *Catalog {
	return New(defaultTiers)
}

// New builds a catalog from the provided tiers, preserving order.
func New(list []RewardTier) *Catalog {
	c := &Catalog{
		tiers:   make([]RewardTier, 0, len(list)),
		byINR:   make(map[int64]RewardTier, len(list)),
		byCoins: make(map[int64]RewardTier, len(list)),
	}
	for _, t := range list {
		if t.INR <= 0 || t.Coins <= 0 {
			continue
		}
		c.tiers = append(c.tiers, t)
		c.byINR[t.INR] = t
		c.byCoins[t.Coins] = t
	}
	return c
}

// All returns a copy of the catalog in display order.
func (c *Catalog) All() []RewardTier {
	out := make([]RewardTier, len(c.tiers))
	copy(out, c.tiers)
	return out
}

// CoinsFor returns the coins granted for an exact INR amount.
func (c *Catalog) CoinsFor(inr int64) (int64, error) {
	t, ok := c.byINR[inr]
	if !ok {
		return 0, apperror.New(apperror.KindUnknownTier, "no reward tier for ₹%d", inr)
	}
	return t.Coins, nil
}

// Resolve validates a client supplied tier against the table. Either field may be
// zero, in which case it is looked up from the other; when both are set they must
// match an entry exactly.
func (c *Catalog) Resolve(inr, coins int64) (RewardTier, error) {
	switch {
	case inr == 0 && coins == 0:
		return RewardTier{}, apperror.New(apperror.KindUnknownTier, "reward tier is required")
	case inr == 0:
		t, ok := c.byCoins[coins]
		if !ok {
			return RewardTier{}, apperror.New(apperror.KindUnknownTier, "no reward tier grants %d coins", coins)
		}
		return t, nil
	}

	t, ok := c.byINR[inr]
	if !ok {
		return RewardTier{}, apperror.New(apperror.KindUnknownTier, "no reward tier for ₹%d", inr)
	}
	if coins != 0 && coins != t.Coins {
		return RewardTier{}, apperror.New(apperror.KindUnknownTier, "tier ₹%d grants %d coins, not %d", inr, t.Coins, coins)
	}
	return t, nil
}
