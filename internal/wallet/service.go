package wallet

import (
	"context"

	"github.com/scanearn/coinvault/internal/apperror"
	"github.com/scanearn/coinvault/internal/clock"
	"github.com/scanearn/coinvault/internal/ledger"
)

const statusActive = "active"

// Service exposes the coin wallet of a user backed by the ledger.
type Service struct {
	repo   Repository
	ledger ledger.Ledger
	clock  clock.Clock
}

// NewService builds a wallet service instance.
func NewService(repo Repository, ledger ledger.Ledger, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Service{repo: repo, ledger: ledger, clock: clk}
}

// Open provisions the wallet and its ledger account. Opening twice is a no-op.
func (s *Service) Open(ctx context.Context, ownerID string) (Wallet, error) {
	if err := s.ledger.EnsureAccount(ctx, ownerID); err != nil {
		return Wallet{}, apperror.Backend("ensure ledger account", err)
	}
	w := Wallet{
		OwnerID:     ownerID,
		AccountCode: ledger.AccountCode(ownerID),
		Status:      statusActive,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return Wallet{}, err
	}
	return s.repo.GetByOwner(ctx, ownerID)
}

// Get retrieves wallet metadata.
func (s *Service) Get(ctx context.Context, ownerID string) (Wallet, error) {
	return s.repo.GetByOwner(ctx, ownerID)
}

// Balance returns the ledger balance of the user's wallet.
func (s *Service) Balance(ctx context.Context, ownerID string) (Balance, error) {
	amount, err := s.ledger.Balance(ctx, ownerID)
	if err != nil {
		return Balance{}, apperror.Backend("load balance", err)
	}
	return Balance{OwnerID: ownerID, Amount: amount, AsOf: s.clock.Now()}, nil
}

// History lists settled postings, optionally restricted to one stream
// ("add_funds" or "withdrawal").
func (s *Service) History(ctx context.Context, ownerID, kind string) ([]ledger.Transaction, error) {
	var k ledger.Kind
	if kind != "" {
		parsed, err := ledger.ParseKind(kind)
		if err != nil {
			return nil, err
		}
		k = parsed
	}
	txs, err := s.ledger.Transactions(ctx, ownerID, k)
	if err != nil {
		return nil, apperror.Backend("list transactions", err)
	}
	return txs, nil
}
