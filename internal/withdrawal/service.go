package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/scanearn/coinvault/internal/apperror"
	"github.com/scanearn/coinvault/internal/clock"
	"github.com/scanearn/coinvault/internal/fingerprint"
	"github.com/scanearn/coinvault/internal/ledger"
	"github.com/scanearn/coinvault/internal/lockset"
	"github.com/scanearn/coinvault/internal/metrics"
	"github.com/scanearn/coinvault/internal/notification"
)

// BlockChecker reports membership in the blocked user set.
type BlockChecker interface {
	IsBlocked(ctx context.Context, userID string) (bool, error)
}

// Config holds the withdrawal policy limits.
type Config struct {
	DailyLimit int
	MinAmount  int64
}

// DefaultConfig allows two withdrawals of at least 50 coins per UTC day.
func DefaultConfig() Config {
	return Config{DailyLimit: 2, MinAmount: 50}
}

// Deps are the collaborators of the withdrawal service. Notifier, Metrics,
// Clock and Logger are optional.
type Deps struct {
	Ledger   ledger.Ledger
	Registry fingerprint.Registry
	Counter  DailyCounter
	Blocks   BlockChecker
	Notifier notification.Notifier
	Metrics  *metrics.Metrics
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Service validates and settles withdrawal requests synchronously.
type Service struct {
	ledger   ledger.Ledger
	registry fingerprint.Registry
	counter  DailyCounter
	blocks   BlockChecker
	notifier notification.Notifier
	metrics  *metrics.Metrics
	clock    clock.Clock
	logger   *slog.Logger
	cfg      Config

	userLocks *lockset.Set
}

// NewService wires a withdrawal service.
func NewService(deps Deps, cfg Config) *Service {
	if deps.Counter == nil {
		deps.Counter = NewMemoryCounter()
	}
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = DefaultConfig().DailyLimit
	}
	if cfg.MinAmount <= 0 {
		cfg.MinAmount = 1
	}
	return &Service{
		ledger:    deps.Ledger,
		registry:  deps.Registry,
		counter:   deps.Counter,
		blocks:    deps.Blocks,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		clock:     deps.Clock,
		logger:    deps.Logger,
		cfg:       cfg,
		userLocks: lockset.New(),
	}
}

// RequestInput describes a withdrawal. An empty TransactionID is generated.
type RequestInput struct {
	UserID        string
	TransactionID string
	Amount        int64
}

// Result is a settled withdrawal. Amount is debited, Payout is what the user receives.
type Result struct {
	Transaction    ledger.Transaction `json:"transaction"`
	Amount         int64              `json:"amount"`
	Fee            int64              `json:"fee"`
	Payout         int64              `json:"payout"`
	Balance        int64              `json:"balance"`
	RemainingToday int                `json:"remaining_today"`
}

// Request checks, in order, that the user is not blocked, the amount is valid,
// the balance covers it and a daily slot is free, then debits the ledger.
func (s *Service) Request(ctx context.Context, in RequestInput) (res Result, err error) {
	defer func() { s.metrics.ObserveWithdrawal(res.Amount, res.Fee, err) }()

	if in.UserID == "" {
		return Result{}, apperror.ErrUnauthorized
	}
	if err := s.ensureNotBlocked(ctx, in.UserID); err != nil {
		return Result{}, err
	}
	if err := s.validateAmount(in.Amount); err != nil {
		return Result{}, err
	}

	unlock := s.userLocks.Lock(in.UserID)
	defer unlock()

	balance, err := s.ledger.Balance(ctx, in.UserID)
	if err != nil {
		return Result{}, apperror.Backend("load balance", err)
	}
	if in.Amount > balance {
		return Result{}, apperror.New(apperror.KindInsufficientBalance, "insufficient balance: have %d, need %d", balance, in.Amount)
	}

	now := s.clock.Now()
	used, err := s.counter.Acquire(ctx, in.UserID, now, s.cfg.DailyLimit)
	if err != nil {
		return Result{}, err
	}
	settled := false
	defer func() {
		if settled {
			return
		}
		if releaseErr := s.counter.Release(context.WithoutCancel(ctx), in.UserID, now); releaseErr != nil {
			s.logger.Error("daily counter release failed",
				slog.String("user_id", in.UserID),
				slog.String("error", releaseErr.Error()),
			)
		}
	}()

	txID := fingerprint.Normalize(in.TransactionID)
	if txID == "" {
		txID = uuid.NewString()
	}
	if err := s.reserve(ctx, txID, in.UserID, now); err != nil {
		return Result{}, err
	}

	fee := Fee(in.Amount)
	posted, err := s.ledger.Debit(ctx, in.UserID, txID, in.Amount, fmt.Sprintf("withdrawal fee %d", fee))
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrDuplicateTransaction):
			return Result{}, apperror.New(apperror.KindDuplicateTransaction, "transaction id %q already used", txID)
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return Result{}, err
		default:
			return Result{}, apperror.Backend("debit withdrawal", err)
		}
	}
	settled = true

	res = Result{
		Transaction:    posted.Transaction,
		Amount:         in.Amount,
		Fee:            fee,
		Payout:         in.Amount - fee,
		Balance:        posted.Balance,
		RemainingToday: s.cfg.DailyLimit - used,
	}
	s.logger.Info("withdrawal settled",
		slog.String("transaction_id", txID),
		slog.String("user_id", in.UserID),
		slog.Int64("amount", in.Amount),
		slog.Int64("fee", fee),
	)
	if s.notifier != nil {
		if err := s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindWithdrawalSettled,
			Destination: in.UserID,
			Body:        fmt.Sprintf("Withdrawal of %d coins settled, %d paid out", in.Amount, res.Payout),
		}); err != nil {
			s.logger.Warn("notification failed", slog.String("error", err.Error()))
		}
	}
	return res, nil
}

// reserve consumes txID in the shared fingerprint registry. The owner may
// retry an id whose debit never landed; the ledger rejects a second posting.
func (s *Service) reserve(ctx context.Context, txID, userID string, now time.Time) error {
	err := s.registry.Reserve(ctx, fingerprint.Reservation{
		TransactionID: txID,
		UserID:        userID,
		Purpose:       fingerprint.PurposeWithdrawal,
		ReservedAt:    now,
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, fingerprint.ErrAlreadyUsed) {
		return apperror.Backend("reserve transaction id", err)
	}
	res, ok, lookupErr := s.registry.Lookup(ctx, txID)
	if lookupErr != nil {
		return apperror.Backend("lookup transaction id", lookupErr)
	}
	if ok && res.UserID == userID && res.Purpose == fingerprint.PurposeWithdrawal {
		return nil
	}
	return apperror.New(apperror.KindDuplicateTransaction, "transaction id %q already used", txID)
}

func (s *Service) ensureNotBlocked(ctx context.Context, userID string) error {
	blocked, err := s.blocks.IsBlocked(ctx, userID)
	if err != nil {
		return apperror.Backend("check blocked", err)
	}
	if blocked {
		return apperror.ErrUserBlocked
	}
	return nil
}

func (s *Service) validateAmount(amount int64) error {
	if amount <= 0 {
		return apperror.Validation("amount must be a positive integer")
	}
	if amount < s.cfg.MinAmount {
		return apperror.Validation("minimum withdrawal is %d", s.cfg.MinAmount)
	}
	return nil
}

// Quote previews a withdrawal without side effects.
type Quote struct {
	Amount         int64   `json:"amount"`
	Fee            int64   `json:"fee"`
	Payout         int64   `json:"payout"`
	Balance        int64   `json:"balance"`
	RemainingToday int     `json:"remaining_today"`
	Eligible       bool    `json:"eligible"`
	Reason         string  `json:"reason,omitempty"`
	QuickAmounts   []int64 `json:"quick_amounts"`
}

// Quote reports the fee, payout and whether Request would currently accept amount.
func (s *Service) Quote(ctx context.Context, userID string, amount int64) (Quote, error) {
	balance, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return Quote{}, apperror.Backend("load balance", err)
	}
	used, err := s.counter.Count(ctx, userID, s.clock.Now())
	if err != nil {
		return Quote{}, err
	}
	q := Quote{
		Amount:         amount,
		Balance:        balance,
		RemainingToday: max(s.cfg.DailyLimit-used, 0),
		QuickAmounts:   QuickAmounts(),
	}
	if amount > 0 {
		q.Fee = Fee(amount)
		q.Payout = amount - q.Fee
	}

	blocked, err := s.blocks.IsBlocked(ctx, userID)
	if err != nil {
		return Quote{}, apperror.Backend("check blocked", err)
	}
	switch {
	case blocked:
		q.Reason = apperror.ErrUserBlocked.Message
	case s.validateAmount(amount) != nil:
		q.Reason = s.validateAmount(amount).Error()
	case amount > balance:
		q.Reason = apperror.ErrInsufficientBalance.Message
	case q.RemainingToday == 0:
		q.Reason = apperror.ErrDailyLimitExceeded.Message
	default:
		q.Eligible = true
	}
	return q, nil
}
