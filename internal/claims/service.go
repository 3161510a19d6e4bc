package claims

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/scanearn/coinvault/internal/apperror"
	"github.com/scanearn/coinvault/internal/clock"
	"github.com/scanearn/coinvault/internal/fingerprint"
	"github.com/scanearn/coinvault/internal/ledger"
	"github.com/scanearn/coinvault/internal/lockset"
	"github.com/scanearn/coinvault/internal/metrics"
	"github.com/scanearn/coinvault/internal/notification"
	"github.com/scanearn/coinvault/internal/receipt"
	"github.com/scanearn/coinvault/internal/tiers"
)

// SystemReviewer is recorded as the reviewer of claims resolved by the sweeper.
const SystemReviewer = "system"

// ExpiredNote is the review note of claims auto-declined after the pending TTL.
const ExpiredNote = "expired"

// BlockChecker reports membership in the blocked user set.
type BlockChecker interface {
	IsBlocked(ctx context.Context, userID string) (bool, error)
}

// ReceiptLookup resolves receipt references attached to claims.
type ReceiptLookup interface {
	Meta(ctx context.Context, id string) (receipt.Receipt, error)
}

// Config tunes the claim workflow.
type Config struct {
	// RequireConfirmation demands both a UTR and a receipt on every claim.
	RequireConfirmation bool
	MinUTRLength        int
	// PendingTTL is the age after which pending claims are auto-declined. Zero disables expiry.
	PendingTTL time.Duration
	Flags      FlagPolicy
}

// DefaultConfig returns the confirmation flow settings.
func DefaultConfig() Config {
	return Config{
		RequireConfirmation: true,
		MinUTRLength:        12,
		PendingTTL:          7 * 24 * time.Hour,
		Flags:               DefaultFlagPolicy(),
	}
}

// Deps are the collaborators of the claim service. Receipts, Notifier, Metrics,
// Clock and Logger are optional.
type Deps struct {
	Repo     Repository
	Registry fingerprint.Registry
	Catalog  *tiers.Catalog
	Ledger   ledger.Ledger
	Blocks   BlockChecker
	Receipts ReceiptLookup
	Notifier notification.Notifier
	Metrics  *metrics.Metrics
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Service runs the payment claim state machine.
type Service struct {
	repo     Repository
	registry fingerprint.Registry
	catalog  *tiers.Catalog
	ledger   ledger.Ledger
	blocks   BlockChecker
	receipts ReceiptLookup
	notifier notification.Notifier
	metrics  *metrics.Metrics
	clock    clock.Clock
	logger   *slog.Logger
	cfg      Config

	userLocks *lockset.Set
	txLocks   *lockset.Set
}

// NewService wires a claim service.
func NewService(deps Deps, cfg Config) *Service {
	if deps.Catalog == nil {
		deps.Catalog = tiers.Default()
	}
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.MinUTRLength <= 0 {
		cfg.MinUTRLength = 12
	}
	return &Service{
		repo:      deps.Repo,
		registry:  deps.Registry,
		catalog:   deps.Catalog,
		ledger:    deps.Ledger,
		blocks:    deps.Blocks,
		receipts:  deps.Receipts,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		clock:     deps.Clock,
		logger:    deps.Logger,
		cfg:       cfg,
		userLocks: lockset.New(),
		txLocks:   lockset.New(),
	}
}

// SubmitInput is a user's payment assertion. Either tier field may be zero.
type SubmitInput struct {
	UserID        string
	TransactionID string
	TierINR       int64
	TierCoins     int64
	UTR           string
	ReceiptID     string
}

// Submit records a pending claim. The transaction id is reserved permanently
// before the request is created; resubmitting it always fails with
// DuplicateTransaction.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (pr PaymentRequest, err error) {
	defer func() { s.metrics.ObserveClaimSubmitted(pr.Flagged, err) }()

	if in.UserID == "" {
		return PaymentRequest{}, apperror.ErrUnauthorized
	}
	if err := s.ensureNotBlocked(ctx, in.UserID); err != nil {
		return PaymentRequest{}, err
	}
	txID := fingerprint.Normalize(in.TransactionID)
	if txID == "" {
		return PaymentRequest{}, apperror.Validation("transaction id is required")
	}
	tier, err := s.catalog.Resolve(in.TierINR, in.TierCoins)
	if err != nil {
		return PaymentRequest{}, err
	}
	utr := strings.TrimSpace(in.UTR)
	receiptID := strings.TrimSpace(in.ReceiptID)
	if err := s.validateConfirmation(ctx, in.UserID, utr, receiptID); err != nil {
		return PaymentRequest{}, err
	}

	unlock := s.userLocks.Lock(in.UserID)
	defer unlock()

	now := s.clock.Now()
	if err := s.reserve(ctx, txID, in.UserID, now); err != nil {
		return PaymentRequest{}, err
	}

	candidate := PaymentRequest{
		TransactionID: txID,
		UserID:        in.UserID,
		TierINR:       tier.INR,
		Amount:        tier.Coins,
		UTR:           utr,
		ReceiptID:     receiptID,
		Status:        StatusPending,
		SubmittedAt:   now,
	}
	reason, err := s.cfg.Flags.Evaluate(ctx, s.repo, candidate)
	if err != nil {
		return PaymentRequest{}, apperror.Backend("evaluate flags", err)
	}
	if reason != "" {
		candidate.Flagged = true
		candidate.FlagReason = reason
	}

	if err := s.repo.Create(ctx, candidate); err != nil {
		return PaymentRequest{}, err
	}

	attrs := []any{
		slog.String("transaction_id", txID),
		slog.String("user_id", in.UserID),
		slog.Int64("amount", candidate.Amount),
	}
	if candidate.Flagged {
		s.logger.Warn("claim flagged", append(attrs, slog.String("reason", reason))...)
	} else {
		s.logger.Info("claim submitted", attrs...)
	}
	return candidate, nil
}

// reserve consumes txID in the fingerprint registry. A reservation left behind
// by a failed create of the same user is adopted so retries stay safe.
func (s *Service) reserve(ctx context.Context, txID, userID string, now time.Time) error {
	err := s.registry.Reserve(ctx, fingerprint.Reservation{
		TransactionID: txID,
		UserID:        userID,
		Purpose:       fingerprint.PurposeClaim,
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
	if ok && res.UserID == userID && res.Purpose == fingerprint.PurposeClaim {
		if _, getErr := s.repo.Get(ctx, txID); errors.Is(getErr, ErrNotFound) {
			return nil
		}
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

func (s *Service) validateConfirmation(ctx context.Context, userID, utr, receiptID string) error {
	if s.cfg.RequireConfirmation {
		if utr == "" {
			return apperror.Validation("utr id is required")
		}
		if receiptID == "" {
			return apperror.Validation("payment receipt is required")
		}
	}
	if utr != "" && len(utr) < s.cfg.MinUTRLength {
		return apperror.Validation("utr id must be at least %d characters", s.cfg.MinUTRLength)
	}
	if receiptID == "" || s.receipts == nil {
		return nil
	}
	meta, err := s.receipts.Meta(ctx, receiptID)
	if err != nil {
		if errors.Is(err, receipt.ErrNotFound) {
			return apperror.Validation("receipt %q not found", receiptID)
		}
		return apperror.Backend("load receipt", err)
	}
	if meta.OwnerID != userID {
		return apperror.Validation("receipt %q not found", receiptID)
	}
	return nil
}

// Approve moves a pending claim to approved and credits its coins. A failed
// credit leaves the claim approved and returns BackendUnavailable; Reconcile
// posts the missing credit later.
func (s *Service) Approve(ctx context.Context, transactionID, reviewer string) (pr PaymentRequest, err error) {
	defer func() { s.metrics.ObserveClaimReviewed("approve", pr.Amount, err) }()

	txID := fingerprint.Normalize(transactionID)
	unlock := s.txLocks.Lock(txID)
	defer unlock()

	pr, err = s.repo.Transition(ctx, txID, StatusPending, StatusApproved, Review{Reviewer: reviewer, At: s.clock.Now()})
	if err != nil {
		return PaymentRequest{}, err
	}

	if err := s.credit(ctx, pr); err != nil {
		// The posting may have committed before the error surfaced, so the
		// claim stays approved and Reconcile settles the credit.
		s.logger.Error("claim credit failed",
			slog.String("transaction_id", txID),
			slog.String("user_id", pr.UserID),
			slog.String("error", err.Error()),
		)
		return PaymentRequest{}, apperror.Backend("credit approved claim", err)
	}

	s.logger.Info("claim approved",
		slog.String("transaction_id", txID),
		slog.String("user_id", pr.UserID),
		slog.String("reviewer", reviewer),
		slog.Int64("amount", pr.Amount),
	)
	s.notify(ctx, notification.KindClaimApproved, pr.UserID,
		fmt.Sprintf("Your payment %s was approved: %d coins added", txID, pr.Amount))
	return pr, nil
}

// credit posts the claim's coins. An existing posting for the id counts as done.
func (s *Service) credit(ctx context.Context, pr PaymentRequest) error {
	_, err := s.ledger.Credit(ctx, pr.UserID, pr.TransactionID, pr.Amount, "claim "+pr.TransactionID)
	if err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
		return err
	}
	return nil
}

// Decline moves a pending claim to declined. No coins are credited.
func (s *Service) Decline(ctx context.Context, transactionID, reviewer, note string) (pr PaymentRequest, err error) {
	defer func() { s.metrics.ObserveClaimReviewed("decline", pr.Amount, err) }()

	txID := fingerprint.Normalize(transactionID)
	unlock := s.txLocks.Lock(txID)
	defer unlock()

	pr, err = s.repo.Transition(ctx, txID, StatusPending, StatusDeclined, Review{
		Reviewer: reviewer,
		Note:     strings.TrimSpace(note),
		At:       s.clock.Now(),
	})
	if err != nil {
		return PaymentRequest{}, err
	}

	s.logger.Info("claim declined",
		slog.String("transaction_id", txID),
		slog.String("user_id", pr.UserID),
		slog.String("reviewer", reviewer),
	)
	body := fmt.Sprintf("Your payment %s was declined", txID)
	if pr.ReviewNote != "" {
		body += ": " + pr.ReviewNote
	}
	s.notify(ctx, notification.KindClaimDeclined, pr.UserID, body)
	return pr, nil
}

// ExpireStale auto-declines pending claims older than the pending TTL and
// returns how many were expired.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	if s.cfg.PendingTTL <= 0 {
		return 0, nil
	}
	now := s.clock.Now()
	stale, err := s.repo.List(ctx, Filter{Status: StatusPending, SubmittedTo: now.Add(-s.cfg.PendingTTL)})
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, pr := range stale {
		if _, err := s.expire(ctx, pr.TransactionID, now); err != nil {
			if errors.Is(err, ErrNotPending) {
				continue
			}
			return expired, err
		}
		expired++
	}
	s.metrics.ObserveClaimsExpired(expired)
	if expired > 0 {
		s.logger.Info("pending claims expired", slog.Int("count", expired))
	}
	return expired, nil
}

func (s *Service) expire(ctx context.Context, txID string, now time.Time) (PaymentRequest, error) {
	unlock := s.txLocks.Lock(txID)
	defer unlock()

	pr, err := s.repo.Transition(ctx, txID, StatusPending, StatusDeclined, Review{
		Reviewer: SystemReviewer,
		Note:     ExpiredNote,
		At:       now,
	})
	if err != nil {
		return PaymentRequest{}, err
	}
	s.notify(ctx, notification.KindClaimDeclined, pr.UserID,
		fmt.Sprintf("Your payment %s expired without review", txID))
	return pr, nil
}

// Reconcile re-posts the credit of claims approved within window. The ledger
// rejects ids it already holds, so only missing credits are written. It
// returns the number of credits repaired.
func (s *Service) Reconcile(ctx context.Context, window time.Duration) (int, error) {
	approved, err := s.repo.List(ctx, Filter{
		Status:        StatusApproved,
		ReviewedSince: s.clock.Now().Add(-window),
	})
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, pr := range approved {
		ok, err := s.repair(ctx, pr)
		if err != nil {
			return repaired, err
		}
		if ok {
			repaired++
			s.metrics.ObserveReconcileRepair()
			s.logger.Warn("claim credit repaired",
				slog.String("transaction_id", pr.TransactionID),
				slog.String("user_id", pr.UserID),
			)
		}
	}
	return repaired, nil
}

func (s *Service) repair(ctx context.Context, pr PaymentRequest) (bool, error) {
	unlock := s.txLocks.Lock(pr.TransactionID)
	defer unlock()

	current, err := s.repo.Get(ctx, pr.TransactionID)
	if err != nil {
		return false, err
	}
	if current.Status != StatusApproved {
		return false, nil
	}
	_, err = s.ledger.Credit(ctx, current.UserID, current.TransactionID, current.Amount, "claim "+current.TransactionID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return false, nil
	default:
		return false, apperror.Backend("repair claim credit", err)
	}
}

// Get returns a claim by transaction id.
func (s *Service) Get(ctx context.Context, transactionID string) (PaymentRequest, error) {
	return s.repo.Get(ctx, fingerprint.Normalize(transactionID))
}

// ListForUser returns the user's claims, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]PaymentRequest, error) {
	return s.repo.List(ctx, Filter{UserID: userID})
}

// ListPending returns claims awaiting review, flagged ones included.
func (s *Service) ListPending(ctx context.Context) ([]PaymentRequest, error) {
	return s.repo.List(ctx, Filter{Status: StatusPending})
}

// ListFlagged returns every flagged claim, resolved ones included.
func (s *Service) ListFlagged(ctx context.Context) ([]PaymentRequest, error) {
	return s.repo.List(ctx, Filter{FlaggedOnly: true})
}

// List returns claims matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]PaymentRequest, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) notify(ctx context.Context, kind, userID, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, notification.Message{Kind: kind, Destination: userID, Body: body}); err != nil {
		s.logger.Warn("notification failed", slog.String("kind", kind), slog.String("error", err.Error()))
	}
}
