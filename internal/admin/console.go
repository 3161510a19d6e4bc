package admin

import (
	"context"
	"log/slog"

	"github.com/scanearn/coinvault/internal/apperror"
	"github.com/scanearn/coinvault/internal/claims"
	"github.com/scanearn/coinvault/internal/identity"
	"github.com/scanearn/coinvault/internal/support"
)

// Actor is the authenticated caller of a console operation.
type Actor struct {
	ID   string
	Role string
}

// Console composes payment review, user moderation and support replies.
// Every operation requires an admin actor.
type Console struct {
	claims   *claims.Service
	identity *identity.Service
	support  *support.Service
	logger   *slog.Logger
}

// NewConsole wires the admin console.
func NewConsole(claimSvc *claims.Service, identitySvc *identity.Service, supportSvc *support.Service, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{claims: claimSvc, identity: identitySvc, support: supportSvc, logger: logger}
}

func authorize(actor Actor) error {
	if actor.ID == "" {
		return apperror.ErrUnauthorized
	}
	if actor.Role != identity.RoleAdmin {
		return apperror.New(apperror.KindForbidden, "admin role required")
	}
	return nil
}

// ListPending returns claims awaiting review.
func (c *Console) ListPending(ctx context.Context, actor Actor) ([]claims.PaymentRequest, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	return c.claims.ListPending(ctx)
}

// ListFlagged returns flagged claims, resolved ones included.
func (c *Console) ListFlagged(ctx context.Context, actor Actor) ([]claims.PaymentRequest, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	return c.claims.ListFlagged(ctx)
}

// ListPayments returns claims matching f.
func (c *Console) ListPayments(ctx context.Context, actor Actor, f claims.Filter) ([]claims.PaymentRequest, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	return c.claims.List(ctx, f)
}

// Approve credits a pending claim.
func (c *Console) Approve(ctx context.Context, actor Actor, transactionID string) (claims.PaymentRequest, error) {
	if err := authorize(actor); err != nil {
		return claims.PaymentRequest{}, err
	}
	return c.claims.Approve(ctx, transactionID, actor.ID)
}

// Decline rejects a pending claim without credit.
func (c *Console) Decline(ctx context.Context, actor Actor, transactionID, note string) (claims.PaymentRequest, error) {
	if err := authorize(actor); err != nil {
		return claims.PaymentRequest{}, err
	}
	return c.claims.Decline(ctx, transactionID, actor.ID, note)
}

// BlockUser bars userID from new claims and withdrawals.
func (c *Console) BlockUser(ctx context.Context, actor Actor, userID string) error {
	if err := authorize(actor); err != nil {
		return err
	}
	if userID == actor.ID {
		return apperror.Validation("admins cannot block themselves")
	}
	if err := c.identity.SetBlocked(ctx, userID, true); err != nil {
		return err
	}
	c.logger.Info("user blocked", slog.String("user_id", userID), slog.String("admin_id", actor.ID))
	return nil
}

// UnblockUser lifts a block.
func (c *Console) UnblockUser(ctx context.Context, actor Actor, userID string) error {
	if err := authorize(actor); err != nil {
		return err
	}
	if err := c.identity.SetBlocked(ctx, userID, false); err != nil {
		return err
	}
	c.logger.Info("user unblocked", slog.String("user_id", userID), slog.String("admin_id", actor.ID))
	return nil
}

// IsBlocked reports whether userID is blocked.
func (c *Console) IsBlocked(ctx context.Context, actor Actor, userID string) (bool, error) {
	if err := authorize(actor); err != nil {
		return false, err
	}
	return c.identity.IsBlocked(ctx, userID)
}

// ListUsers returns every registered user.
func (c *Console) ListUsers(ctx context.Context, actor Actor) ([]identity.User, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	return c.identity.List(ctx)
}

// ListBlocked returns the blocked user set.
func (c *Console) ListBlocked(ctx context.Context, actor Actor) ([]identity.User, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	return c.identity.ListBlocked(ctx)
}

// AssignRole grants or revokes the admin role.
func (c *Console) AssignRole(ctx context.Context, actor Actor, userID, role string) error {
	if err := authorize(actor); err != nil {
		return err
	}
	if userID == actor.ID && role != identity.RoleAdmin {
		return apperror.Validation("admins cannot demote themselves")
	}
	if err := c.identity.AssignRole(ctx, userID, role); err != nil {
		return err
	}
	c.logger.Info("role assigned", slog.String("user_id", userID), slog.String("role", role), slog.String("admin_id", actor.ID))
	return nil
}

// ReplyToUser appends an admin message to the user's support thread.
func (c *Console) ReplyToUser(ctx context.Context, actor Actor, userID, body string) (support.Message, error) {
	if err := authorize(actor); err != nil {
		return support.Message{}, err
	}
	if _, err := c.identity.Get(ctx, userID); err != nil {
		return support.Message{}, err
	}
	return c.support.Reply(ctx, actor.ID, userID, body)
}

// Threads lists support threads.
func (c *Console) Threads(ctx context.Context, actor Actor) ([]support.Thread, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	return c.support.Threads(ctx)
}

// Thread returns a user's support thread.
func (c *Console) Thread(ctx context.Context, actor Actor, userID string) ([]support.Message, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	return c.support.Messages(ctx, userID)
}
