package admin

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/scanearn/coinvault/internal/apperror"
	"github.com/scanearn/coinvault/internal/claims"
)

// Handler exposes the admin console over HTTP.
type Handler struct {
	console *Console
}

// NewHandler constructs an admin handler.
func NewHandler(console *Console) *Handler {
	return &Handler{console: console}
}

func actorFrom(c *fiber.Ctx) Actor {
	uid, _ := c.Locals("user_id").(string)
	role, _ := c.Locals("role").(string)
	return Actor{ID: uid, Role: role}
}

// Payments lists claims, filtered by ?status=, ?user_id=, ?flagged=true and ?since= (RFC3339).
func (h *Handler) Payments(c *fiber.Ctx) error {
	f := claims.Filter{
		Status:      claims.Status(c.Query("status")),
		UserID:      c.Query("user_id"),
		FlaggedOnly: c.QueryBool("flagged", false),
	}
	switch f.Status {
	case "", claims.StatusPending, claims.StatusApproved, claims.StatusDeclined:
	default:
		return apperror.Validation("unknown status %q", f.Status)
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return apperror.Validation("since must be RFC3339")
		}
		f.SubmittedSince = t
	}
	list, err := h.console.ListPayments(c.UserContext(), actorFrom(c), f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"payments": list})
}

// Pending lists claims awaiting review.
func (h *Handler) Pending(c *fiber.Ctx) error {
	list, err := h.console.ListPending(c.UserContext(), actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"payments": list})
}

// Flagged lists flagged claims.
func (h *Handler) Flagged(c *fiber.Ctx) error {
	list, err := h.console.ListFlagged(c.UserContext(), actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"payments": list})
}

// Approve credits the claim in :transactionId.
func (h *Handler) Approve(c *fiber.Ctx) error {
	pr, err := h.console.Approve(c.UserContext(), actorFrom(c), c.Params("transactionId"))
	if err != nil {
		return err
	}
	return c.JSON(pr)
}

type declineRequest struct {
	Reason string `json:"reason"`
}

// Decline rejects the claim in :transactionId.
func (h *Handler) Decline(c *fiber.Ctx) error {
	var req declineRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperror.Validation("invalid request body")
		}
	}
	pr, err := h.console.Decline(c.UserContext(), actorFrom(c), c.Params("transactionId"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(pr)
}

// Users lists registered users.
func (h *Handler) Users(c *fiber.Ctx) error {
	users, err := h.console.ListUsers(c.UserContext(), actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users": users})
}

// BlockedUsers lists the blocked set.
func (h *Handler) BlockedUsers(c *fiber.Ctx) error {
	users, err := h.console.ListBlocked(c.UserContext(), actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users": users})
}

// IsBlocked reports whether :userId is blocked.
func (h *Handler) IsBlocked(c *fiber.Ctx) error {
	userID := c.Params("userId")
	blocked, err := h.console.IsBlocked(c.UserContext(), actorFrom(c), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user_id": userID, "blocked": blocked})
}

// Block adds :userId to the blocked set.
func (h *Handler) Block(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if err := h.console.BlockUser(c.UserContext(), actorFrom(c), userID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user_id": userID, "blocked": true})
}

// Unblock removes :userId from the blocked set.
func (h *Handler) Unblock(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if err := h.console.UnblockUser(c.UserContext(), actorFrom(c), userID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user_id": userID, "blocked": false})
}

type roleRequest struct {
	Role string `json:"role"`
}

// AssignRole sets the role of :userId.
func (h *Handler) AssignRole(c *fiber.Ctx) error {
	var req roleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	userID := c.Params("userId")
	if err := h.console.AssignRole(c.UserContext(), actorFrom(c), userID, req.Role); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user_id": userID, "role": req.Role})
}

// Threads lists support threads.
func (h *Handler) Threads(c *fiber.Ctx) error {
	threads, err := h.console.Threads(c.UserContext(), actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"threads": threads})
}

// Thread returns the support thread of :userId.
func (h *Handler) Thread(c *fiber.Ctx) error {
	msgs, err := h.console.Thread(c.UserContext(), actorFrom(c), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

type replyRequest struct {
	Body string `json:"body"`
}

// Reply posts an admin message to the support thread of :userId.
func (h *Handler) Reply(c *fiber.Ctx) error {
	var req replyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	msg, err := h.console.ReplyToUser(c.UserContext(), actorFrom(c), c.Params("userId"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(msg)
}
