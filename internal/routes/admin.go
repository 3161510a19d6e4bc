package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/scanearn/coinvault/internal/admin"
)

// RegisterAdminRoutes wires the admin console. The group must already enforce the admin role.
func RegisterAdminRoutes(r fiber.Router, h *admin.Handler) {
	payments := r.Group("/payments")
	payments.Get("", h.Payments)
	payments.Get("/pending", h.Pending)
	payments.Get("/flagged", h.Flagged)
	payments.Post("/:transactionId/approve", h.Approve)
	payments.Post("/:transactionId/decline", h.Decline)

	users := r.Group("/users")
	users.Get("", h.Users)
	users.Get("/blocked", h.BlockedUsers)
	users.Get("/:userId/blocked", h.IsBlocked)
	users.Post("/:userId/block", h.Block)
	users.Post("/:userId/unblock", h.Unblock)
	users.Post("/:userId/role", h.AssignRole)

	threads := r.Group("/support/threads")
	threads.Get("", h.Threads)
	threads.Get("/:userId", h.Thread)
	threads.Post("/:userId/reply", h.Reply)
}
