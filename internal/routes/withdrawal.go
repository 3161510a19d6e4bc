package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/scanearn/coinvault/internal/withdrawal"
)

// RegisterWithdrawalRoutes wires withdrawal endpoints.
func RegisterWithdrawalRoutes(r fiber.Router, h *withdrawal.Handler) {
	r.Post("/withdrawals", h.Create)
	r.Get("/withdrawals/quote", h.Quote)
}
