package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/scanearn/coinvault/internal/wallet"
)

// RegisterWalletRoutes wires wallet-related endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/me/balance", h.Balance)
	r.Get("/me/transactions", h.Transactions)
}
