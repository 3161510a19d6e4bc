package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/scanearn/coinvault/internal/claims"
	"github.com/scanearn/coinvault/internal/receipt"
	"github.com/scanearn/coinvault/internal/tiers"
)

// RegisterTierRoutes publishes the reward tiers with their payment links.
func RegisterTierRoutes(r fiber.Router, catalog *tiers.Catalog, payee tiers.Payee) {
	r.Get("/tiers", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"tiers": catalog.Offers(payee)})
	})
}

// RegisterClaimRoutes wires payment claim and receipt endpoints.
func RegisterClaimRoutes(r fiber.Router, h *claims.Handler, receipts *receipt.Handler) {
	r.Post("/claims", h.Submit)
	r.Get("/me/claims", h.Mine)
	r.Post("/receipts", receipts.Upload)
	r.Get("/receipts/:receiptId", receipts.Download)
}
