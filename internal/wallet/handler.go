package wallet

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes wallet HTTP endpoints for the authenticated user.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Balance returns the caller's coin balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	balance, err := h.service.Balance(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(balance)
}

// Transactions lists the caller's history, filtered by ?type=add_funds|withdrawal.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	kind := c.Query("type")
	txs, err := h.service.History(c.UserContext(), uid, kind)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"type":         kind,
		"transactions": txs,
	})
}
