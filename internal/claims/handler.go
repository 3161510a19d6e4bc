package claims

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/scanearn/coinvault/internal/apperror"
)

// Handler exposes the user facing claim endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a claim handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type submitRequest struct {
	TransactionID string `json:"transaction_id"`
	TierINR       int64  `json:"tier_inr"`
	TierCoins     int64  `json:"tier_coins"`
	UTR           string `json:"utr_id"`
	ReceiptID     string `json:"receipt_id"`
}

// Submit records a payment claim for the authenticated user.
func (h *Handler) Submit(c *fiber.Ctx) error {
	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	uid, _ := c.Locals("user_id").(string)

	pr, err := h.service.Submit(c.UserContext(), SubmitInput{
		UserID:        uid,
		TransactionID: req.TransactionID,
		TierINR:       req.TierINR,
		TierCoins:     req.TierCoins,
		UTR:           req.UTR,
		ReceiptID:     req.ReceiptID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"claim":   pr,
	})
}

// Mine lists the authenticated user's claims.
func (h *Handler) Mine(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	list, err := h.service.ListForUser(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"claims": list})
}
