package withdrawal

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/scanearn/coinvault/internal/apperror"
)

// Handler exposes withdrawal endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a withdrawal handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type withdrawRequest struct {
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
}

// Create settles a withdrawal for the authenticated user.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	uid, _ := c.Locals("user_id").(string)

	res, err := h.service.Request(c.UserContext(), RequestInput{
		UserID:        uid,
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(res)
}

// Quote previews fee and eligibility for ?amount=.
func (h *Handler) Quote(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	amount := c.QueryInt("amount", 0)
	q, err := h.service.Quote(c.UserContext(), uid, int64(amount))
	if err != nil {
		return err
	}
	return c.JSON(q)
}
