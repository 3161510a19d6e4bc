package support

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/scanearn/coinvault/internal/apperror"
)

// Handler exposes the user side of support threads.
type Handler struct {
	service *Service
}

// NewHandler constructs a support handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type messageRequest struct {
	Body string `json:"body"`
}

// Send posts a message to the caller's thread.
func (h *Handler) Send(c *fiber.Ctx) error {
	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	uid, _ := c.Locals("user_id").(string)
	sent, err := h.service.Send(c.UserContext(), uid, req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(sent)
}

// Messages lists the caller's thread.
func (h *Handler) Messages(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	msgs, err := h.service.Messages(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"messages": msgs})
}
