package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/scanearn/coinvault/internal/support"
)

// RegisterSupportRoutes wires the user side of support threads.
func RegisterSupportRoutes(r fiber.Router, h *support.Handler) {
	r.Get("/support/messages", h.Messages)
	r.Post("/support/messages", h.Send)
}
