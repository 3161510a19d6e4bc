package routes

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/scanearn/coinvault/internal/apperror"
	"github.com/scanearn/coinvault/internal/identity"
	"github.com/scanearn/coinvault/internal/wallet"
)

type contactRequest struct {
	Phone   string `json:"phone"`
	CTRCode string `json:"ctr_code"`
}

// RegisterIdentityRoutes wires registration and auto-provisions a wallet for the new user.
func RegisterIdentityRoutes(r fiber.Router, ids *identity.Service, wallets *wallet.Service, logger *slog.Logger) {
	r.Post("/identity/register", func(c *fiber.Ctx) error {
		var req struct {
			contactRequest
			PIN  string `json:"pin"`
			Name string `json:"name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return apperror.Validation("invalid request body")
		}
		user, err := ids.Register(c.UserContext(), identity.Credentials{Phone: req.Phone, CTRCode: req.CTRCode, PIN: req.PIN})
		if err != nil {
			return err
		}
		if req.Name != "" {
			if err := ids.SaveProfile(c.UserContext(), user.ID, identity.Profile{Name: req.Name}); err != nil {
				return err
			}
			user.Name = req.Name
		}
		w, err := wallets.Open(c.UserContext(), user.ID)
		if err != nil {
			return err
		}
		logger.Info("identity.register completed",
			slog.String("user_id", user.ID),
			slog.String("role", user.Role),
			slog.Int("status", http.StatusCreated),
		)
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"user":   user,
			"wallet": w,
		})
	})
}

// RegisterMeRoutes wires the caller's profile and contact endpoints.
func RegisterMeRoutes(r fiber.Router, ids *identity.Service) {
	r.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		user, err := ids.Get(c.UserContext(), uid)
		if err != nil {
			return err
		}
		return c.JSON(user)
	})

	r.Put("/me/profile", func(c *fiber.Ctx) error {
		var req identity.Profile
		if err := c.BodyParser(&req); err != nil {
			return apperror.Validation("invalid request body")
		}
		uid, _ := c.Locals("user_id").(string)
		if err := ids.SaveProfile(c.UserContext(), uid, req); err != nil {
			return err
		}
		profile, err := ids.Profile(c.UserContext(), uid)
		if err != nil {
			return err
		}
		return c.JSON(profile)
	})

	r.Post("/me/contact", func(c *fiber.Ctx) error {
		var req contactRequest
		if err := c.BodyParser(&req); err != nil {
			return apperror.Validation("invalid request body")
		}
		uid, _ := c.Locals("user_id").(string)
		user, err := ids.LinkContact(c.UserContext(), uid, req.Phone, req.CTRCode)
		if err != nil {
			return err
		}
		return c.JSON(user)
	})
}
