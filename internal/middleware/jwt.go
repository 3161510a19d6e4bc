package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/scanearn/coinvault/internal/apperror"
	"github.com/scanearn/coinvault/internal/auth"
	"github.com/scanearn/coinvault/internal/identity"
)

// JWTAuth returns a middleware that validates JWT access tokens and checks token version.
func JWTAuth(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return apperror.New(apperror.KindUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		principal, err := svc.Verify(c.UserContext(), tokenStr)
		if err != nil {
			return err
		}

		c.Locals("user_id", principal.UserID)
		c.Locals("role", principal.Role)
		c.Locals("token_version", principal.Version)
		return c.Next()
	}
}

// RequireAdmin rejects callers whose verified role is not admin. It must run after JWTAuth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if role, _ := c.Locals("role").(string); role != identity.RoleAdmin {
			return apperror.ErrForbidden
		}
		return c.Next()
	}
}
