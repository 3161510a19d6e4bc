package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func TestLoginRateLimitPerContact(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Post("/login", LoginRateLimit(cache, 2), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	attempt := func(body string) int {
		req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	for i := 0; i < 2; i++ {
		if got := attempt(`{"phone":"9000000001"}`); got != fiber.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d", i, got)
		}
	}
	if got := attempt(`{"phone":"9000000001"}`); got != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", got)
	}
	if got := attempt(`{"ctr_code":"0918611"}`); got != fiber.StatusOK {
		t.Fatalf("other contact must not be limited, got %d", got)
	}

	mr.FastForward(61 * time.Second)
	if got := attempt(`{"phone":"9000000001"}`); got != fiber.StatusOK {
		t.Fatalf("expected window reset, got %d", got)
	}
}
