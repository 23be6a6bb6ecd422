package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"docflow/internal/service"
)

// ActorLocalKey is the key under which Auth stores the authenticated service.Actor.
const ActorLocalKey = "actor"

// TokenVerifier resolves a bearer token to its actor.
type TokenVerifier interface {
	Verify(token string) (service.Actor, error)
}

// Auth requires a valid "Authorization: Bearer <token>" header.
// Requests without one fail with 401 before reaching the handler.
func Auth(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheme, token, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		actor, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid access token")
		}
		c.Locals(ActorLocalKey, actor)
		return c.Next()
	}
}

// ActorFrom returns the actor stored by Auth.
func ActorFrom(c *fiber.Ctx) (service.Actor, bool) {
	a, ok := c.Locals(ActorLocalKey).(service.Actor)
	return a, ok
}
