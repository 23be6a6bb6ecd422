package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docflow/internal/logging"
)

const (
	RequestIDHeader   = "X-Request-ID"
	RequestIDLocalKey = "request_id"
)

// RequestID takes the caller's X-Request-ID or generates one, echoes it on
// the response and keeps it in locals. The id also rides on the user
// context, so service logs written with that context carry request_id.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(RequestIDLocalKey, id)
		c.SetUserContext(logging.WithRequestID(c.UserContext(), id))
		c.Set(RequestIDHeader, id)
		return c.Next()
	}
}
