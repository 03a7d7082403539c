package middleware

import (
	"flipmail/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with an id, reusing a valid incoming one
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}

		c.Set(RequestIDHeader, id)
		c.Locals("requestid", id)

		return c.Next()
	}
}

// RequestLogger returns utils.Log tagged with the request id
func RequestLogger(c *fiber.Ctx) *utils.Logger {
	if id, ok := c.Locals("requestid").(string); ok {
		return utils.Log.WithField("request_id", id)
	}
	return utils.Log
}
