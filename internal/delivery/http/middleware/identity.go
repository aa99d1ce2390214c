package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// OwnerHeader carries the verified user id set by the identity proxy in front
// of this service. Credential verification itself happens there, not here.
const OwnerHeader = "X-Owner-ID"

func Identity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ownerID := c.Get(OwnerHeader)
		if ownerID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing verified identity"})
		}

		c.Locals("ownerID", ownerID)
		return c.Next()
	}
}
