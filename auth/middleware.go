package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const localsKey = "userId"

// Middleware rejects requests without a valid bearer token and stashes the
// resolved user id in the request locals.
func Middleware(a *Auth) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing bearer token",
			})
		}

		userId, err := a.ParseToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		c.Locals(localsKey, userId)
		return c.Next()
	}
}

// UserId returns the authenticated user id stashed by Middleware, or 0 when
// the request was not authenticated.
func UserId(c *fiber.Ctx) int64 {
	userId, _ := c.Locals(localsKey).(int64)
	return userId
}
