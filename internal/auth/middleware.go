package auth

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"formflow-backend/internal/engine"
	"formflow-backend/internal/schema"
)

const bearerPrefix = "Bearer "

// Middleware authenticates requests with a bearer access token and stores
// the resulting UserContext on the request for handlers downstream.
func Middleware(issuer *Issuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			return engine.UnauthorizedError("Missing or malformed bearer token")
		}

		claims, err := issuer.Parse(header[len(bearerPrefix):])
		if err != nil {
			return engine.UnauthorizedError("Invalid or expired token")
		}

		c.Locals("user", &schema.UserContext{
			ID:    claims.Subject,
			Roles: claims.Roles,
		})
		return c.Next()
	}
}

// RequireRole gates a route on a role carried in the access token. Mounted
// after Middleware.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			return engine.UnauthorizedError("Missing auth token")
		}
		if !user.HasRole(role) {
			return engine.ForbiddenError(fmt.Sprintf("%s role required", role))
		}
		return c.Next()
	}
}

// GetUser extracts the UserContext set by Middleware, or nil.
func GetUser(c *fiber.Ctx) *schema.UserContext {
	user, _ := c.Locals("user").(*schema.UserContext)
	return user
}
