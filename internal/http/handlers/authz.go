package handlers

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "github.com/ranmrojas/nakermotosstore-sub001/internal/log"
)

const adminTokenHeader = "X-Admin-Token"

// RequireAdminToken guards the cache admin API with a shared token, sent as
// X-Admin-Token or a Bearer Authorization header. An empty token disables
// the admin API entirely.
func RequireAdminToken(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			applog.Security(c, "access.denied.admin", map[string]any{"reason": "admin api disabled"})
			return fiber.NewError(fiber.StatusForbidden, "Access denied")
		}
		got := c.Get(adminTokenHeader)
		if got == "" {
			got = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		}
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			applog.Security(c, "access.denied.admin", map[string]any{"token_present": got != ""})
			return fiber.NewError(fiber.StatusForbidden, "Access denied")
		}
		return c.Next()
	}
}

// Preload warms the cache on the first catalog visit without blocking it.
func Preload(p interface{ Trigger() bool }) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if p != nil && p.Trigger() {
			applog.Info(c, "cache.preload.trigger", nil)
		}
		return c.Next()
	}
}
