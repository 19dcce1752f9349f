package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	applog "github.com/ranmrojas/nakermotosstore-sub001/internal/log"
)

type RouteConfig struct {
	AdminToken string
	// AdminMax requests per AdminWindow on the admin API.
	AdminMax    int
	AdminWindow time.Duration
	// AvailMax requests per AvailWindow on the live availability endpoint.
	AvailMax    int
	AvailWindow time.Duration
}

func (rc RouteConfig) withDefaults() RouteConfig {
	if rc.AdminMax <= 0 {
		rc.AdminMax = 5
	}
	if rc.AdminWindow <= 0 {
		rc.AdminWindow = time.Minute
	}
	if rc.AvailMax <= 0 {
		rc.AvailMax = 15
	}
	if rc.AvailWindow <= 0 {
		rc.AvailWindow = 30 * time.Second
	}
	return rc
}

// Register mounts the JSON API on app.
func Register(app *fiber.App, d *Deps, rc RouteConfig) {
	rc = rc.withDefaults()
	api := app.Group("/api/v1")

	warm := Preload(d.Preloader)
	api.Get("/categories", warm, d.CategoryHandler.List)
	api.Get("/categories/:id/products", warm, d.CategoryHandler.Products)
	api.Get("/categories/:id/products/:pid", warm, d.ProductHandler.Detail)
	api.Get("/categories/:id/products/:pid/line", warm, d.ProductHandler.Line)
	api.Get("/search", limiter.New(limiter.Config{Max: 20, Expiration: time.Minute}), warm, d.SearchHandler.Search)

	api.Get("/availability", limiter.New(limiter.Config{
		Max:        rc.AvailMax,
		Expiration: rc.AvailWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|avail"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.availability.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}), d.InventoryHandler.Check)

	// Registered before the admin group so its middleware does not apply.
	api.Get("/cache/status", d.CacheHandler.GetStatus)

	admin := api.Group("/cache", RequireAdminToken(rc.AdminToken), limiter.New(limiter.Config{
		Max:        rc.AdminMax,
		Expiration: rc.AdminWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|cache-admin"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.cache.admin.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}))
	admin.Post("/sync", d.CacheHandler.Sync)
	admin.Post("/categories/:id/sync", d.CacheHandler.SyncCategory)
	admin.Post("/reset", d.CacheHandler.Reset)
}
