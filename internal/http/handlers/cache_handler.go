package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/log"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/services"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/validate"
)

// CacheHandler exposes sync status and the manual refresh affordances.
type CacheHandler struct {
	Categories *services.CategorySync
	Products   *services.ProductSync
	Preloader  *services.Preloader
	Status     *services.StatusReporter
	Store      Resetter
}

// GetStatus is polled by the UI; it never triggers work.
func (h *CacheHandler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(h.Status.Status())
}

// Sync serves POST /api/v1/cache/sync?scope=all|stale.
func (h *CacheHandler) Sync(c *fiber.Ctx) error {
	scope, ok := validate.SyncScope(c.Query("scope"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "scope"})
		return fiber.NewError(fiber.StatusBadRequest, "Invalid scope")
	}
	ctx := c.UserContext()

	var cats services.CategoryResult
	if scope == "stale" {
		cats = h.Categories.SyncIfStale(ctx)
	} else {
		cats = h.Categories.ForceSync(ctx)
	}

	ids := h.Preloader.ImportantCategoryIDs()
	if len(ids) == 0 {
		for _, cat := range cats.Data {
			ids = append(ids, cat.ID)
		}
	}
	var progress services.Progress
	if scope == "stale" {
		progress = h.Products.SyncStale(ctx, ids)
	} else {
		progress = h.Products.SyncAll(ctx, ids)
	}

	log.Audit(c, "cache.sync.force", map[string]any{
		"scope":             scope,
		"categories_ok":     cats.Success,
		"products_ok":       progress.CategoriesCompleted,
		"products_errored":  progress.CategoriesErrored,
		"categories_synced": len(cats.Data),
	})
	status := fiber.StatusOK
	if !cats.Success && progress.CategoriesCompleted == 0 && progress.Total > 0 {
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(fiber.Map{
		"categories": fiber.Map{"success": cats.Success, "count": len(cats.Data), "error": cats.Error},
		"products":   progress,
	})
}

// SyncCategory serves POST /api/v1/cache/categories/:id/sync and always fetches.
func (h *CacheHandler) SyncCategory(c *fiber.Ctx) error {
	id, ok := validate.CategoryID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "category"})
		return fiber.NewError(fiber.StatusBadRequest, "Invalid category")
	}
	res := h.Products.ForceSync(c.UserContext(), id)
	log.Audit(c, "cache.sync.category", map[string]any{"category_id": id, "success": res.Success, "count": len(res.Data)})
	if !res.Success {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"success": false, "categoryId": id, "error": "Catalog temporarily unavailable"})
	}
	return c.JSON(fiber.Map{"success": true, "categoryId": id, "count": len(res.Data)})
}

// Reset wipes the cache and re-arms the preloader.
func (h *CacheHandler) Reset(c *fiber.Ctx) error {
	if err := h.Store.Clear(c.UserContext()); err != nil {
		log.Error(c, "cache.reset.error", err, nil)
		return fiber.NewError(fiber.StatusServiceUnavailable, "Cache unavailable")
	}
	h.Preloader.Reset()
	log.Audit(c, "cache.reset", nil)
	return c.JSON(fiber.Map{"ok": true})
}
