package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/log"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/services"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/validate"
)

type InventoryHandler struct {
	Inv *services.InventoryService
}

// Check serves GET /api/v1/availability?productId=ID. Always live.
func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	productID, ok := validate.ProductID(c.Query("productId"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "productId"})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing or invalid productId",
		})
	}
	avail, err := h.Inv.CheckAvailability(c.UserContext(), productID)
	if err != nil {
		return upstream(c, "availability.error", err)
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(avail)
}
