package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/log"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/services"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

func (h *ProductHandler) ids(c *fiber.Ctx) (catID, productID int64, ok bool) {
	catID, ok1 := validate.CategoryID(c.Params("id"))
	productID, ok2 := validate.ProductID(c.Params("pid"))
	if !ok1 || !ok2 {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return 0, 0, false
	}
	return catID, productID, true
}

func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	catID, productID, ok := h.ids(c)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "This item is no longer available")
	}
	p, err := h.Catalog.GetProduct(c.UserContext(), catID, productID)
	if err != nil {
		return upstream(c, "catalog.product.error", err)
	}
	return c.JSON(p)
}

// Line prices a cart line (?qty=N, clamped to 1..50) for checkout.
func (h *ProductHandler) Line(c *fiber.Ctx) error {
	catID, productID, ok := h.ids(c)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "This item is no longer available")
	}
	line, err := h.Catalog.CartLine(c.UserContext(), catID, productID, validate.Qty(c.Query("qty")))
	if err != nil {
		return upstream(c, "catalog.line.error", err)
	}
	return c.JSON(fiber.Map{"line": line, "subtotal": line.Subtotal()})
}
