package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/log"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/services"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/validate"
)

type CategoryHandler struct {
	Catalog *services.CatalogService
}

// List serves GET /api/v1/categories[?parent=ID]; parent=0 lists roots.
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	var parent *int64
	if raw := c.Query("parent"); raw == "0" {
		zero := int64(0)
		parent = &zero
	} else {
		id, given, ok := validate.OptionalCategoryID(raw)
		if !ok {
			log.Security(c, "validation.fail", map[string]any{"field": "parent"})
			return fiber.NewError(fiber.StatusBadRequest, "Invalid parent category")
		}
		if given {
			parent = &id
		}
	}
	cats, err := h.Catalog.ListCategories(c.UserContext(), parent)
	if err != nil {
		return upstream(c, "catalog.categories.error", err)
	}
	return c.JSON(fiber.Map{"data": cats, "count": len(cats)})
}

// Products serves GET /api/v1/categories/:id/products.
func (h *CategoryHandler) Products(c *fiber.Ctx) error {
	id, ok := validate.CategoryID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "category"})
		return fiber.NewError(fiber.StatusBadRequest, "Invalid category")
	}
	products, err := h.Catalog.ListProductsByCategory(c.UserContext(), id)
	if err != nil {
		return upstream(c, "catalog.products.error", err)
	}
	return c.JSON(fiber.Map{"categoryId": id, "data": products, "count": len(products)})
}
