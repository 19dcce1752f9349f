package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/log"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/services"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/validate"
)

type SearchHandler struct {
	Catalog *services.CatalogService
}

func (h *SearchHandler) Search(c *fiber.Ctx) error {
	rawQ := c.Query("q")
	if strings.TrimSpace(rawQ) == "" {
		return c.JSON(fiber.Map{"q": "", "data": []any{}, "count": 0})
	}
	q, ok := validate.Q(rawQ)
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "q", "value": rawQ})
		return fiber.NewError(fiber.StatusBadRequest, "Enter a valid keyword (letters/numbers only)")
	}
	var category *int64
	id, given, ok := validate.OptionalCategoryID(c.Query("category"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "category"})
		return fiber.NewError(fiber.StatusBadRequest, "Invalid category")
	}
	if given {
		category = &id
	}

	products, err := h.Catalog.Search(c.UserContext(), strings.ToLower(q), category, 20)
	if err != nil {
		return upstream(c, "search.error", err)
	}
	return c.JSON(fiber.Map{"q": q, "data": products, "count": len(products)})
}
