package handlers

import (
	"context"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/services"
)

type Resetter interface {
	Clear(ctx context.Context) error
}

// Services is everything the HTTP layer talks to, built once in main.
type Services struct {
	Catalog    *services.CatalogService
	Inventory  *services.InventoryService
	Categories *services.CategorySync
	Products   *services.ProductSync
	Preloader  *services.Preloader
	Status     *services.StatusReporter
	Store      Resetter
}

type Deps struct {
	CategoryHandler  *CategoryHandler
	ProductHandler   *ProductHandler
	InventoryHandler *InventoryHandler
	SearchHandler    *SearchHandler
	CacheHandler     *CacheHandler
	Preloader        *services.Preloader
}

func NewDeps(s Services) *Deps {
	return &Deps{
		CategoryHandler:  &CategoryHandler{Catalog: s.Catalog},
		ProductHandler:   &ProductHandler{Catalog: s.Catalog},
		InventoryHandler: &InventoryHandler{Inv: s.Inventory},
		SearchHandler:    &SearchHandler{Catalog: s.Catalog},
		CacheHandler: &CacheHandler{
			Categories: s.Categories,
			Products:   s.Products,
			Preloader:  s.Preloader,
			Status:     s.Status,
			Store:      s.Store,
		},
		Preloader: s.Preloader,
	}
}
