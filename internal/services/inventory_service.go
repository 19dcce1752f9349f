package services

import (
	"context"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/domain"
)

type StockSource interface {
	FetchStock(ctx context.Context, productID int64) (domain.StockLevel, error)
}

// InventoryService reads stock straight from the commerce API. Stock changes
// too often to be cached, so there is no store here.
type InventoryService struct {
	Stock StockSource
}

func NewInventoryService(stock StockSource) *InventoryService {
	return &InventoryService{Stock: stock}
}

// CheckAvailability converts qty to IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func (s *InventoryService) CheckAvailability(ctx context.Context, productID int64) (domain.Availability, error) {
	lvl, err := s.Stock.FetchStock(ctx, productID)
	if err != nil {
		return domain.Availability{}, err
	}
	return domain.AvailabilityOf(lvl), nil
}
