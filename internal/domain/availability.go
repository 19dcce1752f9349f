package domain

const (
	StatusInStock    = "IN_STOCK"
	StatusLowStock   = "LOW_STOCK"
	StatusOutOfStock = "OUT_OF_STOCK"
	lowStockBelow    = 5
)

// StockLevel is read live from the commerce API on every request.
type StockLevel struct {
	ProductID int64 `json:"productId" validate:"gt=0"`
	Qty       int   `json:"qty"`
}

type Availability struct {
	ProductID int64  `json:"productId"`
	Status    string `json:"status"`
	Qty       int    `json:"qty"`
}

// AvailabilityOf maps a live quantity to a display status.
func AvailabilityOf(s StockLevel) Availability {
	status := StatusOutOfStock
	switch {
	case s.Qty >= lowStockBelow:
		status = StatusInStock
	case s.Qty > 0:
		status = StatusLowStock
	}
	return Availability{ProductID: s.ProductID, Status: status, Qty: max(s.Qty, 0)}
}
