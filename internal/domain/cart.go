package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// CartLine is the line item shape checkout consumes. Category, brand, SKU and
// image are copied from the product at add time.
type CartLine struct {
	ProductID    int64           `json:"productId"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Qty          int             `json:"qty"`
	CategoryID   int64           `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	BrandName    string          `json:"brandName"`
	SKU          string          `json:"sku"`
	Image        string          `json:"image,omitempty"`
	Note         string          `json:"note,omitempty"`
}

func NewCartLine(p Product, qty int, at time.Time) (CartLine, error) {
	l := CartLine{
		ProductID:    p.ID,
		Name:         p.Name,
		UnitPrice:    p.EffectivePrice(at),
		Qty:          qty,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		BrandName:    p.BrandName,
		SKU:          p.SKU,
	}
	if imgs := p.ImageCandidates(); len(imgs) > 0 {
		l.Image = imgs[0]
	}
	return l, l.Validate()
}

func (l CartLine) Validate() error {
	if l.Qty < 1 {
		return ErrInvalidQuantity
	}
	return nil
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty)))
}
