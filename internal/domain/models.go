package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Category mirrors a remote category. Parent categories have a nil ParentID;
// children reference a parent, and no deeper nesting is modeled.
type Category struct {
	ID          int64   `json:"id" db:"id" validate:"gt=0"`
	Name        string  `json:"name" db:"name" validate:"required"`
	Description *string `json:"description,omitempty" db:"description"`
	Active      bool    `json:"active" db:"active"`
	ParentID    *int64  `json:"parentId,omitempty" db:"parent_id" validate:"omitempty,gt=0"`
}

func (c Category) IsRoot() bool { return c.ParentID == nil }

// Product is the cacheable part of a remote product. Stock is deliberately
// absent: it changes continuously and is read live at render/add-to-cart time.
type Product struct {
	ID               int64               `json:"id" db:"id" validate:"gt=0"`
	Name             string              `json:"name" db:"name" validate:"required"`
	BasePrice        decimal.Decimal     `json:"basePrice" db:"base_price"`
	OnlinePrice      decimal.NullDecimal `json:"onlinePrice" db:"online_price"`
	PromoOnlinePrice decimal.NullDecimal `json:"promoOnlinePrice" db:"promo_online_price"`
	PromoStart       *time.Time          `json:"promoStart,omitempty" db:"-"`
	PromoEnd         *time.Time          `json:"promoEnd,omitempty" db:"-"`
	CategoryID       int64               `json:"categoryId" db:"category_id"`
	CategoryName     string              `json:"categoryName" db:"category_name"`
	BrandID          *int64              `json:"brandId,omitempty" db:"brand_id"`
	BrandName        string              `json:"brandName" db:"brand_name"`
	ImageID          string              `json:"imageId" db:"image_id"`
	ImageExt         string              `json:"imageExt" db:"image_ext"`
	ImageExt2        string              `json:"imageExt2" db:"image_ext2"`
	SKU              string              `json:"sku" db:"sku"`
	SellWithoutStock bool                `json:"sellWithoutStock" db:"sell_without_stock"`
	ShowOnline       bool                `json:"showOnline" db:"show_online"`
}

// PromoActive reports whether the promotional online price applies at t.
// An open-ended window (nil start or end) is unbounded on that side.
func (p Product) PromoActive(t time.Time) bool {
	if !p.PromoOnlinePrice.Valid || !p.PromoOnlinePrice.Decimal.IsPositive() {
		return false
	}
	if p.PromoStart != nil && t.Before(*p.PromoStart) {
		return false
	}
	if p.PromoEnd != nil && t.After(*p.PromoEnd) {
		return false
	}
	return true
}

// EffectivePrice picks promo > online > base.
func (p Product) EffectivePrice(t time.Time) decimal.Decimal {
	if p.PromoActive(t) {
		return p.PromoOnlinePrice.Decimal
	}
	if p.OnlinePrice.Valid && p.OnlinePrice.Decimal.IsPositive() {
		return p.OnlinePrice.Decimal
	}
	return p.BasePrice
}

// ImageCandidates returns the image filenames to try, in order.
func (p Product) ImageCandidates() []string {
	if p.ImageID == "" {
		return nil
	}
	var out []string
	for _, ext := range []string{p.ImageExt, p.ImageExt2} {
		if ext != "" {
			out = append(out, p.ImageID+"."+ext)
		}
	}
	return out
}

// ValidateCategoryTree checks the two-level invariant on a full snapshot.
// A parent id that is not in the snapshot is tolerated: the remote listing
// is filtered to active records, so an inactive parent is simply absent.
func ValidateCategoryTree(cats []Category) error {
	byID := make(map[int64]Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	for _, c := range cats {
		if c.ParentID == nil {
			continue
		}
		if *c.ParentID == c.ID {
			return fmt.Errorf("category %d is its own parent", c.ID)
		}
		if parent, ok := byID[*c.ParentID]; ok && parent.ParentID != nil {
			return fmt.Errorf("category %d nests under %d which is not a root category", c.ID, parent.ID)
		}
	}
	return nil
}
