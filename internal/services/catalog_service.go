package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/domain"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/repos"
)

var ErrProductNotFound = errors.New("product not found")

type CatalogReader interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	Products(ctx context.Context, categoryID int64) ([]domain.Product, error)
	SearchProducts(ctx context.Context, q string, categoryID *int64, limit int) ([]domain.Product, error)
}

// LiveSource is used when the cache is unavailable.
type LiveSource interface {
	CategorySource
	ProductSource
}

// ProductView is a product as served to the storefront, priced at request time.
type ProductView struct {
	domain.Product
	Price       decimal.Decimal `json:"price"`
	PromoActive bool            `json:"promoActive"`
	Images      []string        `json:"images"`
}

// CatalogService answers catalog reads from the local cache and falls back
// to the live API when the store cannot be used.
type CatalogService struct {
	Store      CatalogReader
	Categories *CategorySync
	Products   *ProductSync
	Live       LiveSource
	Limit      int
	Now        func() time.Time
}

func NewCatalogService(store CatalogReader, cats *CategorySync, products *ProductSync, live LiveSource) *CatalogService {
	return &CatalogService{Store: store, Categories: cats, Products: products, Live: live, Limit: DefaultProductLimit, Now: time.Now}
}

// ListCategories returns cached categories. parent nil means all, 0 means
// roots only, otherwise the children of that parent.
func (s *CatalogService) ListCategories(ctx context.Context, parent *int64) ([]domain.Category, error) {
	cats, err := s.Store.Categories(ctx)
	switch {
	case errors.Is(err, repos.ErrStoreUnavailable):
		cats, err = s.Live.FetchCategories(ctx)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case len(cats) == 0 && s.Categories != nil:
		res := s.Categories.Sync(ctx)
		if !res.Success {
			return nil, res.Err
		}
		cats = res.Data
	}
	return filterByParent(cats, parent), nil
}

func filterByParent(cats []domain.Category, parent *int64) []domain.Category {
	if parent == nil {
		return cats
	}
	out := make([]domain.Category, 0, len(cats))
	for _, c := range cats {
		switch {
		case *parent == 0 && c.ParentID == nil:
			out = append(out, c)
		case *parent != 0 && c.ParentID != nil && *c.ParentID == *parent:
			out = append(out, c)
		}
	}
	return out
}

// ListProductsByCategory serves the partition from cache. An empty or stale
// partition goes through QuickSync first; if that fails, whatever is cached
// is returned rather than nothing.
func (s *CatalogService) ListProductsByCategory(ctx context.Context, categoryID int64) ([]ProductView, error) {
	cached, err := s.Store.Products(ctx, categoryID)
	if errors.Is(err, repos.ErrStoreUnavailable) {
		live, lerr := s.Live.FetchProducts(ctx, categoryID, s.Limit)
		if lerr != nil {
			return nil, lerr
		}
		return s.views(live), nil
	}
	if err != nil {
		return nil, err
	}
	if len(cached) > 0 && !s.Products.NeedsFullSync(ctx, categoryID) {
		return s.views(cached), nil
	}

	res := s.Products.QuickSync(ctx, categoryID)
	if res.Success {
		return s.views(res.Data), nil
	}
	if len(cached) > 0 {
		return s.views(cached), nil
	}
	return nil, res.Err
}

// GetProduct finds one product within a category partition.
func (s *CatalogService) GetProduct(ctx context.Context, categoryID, productID int64) (ProductView, error) {
	views, err := s.ListProductsByCategory(ctx, categoryID)
	if err != nil {
		return ProductView{}, err
	}
	for _, v := range views {
		if v.ID == productID {
			return v, nil
		}
	}
	return ProductView{}, fmt.Errorf("%w: %d in category %d", ErrProductNotFound, productID, categoryID)
}

// Search looks only at cached partitions; there is no live search endpoint.
func (s *CatalogService) Search(ctx context.Context, q string, categoryID *int64, limit int) ([]ProductView, error) {
	products, err := s.Store.SearchProducts(ctx, q, categoryID, limit)
	if err != nil {
		return nil, err
	}
	return s.views(products), nil
}

// CartLine prices a line for checkout at the current effective price.
func (s *CatalogService) CartLine(ctx context.Context, categoryID, productID int64, qty int) (domain.CartLine, error) {
	v, err := s.GetProduct(ctx, categoryID, productID)
	if err != nil {
		return domain.CartLine{}, err
	}
	return domain.NewCartLine(v.Product, qty, s.now())
}

func (s *CatalogService) views(products []domain.Product) []ProductView {
	now := s.now()
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		if !p.ShowOnline {
			continue
		}
		out = append(out, ProductView{
			Product:     p,
			Price:       p.EffectivePrice(now),
			PromoActive: p.PromoActive(now),
			Images:      p.ImageCandidates(),
		})
	}
	return out
}

func (s *CatalogService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
