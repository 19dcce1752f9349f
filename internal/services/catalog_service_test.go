package services_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/domain"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/repos"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/services"
)

func newCatalog(t *testing.T, store *repos.LocalStore, rem *stubRemote, clk *clock) *services.CatalogService {
	t.Helper()
	cats := services.NewCategorySync(store, rem, 0, services.WithClock(clk.Now))
	products := services.NewProductSync(store, rem, services.ProductSyncConfig{}, services.WithClock(clk.Now))
	svc := services.NewCatalogService(store, cats, products, rem)
	svc.Now = clk.Now
	return svc
}

func TestListCategoriesFiltersByParent(t *testing.T) {
	ctx := context.Background()
	rem := newStubRemote()
	rem.categories = fiveCategories()
	svc := newCatalog(t, memstore(t), rem, newClock())

	all, err := svc.ListCategories(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.EqualValues(t, 1, rem.categoryCalls.Load(), "empty cache syncs once")

	root := int64(0)
	roots, err := svc.ListCategories(ctx, &root)
	require.NoError(t, err)
	assert.Len(t, roots, 3)

	one := int64(1)
	children, err := svc.ListCategories(ctx, &one)
	require.NoError(t, err)
	assert.Len(t, children, 2)
	assert.EqualValues(t, 1, rem.categoryCalls.Load(), "served from cache afterwards")
}

func TestListProductsMissTriggersQuickSync(t *testing.T) {
	ctx := context.Background()
	rem := newStubRemote()
	hidden := product(7, 3)
	hidden.ShowOnline = false
	rem.setProducts(7, product(7, 1), product(7, 2), hidden)
	clk := newClock()
	svc := newCatalog(t, memstore(t), rem, clk)

	views, err := svc.ListProductsByCategory(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, views, 2, "products hidden from the online store are filtered")
	assert.EqualValues(t, 1, rem.productCalls.Load())

	_, err = svc.ListProductsByCategory(ctx, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rem.productCalls.Load(), "fresh partition served from cache")

	clk.Advance(31 * time.Minute)
	rem.fail(7, errBoom)
	views, err = svc.ListProductsByCategory(ctx, 7)
	require.NoError(t, err, "stale data beats no data")
	assert.Len(t, views, 2)
}

func TestListProductsFailsWithNothingCached(t *testing.T) {
	rem := newStubRemote()
	rem.fail(7, errBoom)
	svc := newCatalog(t, memstore(t), rem, newClock())

	_, err := svc.ListProductsByCategory(context.Background(), 7)
	assert.True(t, errors.Is(err, errBoom))
}

func TestCatalogFallsBackToLiveWhenStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	store := repos.NewLocalStore(filepath.Join(t.TempDir(), "missing", "cache.db"))
	rem := newStubRemote()
	rem.categories = fiveCategories()
	rem.setProducts(7, product(7, 1))
	svc := newCatalog(t, store, rem, newClock())

	cats, err := svc.ListCategories(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, cats, 5)

	views, err := svc.ListProductsByCategory(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, views, 1)

	_, _ = svc.ListProductsByCategory(ctx, 7)
	assert.EqualValues(t, 2, rem.productCalls.Load(), "no cache means every read is live")
}

func TestProductViewPricingAndCartLine(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	start := clk.Now().Add(-time.Hour)
	end := clk.Now().Add(time.Hour)
	p := product(7, 1)
	p.BasePrice = decimal.NewFromInt(50000)
	p.OnlinePrice = decimal.NewNullDecimal(decimal.NewFromInt(48000))
	p.PromoOnlinePrice = decimal.NewNullDecimal(decimal.NewFromInt(45000))
	p.PromoStart, p.PromoEnd = &start, &end
	p.ImageID, p.ImageExt, p.ImageExt2 = "img1", "webp", "jpg"

	rem := newStubRemote()
	rem.setProducts(7, p)
	svc := newCatalog(t, memstore(t), rem, clk)

	v, err := svc.GetProduct(ctx, 7, 1)
	require.NoError(t, err)
	assert.True(t, v.PromoActive)
	assert.Equal(t, "45000", v.Price.String())
	assert.Equal(t, []string{"img1.webp", "img1.jpg"}, v.Images)

	line, err := svc.CartLine(ctx, 7, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, "135000", line.Subtotal().String())
	assert.Equal(t, "img1.webp", line.Image)

	_, err = svc.CartLine(ctx, 7, 1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = svc.GetProduct(ctx, 7, 99)
	assert.ErrorIs(t, err, services.ErrProductNotFound)
}

func TestInventoryServiceReadsLive(t *testing.T) {
	ctx := context.Background()
	rem := newStubRemote()
	rem.stock[1] = 6
	rem.stock[2] = 2
	svc := services.NewInventoryService(rem)

	a, err := svc.CheckAvailability(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInStock, a.Status)

	a, err = svc.CheckAvailability(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLowStock, a.Status)

	a, err = svc.CheckAvailability(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOutOfStock, a.Status)

	rem.stockErr = errBoom
	_, err = svc.CheckAvailability(ctx, 1)
	assert.Error(t, err)
}

func TestSearchUsesCache(t *testing.T) {
	ctx := context.Background()
	rem := newStubRemote()
	rem.setProducts(7, product(7, 1), product(7, 2))
	svc := newCatalog(t, memstore(t), rem, newClock())

	got, err := svc.Search(ctx, "product-7", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, got, "nothing cached yet")

	_, err = svc.ListProductsByCategory(ctx, 7)
	require.NoError(t, err)
	got, err = svc.Search(ctx, "product-7-2", nil, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.EqualValues(t, 2, got[0].ID)
}
