package services_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/domain"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/events"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/remote"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/repos"
)

func memstore(t *testing.T) *repos.LocalStore {
	t.Helper()
	s := repos.NewLocalStore(":memory:")
	if err := s.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// stubRemote serves canned data and counts calls and concurrent fetches.
type stubRemote struct {
	mu         sync.Mutex
	categories []domain.Category
	catErr     error
	products   map[int64][]domain.Product
	failFor    map[int64]error
	stock      map[int64]int
	stockErr   error
	delay      time.Duration

	categoryCalls atomic.Int32
	productCalls  atomic.Int32
	inflight      atomic.Int32
	peak          atomic.Int32
	perCategory   sync.Map // int64 -> *atomic.Int32 in flight
	perCatPeak    atomic.Int32
}

func newStubRemote() *stubRemote {
	return &stubRemote{products: map[int64][]domain.Product{}, failFor: map[int64]error{}, stock: map[int64]int{}}
}

func (r *stubRemote) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	r.categoryCalls.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.catErr != nil {
		return nil, r.catErr
	}
	return append([]domain.Category(nil), r.categories...), nil
}

func (r *stubRemote) FetchProducts(ctx context.Context, categoryID int64, limit int) ([]domain.Product, error) {
	r.productCalls.Add(1)
	n := r.inflight.Add(1)
	defer r.inflight.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	v, _ := r.perCategory.LoadOrStore(categoryID, new(atomic.Int32))
	c := v.(*atomic.Int32)
	if m := c.Add(1); m > r.perCatPeak.Load() {
		r.perCatPeak.Store(m)
	}
	defer c.Add(-1)

	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failFor[categoryID]; err != nil {
		return nil, err
	}
	return append([]domain.Product(nil), r.products[categoryID]...), nil
}

func (r *stubRemote) FetchStock(ctx context.Context, productID int64) (domain.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stockErr != nil {
		return domain.StockLevel{}, r.stockErr
	}
	return domain.StockLevel{ProductID: productID, Qty: r.stock[productID]}, nil
}

func (r *stubRemote) setProducts(categoryID int64, ps ...domain.Product) {
	r.mu.Lock()
	r.products[categoryID] = ps
	r.mu.Unlock()
}

func (r *stubRemote) fail(categoryID int64, err error) {
	r.mu.Lock()
	r.failFor[categoryID] = err
	r.mu.Unlock()
}

func (r *stubRemote) heal(categoryID int64) {
	r.mu.Lock()
	delete(r.failFor, categoryID)
	r.mu.Unlock()
}

func fiveCategories() []domain.Category {
	one := int64(1)
	return []domain.Category{
		{ID: 1, Name: "Cascos", Active: true},
		{ID: 2, Name: "Llantas", Active: true},
		{ID: 3, Name: "Aceites", Active: true},
		{ID: 4, Name: "Cascos abiertos", Active: true, ParentID: &one},
		{ID: 5, Name: "Cascos integrales", Active: true, ParentID: &one},
	}
}

func product(categoryID, id int64) domain.Product {
	return domain.Product{
		ID:         id,
		Name:       fmt.Sprintf("product-%d-%d", categoryID, id),
		BasePrice:  decimal.NewFromInt(1000 * id),
		CategoryID: categoryID,
		ShowOnline: true,
	}
}

var errBoom = fmt.Errorf("%w: status 502", remote.ErrRemoteFetchFailed)

// recorder is an in-memory events.Publisher.
type recorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *recorder) Publish(_ context.Context, _ string, ev *events.Event, _ events.Headers) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) named(name string) []*events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.Event
	for _, e := range r.events {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}
