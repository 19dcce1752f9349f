package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/events"
)

type StoreInitializer interface {
	Init(ctx context.Context) error
}

type categorySyncer interface {
	Sync(ctx context.Context) CategoryResult
}

type staleSyncer interface {
	SyncStale(ctx context.Context, categoryIDs []int64) Progress
}

// PreloadSummary describes one finished bootstrap attempt.
type PreloadSummary struct {
	RunID               string        `json:"runId"`
	StoreReady          bool          `json:"storeReady"`
	CategoriesSynced    bool          `json:"categoriesSynced"`
	CategoriesCached    int           `json:"categoriesCached"`
	CategoriesRequested int           `json:"categoriesRequested"`
	Products            Progress      `json:"products"`
	Duration            time.Duration `json:"duration"`
	Completed           bool          `json:"completed"`
}

// Preloader warms the cache once per process: store init, categories, then
// the curated product categories. Each step is best effort.
type Preloader struct {
	store      StoreInitializer
	categories categorySyncer
	products   staleSyncer
	important  []int64
	opts       options

	mu         sync.Mutex
	preloading bool
	completed  bool
	last       *PreloadSummary

	wg sync.WaitGroup
}

func NewPreloader(store StoreInitializer, cats categorySyncer, products staleSyncer, important []int64, opts ...Option) *Preloader {
	return &Preloader{
		store:      store,
		categories: cats,
		products:   products,
		important:  append([]int64(nil), important...),
		opts:       buildOptions(opts),
	}
}

func (p *Preloader) ImportantCategoryIDs() []int64 {
	if p == nil {
		return nil
	}
	return append([]int64(nil), p.important...)
}

// begin claims the run. It fails while a run is underway or after one completed.
func (p *Preloader) begin() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.preloading || p.completed {
		return false
	}
	p.preloading = true
	return true
}

// Run executes the bootstrap synchronously. ok is false when the call was a
// no-op because a run is in progress or already completed.
func (p *Preloader) Run(ctx context.Context) (summary PreloadSummary, ok bool) {
	if !p.begin() {
		return PreloadSummary{}, false
	}
	return p.run(ctx), true
}

// Trigger starts the bootstrap in the background and returns immediately.
func (p *Preloader) Trigger() bool {
	if !p.begin() {
		return false
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(context.Background())
	}()
	return true
}

// Wait blocks until background runs started by Trigger have returned.
func (p *Preloader) Wait() {
	if p != nil {
		p.wg.Wait()
	}
}

func (p *Preloader) run(ctx context.Context) PreloadSummary {
	started := p.opts.now()
	sum := PreloadSummary{RunID: uuid.NewString(), CategoriesRequested: len(p.important)}
	log := p.opts.log.With(zap.String("preload_run", sum.RunID))
	log.Info("preload started", zap.Int64s("important", p.important))

	if err := p.store.Init(ctx); err != nil {
		log.Warn("preload: store unavailable, continuing", zap.Error(err))
	} else {
		sum.StoreReady = true
	}

	if res := p.categories.Sync(ctx); res.Success {
		sum.CategoriesSynced = true
		sum.CategoriesCached = len(res.Data)
	} else {
		log.Warn("preload: category sync failed", zap.String("error", res.Error))
	}

	if len(p.important) > 0 {
		sum.Products = p.products.SyncStale(ctx, p.important)
		if sum.Products.CategoriesErrored > 0 {
			log.Warn("preload: some product categories failed", zap.Int("errored", sum.Products.CategoriesErrored))
		}
	}
	sum.Duration = p.opts.now().Sub(started)

	// Nothing succeeded: leave completed unset so a later trigger retries.
	sum.Completed = sum.CategoriesSynced || sum.Products.CategoriesCompleted > 0

	p.mu.Lock()
	p.preloading = false
	p.completed = sum.Completed
	last := sum
	p.last = &last
	p.mu.Unlock()

	if !sum.Completed {
		log.Warn("preload failed, will retry on next trigger")
		return sum
	}
	log.Info("preload completed",
		zap.Int("categories", sum.CategoriesCached),
		zap.Int("products", sum.Products.ProductsFetched),
		zap.Duration("took", sum.Duration),
	)
	p.opts.publish(ctx, events.PreloadCompletedEvent, events.PreloadCompletedPayload{
		RunID:               sum.RunID,
		CategoriesCached:    sum.CategoriesCached,
		CategoriesRequested: sum.CategoriesRequested,
		CategoriesCompleted: sum.Products.CategoriesCompleted,
		CategoriesErrored:   sum.Products.CategoriesErrored,
		ProductsFetched:     sum.Products.ProductsFetched,
		DurationMs:          sum.Duration.Milliseconds(),
	})
	return sum
}

// State reports the two guards. A nil Preloader is neither running nor done.
func (p *Preloader) State() (preloading, completed bool) {
	if p == nil {
		return false, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.preloading, p.completed
}

func (p *Preloader) LastSummary() *PreloadSummary {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return nil
	}
	s := *p.last
	return &s
}

// Reset clears the completed flag so the next Trigger warms the cache again.
// Used after the store is wiped.
func (p *Preloader) Reset() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.preloading {
		p.completed = false
	}
}
