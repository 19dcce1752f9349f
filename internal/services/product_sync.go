package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/domain"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/events"
)

const (
	DefaultProductTTL       = 30 * time.Minute
	DefaultProductQuickTTL  = 5 * time.Minute
	DefaultBatchSize        = 3
	DefaultBatchDelay       = 500 * time.Millisecond
	DefaultAutoSyncInterval = 15 * time.Minute
	DefaultProductLimit     = 1000
)

type ProductSyncConfig struct {
	FullTTL          time.Duration
	QuickTTL         time.Duration
	BatchSize        int
	BatchDelay       time.Duration
	AutoSyncInterval time.Duration
	Limit            int
}

func (c ProductSyncConfig) withDefaults() ProductSyncConfig {
	if c.FullTTL <= 0 {
		c.FullTTL = DefaultProductTTL
	}
	if c.QuickTTL <= 0 {
		c.QuickTTL = DefaultProductQuickTTL
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchDelay < 0 {
		c.BatchDelay = 0
	}
	if c.AutoSyncInterval <= 0 {
		c.AutoSyncInterval = DefaultAutoSyncInterval
	}
	if c.Limit <= 0 {
		c.Limit = DefaultProductLimit
	}
	return c
}

type ProductResult struct {
	Success    bool             `json:"success"`
	Data       []domain.Product `json:"data"`
	CategoryID int64            `json:"categoryId"`
	Error      string           `json:"error,omitempty"`
	Err        error            `json:"-"`
	// Fetched is false when a TTL gate answered from the cache.
	Fetched bool `json:"fetched"`
}

// Progress is a snapshot of the current (or last) batch run.
type Progress struct {
	RunID               string     `json:"runId,omitempty"`
	Total               int        `json:"total"`
	CategoriesCompleted int        `json:"categoriesCompleted"`
	CategoriesErrored   int        `json:"categoriesErrored"`
	ProductsFetched     int        `json:"productsFetched"`
	IsComplete          bool       `json:"isComplete"`
	StartedAt           *time.Time `json:"startedAt,omitempty"`
	FinishedAt          *time.Time `json:"finishedAt,omitempty"`
	// Interrupted marks a run cut short by cancellation; later batches were skipped.
	Interrupted bool `json:"interrupted,omitempty"`
}

// ProductSync keeps per-category product partitions fresh.
type ProductSync struct {
	store  ProductStore
	remote ProductSource
	cfg    ProductSyncConfig
	opts   options

	locks keyLock
	runMu sync.Mutex

	progressMu sync.RWMutex
	progress   Progress

	autoMu     sync.Mutex
	autoCancel context.CancelFunc
	autoDone   chan struct{}
}

func NewProductSync(store ProductStore, src ProductSource, cfg ProductSyncConfig, opts ...Option) *ProductSync {
	return &ProductSync{store: store, remote: src, cfg: cfg.withDefaults(), opts: buildOptions(opts)}
}

func (s *ProductSync) Config() ProductSyncConfig { return s.cfg }

func (s *ProductSync) NeedsSync(ctx context.Context, categoryID int64, ttl time.Duration) bool {
	return isStale(ctx, s.store, productSyncKey(categoryID), ttl, s.opts.now())
}

func (s *ProductSync) NeedsFullSync(ctx context.Context, categoryID int64) bool {
	return s.NeedsSync(ctx, categoryID, s.cfg.FullTTL)
}

func (s *ProductSync) NeedsQuickSync(ctx context.Context, categoryID int64) bool {
	return s.NeedsSync(ctx, categoryID, s.cfg.QuickTTL)
}

func (s *ProductSync) LastSync(ctx context.Context, categoryID int64) (time.Time, bool) {
	return lastSync(ctx, s.store, productSyncKey(categoryID))
}

// SyncCategory fetches and replaces one partition unconditionally. An empty
// product list is a valid result and empties the partition.
func (s *ProductSync) SyncCategory(ctx context.Context, categoryID int64) ProductResult {
	return s.syncGated(ctx, categoryID, 0)
}

// ForceSync bypasses every TTL.
func (s *ProductSync) ForceSync(ctx context.Context, categoryID int64) ProductResult {
	return s.syncGated(ctx, categoryID, 0)
}

// QuickSync fetches only when the partition is older than the quick TTL;
// otherwise it answers from the cache without touching the network.
func (s *ProductSync) QuickSync(ctx context.Context, categoryID int64) ProductResult {
	return s.syncGated(ctx, categoryID, s.cfg.QuickTTL)
}

// syncGated holds the category lock across the staleness check, the fetch,
// the replace and the stamp. A zero gate always fetches.
func (s *ProductSync) syncGated(ctx context.Context, categoryID int64, gate time.Duration) ProductResult {
	unlock := s.locks.lock(categoryID)
	defer unlock()

	log := s.opts.log.With(zap.Int64("category_id", categoryID))

	if gate > 0 && !s.NeedsSync(ctx, categoryID, gate) {
		cached, err := s.store.Products(ctx, categoryID)
		if err != nil {
			log.Warn("fresh partition unreadable, refetching", zap.Error(err))
		} else {
			return ProductResult{Success: true, Data: cached, CategoryID: categoryID}
		}
	}

	products, err := s.remote.FetchProducts(ctx, categoryID, s.cfg.Limit)
	if err != nil {
		log.Warn("product fetch failed", zap.Error(err))
		return ProductResult{CategoryID: categoryID, Error: err.Error(), Err: err, Fetched: true}
	}
	products = uniqueProducts(products)
	if err := s.store.ReplaceProducts(ctx, categoryID, products); err != nil {
		err = fmt.Errorf("replace products: %w", err)
		log.Error("product replace failed", zap.Error(err))
		return ProductResult{CategoryID: categoryID, Error: err.Error(), Err: err, Fetched: true}
	}
	if err := s.store.SetMetadata(ctx, productSyncKey(categoryID), stamp(s.opts.now())); err != nil {
		log.Warn("product stamp failed", zap.Error(err))
	}
	log.Debug("products synced", zap.Int("count", len(products)))
	return ProductResult{Success: true, Data: products, CategoryID: categoryID, Fetched: true}
}

// SyncAll syncs every category in fixed-size batches. Fetches inside a batch
// run concurrently; the next batch starts only after the previous one settled.
// One category failing never aborts the run.
func (s *ProductSync) SyncAll(ctx context.Context, categoryIDs []int64) Progress {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	ids := dedupe(categoryIDs)
	started := s.opts.now()
	s.progressMu.Lock()
	s.progress = Progress{RunID: uuid.NewString(), Total: len(ids), StartedAt: &started}
	s.progressMu.Unlock()

	log := s.opts.log.With(zap.String("run_id", s.Progress().RunID))
	log.Info("product sync run started", zap.Int("categories", len(ids)), zap.Int("batch_size", s.cfg.BatchSize))

	interrupted := false
	for start := 0; start < len(ids); start += s.cfg.BatchSize {
		if start > 0 {
			if !sleepCtx(ctx, s.cfg.BatchDelay) {
				log.Info("product sync run stopped early", zap.Error(ctx.Err()))
				interrupted = true
				break
			}
		}
		end := min(start+s.cfg.BatchSize, len(ids))

		var g errgroup.Group
		for _, id := range ids[start:end] {
			g.Go(func() error {
				s.record(s.SyncCategory(ctx, id))
				return nil
			})
		}
		_ = g.Wait()
	}

	finished := s.opts.now()
	s.progressMu.Lock()
	s.progress.IsComplete = true
	s.progress.Interrupted = interrupted
	s.progress.FinishedAt = &finished
	snap := s.progress
	s.progressMu.Unlock()

	if interrupted {
		log.Warn("product sync run interrupted",
			zap.Int("completed", snap.CategoriesCompleted),
			zap.Int("errored", snap.CategoriesErrored),
		)
		return snap
	}
	if snap.Total > 0 {
		v := ProductsVersion{Count: snap.ProductsFetched, Timestamp: finished.UnixMilli()}
		if err := s.store.SetMetadata(ctx, keyProductsVersion, encodeVersion(v)); err != nil {
			log.Warn("products version stamp failed", zap.Error(err))
		}
	}
	log.Info("product sync run finished",
		zap.Int("completed", snap.CategoriesCompleted),
		zap.Int("errored", snap.CategoriesErrored),
		zap.Int("products", snap.ProductsFetched),
	)
	s.opts.publish(ctx, events.ProductSyncRunEvent, events.ProductSyncRunPayload{
		RunID:               snap.RunID,
		Total:               snap.Total,
		CategoriesCompleted: snap.CategoriesCompleted,
		CategoriesErrored:   snap.CategoriesErrored,
		ProductsFetched:     snap.ProductsFetched,
	})
	return snap
}

// SyncStale runs SyncAll over the categories older than the full TTL. With
// nothing stale it is a no-op and the last run's progress is left alone.
func (s *ProductSync) SyncStale(ctx context.Context, categoryIDs []int64) Progress {
	var stale []int64
	for _, id := range dedupe(categoryIDs) {
		if s.NeedsFullSync(ctx, id) {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return Progress{IsComplete: true}
	}
	return s.SyncAll(ctx, stale)
}

func (s *ProductSync) record(res ProductResult) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	if res.Success {
		s.progress.CategoriesCompleted++
		s.progress.ProductsFetched += len(res.Data)
	} else {
		s.progress.CategoriesErrored++
	}
}

// Progress is safe to call at any time, including on a nil receiver.
func (s *ProductSync) Progress() Progress {
	if s == nil {
		return Progress{}
	}
	s.progressMu.RLock()
	defer s.progressMu.RUnlock()
	return s.progress
}

// StartAutoSync runs SyncStale now and then every AutoSyncInterval. It
// returns false if auto sync is already armed on this instance.
func (s *ProductSync) StartAutoSync(categoryIDs []int64) bool {
	s.autoMu.Lock()
	defer s.autoMu.Unlock()
	if s.autoCancel != nil {
		return false
	}
	ids := append([]int64(nil), categoryIDs...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.autoCancel = cancel
	s.autoDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.cfg.AutoSyncInterval)
		defer ticker.Stop()

		for {
			// Stopping prevents the next tick; a run already underway finishes.
			s.SyncStale(context.WithoutCancel(ctx), ids)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
			}
		}
	}()
	s.opts.log.Info("auto sync armed", zap.Duration("interval", s.cfg.AutoSyncInterval), zap.Int("categories", len(ids)))
	return true
}

// StopAutoSync disarms the timer. It does not wait for an in-flight run.
func (s *ProductSync) StopAutoSync() {
	s.autoMu.Lock()
	defer s.autoMu.Unlock()
	if s.autoCancel == nil {
		return
	}
	s.autoCancel()
	s.autoCancel = nil
	s.autoDone = nil
	s.opts.log.Info("auto sync stopped")
}

// StopAutoSyncAndWait disarms the timer and waits for the loop to exit.
func (s *ProductSync) StopAutoSyncAndWait(ctx context.Context) error {
	s.autoMu.Lock()
	done := s.autoDone
	s.autoMu.Unlock()
	s.StopAutoSync()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ProductSync) AutoSyncRunning() bool {
	if s == nil {
		return false
	}
	s.autoMu.Lock()
	defer s.autoMu.Unlock()
	return s.autoCancel != nil
}

// uniqueProducts drops repeated ids, keeping the first position and the last record.
func uniqueProducts(in []domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(in))
	at := make(map[int64]int, len(in))
	for _, p := range in {
		if i, ok := at[p.ID]; ok {
			out[i] = p
			continue
		}
		at[p.ID] = len(out)
		out = append(out, p)
	}
	return out
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
