package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/domain"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/remote"
)

const DefaultCategoryTTL = 24 * time.Hour

// ErrNoCategories guards the cache from being wiped by a degraded remote.
var ErrNoCategories = fmt.Errorf("%w: no categories received", remote.ErrMalformedResponse)

type CategoryResult struct {
	Success bool              `json:"success"`
	Data    []domain.Category `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Err     error             `json:"-"`
}

func categoryFailure(err error) CategoryResult {
	return CategoryResult{Success: false, Error: err.Error(), Err: err}
}

// CategorySync mirrors the remote category list into the local store.
type CategorySync struct {
	store  CategoryStore
	remote CategorySource
	ttl    time.Duration
	opts   options

	mu sync.Mutex
}

func NewCategorySync(store CategoryStore, src CategorySource, ttl time.Duration, opts ...Option) *CategorySync {
	if ttl <= 0 {
		ttl = DefaultCategoryTTL
	}
	return &CategorySync{store: store, remote: src, ttl: ttl, opts: buildOptions(opts)}
}

func (s *CategorySync) TTL() time.Duration { return s.ttl }

// NeedsSync reads metadata only; it never calls the remote API.
func (s *CategorySync) NeedsSync(ctx context.Context) bool {
	return isStale(ctx, s.store, keyCategoriesLastSync, s.ttl, s.opts.now())
}

// LastSync reports when categories were last stamped.
func (s *CategorySync) LastSync(ctx context.Context) (time.Time, bool) {
	return lastSync(ctx, s.store, keyCategoriesLastSync)
}

// Sync always fetches. On any failure the previous snapshot stays in place.
func (s *CategorySync) Sync(ctx context.Context) CategoryResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.opts.log.With(zap.String("resource", "categories"))

	cats, err := s.remote.FetchCategories(ctx)
	if err != nil {
		log.Warn("category fetch failed", zap.Error(err))
		return categoryFailure(err)
	}
	if len(cats) == 0 {
		log.Warn("category fetch returned nothing, keeping cached snapshot")
		return categoryFailure(ErrNoCategories)
	}
	if err := domain.ValidateCategoryTree(cats); err != nil {
		err = fmt.Errorf("%w: %v", remote.ErrMalformedResponse, err)
		log.Warn("category tree rejected", zap.Error(err))
		return categoryFailure(err)
	}

	if err := s.store.ReplaceCategories(ctx, cats); err != nil {
		log.Error("category replace failed", zap.Error(err))
		return categoryFailure(fmt.Errorf("replace categories: %w", err))
	}

	now := s.opts.now()
	if err := s.store.SetMetadata(ctx, keyCategoriesLastSync, stamp(now)); err != nil {
		// Unstamped means the next NeedsSync reports stale; nothing else depends on it.
		log.Warn("category stamp failed", zap.Error(err))
	}
	if err := s.store.SetMetadata(ctx, keyCategoriesCount, strconv.Itoa(len(cats))); err != nil {
		log.Warn("category count stamp failed", zap.Error(err))
	}
	log.Info("categories synced", zap.Int("count", len(cats)))
	return CategoryResult{Success: true, Data: cats}
}

// ForceSync is Sync; it exists so call sites read as a manual refresh.
func (s *CategorySync) ForceSync(ctx context.Context) CategoryResult {
	return s.Sync(ctx)
}

// SyncIfStale runs Sync only when NeedsSync reports true. A fresh cache
// returns the cached snapshot.
func (s *CategorySync) SyncIfStale(ctx context.Context) CategoryResult {
	if s.NeedsSync(ctx) {
		return s.Sync(ctx)
	}
	cats, err := s.store.Categories(ctx)
	if err != nil {
		return s.Sync(ctx)
	}
	return CategoryResult{Success: true, Data: cats}
}
