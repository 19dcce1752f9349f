package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"
)

const (
	keyCategoriesLastSync = "categories.last_sync"
	keyCategoriesCount    = "categories.count"
	keyProductsVersion    = "products.version"
	keyProductsLastSync   = "products.last_sync."
)

func productSyncKey(categoryID int64) string {
	return keyProductsLastSync + strconv.FormatInt(categoryID, 10)
}

// ProductsVersion is the aggregate stamp written after a batch run.
type ProductsVersion struct {
	Count     int   `json:"count"`
	Timestamp int64 `json:"timestamp"`
}

func stamp(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }

// lastSync returns the stamp under key. ok is false when the key is missing,
// unreadable or unparsable; all three mean "never synced".
func lastSync(ctx context.Context, store MetadataStore, key string) (time.Time, bool) {
	v, ok, err := store.GetMetadata(ctx, key)
	if err != nil || !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func isStale(ctx context.Context, store MetadataStore, key string, ttl time.Duration, now time.Time) bool {
	last, ok := lastSync(ctx, store, key)
	if !ok {
		return true
	}
	return now.Sub(last) >= ttl
}

func encodeVersion(v ProductsVersion) string {
	b, _ := json.Marshal(v)
	return string(b)
}
