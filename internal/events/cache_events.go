package events

const (
	CacheExchange = "storefront.cache"

	PreloadCompletedEvent = "cache.preload.completed"
	ProductSyncRunEvent   = "cache.products.synced"

	EventVersionV1 = "v1"
)

// PreloadCompletedPayload summarizes one bootstrap run.
type PreloadCompletedPayload struct {
	RunID               string `json:"runId"`
	CategoriesCached    int    `json:"categoriesCached"`
	CategoriesRequested int    `json:"categoriesRequested"`
	CategoriesCompleted int    `json:"categoriesCompleted"`
	CategoriesErrored   int    `json:"categoriesErrored"`
	ProductsFetched     int    `json:"productsFetched"`
	DurationMs          int64  `json:"durationMs"`
}

type ProductSyncRunPayload struct {
	RunID               string `json:"runId"`
	Total               int    `json:"total"`
	CategoriesCompleted int    `json:"categoriesCompleted"`
	CategoriesErrored   int    `json:"categoriesErrored"`
	ProductsFetched     int    `json:"productsFetched"`
}
