package services

import "time"

type StatusConfig struct {
	CategoryTTL          time.Duration `json:"categoryTtl"`
	ProductTTL           time.Duration `json:"productTtl"`
	ProductQuickTTL      time.Duration `json:"productQuickTtl"`
	BatchSize            int           `json:"batchSize"`
	AutoSyncInterval     time.Duration `json:"autoSyncInterval"`
	ImportantCategoryIDs []int64       `json:"importantCategoryIds"`
}

type Status struct {
	IsPreloading bool            `json:"isPreloading"`
	IsCompleted  bool            `json:"isCompleted"`
	StoreReady   bool            `json:"storeReady"`
	AutoSync     bool            `json:"autoSync"`
	Progress     Progress        `json:"progress"`
	LastPreload  *PreloadSummary `json:"lastPreload,omitempty"`
	Config       StatusConfig    `json:"config"`
}

type readiness interface {
	Ready() bool
}

// StatusReporter is a read-only view over the preloader and product sync.
// Every method works on a nil reporter and before the store is opened.
type StatusReporter struct {
	preloader *Preloader
	products  *ProductSync
	store     readiness
	cfg       StatusConfig
}

func NewStatusReporter(preloader *Preloader, products *ProductSync, store readiness, cfg StatusConfig) *StatusReporter {
	return &StatusReporter{preloader: preloader, products: products, store: store, cfg: cfg}
}

func (r *StatusReporter) Status() Status {
	if r == nil {
		return Status{}
	}
	preloading, completed := r.preloader.State()
	st := Status{
		IsPreloading: preloading,
		IsCompleted:  completed,
		AutoSync:     r.products.AutoSyncRunning(),
		Progress:     r.products.Progress(),
		LastPreload:  r.preloader.LastSummary(),
		Config:       r.cfg,
	}
	if r.store != nil {
		st.StoreReady = r.store.Ready()
	}
	return st
}

func (r *StatusReporter) IsCompleted() bool {
	if r == nil {
		return false
	}
	_, completed := r.preloader.State()
	return completed
}
