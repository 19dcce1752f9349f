package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/domain"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/events"
)

// MetadataStore is the bookkeeping slice of the local store.
type MetadataStore interface {
	GetMetadata(ctx context.Context, key string) (string, bool, error)
	SetMetadata(ctx context.Context, key, value string) error
}

type CategoryStore interface {
	MetadataStore
	Categories(ctx context.Context) ([]domain.Category, error)
	ReplaceCategories(ctx context.Context, cats []domain.Category) error
}

type ProductStore interface {
	MetadataStore
	Products(ctx context.Context, categoryID int64) ([]domain.Product, error)
	ReplaceProducts(ctx context.Context, categoryID int64, products []domain.Product) error
}

type CategorySource interface {
	FetchCategories(ctx context.Context) ([]domain.Category, error)
}

type ProductSource interface {
	FetchProducts(ctx context.Context, categoryID int64, limit int) ([]domain.Product, error)
}

type options struct {
	log       *zap.Logger
	now       func() time.Time
	publisher events.Publisher
	exchange  string
	service   string
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// WithClock replaces time.Now; tests use it to place metadata stamps.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func WithPublisher(p events.Publisher, exchange, service string) Option {
	return func(o *options) {
		o.publisher = p
		o.exchange = exchange
		o.service = service
	}
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop(), now: time.Now, exchange: events.CacheExchange, service: "storefront"}
	for _, fn := range opts {
		fn(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

func (o options) publish(ctx context.Context, name string, payload any) {
	if o.publisher == nil {
		return
	}
	h := events.NewHeaders(o.service)
	ev := events.NewEvent(name, events.EventVersionV1, payload, h)
	if err := o.publisher.Publish(ctx, o.exchange, ev, h); err != nil {
		o.log.Warn("event publish failed", zap.String("event", name), zap.Error(err))
	}
}
