package repos

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
)

// ErrStoreUnavailable means the cache cannot be opened or used. Callers treat
// it as "cache disabled" and keep serving from the remote API.
var ErrStoreUnavailable = errors.New("local store unavailable")

// Partition names one independently replaceable slice of the store.
type Partition string

const (
	PartitionCategories Partition = "categories"
	PartitionMetadata   Partition = "metadata"

	productPartitionPrefix = "products:"
)

func ProductPartition(categoryID int64) Partition {
	return Partition(productPartitionPrefix + strconv.FormatInt(categoryID, 10))
}

// LocalStore is the persistent cache. It opens lazily: every operation goes
// through Init, so partitions always exist before the first read or write.
type LocalStore struct {
	dsn string

	mu sync.Mutex
	db *sqlx.DB
}

func NewLocalStore(dsn string) *LocalStore { return &LocalStore{dsn: dsn} }

// Init opens the store, creating the schema on first use. Safe to call
// repeatedly and from several goroutines.
func (s *LocalStore) Init(ctx context.Context) error {
	_, err := s.handle(ctx)
	return err
}

func (s *LocalStore) handle(ctx context.Context) (*sqlx.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	db, err := OpenDB(ctx, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.db = db
	return db, nil
}

// Ready reports whether Init has succeeded. It never opens the store.
func (s *LocalStore) Ready() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db != nil
}

func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Clear wipes every partition in one transaction.
func (s *LocalStore) Clear(ctx context.Context) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM categories`,
		`DELETE FROM products`,
		`DELETE FROM sync_metadata`,
	} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *LocalStore) IsEmpty(ctx context.Context, p Partition) (bool, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return false, err
	}
	var n int
	switch {
	case p == PartitionCategories:
		err = db.GetContext(ctx, &n, `SELECT COUNT(*) FROM categories`)
	case p == PartitionMetadata:
		err = db.GetContext(ctx, &n, `SELECT COUNT(*) FROM sync_metadata`)
	case strings.HasPrefix(string(p), productPartitionPrefix):
		id, perr := strconv.ParseInt(strings.TrimPrefix(string(p), productPartitionPrefix), 10, 64)
		if perr != nil {
			return false, fmt.Errorf("bad product partition %q: %w", p, perr)
		}
		err = db.GetContext(ctx, &n, `SELECT COUNT(*) FROM products WHERE category_id = ?`, id)
	default:
		return false, fmt.Errorf("unknown partition %q", p)
	}
	if err != nil {
		return false, err
	}
	return n == 0, nil
}
