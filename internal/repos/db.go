package repos

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// schemaVersion is stamped into PRAGMA user_version. Bump it together with
// a new migration step in ensureSchema.
const schemaVersion = 1

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// OpenDB opens the sqlite cache database and makes sure every partition exists.
func OpenDB(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection: keeps ":memory:" databases alive across calls and
	// serializes writers so partition replaces never hit SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sqlx.DB) error {
	var current int
	if err := db.GetContext(ctx, &current, `PRAGMA user_version`); err != nil {
		return err
	}
	if current > schemaVersion {
		return fmt.Errorf("cache schema version %d is newer than supported %d", current, schemaVersion)
	}
	if current == schemaVersion {
		return nil
	}

	schema := `
-- Categories (reference entities, full snapshot)
CREATE TABLE IF NOT EXISTS categories(
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  active INTEGER NOT NULL DEFAULT 1,
  parent_id INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name ON categories(name);
CREATE INDEX IF NOT EXISTS idx_categories_parent ON categories(parent_id);
CREATE INDEX IF NOT EXISTS idx_categories_active ON categories(active);

-- Products, one partition per category_id
CREATE TABLE IF NOT EXISTS products(
  category_id INTEGER NOT NULL,
  id INTEGER NOT NULL,
  name TEXT NOT NULL,
  base_price TEXT NOT NULL,
  online_price TEXT,
  promo_online_price TEXT,
  promo_start INTEGER,
  promo_end INTEGER,
  category_name TEXT NOT NULL DEFAULT '',
  brand_id INTEGER,
  brand_name TEXT NOT NULL DEFAULT '',
  image_id TEXT NOT NULL DEFAULT '',
  image_ext TEXT NOT NULL DEFAULT '',
  image_ext2 TEXT NOT NULL DEFAULT '',
  sku TEXT NOT NULL DEFAULT '',
  sell_without_stock INTEGER NOT NULL DEFAULT 0,
  show_online INTEGER NOT NULL DEFAULT 1,
  PRIMARY KEY(category_id, id)
);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id);

-- Sync bookkeeping
CREATE TABLE IF NOT EXISTS sync_metadata(
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);
`
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}
