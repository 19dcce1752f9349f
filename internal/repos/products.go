package repos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/domain"
)

// productRow adds the promo window as unix millis; sqlite has no native time type.
type productRow struct {
	domain.Product
	PromoStartMs sql.NullInt64 `db:"promo_start"`
	PromoEndMs   sql.NullInt64 `db:"promo_end"`
}

func toRow(categoryID int64, p domain.Product) productRow {
	p.CategoryID = categoryID
	r := productRow{Product: p}
	if p.PromoStart != nil {
		r.PromoStartMs = sql.NullInt64{Int64: p.PromoStart.UnixMilli(), Valid: true}
	}
	if p.PromoEnd != nil {
		r.PromoEndMs = sql.NullInt64{Int64: p.PromoEnd.UnixMilli(), Valid: true}
	}
	return r
}

func (r productRow) product() domain.Product {
	p := r.Product
	if r.PromoStartMs.Valid {
		t := time.UnixMilli(r.PromoStartMs.Int64).UTC()
		p.PromoStart = &t
	}
	if r.PromoEndMs.Valid {
		t := time.UnixMilli(r.PromoEndMs.Int64).UTC()
		p.PromoEnd = &t
	}
	return p
}

// Products returns the cached partition for one category; empty if never populated.
func (s *LocalStore) Products(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	var rows []productRow
	if err := db.SelectContext(ctx, &rows, `
  SELECT
    id, name, base_price, online_price, promo_online_price, promo_start, promo_end,
    category_id, category_name, brand_id, brand_name, image_id, image_ext, image_ext2,
    sku, sell_without_stock, show_online
  FROM products
  WHERE category_id = ?
  ORDER BY name
`, categoryID); err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.product())
	}
	return out, nil
}

// ReplaceProducts swaps one category's partition atomically. Records are
// filed under categoryID regardless of their own denormalized category id.
// A product id listed twice keeps the last record.
func (s *LocalStore) ReplaceProducts(ctx context.Context, categoryID int64, products []domain.Product) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE category_id = ?`, categoryID); err != nil {
		return err
	}
	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO products(
			category_id, id, name, base_price, online_price, promo_online_price, promo_start, promo_end,
			category_name, brand_id, brand_name, image_id, image_ext, image_ext2,
			sku, sell_without_stock, show_online
		) VALUES (
			:category_id, :id, :name, :base_price, :online_price, :promo_online_price, :promo_start, :promo_end,
			:category_name, :brand_id, :brand_name, :image_id, :image_ext, :image_ext2,
			:sku, :sell_without_stock, :show_online
		)
		ON CONFLICT(category_id, id) DO UPDATE SET
			name = excluded.name,
			base_price = excluded.base_price,
			online_price = excluded.online_price,
			promo_online_price = excluded.promo_online_price,
			promo_start = excluded.promo_start,
			promo_end = excluded.promo_end,
			category_name = excluded.category_name,
			brand_id = excluded.brand_id,
			brand_name = excluded.brand_name,
			image_id = excluded.image_id,
			image_ext = excluded.image_ext,
			image_ext2 = excluded.image_ext2,
			sku = excluded.sku,
			sell_without_stock = excluded.sell_without_stock,
			show_online = excluded.show_online
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		if _, err := stmt.ExecContext(ctx, toRow(categoryID, p)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SearchProducts matches name, SKU or brand across cached partitions. A nil
// categoryID searches every partition.
func (s *LocalStore) SearchProducts(ctx context.Context, q string, categoryID *int64, limit int) ([]domain.Product, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	like := "%" + escapeLike(strings.ToLower(q)) + "%"
	query := `
  SELECT
    id, name, base_price, online_price, promo_online_price, promo_start, promo_end,
    category_id, category_name, brand_id, brand_name, image_id, image_ext, image_ext2,
    sku, sell_without_stock, show_online
  FROM products
  WHERE show_online = 1
    AND (LOWER(name) LIKE ? ESCAPE '\' OR LOWER(sku) LIKE ? ESCAPE '\' OR LOWER(brand_name) LIKE ? ESCAPE '\')`
	args := []any{like, like, like}
	if categoryID != nil {
		query += ` AND category_id = ?`
		args = append(args, *categoryID)
	}
	query += ` ORDER BY name LIMIT ?`
	args = append(args, limit)

	var rows []productRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.product())
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes q match literally inside a LIKE pattern escaped with '\'.
func escapeLike(q string) string {
	return likeEscaper.Replace(q)
}
