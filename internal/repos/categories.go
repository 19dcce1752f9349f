package repos

import (
	"context"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/domain"
)

// Categories returns the cached category snapshot ordered by name.
func (s *LocalStore) Categories(ctx context.Context) ([]domain.Category, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	out := []domain.Category{}
	err = db.SelectContext(ctx, &out, `
  SELECT id, name, description, active, parent_id
  FROM categories
  ORDER BY name
`)
	return out, err
}

// ReplaceCategories swaps the whole category partition. Either every record
// lands or the previous snapshot stays untouched.
func (s *LocalStore) ReplaceCategories(ctx context.Context, cats []domain.Category) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return err
	}
	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO categories(id, name, description, active, parent_id)
		VALUES(:id, :name, :description, :active, :parent_id)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range cats {
		if _, err := stmt.ExecContext(ctx, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}
