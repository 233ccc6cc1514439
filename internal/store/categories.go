package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-service/internal/models"
)

// CreateCategory inserts a category. The caller assigns the id and is
// responsible for validating the parent reference.
func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	query := `
		INSERT INTO categories (id, name, description, icon_url, parent_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		c.ID, c.Name, c.Description, c.IconURL, c.ParentID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// GetCategoryByID retrieves a category by ID
func (s *Store) GetCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	err := s.db.GetContext(ctx, &category, "SELECT * FROM categories WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrCategoryNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// GetChildCategories retrieves the immediate children of a category in
// insertion order.
func (s *Store) GetChildCategories(ctx context.Context, parentID string) ([]models.Category, error) {
	var children []models.Category
	err := s.db.SelectContext(ctx, &children,
		"SELECT * FROM categories WHERE parent_id = $1 ORDER BY created_at, id", parentID)
	return children, err
}

// DeleteCategory removes a single category node. Children must already
// be gone; the parent_id foreign key is RESTRICT, so deleting a node
// that still has children fails rather than orphaning them.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", models.ErrCategoryNotFound, id)
	}
	return nil
}
