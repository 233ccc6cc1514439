package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// CreateProduct inserts a product. The caller assigns the id.
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (id, vendor_id, category_id, name, description, price, stock, sold)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		p.ID, p.VendorID, p.CategoryID, p.Name, p.Description, p.Price, p.Stock, p.Sold,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrProductNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductsByCategory retrieves a page of products in a category,
// newest first, along with the total count.
func (s *Store) GetProductsByCategory(ctx context.Context, categoryID string, page, perPage int) ([]models.Product, int, error) {
	var total int
	err := s.db.GetContext(ctx, &total,
		"SELECT count(*) FROM products WHERE category_id = $1", categoryID)
	if err != nil {
		return nil, 0, err
	}

	var products []models.Product
	err = s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE category_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		categoryID, perPage, (page-1)*perPage)
	return products, total, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
