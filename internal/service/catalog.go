package service

import (
	"context"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductStore is the persistence surface of the catalog.
// *store.Store satisfies it.
type ProductStore interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	GetProductsByCategory(ctx context.Context, categoryID string, page, perPage int) ([]models.Product, int, error)
}

// CatalogService manages products. It is deliberately thin: stock
// movement happens only through the order ledger.
type CatalogService struct {
	products   ProductStore
	categories CategoryStore
	logger     *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(products ProductStore, categories CategoryStore) *CatalogService {
	return &CatalogService{
		products:   products,
		categories: categories,
		logger:     util.GetLogger(),
	}
}

// CreateProductInput carries the fields for a new product.
type CreateProductInput struct {
	VendorID    string  `json:"vendor_id" binding:"required"`
	CategoryID  string  `json:"category_id" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description,omitempty"`
	Price       int64   `json:"price" binding:"required,min=0"`
	Stock       int     `json:"stock" binding:"min=0"`
}

// CreateProduct creates a product in an existing category.
func (c *CatalogService) CreateProduct(ctx context.Context, input *CreateProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if input.Name == "" {
		return nil, fmt.Errorf("%w: product name is required", models.ErrValidation)
	}
	if input.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", models.ErrValidation)
	}
	if input.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", models.ErrValidation)
	}

	if _, err := c.categories.GetCategoryByID(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:          uuid.New().String(),
		VendorID:    input.VendorID,
		CategoryID:  input.CategoryID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
	}

	if err := c.products.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	c.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("category_id", product.CategoryID))
	return product, nil
}

// GetProduct retrieves a product by id.
func (c *CatalogService) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	return c.products.GetProductByID(ctx, productID)
}

// ListProductsByCategory retrieves a page of a category's products.
func (c *CatalogService) ListProductsByCategory(ctx context.Context, categoryID string, page, perPage int) ([]models.Product, *models.Pagination, error) {
	if _, err := c.categories.GetCategoryByID(ctx, categoryID); err != nil {
		return nil, nil, err
	}

	products, total, err := c.products.GetProductsByCategory(ctx, categoryID, page, perPage)
	if err != nil {
		return nil, nil, err
	}
	return products, paginate(total, page, perPage), nil
}
