package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProductStore struct {
	mu       sync.Mutex
	products map[string]models.Product
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{products: make(map[string]models.Product)}
}

func (f *fakeProductStore) CreateProduct(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID] = *p
	return nil
}

func (f *fakeProductStore) GetProductByID(_ context.Context, id string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrProductNotFound, id)
	}
	return &p, nil
}

func (f *fakeProductStore) GetProductsByCategory(_ context.Context, categoryID string, page, perPage int) ([]models.Product, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var products []models.Product
	for _, p := range f.products {
		if p.CategoryID == categoryID {
			products = append(products, p)
		}
	}
	return products, len(products), nil
}

func TestCreateProduct(t *testing.T) {
	categories := newFakeCategoryStore()
	categories.seed("cat-1", "Shoes", nil)

	catalog := NewCatalogService(newFakeProductStore(), categories)
	product, err := catalog.CreateProduct(context.Background(), &CreateProductInput{
		VendorID:   "vendor-1",
		CategoryID: "cat-1",
		Name:       "Runner",
		Price:      5000,
		Stock:      10,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)
	assert.Equal(t, 0, product.Sold)

	fetched, err := catalog.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.ID, fetched.ID)
}

func TestCreateProductUnknownCategory(t *testing.T) {
	catalog := NewCatalogService(newFakeProductStore(), newFakeCategoryStore())
	_, err := catalog.CreateProduct(context.Background(), &CreateProductInput{
		VendorID:   "vendor-1",
		CategoryID: "missing",
		Name:       "Runner",
		Price:      5000,
	})
	assert.ErrorIs(t, err, models.ErrCategoryNotFound)
}

func TestCreateProductValidation(t *testing.T) {
	categories := newFakeCategoryStore()
	categories.seed("cat-1", "Shoes", nil)
	catalog := NewCatalogService(newFakeProductStore(), categories)

	_, err := catalog.CreateProduct(context.Background(), &CreateProductInput{
		VendorID:   "vendor-1",
		CategoryID: "cat-1",
		Name:       "",
		Price:      100,
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = catalog.CreateProduct(context.Background(), &CreateProductInput{
		VendorID:   "vendor-1",
		CategoryID: "cat-1",
		Name:       "Runner",
		Price:      -1,
	})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestListProductsByCategory(t *testing.T) {
	categories := newFakeCategoryStore()
	categories.seed("cat-1", "Shoes", nil)
	products := newFakeProductStore()
	catalog := NewCatalogService(products, categories)

	for i := 0; i < 3; i++ {
		_, err := catalog.CreateProduct(context.Background(), &CreateProductInput{
			VendorID:   "vendor-1",
			CategoryID: "cat-1",
			Name:       fmt.Sprintf("Runner %d", i),
			Price:      5000,
			Stock:      1,
		})
		require.NoError(t, err)
	}

	listed, pagination, err := catalog.ListProductsByCategory(context.Background(), "cat-1", 1, 10)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
	assert.Equal(t, 3, pagination.Total)
	assert.Equal(t, 1, pagination.TotalPages)

	_, _, err = catalog.ListProductsByCategory(context.Background(), "missing", 1, 10)
	assert.ErrorIs(t, err, models.ErrCategoryNotFound)
}
