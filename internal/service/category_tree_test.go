package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"storefront-service/config"
	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCategoryStore is an in-memory CategoryStore with the same
// semantics as the SQL implementation: children come back in insertion
// order, deletes of missing ids fail with NotFound.
type fakeCategoryStore struct {
	mu         sync.Mutex
	categories map[string]models.Category
	order      []string
}

func newFakeCategoryStore() *fakeCategoryStore {
	return &fakeCategoryStore{categories: make(map[string]models.Category)}
}

func (f *fakeCategoryStore) seed(id, name string, parentID *string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories[id] = models.Category{
		ID:        id,
		Name:      name,
		ParentID:  parentID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.order = append(f.order, id)
}

func (f *fakeCategoryStore) CreateCategory(_ context.Context, c *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	f.categories[c.ID] = *c
	f.order = append(f.order, c.ID)
	return nil
}

func (f *fakeCategoryStore) GetCategoryByID(_ context.Context, id string) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrCategoryNotFound, id)
	}
	out := c
	return &out, nil
}

func (f *fakeCategoryStore) GetChildCategories(_ context.Context, parentID string) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var children []models.Category
	for _, id := range f.order {
		c, ok := f.categories[id]
		if ok && c.ParentID != nil && *c.ParentID == parentID {
			children = append(children, c)
		}
	}
	return children, nil
}

func (f *fakeCategoryStore) DeleteCategory(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[id]; !ok {
		return fmt.Errorf("%w: %s", models.ErrCategoryNotFound, id)
	}
	delete(f.categories, id)
	return nil
}

func newTestTree(store CategoryStore) *CategoryTree {
	return NewCategoryTree(store, nil, nil, config.CatalogConfig{
		TreeCacheTTLSeconds: 60,
		MaxTreeDepth:        16,
		SubtreeConcurrency:  4,
		DeleteLockTTLSecs:   5,
	})
}

func ptr(s string) *string { return &s }

func TestGetBreadcrumbRoot(t *testing.T) {
	store := newFakeCategoryStore()
	store.seed("root", "Shoes", nil)

	tree := newTestTree(store)
	trail, err := tree.GetBreadcrumb(context.Background(), "root")
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "root", trail[0].ID)
}

func TestGetBreadcrumbChainIsRootFirst(t *testing.T) {
	store := newFakeCategoryStore()
	store.seed("a", "Clothing", nil)
	store.seed("b", "Men", ptr("a"))
	store.seed("c", "Jackets", ptr("b"))

	tree := newTestTree(store)
	trail, err := tree.GetBreadcrumb(context.Background(), "c")
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, "a", trail[0].ID)
	assert.Equal(t, "b", trail[1].ID)
	assert.Equal(t, "c", trail[2].ID)
}

func TestGetBreadcrumbNotFound(t *testing.T) {
	tree := newTestTree(newFakeCategoryStore())
	_, err := tree.GetBreadcrumb(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrCategoryNotFound)
}

func TestGetBreadcrumbCycle(t *testing.T) {
	store := newFakeCategoryStore()
	store.seed("a", "A", ptr("b"))
	store.seed("b", "B", ptr("a"))

	tree := newTestTree(store)
	_, err := tree.GetBreadcrumb(context.Background(), "a")
	assert.ErrorIs(t, err, models.ErrCycleDetected)
}

func TestGetSubtree(t *testing.T) {
	store := newFakeCategoryStore()
	store.seed("a", "A", nil)
	store.seed("b1", "B1", ptr("a"))
	store.seed("b2", "B2", ptr("a"))
	store.seed("c", "C", ptr("b1"))

	tree := newTestTree(store)
	root, err := tree.GetSubtree(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, root.Children, 2)

	// Siblings keep their original order.
	assert.Equal(t, "b1", root.Children[0].ID)
	assert.Equal(t, "b2", root.Children[1].ID)

	require.Len(t, root.Children[0].Children, 1)
	assert.Equal(t, "c", root.Children[0].Children[0].ID)
	assert.Empty(t, root.Children[1].Children)
}

func TestGetSubtreeNotFound(t *testing.T) {
	tree := newTestTree(newFakeCategoryStore())
	_, err := tree.GetSubtree(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrCategoryNotFound)
}

func TestGetSubtreeCyclicGraphFailsDepthCap(t *testing.T) {
	store := newFakeCategoryStore()
	store.seed("a", "A", ptr("b"))
	store.seed("b", "B", ptr("a"))

	tree := newTestTree(store)
	_, err := tree.GetSubtree(context.Background(), "a")
	assert.ErrorIs(t, err, models.ErrTreeTooDeep)
}

func TestDeleteSubtree(t *testing.T) {
	store := newFakeCategoryStore()
	store.seed("a", "A", nil)
	store.seed("b", "B", ptr("a"))
	store.seed("c", "C", ptr("b"))

	tree := newTestTree(store)
	err := tree.DeleteSubtree(context.Background(), "b")
	require.NoError(t, err)

	// B and C are gone, A survives with no children.
	_, err = tree.GetSubtree(context.Background(), "b")
	assert.ErrorIs(t, err, models.ErrCategoryNotFound)
	_, err = tree.GetSubtree(context.Background(), "c")
	assert.ErrorIs(t, err, models.ErrCategoryNotFound)

	root, err := tree.GetSubtree(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, root.Children)
}

func TestDeleteSubtreeWideFanOut(t *testing.T) {
	store := newFakeCategoryStore()
	store.seed("root", "Root", nil)
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("child-%d", i)
		store.seed(id, id, ptr("root"))
		store.seed(id+"-leaf", id+"-leaf", ptr(id))
	}

	tree := newTestTree(store)
	require.NoError(t, tree.DeleteSubtree(context.Background(), "root"))

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.categories)
}

func TestDeleteSubtreeNotFound(t *testing.T) {
	tree := newTestTree(newFakeCategoryStore())
	err := tree.DeleteSubtree(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrCategoryNotFound)
}

func TestCreateCategory(t *testing.T) {
	store := newFakeCategoryStore()
	tree := newTestTree(store)

	parent, err := tree.CreateCategory(context.Background(), &CreateCategoryInput{Name: "Clothing"})
	require.NoError(t, err)
	require.NotEmpty(t, parent.ID)

	child, err := tree.CreateCategory(context.Background(), &CreateCategoryInput{
		Name:     "Men",
		ParentID: &parent.ID,
	})
	require.NoError(t, err)

	trail, err := tree.GetBreadcrumb(context.Background(), child.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, parent.ID, trail[0].ID)
}

func TestCreateCategoryValidation(t *testing.T) {
	tree := newTestTree(newFakeCategoryStore())

	_, err := tree.CreateCategory(context.Background(), &CreateCategoryInput{Name: ""})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = tree.CreateCategory(context.Background(), &CreateCategoryInput{
		Name:     "Orphan",
		ParentID: ptr("missing"),
	})
	assert.ErrorIs(t, err, models.ErrCategoryNotFound)
}
