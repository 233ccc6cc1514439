package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront-service/config"
	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CategoryStore is the persistence surface the category tree needs.
// *store.Store satisfies it.
type CategoryStore interface {
	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategoryByID(ctx context.Context, id string) (*models.Category, error)
	GetChildCategories(ctx context.Context, parentID string) ([]models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

// CategoryTree maintains the category forest: breadcrumb lookup,
// recursive subtree retrieval and cascading subtree deletion. Parent
// links are the only stored structure; children are reassembled on
// read. Every walk is bounded by maxDepth and breadcrumbs carry a
// visited set, so a corrupted (cyclic) parent graph fails instead of
// hanging.
type CategoryTree struct {
	store       CategoryStore
	cache       *redisclient.Client // optional
	publisher   *broker.EventPublisher
	logger      *zap.Logger
	cacheTTL    time.Duration
	lockTTL     time.Duration
	maxDepth    int
	concurrency int
}

// NewCategoryTree creates a new category tree service. cache and
// publisher may be nil; the tree then runs uncached and silent.
func NewCategoryTree(
	store CategoryStore,
	cache *redisclient.Client,
	publisher *broker.EventPublisher,
	cfg config.CatalogConfig,
) *CategoryTree {
	if cfg.MaxTreeDepth <= 0 {
		cfg.MaxTreeDepth = 32
	}
	if cfg.SubtreeConcurrency <= 0 {
		cfg.SubtreeConcurrency = 4
	}
	return &CategoryTree{
		store:       store,
		cache:       cache,
		publisher:   publisher,
		logger:      util.GetLogger(),
		cacheTTL:    time.Duration(cfg.TreeCacheTTLSeconds) * time.Second,
		lockTTL:     time.Duration(cfg.DeleteLockTTLSecs) * time.Second,
		maxDepth:    cfg.MaxTreeDepth,
		concurrency: cfg.SubtreeConcurrency,
	}
}

// CreateCategoryInput carries the fields for a new category.
type CreateCategoryInput struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description,omitempty"`
	IconURL     *string `json:"icon_url,omitempty"`
	ParentID    *string `json:"parent_id,omitempty"`
}

// CreateCategory creates a category, optionally under a parent. The
// parent must exist.
func (t *CategoryTree) CreateCategory(ctx context.Context, input *CreateCategoryInput) (*models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CategoryTree.CreateCategory")
	defer span.End()

	if input.Name == "" {
		return nil, fmt.Errorf("%w: category name is required", models.ErrValidation)
	}

	if input.ParentID != nil {
		if _, err := t.store.GetCategoryByID(ctx, *input.ParentID); err != nil {
			return nil, err
		}
	}

	category := &models.Category{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: input.Description,
		IconURL:     input.IconURL,
		ParentID:    input.ParentID,
	}

	if err := t.store.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	// Cached subtrees of every ancestor are now stale.
	if t.cache != nil {
		t.invalidate(ctx, t.ancestorIDs(ctx, input.ParentID))
	}

	t.logger.Info("Category created",
		zap.String("category_id", category.ID),
		zap.String("name", category.Name))
	return category, nil
}

// GetBreadcrumb returns the ancestor chain of a category, root first,
// ending with the category itself.
func (t *CategoryTree) GetBreadcrumb(ctx context.Context, categoryID string) ([]models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CategoryTree.GetBreadcrumb")
	defer span.End()

	if t.cache != nil {
		trail, err := t.cache.GetBreadcrumb(ctx, categoryID)
		if err != nil {
			t.logger.Warn("Breadcrumb cache read failed", zap.Error(err))
		} else if trail != nil {
			util.TreeCacheHitsTotal.WithLabelValues("breadcrumb").Inc()
			return trail, nil
		}
		util.TreeCacheMissesTotal.WithLabelValues("breadcrumb").Inc()
	}

	visited := make(map[string]struct{})
	var trail []models.Category

	currentID := categoryID
	for {
		if _, seen := visited[currentID]; seen {
			return nil, fmt.Errorf("%w: at category %s", models.ErrCycleDetected, currentID)
		}
		visited[currentID] = struct{}{}

		category, err := t.store.GetCategoryByID(ctx, currentID)
		if err != nil {
			return nil, err
		}
		trail = append(trail, *category)

		if category.ParentID == nil {
			break
		}
		currentID = *category.ParentID
	}

	// Collected leaf-to-root; the breadcrumb reads root-first.
	for i, j := 0, len(trail)-1; i < j; i, j = i+1, j-1 {
		trail[i], trail[j] = trail[j], trail[i]
	}

	if t.cache != nil {
		if err := t.cache.SetBreadcrumb(ctx, categoryID, trail, t.cacheTTL); err != nil {
			t.logger.Warn("Breadcrumb cache write failed", zap.Error(err))
		}
	}

	return trail, nil
}

// GetSubtree returns a category with its descendants populated to full
// depth. Sibling subtrees are fetched concurrently and reassembled in
// the original child order.
func (t *CategoryTree) GetSubtree(ctx context.Context, categoryID string) (*models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CategoryTree.GetSubtree")
	defer span.End()

	if t.cache != nil {
		root, err := t.cache.GetSubtree(ctx, categoryID)
		if err != nil {
			t.logger.Warn("Subtree cache read failed", zap.Error(err))
		} else if root != nil {
			util.TreeCacheHitsTotal.WithLabelValues("subtree").Inc()
			return root, nil
		}
		util.TreeCacheMissesTotal.WithLabelValues("subtree").Inc()
	}

	start := time.Now()
	root, err := t.fetchSubtree(ctx, categoryID, 0)
	if err != nil {
		return nil, err
	}
	util.SubtreeFetchLatency.Observe(time.Since(start).Seconds())

	if t.cache != nil {
		if err := t.cache.SetSubtree(ctx, categoryID, root, t.cacheTTL); err != nil {
			t.logger.Warn("Subtree cache write failed", zap.Error(err))
		}
	}

	return root, nil
}

func (t *CategoryTree) fetchSubtree(ctx context.Context, categoryID string, depth int) (*models.Category, error) {
	if depth > t.maxDepth {
		return nil, fmt.Errorf("%w: at category %s", models.ErrTreeTooDeep, categoryID)
	}

	category, err := t.store.GetCategoryByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	children, err := t.store.GetChildCategories(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return category, nil
	}

	resolved := make([]models.Category, len(children))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)
	for i := range children {
		i := i
		g.Go(func() error {
			sub, err := t.fetchSubtree(gctx, children[i].ID, depth+1)
			if err != nil {
				return err
			}
			resolved[i] = *sub
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	category.Children = resolved
	return category, nil
}

// DeleteSubtree removes a category and all of its descendants.
// Deletion is post-order: every child subtree is gone before its
// parent, so no surviving category ever references a deleted parent.
// Sibling subtrees are deleted concurrently.
func (t *CategoryTree) DeleteSubtree(ctx context.Context, categoryID string) error {
	ctx, span := util.StartSpan(ctx, "CategoryTree.DeleteSubtree")
	defer span.End()

	root, err := t.store.GetCategoryByID(ctx, categoryID)
	if err != nil {
		return err
	}

	if t.cache != nil {
		lockKey := fmt.Sprintf("category-delete:%s", categoryID)
		acquired, err := t.cache.AcquireLock(ctx, lockKey, t.lockTTL)
		if err != nil {
			t.logger.Warn("Delete lock acquisition failed, proceeding unlocked", zap.Error(err))
		} else if !acquired {
			return fmt.Errorf("%w: category %s", models.ErrDeleteInProgress, categoryID)
		} else {
			defer func() {
				if err := t.cache.ReleaseLock(context.Background(), lockKey); err != nil {
					t.logger.Warn("Delete lock release failed", zap.Error(err))
				}
			}()
		}
	}

	var ancestors []string
	if t.cache != nil {
		ancestors = t.ancestorIDs(ctx, root.ParentID)
	}

	deleted, err := t.deleteSubtree(ctx, categoryID, 0)
	if err != nil {
		return err
	}

	util.CategorySubtreeDeletesTotal.Inc()
	util.CategoriesDeletedTotal.Add(float64(len(deleted)))

	t.invalidate(ctx, append(deleted, ancestors...))

	if t.publisher != nil {
		event := &models.CategoryDeletedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeCategoryDeleted,
				Timestamp: time.Now(),
			},
			CategoryID: categoryID,
			DeletedIDs: deleted,
		}
		if err := t.publisher.PublishCategoryDeleted(ctx, event); err != nil {
			t.logger.Error("Failed to publish CategoryDeleted event", zap.Error(err))
		}
	}

	t.logger.Info("Category subtree deleted",
		zap.String("category_id", categoryID),
		zap.Int("removed", len(deleted)))
	return nil
}

// deleteSubtree removes the node's descendants, then the node, and
// returns every removed id with the node itself last.
func (t *CategoryTree) deleteSubtree(ctx context.Context, categoryID string, depth int) ([]string, error) {
	if depth > t.maxDepth {
		return nil, fmt.Errorf("%w: at category %s", models.ErrTreeTooDeep, categoryID)
	}

	children, err := t.store.GetChildCategories(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var deleted []string

	if len(children) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(t.concurrency)
		for i := range children {
			childID := children[i].ID
			g.Go(func() error {
				ids, err := t.deleteSubtree(gctx, childID, depth+1)
				if err != nil {
					return err
				}
				mu.Lock()
				deleted = append(deleted, ids...)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	if err := t.store.DeleteCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return append(deleted, categoryID), nil
}

// ancestorIDs walks the parent chain upward, best effort. Used only
// for cache invalidation, so store errors end the walk silently.
func (t *CategoryTree) ancestorIDs(ctx context.Context, parentID *string) []string {
	var ids []string
	visited := make(map[string]struct{})

	for parentID != nil && len(ids) <= t.maxDepth {
		id := *parentID
		if _, seen := visited[id]; seen {
			break
		}
		visited[id] = struct{}{}
		ids = append(ids, id)

		parent, err := t.store.GetCategoryByID(ctx, id)
		if err != nil {
			break
		}
		parentID = parent.ParentID
	}
	return ids
}

func (t *CategoryTree) invalidate(ctx context.Context, categoryIDs []string) {
	if t.cache == nil || len(categoryIDs) == 0 {
		return
	}
	if err := t.cache.InvalidateCategories(ctx, categoryIDs...); err != nil {
		t.logger.Warn("Category cache invalidation failed", zap.Error(err))
	}
}
