package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func breadcrumbKey(categoryID string) string {
	return fmt.Sprintf("breadcrumb:%s", categoryID)
}

func subtreeKey(categoryID string) string {
	return fmt.Sprintf("subtree:%s", categoryID)
}

// GetBreadcrumb retrieves a cached breadcrumb trail. Returns
// (nil, nil) on a cache miss.
func (c *Client) GetBreadcrumb(ctx context.Context, categoryID string) ([]models.Category, error) {
	raw, err := c.rdb.Get(ctx, breadcrumbKey(categoryID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var trail []models.Category
	if err := json.Unmarshal(raw, &trail); err != nil {
		return nil, fmt.Errorf("failed to decode cached breadcrumb: %w", err)
	}
	return trail, nil
}

// SetBreadcrumb caches a breadcrumb trail with a TTL.
func (c *Client) SetBreadcrumb(ctx context.Context, categoryID string, trail []models.Category, ttl time.Duration) error {
	raw, err := json.Marshal(trail)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, breadcrumbKey(categoryID), raw, ttl).Err()
}

// GetSubtree retrieves a cached subtree. Returns (nil, nil) on a cache
// miss.
func (c *Client) GetSubtree(ctx context.Context, categoryID string) (*models.Category, error) {
	raw, err := c.rdb.Get(ctx, subtreeKey(categoryID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var root models.Category
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("failed to decode cached subtree: %w", err)
	}
	return &root, nil
}

// SetSubtree caches a fully populated subtree with a TTL.
func (c *Client) SetSubtree(ctx context.Context, categoryID string, root *models.Category, ttl time.Duration) error {
	raw, err := json.Marshal(root)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, subtreeKey(categoryID), raw, ttl).Err()
}

// InvalidateCategories drops cached breadcrumbs and subtrees for the
// given category ids.
func (c *Client) InvalidateCategories(ctx context.Context, categoryIDs ...string) error {
	if len(categoryIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(categoryIDs)*2)
	for _, id := range categoryIDs {
		keys = append(keys, breadcrumbKey(id), subtreeKey(id))
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), value, ttl).Err()
}

// CheckIdempotencyKey checks if an idempotency key exists
func (c *Client) CheckIdempotencyKey(ctx context.Context, key string) (bool, error) {
	result, err := c.rdb.Exists(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
