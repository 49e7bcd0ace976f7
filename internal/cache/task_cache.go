package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	dom "todoapp/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "tasks:list:"

// listEntry is the cached shape of one list page.
type listEntry struct {
	Items []dom.Task `json:"items"`
	Total int64      `json:"total"`
}

// TaskCache caches per-owner task list pages in Redis.
// Every write to an owner's tasks invalidates all of that owner's pages.
type TaskCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTaskCache returns a new TaskCache.
func NewTaskCache(rdb *redis.Client, ttl time.Duration) *TaskCache {
	return &TaskCache{rdb: rdb, ttl: ttl}
}

func pageKey(userID string, offset, limit int) string {
	return fmt.Sprintf("%s%s:%d:%d", keyPrefix, userID, offset, limit)
}

// GetList returns a cached page or (nil, 0, nil) on miss.
func (c *TaskCache) GetList(ctx context.Context, userID string, offset, limit int) ([]dom.Task, int64, error) {
	b, err := c.rdb.Get(ctx, pageKey(userID, offset, limit)).Bytes()
	if err == redis.Nil {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	var e listEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, 0, err
	}
	if e.Items == nil {
		e.Items = []dom.Task{}
	}
	return e.Items, e.Total, nil
}

// SetList stores one page with its total.
func (c *TaskCache) SetList(ctx context.Context, userID string, offset, limit int, items []dom.Task, total int64) error {
	if items == nil {
		items = []dom.Task{}
	}
	b, err := json.Marshal(listEntry{Items: items, Total: total})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, pageKey(userID, offset, limit), b, c.ttl).Err()
}

// Invalidate removes all cached pages for the owner (cache invalidation on write).
func (c *TaskCache) Invalidate(ctx context.Context, userID string) error {
	iter := c.rdb.Scan(ctx, 0, keyPrefix+userID+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
