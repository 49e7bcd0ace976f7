package service

import (
	"context"
	"errors"
	"fmt"

	"todoapp/internal/cache"
	dom "todoapp/internal/domain"
	"todoapp/internal/repo"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/singleflight"
)

// ErrNotFound covers both truly absent rows and rows owned by another user:
// the two cases are indistinguishable to the caller.
var ErrNotFound = errors.New("not found")

const (
	DefaultListLimit = 50
	MaxListLimit     = 50
)

// TaskService implements owner-scoped task operations.
type TaskService struct {
	repo  repo.TaskRepo
	cache *cache.TaskCache
	sf    singleflight.Group
}

// NewTaskService creates a TaskService. If c is nil, caching is disabled.
func NewTaskService(r repo.TaskRepo, c *cache.TaskCache) *TaskService {
	return &TaskService{repo: r, cache: c}
}

type listResult struct {
	items []dom.Task
	total int64
}

// List returns one page of the owner's tasks newest-first plus the full count.
// offset is clamped to >= 0; limit falls back to the default when unset and is
// capped at MaxListLimit so a caller can never request an unbounded page.
func (s *TaskService) List(ctx context.Context, userID string, offset, limit int) ([]dom.Task, int64, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	if s.cache == nil {
		return s.repo.List(ctx, userID, offset, limit)
	}

	key := fmt.Sprintf("list:%s:%d:%d", userID, offset, limit)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		if items, total, err := s.cache.GetList(ctx, userID, offset, limit); err == nil && items != nil {
			return listResult{items: items, total: total}, nil
		}
		items, total, err := s.repo.List(ctx, userID, offset, limit)
		if err != nil {
			return nil, err
		}
		_ = s.cache.SetList(ctx, userID, offset, limit, items, total)
		return listResult{items: items, total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	res := v.(listResult)
	return res.items, res.total, nil
}

// Create stores a new task for the owner. is_completed always starts false.
// Title and description arrive pre-validated and are stored verbatim.
func (s *TaskService) Create(ctx context.Context, userID, title string, description *string) (dom.Task, error) {
	t, err := s.repo.Create(ctx, userID, title, description)
	if err != nil {
		return dom.Task{}, err
	}
	s.invalidateCache(ctx, userID)
	return t, nil
}

func (s *TaskService) Get(ctx context.Context, userID, id string) (dom.Task, error) {
	t, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Task{}, ErrNotFound
		}
		return dom.Task{}, err
	}
	return t, nil
}

// Update applies a partial update. updated_at is refreshed on any successful
// match even if no field value actually changed.
func (s *TaskService) Update(ctx context.Context, userID, id string, title, description *string) (dom.Task, error) {
	t, err := s.repo.Update(ctx, userID, id, title, description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Task{}, ErrNotFound
		}
		return dom.Task{}, err
	}
	s.invalidateCache(ctx, userID)
	return t, nil
}

// ToggleCompletion flips is_completed and refreshes updated_at.
func (s *TaskService) ToggleCompletion(ctx context.Context, userID, id string) (dom.Task, error) {
	t, err := s.repo.ToggleCompletion(ctx, userID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Task{}, ErrNotFound
		}
		return dom.Task{}, err
	}
	s.invalidateCache(ctx, userID)
	return t, nil
}

// Delete reports true if a matching row existed and was removed.
func (s *TaskService) Delete(ctx context.Context, userID, id string) (bool, error) {
	deleted, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.invalidateCache(ctx, userID)
	}
	return deleted, nil
}

// Count returns the owner's total task count.
func (s *TaskService) Count(ctx context.Context, userID string) (int64, error) {
	return s.repo.Count(ctx, userID)
}

func (s *TaskService) invalidateCache(ctx context.Context, userID string) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, userID)
	}
}
