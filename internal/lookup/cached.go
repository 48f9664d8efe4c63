package lookup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nutriadmin.org/internal/cache"
	"nutriadmin.org/internal/paging"
)

// CachedRepository wraps a repository with cache-aside reads. Writes drop the
// id entry and every cached list page of the same table.
type CachedRepository struct {
	Repository
	backend cache.Backend
	ttl     time.Duration
}

// NewCached decorates repo when its definition is marked cacheable.
func NewCached(repo Repository, backend cache.Backend, ttl time.Duration) Repository {
	if backend == nil || !repo.Definition().Cached {
		return repo
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedRepository{Repository: repo, backend: backend, ttl: ttl}
}

func idKey(key string, id int64) string {
	return fmt.Sprintf("lookup:%s:id:%d", key, id)
}

func listPrefix(key string) string {
	return fmt.Sprintf("lookup:%s:list:", key)
}

func listKey(key string, q paging.Query) string {
	return fmt.Sprintf("%s%d:%d:%s:%t", listPrefix(key), q.Take, q.Skip, strings.ToLower(q.Name), q.Alls)
}

func (c *CachedRepository) GetByID(ctx context.Context, id int64) (Item, error) {
	return cache.GetOrLoad(ctx, c.backend, idKey(c.Definition().Key, id), c.ttl, func(ctx context.Context) (Item, error) {
		return c.Repository.GetByID(ctx, id)
	})
}

func (c *CachedRepository) GetAll(ctx context.Context, q paging.Query) (paging.Page[Item], error) {
	q = q.Normalize()
	return cache.GetOrLoad(ctx, c.backend, listKey(c.Definition().Key, q), c.ttl, func(ctx context.Context) (paging.Page[Item], error) {
		return c.Repository.GetAll(ctx, q)
	})
}

func (c *CachedRepository) Insert(ctx context.Context, item Item) (int64, error) {
	id, err := c.Repository.Insert(ctx, item)
	if err == nil {
		c.invalidate(ctx, 0)
	}
	return id, err
}

func (c *CachedRepository) Update(ctx context.Context, item Item) (bool, error) {
	ok, err := c.Repository.Update(ctx, item)
	if err == nil {
		c.invalidate(ctx, item.ID)
	}
	return ok, err
}

func (c *CachedRepository) Delete(ctx context.Context, id int64) (bool, error) {
	ok, err := c.Repository.Delete(ctx, id)
	if err == nil {
		c.invalidate(ctx, id)
	}
	return ok, err
}

func (c *CachedRepository) UpdateDisplayOrder(ctx context.Context, id int64, order int) (bool, error) {
	ok, err := c.Repository.UpdateDisplayOrder(ctx, id, order)
	if err == nil {
		c.invalidate(ctx, id)
	}
	return ok, err
}

func (c *CachedRepository) invalidate(ctx context.Context, id int64) {
	key := c.Definition().Key
	var keys []string
	if id > 0 {
		keys = append(keys, idKey(key, id))
	}
	cache.Invalidate(ctx, c.backend, keys, listPrefix(key))
}
