// Package cache puts a Redis read-through layer in front of a store.Store.
package cache

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/Joseda-hg/lazyproject/internal/model"
	"github.com/Joseda-hg/lazyproject/internal/store"
)

// Store caches the per-owner list reads of the wrapped store. Every write
// evicts the lists of the owners it touches.
type Store struct {
	store.Store
	redis *redis.Client
	ttl   time.Duration
}

var _ store.Store = (*Store)(nil)

func New(base store.Store, client *redis.Client, ttl time.Duration) *Store {
	if base == nil {
		panic("cache.New: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Store{Store: base, redis: client, ttl: ttl}
}

func (c *Store) ListProjects(ctx context.Context, ownerID string) ([]model.Project, error) {
	return readThrough(ctx, c, projectsKey(ownerID), func() ([]model.Project, error) {
		return c.Store.ListProjects(ctx, ownerID)
	})
}

func (c *Store) ListTasks(ctx context.Context, ownerID string) ([]model.Task, error) {
	return readThrough(ctx, c, tasksKey(ownerID), func() ([]model.Task, error) {
		return c.Store.ListTasks(ctx, ownerID)
	})
}

func (c *Store) ListLabels(ctx context.Context, ownerID string) ([]model.Label, error) {
	return readThrough(ctx, c, labelsKey(ownerID), func() ([]model.Label, error) {
		return c.Store.ListLabels(ctx, ownerID)
	})
}

func (c *Store) CreateProject(ctx context.Context, project model.Project) (model.Project, error) {
	created, err := c.Store.CreateProject(ctx, project)
	if err != nil {
		return model.Project{}, err
	}
	c.evict(ctx, created.OwnerID)
	return created, nil
}

func (c *Store) UpdateProject(ctx context.Context, project model.Project) (model.Project, error) {
	previous, lookupErr := c.Store.GetProject(ctx, project.ID)
	updated, err := c.Store.UpdateProject(ctx, project)
	if err != nil {
		return model.Project{}, err
	}
	if lookupErr == nil && previous.OwnerID != updated.OwnerID {
		c.evict(ctx, previous.OwnerID)
	}
	c.evict(ctx, updated.OwnerID)
	return updated, nil
}

func (c *Store) DeleteProject(ctx context.Context, id string) error {
	project, lookupErr := c.Store.GetProject(ctx, id)
	if err := c.Store.DeleteProject(ctx, id); err != nil {
		return err
	}
	if lookupErr != nil {
		c.evictPattern(ctx, "*")
		return nil
	}
	c.evict(ctx, project.OwnerID)
	return nil
}

func (c *Store) CreateTask(ctx context.Context, task model.Task) (model.Task, error) {
	created, err := c.Store.CreateTask(ctx, task)
	if err != nil {
		return model.Task{}, err
	}
	c.evictTasksOf(ctx, created.ProjectID)
	return created, nil
}

func (c *Store) UpdateTask(ctx context.Context, task model.Task) (model.Task, error) {
	previous, lookupErr := c.Store.GetTask(ctx, task.ID)
	updated, err := c.Store.UpdateTask(ctx, task)
	if err != nil {
		return model.Task{}, err
	}
	if lookupErr == nil && previous.ProjectID != updated.ProjectID {
		c.evictTasksOf(ctx, previous.ProjectID)
	}
	c.evictTasksOf(ctx, updated.ProjectID)
	return updated, nil
}

func (c *Store) DeleteTask(ctx context.Context, id string) error {
	task, lookupErr := c.Store.GetTask(ctx, id)
	if err := c.Store.DeleteTask(ctx, id); err != nil {
		return err
	}
	if lookupErr != nil {
		c.evictPattern(ctx, "tasks:*")
		return nil
	}
	c.evictTasksOf(ctx, task.ProjectID)
	return nil
}

func (c *Store) CreateLabel(ctx context.Context, label model.Label) (model.Label, error) {
	created, err := c.Store.CreateLabel(ctx, label)
	if err != nil {
		return model.Label{}, err
	}
	c.del(ctx, labelsKey(created.OwnerID))
	return created, nil
}

func (c *Store) UpdateLabel(ctx context.Context, label model.Label) (model.Label, error) {
	updated, err := c.Store.UpdateLabel(ctx, label)
	if err != nil {
		return model.Label{}, err
	}
	c.del(ctx, labelsKey(updated.OwnerID))
	return updated, nil
}

func (c *Store) DeleteLabel(ctx context.Context, id string) error {
	labels, lookupErr := c.Store.GetLabels(ctx, []string{id})
	if err := c.Store.DeleteLabel(ctx, id); err != nil {
		return err
	}
	if lookupErr != nil || len(labels) == 0 {
		c.evictPattern(ctx, "labels:*")
		return nil
	}
	c.del(ctx, labelsKey(labels[0].OwnerID))
	return nil
}

func readThrough[T any](ctx context.Context, c *Store, key string, load func() ([]T, error)) ([]T, error) {
	if cached, ok := loadCached[T](ctx, c, key); ok {
		return cached, nil
	}
	values, err := load()
	if err != nil {
		return nil, err
	}
	c.storeCached(ctx, key, values)
	return values, nil
}

func loadCached[T any](ctx context.Context, c *Store, key string) ([]T, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			c.del(ctx, key)
		}
		return nil, false
	}
	var values []T
	if err := sonic.Unmarshal(data, &values); err != nil {
		c.del(ctx, key)
		return nil, false
	}
	return values, true
}

func (c *Store) storeCached(ctx context.Context, key string, values any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(values)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

// evictTasksOf drops the task list of the project's owner, or every task list
// when the owner cannot be resolved.
func (c *Store) evictTasksOf(ctx context.Context, projectID string) {
	project, err := c.Store.GetProject(ctx, projectID)
	if err != nil {
		c.evictPattern(ctx, "tasks:*")
		return
	}
	c.del(ctx, tasksKey(project.OwnerID))
}

func (c *Store) evict(ctx context.Context, ownerID string) {
	c.del(ctx, projectsKey(ownerID), tasksKey(ownerID), labelsKey(ownerID))
}

func (c *Store) evictPattern(ctx context.Context, pattern string) {
	if c.redis == nil {
		return
	}
	iter := c.redis.Scan(ctx, 0, pattern, 100).Iterator()
	keys := []string{}
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	c.del(ctx, keys...)
}

func (c *Store) del(ctx context.Context, keys ...string) {
	if c.redis == nil || len(keys) == 0 {
		return
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}

func projectsKey(ownerID string) string {
	return "projects:" + ownerID
}

func tasksKey(ownerID string) string {
	return "tasks:" + ownerID
}

func labelsKey(ownerID string) string {
	return "labels:" + ownerID
}
