package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/isdelr/todo-be/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// CachedTodoRepository keeps each owner's list in redis under a per-owner
// generation. Writes bump the generation, so a list read before a write can
// only be stored under a key nobody reads again. Redis failures are logged and
// the store answers instead.
type CachedTodoRepository struct {
	next TodoRepository
	rdb  redis.Cmdable
	ttl  time.Duration
}

// NewCachedTodoRepository wraps next with a read-through list cache.
func NewCachedTodoRepository(next TodoRepository, rdb redis.Cmdable, ttl time.Duration) *CachedTodoRepository {
	return &CachedTodoRepository{next: next, rdb: rdb, ttl: ttl}
}

func genKey(ownerID string) string {
	return "todos:owner:" + ownerID + ":gen"
}

func listKey(ownerID string, gen int64) string {
	return "todos:owner:" + ownerID + ":v" + strconv.FormatInt(gen, 10)
}

// generation returns the owner's current list generation. ok is false when
// redis cannot answer.
func (c *CachedTodoRepository) generation(ctx context.Context, ownerID string) (int64, bool) {
	gen, err := c.rdb.Get(ctx, genKey(ownerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		log.Warn().Err(err).Str("owner_id", ownerID).Msg("cache generation read failed")
		return 0, false
	}
	return gen, true
}

// ListByOwner serves from cache when possible.
func (c *CachedTodoRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Todo, error) {
	// The generation must be read before the store.
	gen, ok := c.generation(ctx, ownerID)
	if !ok {
		return c.next.ListByOwner(ctx, ownerID)
	}
	key := listKey(ownerID, gen)

	val, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var todos []models.Todo
		if err := json.Unmarshal(val, &todos); err == nil {
			log.Debug().Str("key", key).Msg("cache hit")
			return todos, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	todos, err := c.next.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(todos)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return todos, nil
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return todos, nil
}

// Create stores the todo and retires the owner's cached list.
func (c *CachedTodoRepository) Create(ctx context.Context, todo *models.Todo) error {
	if err := c.next.Create(ctx, todo); err != nil {
		return err
	}
	c.invalidate(ctx, todo.UserID)
	return nil
}

// Update patches the todo and retires the owner's cached list.
func (c *CachedTodoRepository) Update(ctx context.Context, id, ownerID string, patch models.TodoPatch, updatedAt time.Time) (models.Todo, error) {
	t, err := c.next.Update(ctx, id, ownerID, patch, updatedAt)
	if err != nil {
		return models.Todo{}, err
	}
	c.invalidate(ctx, ownerID)
	return t, nil
}

// Delete removes the todo and retires the owner's cached list.
func (c *CachedTodoRepository) Delete(ctx context.Context, id, ownerID string) error {
	if err := c.next.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	c.invalidate(ctx, ownerID)
	return nil
}

// Count is never cached.
func (c *CachedTodoRepository) Count(ctx context.Context) (int64, error) {
	return c.next.Count(ctx)
}

// invalidate runs after the store write. Old generations expire with the TTL.
func (c *CachedTodoRepository) invalidate(ctx context.Context, ownerID string) {
	if err := c.rdb.Incr(ctx, genKey(ownerID)).Err(); err != nil {
		log.Warn().Err(err).Str("owner_id", ownerID).Msg("cache invalidation failed")
	}
}
