package repositorycache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-entity-store/cache"
	"github.com/goliatone/go-entity-store/filter"
	"github.com/goliatone/go-entity-store/pagination"
	"github.com/goliatone/go-entity-store/repository"
)

// DefaultTTL is the cache expiry applied to entity entries unless WithTTL
// overrides it.
const DefaultTTL = 300 * time.Second

// CachedRepository decorates a repository with cache-aside reads and write
// invalidation. Single-entity reads hit the cache; list, filter, and count
// queries always go to the store, since their result sets change with every
// write and caching them would mostly serve stale pages.
type CachedRepository[T any] struct {
	base  repository.Repository[T]
	store cache.Store
	keys  Keys[T]
	ttl   time.Duration
	log   *zap.Logger
}

var _ repository.Repository[any] = (*CachedRepository[any])(nil)

// Option configures a CachedRepository.
type Option[T any] func(*CachedRepository[T])

// WithTTL overrides the entry expiry.
func WithTTL[T any](ttl time.Duration) Option[T] {
	return func(c *CachedRepository[T]) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger attaches a logger for invalidation diagnostics.
func WithLogger[T any](log *zap.Logger) Option[T] {
	return func(c *CachedRepository[T]) {
		if log != nil {
			c.log = log
		}
	}
}

// New wraps base with the cache-aside decorator. keys must carry a Primary
// function; pass DefaultKeys for the conventional "<type>:<id>" scheme.
func New[T any](base repository.Repository[T], store cache.Store, keys Keys[T], opts ...Option[T]) *CachedRepository[T] {
	c := &CachedRepository[T]{
		base:  base,
		store: store,
		keys:  keys,
		ttl:   DefaultTTL,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetByID implements repository.Repository. The includeDeleted variant
// bypasses the cache both ways: cached entries hold live entities only, and
// a deleted entity must never be served to a caller that did not ask for it.
func (c *CachedRepository[T]) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*T, error) {
	if includeDeleted {
		return c.base.GetByID(ctx, id, true)
	}

	key := c.keys.Primary(id)
	var cached T
	if c.store.Get(ctx, key, &cached) {
		return &cached, nil
	}

	record, err := c.base.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}

	c.store.Set(ctx, key, record, c.ttl)
	return record, nil
}

// Create implements repository.Repository. The created entity is written to
// the cache under all of its keys, so the read that typically follows a
// create is a hit.
func (c *CachedRepository[T]) Create(ctx context.Context, record *T) (*T, error) {
	created, err := c.base.Create(ctx, record)
	if err != nil {
		return nil, err
	}

	for _, key := range c.recordKeys(created) {
		c.store.Set(ctx, key, created, c.ttl)
	}
	return created, nil
}

// Update implements repository.Repository. The entity is read before the
// write so entries under its previous alternate keys (an old email, say)
// can be invalidated along with the current ones.
func (c *CachedRepository[T]) Update(ctx context.Context, record *T) (*T, error) {
	stale := c.preImageKeys(ctx, record, false)

	updated, err := c.base.Update(ctx, record)
	if err != nil {
		return nil, err
	}

	c.invalidate(ctx, union(stale, c.recordKeys(updated)))
	return updated, nil
}

// Delete implements repository.Repository.
func (c *CachedRepository[T]) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	stale := c.lookupKeys(ctx, id, false)

	deleted, err := c.base.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		c.invalidate(ctx, stale)
	}
	return deleted, nil
}

// Restore implements repository.Repository. The pre-read includes deleted
// rows, since the entity being restored is by definition soft-deleted.
func (c *CachedRepository[T]) Restore(ctx context.Context, id uuid.UUID) (bool, error) {
	stale := c.lookupKeys(ctx, id, true)

	restored, err := c.base.Restore(ctx, id)
	if err != nil {
		return false, err
	}
	if restored {
		c.invalidate(ctx, stale)
	}
	return restored, nil
}

// ForceDelete implements repository.Repository.
func (c *CachedRepository[T]) ForceDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	stale := c.lookupKeys(ctx, id, true)

	deleted, err := c.base.ForceDelete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		c.invalidate(ctx, stale)
	}
	return deleted, nil
}

// List implements repository.Repository as a pass-through.
func (c *CachedRepository[T]) List(ctx context.Context, params repository.ListParams) ([]*T, error) {
	return c.base.List(ctx, params)
}

// ListDeleted implements repository.Repository as a pass-through.
func (c *CachedRepository[T]) ListDeleted(ctx context.Context, params repository.ListParams) ([]*T, error) {
	return c.base.ListDeleted(ctx, params)
}

// ListCursor implements repository.Repository as a pass-through.
func (c *CachedRepository[T]) ListCursor(ctx context.Context, params repository.CursorParams) (pagination.Page[T], error) {
	return c.base.ListCursor(ctx, params)
}

// Find implements repository.Repository as a pass-through.
func (c *CachedRepository[T]) Find(ctx context.Context, f *filter.Filter, offset, limit int) ([]*T, error) {
	return c.base.Find(ctx, f, offset, limit)
}

// Count implements repository.Repository as a pass-through.
func (c *CachedRepository[T]) Count(ctx context.Context, f *filter.Filter) (int, error) {
	return c.base.Count(ctx, f)
}

// recordKeys returns every cache key for a record, always including the
// primary key even when ForRecord is unset.
func (c *CachedRepository[T]) recordKeys(record *T) []string {
	if c.keys.ForRecord != nil {
		return c.keys.ForRecord(record)
	}
	if m, ok := any(record).(repository.Model); ok {
		return []string{c.keys.Primary(m.ModelMeta().ID)}
	}
	return nil
}

// preImageKeys resolves the stored version of record and returns its keys.
// The pre-read is best effort: if it fails, the upcoming write will surface
// the real problem, and invalidation falls back to the primary key.
func (c *CachedRepository[T]) preImageKeys(ctx context.Context, record *T, includeDeleted bool) []string {
	m, ok := any(record).(repository.Model)
	if !ok {
		return nil
	}
	return c.lookupKeys(ctx, m.ModelMeta().ID, includeDeleted)
}

func (c *CachedRepository[T]) lookupKeys(ctx context.Context, id uuid.UUID, includeDeleted bool) []string {
	current, err := c.base.GetByID(ctx, id, includeDeleted)
	if err != nil {
		return []string{c.keys.Primary(id)}
	}
	return union(c.recordKeys(current), []string{c.keys.Primary(id)})
}

func (c *CachedRepository[T]) invalidate(ctx context.Context, keys []string) {
	for _, key := range keys {
		c.store.Delete(ctx, key)
	}
	if len(keys) > 0 {
		c.log.Debug("cache invalidated", zap.Strings("keys", keys))
	}
}

// union merges two key lists preserving order and dropping duplicates.
func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, key := range append(append([]string{}, a...), b...) {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
