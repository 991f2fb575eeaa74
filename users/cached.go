package users

import (
	"context"
	"time"

	"github.com/goliatone/go-entity-store/cache"
	"github.com/goliatone/go-entity-store/repositorycache"
)

// CachedRepository layers the generic cache-aside decorator over a user
// repository and extends it with cached email and username lookups. All
// three key families move together: a write through this type invalidates
// the id, email, and username entries of the affected user.
type CachedRepository struct {
	*repositorycache.CachedRepository[User]

	base  *Repository
	store cache.Store
	ttl   time.Duration
}

// NewCachedRepository wraps base. A zero ttl selects the decorator default.
func NewCachedRepository(base *Repository, store cache.Store, ttl time.Duration) *CachedRepository {
	if ttl <= 0 {
		ttl = repositorycache.DefaultTTL
	}
	return &CachedRepository{
		CachedRepository: repositorycache.New[User](base, store, Keys(), repositorycache.WithTTL[User](ttl)),
		base:             base,
		store:            store,
		ttl:              ttl,
	}
}

// GetByEmail serves the lookup from the cache when possible, falling back
// to the repository and caching the result under the email key.
func (c *CachedRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return repositorycache.Lookup(ctx, c.store, KeyByEmail(email), c.ttl,
		func(ctx context.Context) (*User, error) {
			return c.base.GetByEmail(ctx, email)
		})
}

// GetByUsername serves the lookup from the cache when possible.
func (c *CachedRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return repositorycache.Lookup(ctx, c.store, KeyByUsername(username), c.ttl,
		func(ctx context.Context) (*User, error) {
			return c.base.GetByUsername(ctx, username)
		})
}
