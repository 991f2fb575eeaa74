// Package repositorycache decorates repositories with cache-aside reads and
// write-time invalidation.
//
// # What is cached
//
// Only single-entity reads go through the cache: GetByID serves from the
// cache and populates it on a miss, and Create writes the new entity through
// so the following read hits. List, cursor, filter, and count queries pass
// straight to the store.
//
// # Invalidation
//
// Writes invalidate rather than refresh. Update reads the stored entity
// first and deletes the union of its previous and current cache keys, so an
// entry filed under an old alternate key (a changed email, for example)
// cannot serve stale data. Delete, Restore, and ForceDelete invalidate the
// keys of the affected entity.
//
// # Key schemes
//
// The Keys type maps an entity to its cache keys. DefaultKeys yields the
// "<type>:<id>" scheme; entity packages with alternate lookups supply their
// own ForRecord to cover keys like "user:email:<email>". The Lookup helper
// runs the same cache-aside flow for those alternate-key queries:
//
//	keys := repositorycache.Keys[User]{
//		Primary:   func(id uuid.UUID) string { return "user:" + id.String() },
//		ForRecord: func(u *User) []string { return u.CacheKeys() },
//	}
//	cached := repositorycache.New(base, store, keys)
//
// Because the cache store absorbs its own failures, a degraded cache turns
// every operation into its uncached equivalent; no error paths are added.
package repositorycache
