package repositorycache

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-entity-store/cache"
	"github.com/goliatone/go-entity-store/repository"
)

// Keys describes how an entity type maps to cache keys. Primary builds the
// key for a by-id lookup; ForRecord enumerates every key under which a given
// record may be cached, so writes can invalidate alternate-key entries (for
// example an email lookup) alongside the primary one.
type Keys[T any] struct {
	Primary   func(id uuid.UUID) string
	ForRecord func(record *T) []string
}

// DefaultKeys builds the conventional key scheme "<namespace>:<id>" with no
// alternate keys. An empty namespace derives one from the entity type name,
// so DefaultKeys[User]("") yields "user:<id>".
func DefaultKeys[T any](namespace string) Keys[T] {
	if namespace == "" {
		namespace = toSnake(reflect.TypeOf((*T)(nil)).Elem().Name())
	}

	primary := func(id uuid.UUID) string {
		return namespace + ":" + id.String()
	}
	return Keys[T]{
		Primary: primary,
		ForRecord: func(record *T) []string {
			m, ok := any(record).(repository.Model)
			if !ok {
				return nil
			}
			return []string{primary(m.ModelMeta().ID)}
		},
	}
}

// Lookup runs a cache-aside read for a single alternate-key query: a hit
// returns the cached record, a miss calls fetch and caches the result under
// key. Fetch errors pass through unchanged and nothing is cached for them,
// including repository.ErrNotFound, so absent entities are re-checked on
// every call rather than negatively cached.
func Lookup[T any](ctx context.Context, store cache.Store, key string, ttl time.Duration, fetch func(context.Context) (*T, error)) (*T, error) {
	var cached T
	if store.Get(ctx, key, &cached) {
		return &cached, nil
	}

	record, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	store.Set(ctx, key, record, ttl)
	return record, nil
}
