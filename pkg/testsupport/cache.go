package testsupport

import (
	"testing"

	"github.com/goliatone/go-entity-store/cache"
)

// NewTestCache builds an in-process cache service for tests, closed
// automatically when the test finishes.
func NewTestCache(t *testing.T) *cache.Service {
	t.Helper()

	svc, err := cache.New(cache.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("failed to build test cache: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}
