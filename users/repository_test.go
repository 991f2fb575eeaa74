package users

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-entity-store/cache"
	"github.com/goliatone/go-entity-store/pkg/testsupport"
	"github.com/goliatone/go-entity-store/repository"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	db := testsupport.NewTestDB(t, (*User)(nil))
	repo, err := NewRepository(db)
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	return repo
}

func newStore(t *testing.T) cache.Store {
	t.Helper()
	return testsupport.NewTestCache(t)
}

func mustCreate(t *testing.T, repo *Repository, email, username string) *User {
	t.Helper()
	user := &User{Email: email, Username: username, IsActive: true}
	user.Normalize()
	created, err := repo.Create(context.Background(), user)
	if err != nil {
		t.Fatalf("Create(%s) error = %v", email, err)
	}
	return created
}

func TestGetByEmailNormalizesLookup(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	created := mustCreate(t, repo, "Alice@Example.com", "alice")
	if created.Email != "alice@example.com" {
		t.Errorf("stored email = %q, want normalized", created.Email)
	}

	got, err := repo.GetByEmail(ctx, "  ALICE@example.COM ")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByEmail() id = %v, want %v", got.ID, created.ID)
	}
}

func TestGetByUsername(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	created := mustCreate(t, repo, "bob@example.com", "Bob")

	got, err := repo.GetByUsername(ctx, "BOB")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByUsername() id = %v, want %v", got.ID, created.ID)
	}

	if _, err := repo.GetByUsername(ctx, "nobody"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("GetByUsername(nobody) error = %v, want ErrNotFound", err)
	}
}

func TestGetByEmailExcludesDeleted(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	created := mustCreate(t, repo, "gone@example.com", "gone")
	if _, err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := repo.GetByEmail(ctx, "gone@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("GetByEmail() after delete error = %v, want ErrNotFound", err)
	}
}

func TestCachedGetByEmailServesFromCache(t *testing.T) {
	repo := newRepo(t)
	store := newStore(t)
	cached := NewCachedRepository(repo, store, 0)
	ctx := context.Background()

	created := mustCreate(t, repo, "carol@example.com", "carol")

	if _, err := cached.GetByEmail(ctx, "carol@example.com"); err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}

	// Remove the row underneath the cache; the entry still serves.
	if _, err := repo.ForceDelete(ctx, created.ID); err != nil {
		t.Fatalf("ForceDelete() error = %v", err)
	}

	got, err := cached.GetByEmail(ctx, "carol@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() after row removal error = %v, want cached hit", err)
	}
	if got.ID != created.ID {
		t.Errorf("cached user id = %v, want %v", got.ID, created.ID)
	}
}

func TestCachedUpdateInvalidatesEmailKey(t *testing.T) {
	repo := newRepo(t)
	store := newStore(t)
	cached := NewCachedRepository(repo, store, 0)
	ctx := context.Background()

	created := mustCreate(t, repo, "old@example.com", "mover")

	// Warm the alternate-key entry.
	if _, err := cached.GetByEmail(ctx, "old@example.com"); err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}

	created.Email = "new@example.com"
	if _, err := cached.Update(ctx, created); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	// The old email no longer resolves, cached or not.
	if _, err := cached.GetByEmail(ctx, "old@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("GetByEmail(old) error = %v, want ErrNotFound after update", err)
	}

	got, err := cached.GetByEmail(ctx, "new@example.com")
	if err != nil {
		t.Fatalf("GetByEmail(new) error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByEmail(new) id = %v, want %v", got.ID, created.ID)
	}
}

func TestCachedDeleteInvalidatesAllKeys(t *testing.T) {
	repo := newRepo(t)
	store := newStore(t)
	cached := NewCachedRepository(repo, store, 0)
	ctx := context.Background()

	created := mustCreate(t, repo, "dave@example.com", "dave")

	cached.GetByID(ctx, created.ID, false)
	cached.GetByEmail(ctx, "dave@example.com")
	cached.GetByUsername(ctx, "dave")

	deleted, err := cached.Delete(ctx, created.ID)
	if err != nil || !deleted {
		t.Fatalf("Delete() = %t, %v, want true, nil", deleted, err)
	}

	if _, err := cached.GetByID(ctx, created.ID, false); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
	if _, err := cached.GetByEmail(ctx, "dave@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("GetByEmail() after delete error = %v, want ErrNotFound", err)
	}
	if _, err := cached.GetByUsername(ctx, "dave"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("GetByUsername() after delete error = %v, want ErrNotFound", err)
	}
}

func TestCacheKeysCoverAllLookups(t *testing.T) {
	user := mustCreate(t, newRepo(t), "eve@example.com", "eve")

	keys := user.CacheKeys()
	want := []string{
		"user:" + user.ID.String(),
		"user:email:eve@example.com",
		"user:username:eve",
	}
	if len(keys) != len(want) {
		t.Fatalf("CacheKeys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("CacheKeys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}
