package di

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-entity-store/users"
)

func newBenchContainer(b *testing.B) *Container {
	b.Helper()

	cfg := DefaultConfig()
	cfg.Database.DSN = ":memory:"
	cfg.Database.MaxOpenConns = 1

	container, err := NewContainer(cfg)
	if err != nil {
		b.Fatalf("NewContainer() error = %v", err)
	}
	b.Cleanup(func() { container.Close() })

	if _, err := container.DB().NewCreateTable().
		Model((*users.User)(nil)).
		IfNotExists().
		Exec(context.Background()); err != nil {
		b.Fatalf("create users table: %v", err)
	}
	return container
}

func BenchmarkCachedGetByID(b *testing.B) {
	container := newBenchContainer(b)
	ctx := context.Background()

	svc, err := container.UsersService()
	if err != nil {
		b.Fatalf("UsersService() error = %v", err)
	}
	created, err := svc.Create(ctx, users.CreateInput{
		Email:    "bench@example.com",
		Username: "bench",
	})
	if err != nil {
		b.Fatalf("Create() error = %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Get(ctx, created.ID, nil); err != nil {
			b.Fatalf("Get() error = %v", err)
		}
	}
}

func BenchmarkUncachedGetByID(b *testing.B) {
	container := newBenchContainer(b)
	ctx := context.Background()

	repo, err := users.NewRepository(container.DB())
	if err != nil {
		b.Fatalf("NewRepository() error = %v", err)
	}
	user := &users.User{Email: "bench@example.com", Username: "bench", IsActive: true}
	if _, err := repo.Create(ctx, user); err != nil {
		b.Fatalf("Create() error = %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := repo.GetByID(ctx, user.ID, false); err != nil {
			b.Fatalf("GetByID() error = %v", err)
		}
	}
}

func BenchmarkCacheSetGet(b *testing.B) {
	container := newBenchContainer(b)
	ctx := context.Background()
	store := container.Cache()

	user := &users.User{Email: "bench@example.com", Username: "bench"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.Set(ctx, "bench:user", user, time.Minute)
		var got users.User
		store.Get(ctx, "bench:user", &got)
	}
}
