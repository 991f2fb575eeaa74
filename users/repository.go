package users

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-entity-store/repository"
)

// Repository extends the generic user repository with the alternate-key
// lookups the User table supports. Lookups see active rows only; a
// soft-deleted user's email stays reserved by the unique constraint but is
// not resolvable.
type Repository struct {
	*repository.BunRepository[User]
}

// NewRepository builds a user repository over db, which may be a *bun.DB or
// a bun.Tx.
func NewRepository(db bun.IDB) (*Repository, error) {
	base, err := repository.New[User](db)
	if err != nil {
		return nil, err
	}
	return &Repository{BunRepository: base}, nil
}

// WithDB rebinds the repository onto another query runner, typically a
// transaction.
func (r *Repository) WithDB(db bun.IDB) *Repository {
	return &Repository{BunRepository: r.BunRepository.WithDB(db)}
}

// GetByEmail fetches the active user with the given email. The lookup value
// is normalized the same way stored emails are.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, "email", NormalizeEmail(email))
}

// GetByUsername fetches the active user with the given username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, "username", NormalizeUsername(username))
}

func (r *Repository) findOne(ctx context.Context, field, value string) (*User, error) {
	f := FilterSchema().Filter().Set(field, value)

	records, err := r.Find(ctx, f, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, repository.ErrNotFound
	}
	return records[0], nil
}
