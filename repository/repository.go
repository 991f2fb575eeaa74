package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/goliatone/go-entity-store/filter"
	"github.com/goliatone/go-entity-store/pagination"
)

// Repository is the persistence contract for a single entity type. All
// read operations exclude soft-deleted rows unless the call says otherwise,
// and all errors are normalized to the package sentinels where they apply.
type Repository[T any] interface {
	// GetByID fetches one entity by primary key. With includeDeleted false a
	// soft-deleted row is reported as ErrNotFound, identical to an absent one.
	GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*T, error)

	// List returns a page of entities by offset/limit, newest first.
	// Soft-deleted entities are excluded unless params.IncludeDeleted is set.
	List(ctx context.Context, params ListParams) ([]*T, error)

	// ListDeleted returns a page containing only soft-deleted entities.
	ListDeleted(ctx context.Context, params ListParams) ([]*T, error)

	// ListCursor returns a keyset-paginated page ordered by (created_at, id)
	// descending. An empty cursor starts from the newest entity; a cursor
	// that fails to decode or carries malformed position values yields
	// pagination.ErrInvalidCursor.
	ListCursor(ctx context.Context, params CursorParams) (pagination.Page[T], error)

	// Find returns active entities matching the filter, newest first. A nil
	// filter matches every active entity.
	Find(ctx context.Context, f *filter.Filter, offset, limit int) ([]*T, error)

	// Count returns the number of active entities matching the filter.
	Count(ctx context.Context, f *filter.Filter) (int, error)

	// Create inserts the entity, assigning ID and timestamps when unset.
	Create(ctx context.Context, record *T) (*T, error)

	// Update writes all columns of an active entity and refreshes its
	// updated_at. Updating an absent or soft-deleted entity is ErrNotFound.
	Update(ctx context.Context, record *T) (*T, error)

	// Delete soft-deletes by primary key. It reports false without error
	// when the entity is absent or already soft-deleted, so repeated calls
	// are idempotent.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// Restore clears the soft-delete mark. It reports false when the entity
	// is absent or not currently deleted.
	Restore(ctx context.Context, id uuid.UUID) (bool, error)

	// ForceDelete removes the row permanently, deleted or not.
	ForceDelete(ctx context.Context, id uuid.UUID) (bool, error)
}

// ListParams bounds an offset/limit listing. TenantID is honored only for
// entity types that implement TenantScoped. IncludeDeleted widens List to
// all rows; ListDeleted ignores it.
type ListParams struct {
	Offset         int
	Limit          int
	TenantID       *uuid.UUID
	IncludeDeleted bool
}

func (p ListParams) normalize() ListParams {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = pagination.DefaultLimit
	}
	if p.Limit > pagination.MaxLimit {
		p.Limit = pagination.MaxLimit
	}
	return p
}

// CursorParams bounds a cursor listing. Cursor is the opaque token from the
// previous page's NextCursor, or empty for the first page.
type CursorParams struct {
	Cursor         string
	Limit          int
	TenantID       *uuid.UUID
	IncludeDeleted bool
}

func (p CursorParams) normalize() CursorParams {
	if p.Limit <= 0 {
		p.Limit = pagination.DefaultLimit
	}
	if p.Limit > pagination.MaxLimit {
		p.Limit = pagination.MaxLimit
	}
	return p
}
