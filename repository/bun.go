package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-entity-store/filter"
	"github.com/goliatone/go-entity-store/pagination"
)

// BunRepository is the bun-backed Repository implementation. It is safe for
// concurrent use; all state lives in the handed-in bun.IDB, so the same
// value works over a *bun.DB or a bun.Tx.
type BunRepository[T any] struct {
	db           bun.IDB
	tenantScoped bool
}

// compile-time interface check, kept next to the type it guards
var _ Repository[struct{ Meta }] = (*BunRepository[struct{ Meta }])(nil)

// New builds a repository for T. T must embed Meta (or otherwise satisfy
// Model); the capability is probed once here so the query paths stay free
// of reflection. Whether T is tenant scoped is detected the same way.
func New[T any](db bun.IDB) (*BunRepository[T], error) {
	var probe any = new(T)
	if _, ok := probe.(Model); !ok {
		return nil, fmt.Errorf("repository: %T does not embed repository.Meta", probe)
	}
	_, tenantScoped := probe.(TenantScoped)

	return &BunRepository[T]{db: db, tenantScoped: tenantScoped}, nil
}

// WithDB returns a copy of the repository bound to a different query runner,
// typically a bun.Tx inside RunInTx.
func (r *BunRepository[T]) WithDB(db bun.IDB) *BunRepository[T] {
	clone := *r
	clone.db = db
	return &clone
}

func (r *BunRepository[T]) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*T, error) {
	record := new(T)
	q := r.db.NewSelect().Model(record).Where("?TableAlias.id = ?", id)
	q = scopeVisibility(q, includeDeleted)

	if err := q.Scan(ctx); err != nil {
		return nil, classify(err)
	}
	return record, nil
}

func (r *BunRepository[T]) List(ctx context.Context, params ListParams) ([]*T, error) {
	params = params.normalize()

	var records []*T
	q := r.db.NewSelect().Model(&records)
	q = scopeVisibility(q, params.IncludeDeleted)
	q = r.scopeTenant(q, params.TenantID)
	q = orderNewestFirst(q).Offset(params.Offset).Limit(params.Limit)

	if err := q.Scan(ctx); err != nil {
		return nil, classify(err)
	}
	return records, nil
}

func (r *BunRepository[T]) ListDeleted(ctx context.Context, params ListParams) ([]*T, error) {
	params = params.normalize()

	var records []*T
	q := r.db.NewSelect().Model(&records).
		Where("?TableAlias.deleted_at IS NOT NULL")
	q = r.scopeTenant(q, params.TenantID)
	q = orderNewestFirst(q).Offset(params.Offset).Limit(params.Limit)

	if err := q.Scan(ctx); err != nil {
		return nil, classify(err)
	}
	return records, nil
}

func (r *BunRepository[T]) ListCursor(ctx context.Context, params CursorParams) (pagination.Page[T], error) {
	params = params.normalize()

	var records []*T
	q := r.db.NewSelect().Model(&records)
	q = scopeVisibility(q, params.IncludeDeleted)
	q = r.scopeTenant(q, params.TenantID)

	if params.Cursor != "" {
		afterID, afterCreated, err := decodeCursorPosition(params.Cursor)
		if err != nil {
			return pagination.Page[T]{}, err
		}
		// Keyset predicate matching the (created_at, id) descending order:
		// strictly older rows, or same-instant rows with a smaller id.
		q = q.Where("(?TableAlias.created_at < ? OR (?TableAlias.created_at = ? AND ?TableAlias.id < ?))",
			afterCreated, afterCreated, afterID)
	}

	// Fetch one row beyond the page to learn whether a next page exists.
	q = orderNewestFirst(q).Limit(params.Limit + 1)

	if err := q.Scan(ctx); err != nil {
		return pagination.Page[T]{}, classify(err)
	}

	page, err := pagination.NewPage(records, params.Limit, func(last *T) pagination.Cursor {
		meta := metaOf(last)
		return pagination.Cursor{Value: meta.ID.String(), SortValue: meta.CreatedAt}
	})
	if err != nil {
		return pagination.Page[T]{}, err
	}
	return page, nil
}

func (r *BunRepository[T]) Find(ctx context.Context, f *filter.Filter, offset, limit int) ([]*T, error) {
	params := ListParams{Offset: offset, Limit: limit}.normalize()

	var records []*T
	q, err := f.Apply(r.db.NewSelect().Model(&records), true)
	if err != nil {
		return nil, err
	}
	q = orderNewestFirst(q).Offset(params.Offset).Limit(params.Limit)

	if err := q.Scan(ctx); err != nil {
		return nil, classify(err)
	}
	return records, nil
}

func (r *BunRepository[T]) Count(ctx context.Context, f *filter.Filter) (int, error) {
	q, err := f.Apply(r.db.NewSelect().Model((*T)(nil)), true)
	if err != nil {
		return 0, err
	}

	n, err := q.Count(ctx)
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func (r *BunRepository[T]) Create(ctx context.Context, record *T) (*T, error) {
	meta := metaOf(record)
	now := nowUTC()

	if meta.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("repository: generate id: %w", err)
		}
		meta.ID = id
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	} else {
		meta.CreatedAt = meta.CreatedAt.UTC().Truncate(time.Microsecond)
	}
	meta.UpdatedAt = now

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, classify(err)
	}
	return record, nil
}

func (r *BunRepository[T]) Update(ctx context.Context, record *T) (*T, error) {
	meta := metaOf(record)
	if meta.ID == uuid.Nil {
		return nil, fmt.Errorf("repository: update requires a primary key")
	}
	meta.UpdatedAt = nowUTC()

	// created_at is immutable and deleted_at belongs to the delete/restore
	// lifecycle, so neither is written here.
	res, err := r.db.NewUpdate().Model(record).
		ExcludeColumn("created_at", "deleted_at").
		WherePK().
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return nil, classify(err)
	}
	if affected(res) == 0 {
		return nil, ErrNotFound
	}
	return record, nil
}

func (r *BunRepository[T]) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	now := nowUTC()

	// Matching only active rows makes repeated deletes no-ops and keeps the
	// original deletion timestamp intact.
	res, err := r.db.NewUpdate().Model((*T)(nil)).
		Set("deleted_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return false, classify(err)
	}
	return affected(res) > 0, nil
}

func (r *BunRepository[T]) Restore(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.NewUpdate().Model((*T)(nil)).
		Set("deleted_at = NULL").
		Set("updated_at = ?", nowUTC()).
		Where("id = ?", id).
		Where("deleted_at IS NOT NULL").
		Exec(ctx)
	if err != nil {
		return false, classify(err)
	}
	return affected(res) > 0, nil
}

func (r *BunRepository[T]) ForceDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.NewDelete().Model((*T)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return false, classify(err)
	}
	return affected(res) > 0, nil
}

func (r *BunRepository[T]) scopeTenant(q *bun.SelectQuery, tenantID *uuid.UUID) *bun.SelectQuery {
	if r.tenantScoped && tenantID != nil {
		q = q.Where("?TableAlias.tenant_id = ?", *tenantID)
	}
	return q
}

func scopeVisibility(q *bun.SelectQuery, includeDeleted bool) *bun.SelectQuery {
	if !includeDeleted {
		q = q.Where("?TableAlias.deleted_at IS NULL")
	}
	return q
}

// orderNewestFirst keeps listing order aligned with the cursor keyset: the
// id acts as tiebreaker for rows created in the same microsecond.
func orderNewestFirst(q *bun.SelectQuery) *bun.SelectQuery {
	return q.OrderExpr("?TableAlias.created_at DESC, ?TableAlias.id DESC")
}

// decodeCursorPosition turns an opaque cursor into the keyset position it
// carries. Any malformed component is reported as pagination.ErrInvalidCursor
// so callers treat tampered and truncated cursors uniformly.
func decodeCursorPosition(encoded string) (uuid.UUID, time.Time, error) {
	c, err := pagination.Decode(encoded)
	if err != nil {
		return uuid.Nil, time.Time{}, err
	}

	id, err := uuid.Parse(c.Value)
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("%w: cursor value is not an id", pagination.ErrInvalidCursor)
	}

	raw, ok := c.SortValue.(string)
	if !ok {
		return uuid.Nil, time.Time{}, fmt.Errorf("%w: cursor is missing its sort position", pagination.ErrInvalidCursor)
	}
	created, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("%w: cursor sort position is not a timestamp", pagination.ErrInvalidCursor)
	}

	return id, created.UTC(), nil
}

func metaOf[T any](record *T) *Meta {
	return any(record).(Model).ModelMeta()
}

func affected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}

// nowUTC truncates to microseconds so values written through PostgreSQL
// (microsecond timestamps) and sqlite (text) compare equal to the values a
// cursor carries back.
func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
