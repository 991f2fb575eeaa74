package repository

import (
	"time"

	"github.com/google/uuid"
)

// Meta carries the columns every managed entity shares. Embed it (by value)
// in an entity struct together with bun.BaseModel:
//
//	type User struct {
//		bun.BaseModel `bun:"table:users,alias:u"`
//		repository.Meta
//
//		Email string `bun:"email,notnull,unique" json:"email"`
//	}
//
// The store owns these fields: ids are generated on create when zero
// (time-ordered UUIDv7, so lexical id order follows creation order) and
// timestamps are maintained in UTC at microsecond precision so values
// compare identically after a database round trip.
//
// DeletedAt is the soft-delete marker: nil means the entity is live and
// visible to default queries.
type Meta struct {
	ID        uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	CreatedAt time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time  `bun:"updated_at,notnull" json:"updated_at"`
	DeletedAt *time.Time `bun:"deleted_at" json:"deleted_at,omitempty"`
}

// ModelMeta implements Model.
func (m *Meta) ModelMeta() *Meta { return m }

// Deleted reports whether the entity is soft-deleted.
func (m *Meta) Deleted() bool { return m.DeletedAt != nil }

// SoftDelete marks the entity deleted at t. It is idempotent: the first call
// sets the timestamp and returns true, later calls leave the original
// timestamp untouched and return false.
func (m *Meta) SoftDelete(t time.Time) bool {
	if m.DeletedAt != nil {
		return false
	}
	t = t.UTC().Truncate(time.Microsecond)
	m.DeletedAt = &t
	m.UpdatedAt = t
	return true
}

// Reinstate clears the soft-delete marker. It returns false when the entity
// was not deleted.
func (m *Meta) Reinstate(t time.Time) bool {
	if m.DeletedAt == nil {
		return false
	}
	m.DeletedAt = nil
	m.UpdatedAt = t.UTC().Truncate(time.Microsecond)
	return true
}

// Model is the capability every stored entity type must provide, normally by
// embedding Meta. The repository resolves it once at construction time; no
// reflection happens on the query path.
type Model interface {
	ModelMeta() *Meta
}

// TenantScoped marks entity types whose table carries a tenant_id column.
// List operations apply a tenant filter only for types implementing it;
// for all other types a tenant argument is ignored.
type TenantScoped interface {
	Tenant() *uuid.UUID
}
