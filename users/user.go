package users

import (
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-entity-store/filter"
	"github.com/goliatone/go-entity-store/repository"
	"github.com/goliatone/go-entity-store/repositorycache"
)

// User is the reference entity managed by this package. Email and username
// are unique among all rows, deleted or not; both are stored normalized so
// uniqueness is case-insensitive.
//
// Recommended indexes beyond the unique constraints, for the query shapes
// the repository emits:
//
//	CREATE INDEX users_active_idx ON users (created_at DESC, id DESC) WHERE deleted_at IS NULL;
//	CREATE INDEX users_deleted_idx ON users (deleted_at) WHERE deleted_at IS NOT NULL;
//	CREATE INDEX users_tenant_active_idx ON users (tenant_id) WHERE deleted_at IS NULL;
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`
	repository.Meta

	Email    string     `bun:"email,notnull,unique" json:"email"`
	Username string     `bun:"username,notnull,unique" json:"username"`
	FullName string     `bun:"full_name" json:"full_name,omitempty"`
	IsActive bool       `bun:"is_active,notnull,default:true" json:"is_active"`
	TenantID *uuid.UUID `bun:"tenant_id,type:uuid" json:"tenant_id,omitempty"`
}

// Tenant implements repository.TenantScoped.
func (u *User) Tenant() *uuid.UUID { return u.TenantID }

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeUsername lowercases and trims a username for storage and lookup.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Normalize applies the storage normalization to the lookup columns.
func (u *User) Normalize() {
	u.Email = NormalizeEmail(u.Email)
	u.Username = NormalizeUsername(u.Username)
}

// Cache key builders. A user is cached under all three keys at once and the
// three are invalidated together, so a stale alternate-key entry cannot
// outlive the primary one.
func KeyByID(id uuid.UUID) string    { return "user:" + id.String() }
func KeyByEmail(email string) string { return "user:email:" + NormalizeEmail(email) }

func KeyByUsername(username string) string {
	return "user:username:" + NormalizeUsername(username)
}

// CacheKeys lists every cache key the user may be stored under.
func (u *User) CacheKeys() []string {
	return []string{
		KeyByID(u.ID),
		KeyByEmail(u.Email),
		KeyByUsername(u.Username),
	}
}

// Keys is the cache key scheme for users, covering the alternate email and
// username lookups.
func Keys() repositorycache.Keys[User] {
	return repositorycache.Keys[User]{
		Primary:   KeyByID,
		ForRecord: (*User).CacheKeys,
	}
}

// FilterSchema declares the filterable user fields.
func FilterSchema() filter.Schema {
	return filter.Schema{
		"email":          {Column: "email"},
		"username":       {Column: "username"},
		"full_name":      {Column: "full_name", Op: filter.IContains},
		"is_active":      {Column: "is_active"},
		"tenant_id":      {Column: "tenant_id"},
		"created_after":  {Column: "created_at", Op: filter.GTE},
		"created_before": {Column: "created_at", Op: filter.LTE},
	}
}
