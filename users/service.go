package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/goliatone/go-entity-store/filter"
	"github.com/goliatone/go-entity-store/notify"
	"github.com/goliatone/go-entity-store/pagination"
	"github.com/goliatone/go-entity-store/repository"
)

// MaxBatchSize bounds a single BatchCreate call.
const MaxBatchSize = 100

// Store is what the service needs from a user repository. Both *Repository
// and *CachedRepository satisfy it, so the service works the same with or
// without the cache tier.
type Store interface {
	repository.Repository[User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// Service is the use-case layer over the user store: input validation,
// tenant checks, conflict attribution, and the created notification live
// here, keeping the repositories persistence-only.
type Service struct {
	store     Store
	db        *bun.DB
	publisher notify.Publisher
	log       *zap.Logger
	validate  *validator.Validate
}

// NewService wires the service. db is needed for the transactional batch
// path; publisher and logger may be nil.
func NewService(store Store, db *bun.DB, publisher notify.Publisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		db:        db,
		publisher: publisher,
		log:       logger,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// CreateInput carries the fields a caller may set on a new user.
type CreateInput struct {
	Email    string `validate:"required,email,max=255"`
	Username string `validate:"required,min=3,max=100"`
	FullName string `validate:"max=255"`
	TenantID *uuid.UUID
}

// UpdateInput updates a user. Nil pointers leave the field unchanged.
type UpdateInput struct {
	ID       uuid.UUID `validate:"required"`
	Email    *string   `validate:"omitempty,email,max=255"`
	Username *string   `validate:"omitempty,min=3,max=100"`
	FullName *string   `validate:"omitempty,max=255"`
	IsActive *bool
}

// ListInput bounds an offset listing. The offset cap keeps deep offset
// scans off the database; callers needing to walk the full set use the
// cursor listing instead.
type ListInput struct {
	Offset         int `validate:"min=0,max=10000"`
	Limit          int `validate:"required,min=1,max=100"`
	TenantID       *uuid.UUID
	IncludeDeleted bool
}

// CursorInput bounds a cursor listing.
type CursorInput struct {
	Cursor   string
	Limit    int `validate:"required,min=1,max=100"`
	TenantID *uuid.UUID
}

// Create validates and persists a new user, then publishes the created
// event. The publish is best effort: a broker failure is logged and the
// created user is still returned.
func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	user := &User{
		Email:    in.Email,
		Username: in.Username,
		FullName: in.FullName,
		IsActive: true,
		TenantID: in.TenantID,
	}
	user.Normalize()

	created, err := s.store.Create(ctx, user)
	if err != nil {
		return nil, conflictError(err)
	}

	s.notifyCreated(ctx, created)
	return created, nil
}

// Get fetches an active user, scoped to tenantID when given. A user owned
// by a different tenant reads as not found, indistinguishable from absent.
func (s *Service) Get(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) (*User, error) {
	user, err := s.store.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	return s.tenantCheck(user, tenantID)
}

// GetByEmail fetches an active user by email, scoped to tenantID when given.
func (s *Service) GetByEmail(ctx context.Context, email string, tenantID *uuid.UUID) (*User, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.tenantCheck(user, tenantID)
}

// GetByUsername fetches an active user by username, scoped to tenantID when
// given.
func (s *Service) GetByUsername(ctx context.Context, username string, tenantID *uuid.UUID) (*User, error) {
	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.tenantCheck(user, tenantID)
}

// Update applies the set fields of in to an existing active user.
func (s *Service) Update(ctx context.Context, in UpdateInput) (*User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	user, err := s.store.GetByID(ctx, in.ID, false)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.Username != nil {
		user.Username = *in.Username
	}
	if in.FullName != nil {
		user.FullName = *in.FullName
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	user.Normalize()

	updated, err := s.store.Update(ctx, user)
	if err != nil {
		return nil, conflictError(err)
	}
	return updated, nil
}

// List returns a page of users by offset.
func (s *Service) List(ctx context.Context, in ListInput) ([]*User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	return s.store.List(ctx, repository.ListParams{
		Offset:         in.Offset,
		Limit:          in.Limit,
		TenantID:       in.TenantID,
		IncludeDeleted: in.IncludeDeleted,
	})
}

// ListDeleted returns a page of soft-deleted users.
func (s *Service) ListDeleted(ctx context.Context, in ListInput) ([]*User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	return s.store.ListDeleted(ctx, repository.ListParams{
		Offset:   in.Offset,
		Limit:    in.Limit,
		TenantID: in.TenantID,
	})
}

// ListCursor returns a keyset page of users.
func (s *Service) ListCursor(ctx context.Context, in CursorInput) (pagination.Page[User], error) {
	if err := s.validate.Struct(in); err != nil {
		return pagination.Page[User]{}, validationError(err)
	}
	return s.store.ListCursor(ctx, repository.CursorParams{
		Cursor:   in.Cursor,
		Limit:    in.Limit,
		TenantID: in.TenantID,
	})
}

// Search returns users matching f with a total count for the same filter.
func (s *Service) Search(ctx context.Context, f *filter.Filter, in ListInput) ([]*User, int, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, 0, validationError(err)
	}

	records, err := s.store.Find(ctx, f, in.Offset, in.Limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Delete soft-deletes a user. With a tenantID the user must belong to that
// tenant; a mismatch reads as not found.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) (bool, error) {
	if tenantID != nil {
		if _, err := s.Get(ctx, id, tenantID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
	}
	return s.store.Delete(ctx, id)
}

// Restore brings a soft-deleted user back and returns the restored row. A
// user that exists but is not deleted is a validation failure, not a no-op,
// so callers can distinguish "already active" from "restored".
func (s *Service) Restore(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) (*User, error) {
	user, err := s.store.GetByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if _, err := s.tenantCheck(user, tenantID); err != nil {
		return nil, err
	}
	if !user.Deleted() {
		return nil, &ValidationError{Message: "user is not deleted"}
	}

	restored, err := s.store.Restore(ctx, id)
	if err != nil {
		return nil, err
	}
	if !restored {
		return nil, repository.ErrNotFound
	}

	return s.store.GetByID(ctx, id, false)
}

// ForceDelete removes a user permanently.
func (s *Service) ForceDelete(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) (bool, error) {
	if tenantID != nil {
		user, err := s.store.GetByID(ctx, id, true)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		if _, err := s.tenantCheck(user, tenantID); err != nil {
			return false, nil
		}
	}
	return s.store.ForceDelete(ctx, id)
}

// BatchCreate inserts up to MaxBatchSize users in one transaction. The
// whole batch is rejected up front when it contains duplicate emails or
// usernames, either within the batch or against existing rows, so a batch
// either fully commits or leaves no trace.
func (s *Service) BatchCreate(ctx context.Context, inputs []CreateInput) ([]*User, error) {
	if len(inputs) == 0 {
		return nil, &ValidationError{Message: "batch is empty"}
	}
	if len(inputs) > MaxBatchSize {
		return nil, &ValidationError{Message: fmt.Sprintf("batch exceeds %d users", MaxBatchSize)}
	}
	if s.db == nil {
		return nil, fmt.Errorf("users: batch create requires a database handle")
	}

	seenEmails := make(map[string]struct{}, len(inputs))
	seenUsernames := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		if err := s.validate.Struct(in); err != nil {
			return nil, validationError(err)
		}

		email := NormalizeEmail(in.Email)
		if _, dup := seenEmails[email]; dup {
			return nil, &AlreadyExistsError{Field: "email"}
		}
		seenEmails[email] = struct{}{}

		username := NormalizeUsername(in.Username)
		if _, dup := seenUsernames[username]; dup {
			return nil, &AlreadyExistsError{Field: "username"}
		}
		seenUsernames[username] = struct{}{}
	}

	for _, in := range inputs {
		if err := s.checkAvailable(ctx, in); err != nil {
			return nil, err
		}
	}

	created := make([]*User, 0, len(inputs))
	err := repository.RunInTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		repo, err := NewRepository(tx)
		if err != nil {
			return err
		}
		for _, in := range inputs {
			user := &User{
				Email:    in.Email,
				Username: in.Username,
				FullName: in.FullName,
				IsActive: true,
				TenantID: in.TenantID,
			}
			user.Normalize()

			row, err := repo.Create(ctx, user)
			if err != nil {
				return conflictError(err)
			}
			created = append(created, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// checkAvailable rejects inputs whose email or username is already taken by
// an active user. The unique constraints remain the source of truth; this
// pre-check just turns the common case into a clean error before the
// transaction opens.
func (s *Service) checkAvailable(ctx context.Context, in CreateInput) error {
	if _, err := s.store.GetByEmail(ctx, in.Email); err == nil {
		return &AlreadyExistsError{Field: "email"}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if _, err := s.store.GetByUsername(ctx, in.Username); err == nil {
		return &AlreadyExistsError{Field: "username"}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

func (s *Service) tenantCheck(user *User, tenantID *uuid.UUID) (*User, error) {
	if tenantID == nil {
		return user, nil
	}
	if user.TenantID == nil || *user.TenantID != *tenantID {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func (s *Service) notifyCreated(ctx context.Context, user *User) {
	event := notify.CreatedEvent{
		EntityID:   user.ID,
		Email:      user.Email,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.PublishCreated(ctx, event); err != nil {
		s.log.Warn("created notification failed",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
	}
}
