package users

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-entity-store/repository"
)

// AlreadyExistsError reports a uniqueness conflict attributed to a specific
// field. Field is "email", "username", or "" when the conflicting column
// could not be determined from the database error.
type AlreadyExistsError struct {
	Field string
	Err   error
}

func (e *AlreadyExistsError) Error() string {
	if e.Field == "" {
		return "users: user already exists"
	}
	return fmt.Sprintf("users: user with this %s already exists", e.Field)
}

func (e *AlreadyExistsError) Unwrap() error { return e.Err }

// IsAlreadyExists reports whether err is (or wraps) an AlreadyExistsError.
func IsAlreadyExists(err error) bool {
	var ae *AlreadyExistsError
	return errors.As(err, &ae)
}

// ValidationError reports invalid service input or an operation applied to
// an entity in the wrong state.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "users: " + e.Message
	}
	return fmt.Sprintf("users: %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// conflictError converts a repository constraint violation into an
// AlreadyExistsError with the field heuristically attributed. Other errors
// pass through unchanged.
func conflictError(err error) error {
	if err == nil || !repository.IsConstraintViolation(err) {
		return err
	}
	return &AlreadyExistsError{
		Field: repository.ConflictField(err, "email", "username"),
		Err:   err,
	}
}

// validationError flattens the first validator failure into a
// ValidationError so callers never see validator internals.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return &ValidationError{
			Field:   first.Field(),
			Message: fmt.Sprintf("failed validation on %q", first.Tag()),
		}
	}
	return &ValidationError{Message: err.Error()}
}
