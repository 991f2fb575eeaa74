package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// Sentinel errors returned by repositories. Constraint violations use the
// structured ConstraintViolationError instead, since callers need the
// offending column.
var (
	// ErrNotFound reports that an entity is absent or excluded by the
	// current visibility filter (soft-deleted when not requested, or owned
	// by a different tenant — the two are deliberately indistinguishable).
	ErrNotFound = errors.New("repository: entity not found")

	// ErrStoreUnavailable reports a connectivity or timeout failure talking
	// to the backing store. These are transient: callers may retry with
	// backoff. Constraint violations never map here — they are
	// deterministic and retrying cannot help.
	ErrStoreUnavailable = errors.New("repository: store unavailable")
)

// ConstraintViolationError reports a backing-store constraint broken by a
// write, most commonly a uniqueness conflict. Column is a best-effort guess
// parsed from the driver's error text; Constraint is the index or constraint
// name when the driver reports one. Use ConflictField to attribute the
// violation to a known set of candidate columns.
type ConstraintViolationError struct {
	Constraint string
	Column     string
	Err        error
}

func (e *ConstraintViolationError) Error() string {
	switch {
	case e.Column != "":
		return fmt.Sprintf("repository: constraint violation on column %q: %v", e.Column, e.Err)
	case e.Constraint != "":
		return fmt.Sprintf("repository: constraint violation (%s): %v", e.Constraint, e.Err)
	default:
		return fmt.Sprintf("repository: constraint violation: %v", e.Err)
	}
}

func (e *ConstraintViolationError) Unwrap() error { return e.Err }

// IsConstraintViolation reports whether err is (or wraps) a constraint
// violation.
func IsConstraintViolation(err error) bool {
	var cv *ConstraintViolationError
	return errors.As(err, &cv)
}

// ConflictField attributes a constraint violation to one of the candidate
// column names by scanning the driver's error text, mirroring how
// applications identify "duplicate email" vs "duplicate username" from
// opaque database errors. It returns the first candidate mentioned in the
// error, or "" when err is not a constraint violation or no candidate
// matches.
func ConflictField(err error, candidates ...string) string {
	var cv *ConstraintViolationError
	if !errors.As(err, &cv) {
		return ""
	}

	text := strings.ToLower(cv.Constraint + " " + cv.Column)
	if cv.Err != nil {
		text += " " + strings.ToLower(cv.Err.Error())
	}
	for _, candidate := range candidates {
		if candidate != "" && strings.Contains(text, strings.ToLower(candidate)) {
			return candidate
		}
	}
	return ""
}

// Classify maps driver-level failures into the repository error taxonomy.
// Already-classified errors pass through untouched, so it is safe to apply
// at every layer boundary. Anything unrecognized is returned unchanged.
// Repositories in this package classify their own errors; Classify exists
// for callers that run raw queries or transactions alongside them.
func Classify(err error) error {
	return classify(err)
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStoreUnavailable) || IsConstraintViolation(err) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if cv, ok := constraintViolation(err); ok {
		return cv
	}
	if isConnectivity(err) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}

// constraintViolation detects constraint failures from the error text. The
// SQLSTATE class 23 codes cover PostgreSQL; the plain-text variants cover
// sqlite and MySQL, which embed the constraint in the message instead.
func constraintViolation(err error) (*ConstraintViolationError, bool) {
	text := strings.ToLower(err.Error())

	unique := strings.Contains(text, "sqlstate 23505") ||
		strings.Contains(text, "sqlstate=23505") ||
		strings.Contains(text, "duplicate key value") ||
		strings.Contains(text, "unique constraint failed") ||
		strings.Contains(text, "duplicate entry")
	other := strings.Contains(text, "sqlstate 23502") ||
		strings.Contains(text, "not-null constraint") ||
		strings.Contains(text, "not null constraint failed") ||
		strings.Contains(text, "sqlstate 23503") ||
		strings.Contains(text, "foreign key constraint") ||
		strings.Contains(text, "sqlstate 23514") ||
		strings.Contains(text, "check constraint")

	if !unique && !other {
		return nil, false
	}

	cv := &ConstraintViolationError{Err: err}
	cv.Constraint = quotedName(err.Error())
	cv.Column = violatedColumn(text)
	return cv, true
}

// violatedColumn extracts the column from the two formats that actually name
// one: sqlite's "UNIQUE constraint failed: users.email" and PostgreSQL's
// detail line "Key (email)=(...) already exists".
func violatedColumn(text string) string {
	if _, after, ok := strings.Cut(text, "constraint failed: "); ok {
		first := after
		if head, _, ok := strings.Cut(first, ","); ok {
			first = head
		}
		first = strings.TrimSpace(first)
		if _, col, ok := strings.Cut(first, "."); ok {
			return strings.TrimSpace(col)
		}
		return first
	}
	if _, after, ok := strings.Cut(text, "key ("); ok {
		if col, _, ok := strings.Cut(after, ")"); ok {
			return strings.TrimSpace(col)
		}
	}
	return ""
}

// quotedName pulls the first double-quoted identifier out of an error
// message, which is where PostgreSQL reports constraint names.
func quotedName(s string) string {
	if _, after, ok := strings.Cut(s, `"`); ok {
		if name, _, ok := strings.Cut(after, `"`); ok {
			return name
		}
	}
	return ""
}

func isConnectivity(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	text := strings.ToLower(err.Error())
	return strings.Contains(text, "connection refused") ||
		strings.Contains(text, "connection reset") ||
		strings.Contains(text, "broken pipe") ||
		strings.Contains(text, "i/o timeout")
}
