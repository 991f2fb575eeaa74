// Package filter provides a declarative query filter builder: a Schema binds
// caller-facing filter names to (column, operator) pairs, and a Filter built
// from that schema composes every set field as a conjunctive predicate on a
// bun select query.
//
// Unset fields contribute no predicate, so a Filter can be populated
// straight from optional request parameters. The same Filter instance serves
// both the row-selecting query and the count query.
//
// Case-insensitive text operators are emitted as LOWER(column) LIKE
// LOWER(pattern) so they behave identically on PostgreSQL and sqlite. The
// array operators emit PostgreSQL syntax (@>, <@, &&, array_length) and are
// only valid against a PostgreSQL backend.
package filter

import (
	"fmt"
	"sort"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// Op is a lookup operator applied between a column and a filter value.
type Op string

const (
	Exact       Op = "exact"
	IExact      Op = "iexact"
	Contains    Op = "contains"
	IContains   Op = "icontains"
	StartsWith  Op = "startswith"
	IStartsWith Op = "istartswith"
	EndsWith    Op = "endswith"
	IEndsWith   Op = "iendswith"
	GT          Op = "gt"
	GTE         Op = "gte"
	LT          Op = "lt"
	LTE         Op = "lte"
	In          Op = "in"
	NotIn       Op = "notin"
	IsNull      Op = "isnull"

	// PostgreSQL array operators.
	ArrayContains    Op = "arraycontains"
	ArrayContainedBy Op = "arraycontainedby"
	ArrayOverlap     Op = "arrayoverlap"
	ArrayLen         Op = "arraylen"
	ArrayLenGTE      Op = "arraylengte"
	ArrayLenLTE      Op = "arraylenlte"
)

// Field binds a target column to a lookup operator. An empty Op means Exact.
type Field struct {
	Column string
	Op     Op
}

// Schema maps caller-facing filter names to field bindings. Schemas are
// built once per entity type and shared; Filters built from them are cheap
// per-request objects.
type Schema map[string]Field

// SchemaError reports an invalid schema entry.
type SchemaError struct {
	Name    string
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("filter: field %q %s", e.Name, e.Message)
}

// Validate checks that every entry names a column and a known operator.
func (s Schema) Validate() error {
	for name, field := range s {
		if field.Column == "" {
			return &SchemaError{Name: name, Message: "has no column"}
		}
		if field.Op != "" && !knownOps[field.Op] {
			return &SchemaError{Name: name, Message: fmt.Sprintf("has unknown operator %q", field.Op)}
		}
	}
	return nil
}

var knownOps = map[Op]bool{
	Exact: true, IExact: true,
	Contains: true, IContains: true,
	StartsWith: true, IStartsWith: true,
	EndsWith: true, IEndsWith: true,
	GT: true, GTE: true, LT: true, LTE: true,
	In: true, NotIn: true, IsNull: true,
	ArrayContains: true, ArrayContainedBy: true, ArrayOverlap: true,
	ArrayLen: true, ArrayLenGTE: true, ArrayLenLTE: true,
}

// Filter accumulates values for a schema's fields. Construct with
// Schema.Filter, populate with Set, then hand to a repository (or call Apply
// directly). Errors from Set are deferred and reported by Apply, so calls
// can be chained without per-call checks.
type Filter struct {
	schema Schema
	values map[string]any
	err    error
}

// Filter creates an empty Filter bound to the schema.
func (s Schema) Filter() *Filter {
	return &Filter{schema: s, values: make(map[string]any)}
}

// Set records a value for a named filter field. A nil value leaves the field
// unset, mirroring an absent request parameter. Setting a name the schema
// does not define marks the filter invalid.
func (f *Filter) Set(name string, value any) *Filter {
	if f.err != nil {
		return f
	}
	if _, ok := f.schema[name]; !ok {
		f.err = fmt.Errorf("filter: unknown field %q", name)
		return f
	}
	if value == nil {
		return f
	}
	f.values[name] = value
	return f
}

// Err returns the first error recorded by Set, if any.
func (f *Filter) Err() error { return f.err }

// Empty reports whether no fields are set.
func (f *Filter) Empty() bool { return f == nil || len(f.values) == 0 }

// Apply composes all set fields as AND predicates onto the query. When
// excludeDeleted is true a deleted_at IS NULL predicate is appended, which
// is the default visibility for find/count paths. A nil Filter applies only
// the soft-delete exclusion.
//
// Predicates are applied in sorted field-name order so generated SQL is
// deterministic.
func (f *Filter) Apply(q *bun.SelectQuery, excludeDeleted bool) (*bun.SelectQuery, error) {
	if f != nil {
		if f.err != nil {
			return nil, f.err
		}

		names := make([]string, 0, len(f.values))
		for name := range f.values {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			var err error
			q, err = applyPredicate(q, f.schema[name], f.values[name])
			if err != nil {
				return nil, err
			}
		}
	}

	if excludeDeleted {
		q = q.Where("?TableAlias.? IS NULL", bun.Ident("deleted_at"))
	}
	return q, nil
}

func applyPredicate(q *bun.SelectQuery, field Field, value any) (*bun.SelectQuery, error) {
	col := bun.Ident(field.Column)

	switch field.Op {
	case Exact, "":
		return q.Where("?TableAlias.? = ?", col, value), nil
	case IExact:
		return q.Where("LOWER(?TableAlias.?) = LOWER(?)", col, value), nil

	case Contains:
		return likePredicate(q, col, value, "%", "%", false)
	case IContains:
		return likePredicate(q, col, value, "%", "%", true)
	case StartsWith:
		return likePredicate(q, col, value, "", "%", false)
	case IStartsWith:
		return likePredicate(q, col, value, "", "%", true)
	case EndsWith:
		return likePredicate(q, col, value, "%", "", false)
	case IEndsWith:
		return likePredicate(q, col, value, "%", "", true)

	case GT:
		return q.Where("?TableAlias.? > ?", col, value), nil
	case GTE:
		return q.Where("?TableAlias.? >= ?", col, value), nil
	case LT:
		return q.Where("?TableAlias.? < ?", col, value), nil
	case LTE:
		return q.Where("?TableAlias.? <= ?", col, value), nil

	case In:
		return q.Where("?TableAlias.? IN (?)", col, bun.In(value)), nil
	case NotIn:
		return q.Where("?TableAlias.? NOT IN (?)", col, bun.In(value)), nil

	case IsNull:
		want, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("filter: isnull on %q needs a bool, got %T", field.Column, value)
		}
		if want {
			return q.Where("?TableAlias.? IS NULL", col), nil
		}
		return q.Where("?TableAlias.? IS NOT NULL", col), nil

	case ArrayContains:
		return q.Where("?TableAlias.? @> ?", col, pgdialect.Array(value)), nil
	case ArrayContainedBy:
		return q.Where("?TableAlias.? <@ ?", col, pgdialect.Array(value)), nil
	case ArrayOverlap:
		return q.Where("?TableAlias.? && ?", col, pgdialect.Array(value)), nil
	case ArrayLen:
		return q.Where("array_length(?TableAlias.?, 1) = ?", col, value), nil
	case ArrayLenGTE:
		return q.Where("array_length(?TableAlias.?, 1) >= ?", col, value), nil
	case ArrayLenLTE:
		return q.Where("array_length(?TableAlias.?, 1) <= ?", col, value), nil

	default:
		return nil, fmt.Errorf("filter: unsupported operator %q", field.Op)
	}
}

func likePredicate(q *bun.SelectQuery, col bun.Ident, value any, prefix, suffix string, insensitive bool) (*bun.SelectQuery, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("filter: %v needs a string value, got %T", col, value)
	}
	pattern := prefix + s + suffix
	if insensitive {
		return q.Where("LOWER(?TableAlias.?) LIKE LOWER(?)", col, pattern), nil
	}
	return q.Where("?TableAlias.? LIKE ?", col, pattern), nil
}
