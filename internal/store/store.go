// Package store defines the persistence gateway contract the engine executes
// against. Filters, sorts and pagination are structured values; compiling
// them to SQL is the gateway implementation's business.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound reports an absent row.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict reports a database-level uniqueness violation. The
	// engine's own uniqueness check is the user-friendly fast path; the
	// constraint is the actual enforcement.
	ErrConflict = errors.New("store: conflict")
	// ErrForeignKey reports a referential-integrity violation.
	ErrForeignKey = errors.New("store: foreign key violation")
)

// Record is one row keyed by field name. Included relations appear as nested
// Records under the foreign-key field name.
type Record map[string]any

// Search is a case-insensitive contains-OR clause across fields. The term is
// matched verbatim; escaping wildcard characters is the caller's concern.
type Search struct {
	Fields []string
	Term   string
}

// Range filters a timestamp column. Nil bounds are omitted; Eq wins when set.
type Range struct {
	Field string
	Gte   *time.Time
	Lt    *time.Time
	Lte   *time.Time
	Eq    *time.Time
}

// Filter is the AND of its present fragments. A zero Filter matches all rows.
type Filter struct {
	Equals map[string]any
	Search *Search
	Ranges []Range
	IDIn   []int64
	// NotID excludes one row, used by uniqueness checks during update.
	NotID *int64
}

// SortKey is one leg of a composite ordering. Relation names a foreign-key
// field whose joined column is sorted on.
type SortKey struct {
	Relation  string
	Field     string
	Direction string // "asc" | "desc"
}

// Query is a full list request. A non-positive Take means no limit.
type Query struct {
	Filter  Filter
	Sort    []SortKey
	Skip    int
	Take    int
	Include []string // foreign-key fields to eagerly join
}

// Gateway is the persistence collaborator. Implementations must preserve
// referential foreign-key constraints.
type Gateway interface {
	Count(ctx context.Context, entity string, f Filter) (int64, error)
	FindMany(ctx context.Context, entity string, q Query) ([]Record, error)
	FindUnique(ctx context.Context, entity string, id int64, include []string) (Record, error)
	FindFirst(ctx context.Context, entity string, f Filter) (Record, error)
	Create(ctx context.Context, entity string, data Record) (Record, error)
	Update(ctx context.Context, entity string, id int64, data Record) (Record, error)
	Delete(ctx context.Context, entity string, id int64) (Record, error)
	DeleteMany(ctx context.Context, entity string, ids []int64) (int64, error)
}
