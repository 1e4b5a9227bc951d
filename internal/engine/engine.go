// Package engine is the generic CRUD core: one field-metadata-driven
// implementation of listing, validation, create/update and guarded deletes
// shared by every business entity.
package engine

import (
	"errors"
	"math"
	"strconv"

	"github.com/google/uuid"

	"backoffice.org/internal/apperr"
	"backoffice.org/internal/auth"
	"backoffice.org/internal/files"
	"backoffice.org/internal/schema"
	"backoffice.org/internal/store"
)

// Engine executes schema-driven operations against the persistence gateway.
type Engine struct {
	gw      store.Gateway
	storage *files.Storage
	hash    func(string) (string, error)
	newName func() string
}

// Option configures Engine behavior.
type Option func(*Engine)

// WithHasher overrides the one-way hash applied to hashed fields (tests use
// a cheap stand-in).
func WithHasher(fn func(string) (string, error)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.hash = fn
		}
	}
}

// WithNameFunc overrides the generated-name source for history records.
func WithNameFunc(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newName = fn
		}
	}
}

// New constructs the engine over an explicit gateway and storage handle.
func New(gw store.Gateway, storage *files.Storage, opts ...Option) *Engine {
	e := &Engine{
		gw:      gw,
		storage: storage,
		hash:    auth.HashPassword,
		newName: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Input is the raw request payload: single-valued form/body fields plus the
// uploaded-file collection already written to storage.
type Input struct {
	Body  map[string]string
	Files files.Uploads
}

// has reports presence of a body field, distinguishing absent from empty.
func (in Input) has(key string) bool {
	_, ok := in.Body[key]
	return ok
}

// cleanup discards every file this request wrote to storage. Called on every
// failure path that could follow an upload.
func (g *Engine) cleanup(in Input) {
	if g.storage != nil && len(in.Files) > 0 {
		g.storage.Cleanup(in.Files)
	}
}

const maxSafeInteger = 1<<53 - 1

// safeInt parses a decimal id, rejecting values outside the safe-integer
// range the wire format guarantees.
func safeInt(raw string) (int64, bool) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	if n > maxSafeInteger || n < -maxSafeInteger {
		return 0, false
	}
	return n, true
}

// title upper-cases the first byte: "phase" → "Phase". Field names are ASCII.
func title(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

// storeErr maps gateway failures that escaped the application-level checks
// (constraint races) onto the error taxonomy.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrConflict):
		return apperr.Conflict("Data already exists")
	case errors.Is(err, store.ErrForeignKey):
		return apperr.BadRequest("Parent data not found")
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("")
	default:
		return err
	}
}

// serializeBigInts rewrites big-integer fields as strings so consumers never
// lose precision on values beyond 2^53.
func serializeBigInts(e *schema.Entity, recs []store.Record) {
	var bigFields []string
	for _, name := range e.FieldOrder {
		if e.Fields[name].Type == schema.BigInt {
			bigFields = append(bigFields, name)
		}
	}
	if len(bigFields) == 0 {
		return
	}
	for _, rec := range recs {
		for _, name := range bigFields {
			if n, ok := store.Int64(rec, name); ok {
				rec[name] = strconv.FormatInt(n, 10)
			}
		}
	}
}

// digitBounds interprets length bounds as digit-count bounds for numeric
// fields: [10^(min-1), 10^max - 1].
func digitBounds(f schema.Field) (float64, float64) {
	min := 0.0
	if f.MinLength > 1 {
		min = math.Pow10(f.MinLength - 1)
	}
	max := 9.0
	if f.MaxLength > 1 {
		max = math.Pow10(f.MaxLength) - 1
	}
	return min, max
}
