package engine

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"unicode/utf8"

	"backoffice.org/internal/apperr"
	"backoffice.org/internal/schema"
	"backoffice.org/internal/store"
)

// ValidateAndCollect runs every field check, aggregates the failures into a
// single error, and on success returns the coerced value map. Field checks
// run concurrently; results are slotted by declaration order so the
// aggregate message and its status are deterministic.
func (g *Engine) ValidateAndCollect(ctx context.Context, e *schema.Entity, in Input, isUpdate bool, updateID int64) (store.Record, error) {
	raw := make(map[string]string, len(e.FieldOrder))
	for _, key := range e.FieldOrder {
		field := e.Fields[key]
		if field.IsFile() {
			if up, ok := in.Files.ForField(key); ok {
				raw[key] = up.Name
			}
			continue
		}
		if v, ok := in.Body[key]; ok && v != "" {
			raw[key] = v
		}
	}

	slots := make([][]*apperr.Error, len(e.FieldOrder))
	var wg sync.WaitGroup
	for i, key := range e.FieldOrder {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			slots[i] = g.checkField(ctx, e, key, raw, isUpdate, updateID)
		}(i, key)
	}
	wg.Wait()

	var errs []*apperr.Error
	for _, slot := range slots {
		errs = append(errs, slot...)
	}
	if len(errs) > 0 {
		g.cleanup(in)
		return nil, apperr.Join(errs)
	}
	return g.CollectValues(e, in)
}

func (g *Engine) checkField(ctx context.Context, e *schema.Entity, key string, raw map[string]string, isUpdate bool, updateID int64) []*apperr.Error {
	field := e.Fields[key]
	value, present := raw[key]
	var errs []*apperr.Error

	if field.ForeignKey && field.Required {
		if _, ok := safeInt(value); !ok {
			errs = append(errs, apperr.BadRequest(fmt.Sprintf("Invalid %s ID", key)))
		}
	}
	if !present {
		return errs
	}

	if field.Required && !field.IsFile() && !field.ForeignKey {
		switch field.Type {
		case schema.Number, schema.BigInt:
			if n, err := strconv.ParseFloat(value, 64); err == nil {
				min, max := digitBounds(field)
				if n < min || n > max {
					errs = append(errs, apperr.BadRequest(fmt.Sprintf(
						"Field %s must be a valid number between %.0f and %.0f.", key, min, max)))
				}
			}
		case schema.String:
			length := utf8.RuneCountInString(value)
			if length < field.MinLength || length > field.MaxLength {
				errs = append(errs, apperr.BadRequest(fmt.Sprintf(
					"Field %s must be between %d and %d characters.", key, field.MinLength, field.MaxLength)))
			}
			if field.Regex != nil && !field.Regex.MatchString(value) {
				errs = append(errs, apperr.BadRequest(fmt.Sprintf(
					"Field %s must match the pattern %s.", key, field.Regex.String())))
			}
		}
	}

	if field.Unique {
		filter := store.Filter{Equals: map[string]any{field.Column(key): value}}
		if isUpdate {
			filter.NotID = &updateID
		}
		if _, err := g.gw.FindFirst(ctx, e.Name, filter); err == nil {
			errs = append(errs, apperr.Conflict(fmt.Sprintf("Field %s already exists", key)))
		}
	}
	return errs
}
