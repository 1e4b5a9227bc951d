package engine

import (
	"context"
	"fmt"

	"backoffice.org/internal/apperr"
	"backoffice.org/internal/schema"
	"backoffice.org/internal/store"
)

// SetFlag flips one boolean column of an existing record. The label names
// the flag family in error messages ("feature", "privilege", "status").
func (g *Engine) SetFlag(ctx context.Context, e *schema.Entity, field, rawID, rawValue, label string) (store.Record, error) {
	f, ok := e.Field(field)
	if !ok || f.Type != schema.Boolean {
		return nil, apperr.BadRequest("Invalid module name.")
	}
	var status bool
	switch rawValue {
	case "true":
		status = true
	case "false":
		status = false
	default:
		return nil, apperr.BadRequest(fmt.Sprintf("Invalid %s value.", label))
	}
	id, ok := safeInt(rawID)
	if !ok {
		return nil, apperr.BadRequest("Invalid module ID.")
	}
	if _, err := g.gw.FindUnique(ctx, e.Name, id, nil); err != nil {
		return nil, apperr.NotFound(fmt.Sprintf("%s not found.", e.Name))
	}
	rec, err := g.gw.Update(ctx, e.Name, id, store.Record{field: status})
	if err != nil {
		return nil, storeErr(err)
	}
	return rec, nil
}
