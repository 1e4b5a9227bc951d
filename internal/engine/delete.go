package engine

import (
	"context"
	"fmt"
	"strings"

	"backoffice.org/internal/apperr"
	"backoffice.org/internal/schema"
	"backoffice.org/internal/store"
)

func (g *Engine) removeRowFiles(e *schema.Entity, rec store.Record) {
	if g.storage == nil {
		return
	}
	for _, key := range e.FieldOrder {
		field := e.Fields[key]
		if !field.IsFile() {
			continue
		}
		if name, ok := store.String(rec, key); ok && name != "" {
			g.storage.Delete(e.Name, field.ImageFile, name)
		}
	}
}

// Delete removes one record, enforcing the entity's guards: some entities
// only administrators may delete, and reference data must keep at least one
// row. Stored files belonging to the row are removed as well.
func (g *Engine) Delete(ctx context.Context, e *schema.Entity, rawID string, admin bool) (store.Record, error) {
	if e.AdminDelete && !admin {
		return nil, apperr.Unauthorized(fmt.Sprintf("You dont have rights to remove this %s", e.Name))
	}
	id, ok := safeInt(rawID)
	if !ok {
		return nil, apperr.BadRequest("Invalid module ID.")
	}
	existing, err := g.gw.FindUnique(ctx, e.Name, id, nil)
	if err != nil {
		return nil, apperr.BadRequest(fmt.Sprintf("%s Not Found.", e.Name))
	}
	if e.GuardLastRow {
		total, err := g.gw.Count(ctx, e.Name, store.Filter{})
		if err != nil {
			return nil, err
		}
		if total <= 1 {
			return nil, apperr.BadRequest(fmt.Sprintf("%s must be at least have 1 data.", e.Name))
		}
	}
	g.removeRowFiles(e, existing)
	rec, err := g.gw.Delete(ctx, e.Name, id)
	if err != nil {
		return nil, storeErr(err)
	}
	serializeBigInts(e, []store.Record{rec})
	return rec, nil
}

// BulkDelete removes a comma-separated id list in one pass and returns the
// removed records. Entities owned by a user reject batches spanning more
// than one owner.
func (g *Engine) BulkDelete(ctx context.Context, e *schema.Entity, rawIDs string, admin bool) ([]store.Record, error) {
	if e.AdminDelete && !admin {
		return nil, apperr.Unauthorized(fmt.Sprintf("You dont have rights to remove this %s", e.Name))
	}
	parts := strings.Split(rawIDs, ",")
	var ids []int64
	var invalid []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if n, ok := safeInt(p); ok {
			ids = append(ids, n)
		} else {
			invalid = append(invalid, p)
		}
	}
	if len(invalid) > 0 {
		return nil, apperr.BadRequest("Invalid IDs: " + strings.Join(invalid, ", "))
	}
	if len(ids) == 0 {
		return nil, apperr.BadRequest("Invalid IDs")
	}

	existing, err := g.gw.FindMany(ctx, e.Name, store.Query{Filter: store.Filter{IDIn: ids}})
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, apperr.BadRequest(fmt.Sprintf("%s Not Found.", e.Name))
	}

	if e.BulkParent != "" {
		column := e.Fields[e.BulkParent].Column(e.BulkParent)
		owners := map[int64]struct{}{}
		for _, rec := range existing {
			if v, ok := store.Int64(rec, column); ok {
				owners[v] = struct{}{}
			}
		}
		if len(owners) > 1 {
			return nil, apperr.BadRequest(fmt.Sprintf(
				"cannot bulk delete %s with multiple %s ids", e.Name, e.BulkParent))
		}
	}

	for _, rec := range existing {
		g.removeRowFiles(e, rec)
	}
	if _, err := g.gw.DeleteMany(ctx, e.Name, ids); err != nil {
		return nil, storeErr(err)
	}
	serializeBigInts(e, existing)
	return existing, nil
}
