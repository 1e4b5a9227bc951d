package engine

import (
	"context"
	"fmt"
	"regexp"

	"backoffice.org/internal/apperr"
	"backoffice.org/internal/schema"
	"backoffice.org/internal/store"
)

// connectParent verifies the referenced parent row exists and rewrites the
// collected value onto the foreign-key column.
func (g *Engine) connectParent(ctx context.Context, e *schema.Entity, key string, values store.Record) error {
	field := e.Fields[key]
	id, ok := store.Int64(values, key)
	if !ok {
		if !field.Required {
			return nil
		}
		return apperr.BadRequest(fmt.Sprintf("Invalid %s ID", key))
	}
	if _, err := g.gw.FindUnique(ctx, field.Ref, id, nil); err != nil {
		return apperr.BadRequest(fmt.Sprintf("Parent data not found: %s", field.Ref))
	}
	delete(values, key)
	values[field.Column(key)] = id
	return nil
}

func (g *Engine) connectParents(ctx context.Context, e *schema.Entity, values store.Record) error {
	for _, key := range e.ForeignKeys() {
		if _, present := values[key]; !present && !e.Fields[key].Required {
			continue
		}
		if err := g.connectParent(ctx, e, key, values); err != nil {
			return err
		}
	}
	return nil
}

// checkUniquePair is the friendly fast path for a two-column uniqueness
// rule; the table constraint remains the enforcement.
func (g *Engine) checkUniquePair(ctx context.Context, e *schema.Entity, values store.Record, notID *int64) error {
	if len(e.UniquePair) != 2 {
		return nil
	}
	eq := make(map[string]any, 2)
	for _, key := range e.UniquePair {
		col := e.Fields[key].Column(key)
		v, ok := values[col]
		if !ok {
			return nil
		}
		eq[col] = v
	}
	if _, err := g.gw.FindFirst(ctx, e.Name, store.Filter{Equals: eq, NotID: notID}); err == nil {
		return apperr.Conflict(fmt.Sprintf(
			"%s and %s combination already exists", e.UniquePair[0], e.UniquePair[1]))
	}
	return nil
}

// writeHistory records a change row for the entity's history table: the
// subject link, a to-column per tracked relation, an optional from-column
// for the relation that changed, and the acting user.
func (g *Engine) writeHistory(ctx context.Context, e *schema.Entity, rec store.Record, changed string, fromID, actorID int64) error {
	h := e.History
	if h == nil {
		return nil
	}
	id, _ := store.Int64(rec, "id")
	row := store.Record{
		"name":            g.newName(),
		h.Subject + "Id": id,
		"changedById":    actorID,
	}
	for _, f := range h.Tracked {
		if v, ok := store.Int64(rec, f+"Id"); ok {
			row["to"+title(f)+"Id"] = v
		}
	}
	if changed != "" {
		row["from"+title(changed)+"Id"] = fromID
	}
	_, err := g.gw.Create(ctx, h.Entity, row)
	return err
}

// Create validates input, connects parents and persists a new record. Tasks
// and transactions additionally get an initial history row attributed to the
// acting user.
func (g *Engine) Create(ctx context.Context, e *schema.Entity, in Input, actorID int64) (store.Record, error) {
	if err := g.ValidateRequired(e, in); err != nil {
		return nil, err
	}
	values, err := g.ValidateAndCollect(ctx, e, in, false, 0)
	if err != nil {
		return nil, err
	}
	if err := g.connectParents(ctx, e, values); err != nil {
		g.cleanup(in)
		return nil, err
	}
	if err := g.checkUniquePair(ctx, e, values, nil); err != nil {
		g.cleanup(in)
		return nil, err
	}
	rec, err := g.gw.Create(ctx, e.Name, values)
	if err != nil {
		g.cleanup(in)
		return nil, storeErr(err)
	}
	if err := g.writeHistory(ctx, e, rec, "", 0, actorID); err != nil {
		return nil, storeErr(err)
	}
	serializeBigInts(e, []store.Record{rec})
	return rec, nil
}

// Update validates input against an existing record, diffs file fields so
// replaced or cleared uploads are removed from storage, and persists the
// changes.
func (g *Engine) Update(ctx context.Context, e *schema.Entity, rawID string, in Input) (store.Record, error) {
	id, ok := safeInt(rawID)
	if !ok {
		g.cleanup(in)
		return nil, apperr.BadRequest("Invalid module ID.")
	}
	existing, err := g.gw.FindUnique(ctx, e.Name, id, nil)
	if err != nil {
		g.cleanup(in)
		return nil, apperr.BadRequest(fmt.Sprintf("%s Not Found.", e.Name))
	}

	stale, cleared := fileDiff(e, existing, in)

	for _, key := range e.ForeignKeys() {
		if !e.Fields[key].Required || in.has(key) {
			continue
		}
		if v, ok := store.Int64(existing, e.Fields[key].Column(key)); ok {
			in.Body[key] = fmt.Sprintf("%d", v)
		}
	}
	if err := g.ValidateRequired(e, in); err != nil {
		return nil, err
	}

	values, err := g.ValidateAndCollect(ctx, e, in, true, id)
	if err != nil {
		return nil, err
	}
	if err := g.connectParents(ctx, e, values); err != nil {
		g.cleanup(in)
		return nil, err
	}
	if err := g.checkUniquePair(ctx, e, values, &id); err != nil {
		g.cleanup(in)
		return nil, err
	}
	for _, key := range cleared {
		values[key] = nil
	}

	if g.storage != nil {
		for key, name := range stale {
			g.storage.Delete(e.Name, e.Fields[key].ImageFile, name)
		}
	}

	rec, err := g.gw.Update(ctx, e.Name, id, values)
	if err != nil {
		g.cleanup(in)
		return nil, storeErr(err)
	}
	serializeBigInts(e, []store.Record{rec})
	return rec, nil
}

// fileDiff compares stored file names against the incoming request. A new
// upload replaces the old file; an explicitly empty body value clears it.
// Returns the stale names to remove keyed by field, and the fields to null
// out.
func fileDiff(e *schema.Entity, existing store.Record, in Input) (map[string]string, []string) {
	stale := map[string]string{}
	var cleared []string
	for _, key := range e.FieldOrder {
		field := e.Fields[key]
		if !field.IsFile() {
			continue
		}
		current, _ := store.String(existing, key)
		if up, ok := in.Files.ForField(key); ok {
			if current != "" && up.Name != current {
				stale[key] = current
			}
			continue
		}
		if raw, present := in.Body[key]; present && raw == "" {
			if current != "" {
				stale[key] = current
			}
			cleared = append(cleared, key)
		}
	}
	return stale, cleared
}

var reDigits = regexp.MustCompile(`^\d+$`)

// Transition changes one foreign-key field of an existing record, accepting
// either the target's id or its name, and records the move in the entity's
// history when the field is tracked.
func (g *Engine) Transition(ctx context.Context, e *schema.Entity, field, rawID, value string, actorID int64) (store.Record, error) {
	f, ok := e.Field(field)
	if !ok || !f.ForeignKey {
		return nil, apperr.BadRequest("Invalid module name.")
	}
	if value == "" {
		return nil, apperr.BadRequest(fmt.Sprintf("%s value required.", title(field)))
	}
	id, ok := safeInt(rawID)
	if !ok {
		return nil, apperr.BadRequest("Invalid module ID.")
	}
	existing, err := g.gw.FindUnique(ctx, e.Name, id, nil)
	if err != nil {
		return nil, apperr.NotFound(fmt.Sprintf("%s not found.", e.Name))
	}

	var targetID int64
	if reDigits.MatchString(value) {
		n, _ := safeInt(value)
		if _, err := g.gw.FindUnique(ctx, f.Ref, n, nil); err != nil {
			return nil, apperr.BadRequest(fmt.Sprintf("Parent data not found: %s", f.Ref))
		}
		targetID = n
	} else {
		found, err := g.gw.FindFirst(ctx, f.Ref, store.Filter{Equals: map[string]any{"name": value}})
		if err != nil {
			return nil, apperr.BadRequest(fmt.Sprintf("%s not found: %s", title(field), value))
		}
		targetID, _ = store.Int64(found, "id")
	}

	column := f.Column(field)
	currentID, _ := store.Int64(existing, column)
	if currentID == targetID {
		return nil, apperr.BadRequest(fmt.Sprintf("%s is unchanged.", title(field)))
	}

	rec, err := g.gw.Update(ctx, e.Name, id, store.Record{column: targetID})
	if err != nil {
		return nil, storeErr(err)
	}

	tracked := false
	if e.History != nil {
		for _, t := range e.History.Tracked {
			if t == field {
				tracked = true
			}
		}
	}
	if tracked {
		if err := g.writeHistory(ctx, e, rec, field, currentID, actorID); err != nil {
			return nil, storeErr(err)
		}
	}
	serializeBigInts(e, []store.Record{rec})
	return rec, nil
}
