package engine

import (
	"strconv"
	"strings"
	"time"

	"backoffice.org/internal/apperr"
	"backoffice.org/internal/schema"
	"backoffice.org/internal/store"
)

// dateLayouts are the accepted timestamp shapes, most specific first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CollectValues coerces raw input into a typed value map keyed by field
// name. Unparseable numbers, big integers and dates are dropped silently;
// required-field and format violations are reported by ValidateAndCollect
// before coercion runs.
func (g *Engine) CollectValues(e *schema.Entity, in Input) (store.Record, error) {
	values := store.Record{}
	for _, key := range e.FieldOrder {
		field := e.Fields[key]
		raw, present := in.Body[key]

		if field.IsFile() {
			if up, ok := in.Files.ForField(key); ok {
				values[key] = up.Name
			}
			continue
		}
		if field.Hashed {
			if present && raw != "" {
				hashed, err := g.hash(raw)
				if err != nil {
					return nil, err
				}
				values[key] = hashed
			}
			continue
		}
		if !present {
			continue
		}

		switch field.Type {
		case schema.Boolean:
			values[key] = strings.EqualFold(raw, "true")
		case schema.Number:
			if raw == "" {
				continue
			}
			if n, err := strconv.ParseFloat(raw, 64); err == nil {
				values[key] = n
			}
		case schema.BigInt:
			if raw == "" {
				continue
			}
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				values[key] = n
			}
		case schema.Date:
			if raw == "" {
				continue
			}
			if t, ok := parseDate(raw); ok {
				values[key] = t
			}
		default:
			values[key] = raw
		}
	}
	return values, nil
}

// ValidateRequired checks every required field at once: body fields must be
// present and non-empty, file fields must have a matching upload. All
// missing names are reported in one aggregated error and any uploads already
// written are discarded.
func (g *Engine) ValidateRequired(e *schema.Entity, in Input) error {
	var missing []string
	for _, key := range e.FieldOrder {
		field := e.Fields[key]
		if !field.Required {
			continue
		}
		if field.IsFile() {
			if !in.Files.Has(key) {
				missing = append(missing, key)
			}
			continue
		}
		if raw, ok := in.Body[key]; !ok || raw == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		g.cleanup(in)
		return apperr.BadRequest("Missing required fields: " + strings.Join(missing, ", "))
	}
	return nil
}
