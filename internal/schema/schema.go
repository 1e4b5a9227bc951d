// Package schema is the field-metadata registry: one declarative descriptor
// per entity field drives coercion, validation, filtering, sorting and
// projection everywhere else. Nothing in this package depends on the rest of
// the module.
package schema

import "regexp"

// FieldType tags the variant a descriptor dispatches on.
type FieldType int

const (
	String FieldType = iota
	Number
	BigInt
	Boolean
	Date
)

func (t FieldType) String() string {
	switch t {
	case String:
		return "string"
	case Number:
		return "number"
	case BigInt:
		return "bigint"
	case Boolean:
		return "boolean"
	case Date:
		return "date"
	default:
		return "unknown"
	}
}

// Field describes one entity field. Immutable at runtime.
type Field struct {
	Type       FieldType
	Required   bool
	Unique     bool
	MinLength  int
	MaxLength  int
	Regex      *regexp.Regexp
	ForeignKey bool
	Ref        string // parent entity name when ForeignKey
	// FilterRequired rejects an empty value for this foreign key's
	// same-named list query parameter.
	FilterRequired bool
	Searchable     bool
	Selectable     bool
	Hashed         bool
	ImageFile      bool
	GenericFile    bool
}

// IsFile reports whether the field is submitted as a multipart attachment.
func (f Field) IsFile() bool { return f.ImageFile || f.GenericFile }

// Column is the stored column name for the field: foreign keys are persisted
// as "<field>Id", everything else under its own name.
func (f Field) Column(name string) string {
	if f.ForeignKey {
		return name + "Id"
	}
	return name
}

// OrderedKey is one leg of a composite sort specification. An empty Fixed
// direction means the leg follows the requested order.
type OrderedKey struct {
	Relation string // parent field name; "" sorts an own column
	Field    string // column on the entity or on the relation
	Fixed    string // "asc" | "desc" | "" (follow request)
}

// DateRange declares the entity's date-window query parameters and the
// columns they filter.
type DateRange struct {
	StartParam string
	EndParam   string
	StartField string
	EndField   string
	// EndExactLte filters "field <= instant" instead of "field = instant"
	// when only the end parameter is given with an exact timestamp.
	EndExactLte bool
}

// History declares the audit trail written for state-changing operations.
// On create every tracked field is recorded as a to-value with a null
// from-value; transitions record both sides.
type History struct {
	Entity  string   // history entity name
	Subject string   // fk field on the history row pointing at the subject
	Tracked []string // subject fields whose transitions append history
}

// Entity is the schema of one business entity.
type Entity struct {
	Name       string
	FieldOrder []string
	Fields     map[string]Field
	// JoinedSorts maps extended sort keys (and own-field overrides) to
	// composite orderings with deterministic tie-breaks.
	JoinedSorts map[string][]OrderedKey
	DateRange   *DateRange
	History     *History
	// GuardLastRow rejects deleting the final remaining row.
	GuardLastRow bool
	// AdminDelete restricts delete to the administrative role allow-list.
	AdminDelete bool
	// BulkParent names the owning foreign key a bulk delete may not span.
	BulkParent string
	// UniquePair names two foreign-key fields whose column combination must
	// be unique across rows. The matching table carries the constraint; this
	// drives the friendly pre-check.
	UniquePair []string
}

// Field returns the named descriptor.
func (e *Entity) Field(name string) (Field, bool) {
	f, ok := e.Fields[name]
	return f, ok
}

// ForeignKeys lists foreign-key field names in declaration order.
func (e *Entity) ForeignKeys() []string {
	var keys []string
	for _, name := range e.FieldOrder {
		if e.Fields[name].ForeignKey {
			keys = append(keys, name)
		}
	}
	return keys
}

// SearchFields lists searchable field names in declaration order.
func (e *Entity) SearchFields() []string {
	var keys []string
	for _, name := range e.FieldOrder {
		if e.Fields[name].Searchable {
			keys = append(keys, name)
		}
	}
	return keys
}

// SortKeys lists the extended joined sort keys the entity accepts beyond its
// own fields and the fixed id/createdAt/updatedAt set.
func (e *Entity) SortKeys() []string {
	var keys []string
	for k := range e.JoinedSorts {
		if _, own := e.Fields[k]; !own {
			keys = append(keys, k)
		}
	}
	return keys
}
