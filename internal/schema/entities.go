package schema

import "regexp"

// Locales are the display-name translations carried by categorical entities.
var Locales = []string{"en", "de", "nl", "id", "ph"}

// SafeString rejects control characters and structural injection attempts in
// free-text query input.
var SafeString = regexp.MustCompile(`^[^<>{}();$\\]*$`)

var (
	regexEmail = regexp.MustCompile(`^[\w.+-]+@[\w-]+(\.[\w-]+)+$`)
	regexPhone = regexp.MustCompile(`^\+?[0-9 ()-]{4,24}$`)
)

// AdminRoles is the administrative-role allow-list used by gated deletes.
var AdminRoles = []string{"Super Admin", "Admin"}

type fieldDef struct {
	name  string
	field Field
}

func makeEntity(name string, defs []fieldDef) *Entity {
	e := &Entity{
		Name:       name,
		FieldOrder: make([]string, 0, len(defs)),
		Fields:     make(map[string]Field, len(defs)),
	}
	for _, d := range defs {
		e.FieldOrder = append(e.FieldOrder, d.name)
		e.Fields[d.name] = d.field
	}
	return e
}

func text(required, unique, search bool, min, max int, re *regexp.Regexp) Field {
	if re == nil {
		re = SafeString
	}
	return Field{
		Type: String, Required: required, Unique: unique,
		MinLength: min, MaxLength: max, Regex: re,
		Searchable: search, Selectable: true,
	}
}

func flag() Field {
	return Field{Type: Boolean, Required: true, Selectable: true}
}

func date(required bool) Field {
	return Field{Type: Date, Required: required, Selectable: true}
}

func fk(ref string, required, filterRequired bool) Field {
	return Field{
		Type: Number, Required: required, ForeignKey: true, Ref: ref,
		FilterRequired: filterRequired, Selectable: true,
	}
}

// localized appends the per-locale display-name columns used by categorical
// entities (phases, priorities, stages).
func localized(defs []fieldDef) []fieldDef {
	for _, l := range Locales {
		defs = append(defs, fieldDef{"name_" + l, text(false, false, true, 1, 191, nil)})
	}
	return defs
}

// localeSortKeys expands "<rel>.name" plus its locale variants to the same
// composite ordering with the locale column swapped in as the primary leg.
func localeSortKeys(dst map[string][]OrderedKey, rel string, tiebreak []OrderedKey) {
	dst[rel+".name"] = append([]OrderedKey{{Relation: rel, Field: "name"}}, tiebreak...)
	for _, l := range Locales {
		dst[rel+".name_"+l] = append([]OrderedKey{{Relation: rel, Field: "name_" + l}}, tiebreak...)
	}
}

func usersEntity() *Entity {
	e := makeEntity("users", []fieldDef{
		{"photo", Field{Type: String, Selectable: true, ImageFile: true}},
		{"role", fk("roles", true, false)},
		{"name", text(true, false, true, 1, 191, nil)},
		{"email", text(true, true, true, 5, 191, regexEmail)},
		{"password", Field{Type: String, Required: true, MinLength: 8, MaxLength: 191, Hashed: true}},
		{"phone", text(true, false, true, 4, 24, regexPhone)},
		{"address", text(false, false, true, 0, 191, nil)},
	})
	return e
}

func rolesEntity() *Entity {
	e := makeEntity("roles", []fieldDef{
		{"name", text(true, true, true, 1, 191, nil)},
		{"description", text(false, false, true, 0, 191, nil)},
		{"status", flag()},
	})
	e.GuardLastRow = true
	return e
}

func featuresEntity() *Entity {
	e := makeEntity("features", []fieldDef{
		{"name", text(true, true, true, 1, 191, nil)},
		{"description", text(false, false, true, 0, 191, nil)},
		{"featureCreate", flag()},
		{"featureRead", flag()},
		{"featureUpdate", flag()},
		{"featureDelete", flag()},
	})
	e.GuardLastRow = true
	return e
}

func privilegesEntity() *Entity {
	e := makeEntity("privileges", []fieldDef{
		{"role", fk("roles", true, true)},
		{"feature", fk("features", true, false)},
		{"privilegeCreate", flag()},
		{"privilegeRead", flag()},
		{"privilegeUpdate", flag()},
		{"privilegeDelete", flag()},
	})
	e.GuardLastRow = true
	e.UniquePair = []string{"role", "feature"}
	return e
}

func categoricalEntity(name string) *Entity {
	return makeEntity(name, localized([]fieldDef{
		{"name", text(true, true, true, 1, 191, nil)},
	}))
}

func currenciesEntity() *Entity {
	return makeEntity("currencies", []fieldDef{
		{"name", text(true, true, true, 1, 191, nil)},
		{"symbol", text(true, false, true, 1, 191, nil)},
	})
}

func clientsEntity() *Entity {
	return makeEntity("clients", []fieldDef{
		{"name", text(true, false, true, 1, 191, nil)},
		{"email", text(true, true, true, 5, 191, regexEmail)},
		{"phone", text(true, false, true, 4, 24, regexPhone)},
		{"address", text(false, false, true, 0, 191, nil)},
		{"country", text(true, false, true, 1, 191, nil)},
		{"state", text(false, false, true, 0, 191, nil)},
		{"city", text(false, false, true, 0, 191, nil)},
		{"zip", text(false, false, true, 0, 16, nil)},
	})
}

func tasksEntity() *Entity {
	e := makeEntity("tasks", []fieldDef{
		{"name", text(true, false, true, 1, 191, nil)},
		{"description", text(false, false, true, 0, 3000, nil)},
		{"image", Field{Type: String, Selectable: true, ImageFile: true}},
		{"file", Field{Type: String, Selectable: true, GenericFile: true}},
		{"start", date(true)},
		{"deadline", date(true)},
		{"author", fk("users", true, false)},
		{"assignee", fk("users", false, false)},
		{"priority", fk("priorities", true, false)},
		{"phase", fk("phases", true, false)},
	})
	e.JoinedSorts = map[string][]OrderedKey{
		"name": {
			{Field: "name"},
			{Field: "priorityId", Fixed: "desc"},
			{Field: "phaseId", Fixed: "asc"},
		},
	}
	tiebreak := []OrderedKey{
		{Field: "name", Fixed: "asc"},
		{Field: "phaseId", Fixed: "asc"},
	}
	localeSortKeys(e.JoinedSorts, "priority", tiebreak)
	localeSortKeys(e.JoinedSorts, "phase", []OrderedKey{
		{Field: "name", Fixed: "asc"},
		{Field: "priorityId", Fixed: "desc"},
	})
	e.DateRange = &DateRange{
		StartParam: "start", EndParam: "deadline",
		StartField: "start", EndField: "start",
		EndExactLte: true,
	}
	e.History = &History{
		Entity:  "taskhistories",
		Subject: "task",
		Tracked: []string{"phase"},
	}
	e.AdminDelete = true
	return e
}

func taskhistoriesEntity() *Entity {
	return makeEntity("taskhistories", []fieldDef{
		{"name", text(true, true, false, 1, 191, nil)},
		{"task", fk("tasks", true, true)},
		{"fromPhase", fk("phases", false, false)},
		{"toPhase", fk("phases", true, false)},
		{"changedBy", fk("users", true, false)},
	})
}

func eventsEntity() *Entity {
	e := makeEntity("events", []fieldDef{
		{"title", text(true, false, true, 1, 191, nil)},
		{"description", text(false, false, true, 0, 3000, nil)},
		{"startDateTime", date(true)},
		{"endDateTime", date(true)},
		{"user", fk("users", true, false)},
	})
	e.DateRange = &DateRange{
		StartParam: "startDateTime", EndParam: "endDateTime",
		StartField: "startDateTime", EndField: "endDateTime",
	}
	e.BulkParent = "user"
	return e
}

func schedulesEntity() *Entity {
	e := makeEntity("schedules", []fieldDef{
		{"title", text(true, false, true, 1, 191, nil)},
		{"startDateTime", date(true)},
		{"endDateTime", date(true)},
		{"user", fk("users", true, false)},
	})
	e.DateRange = &DateRange{
		StartParam: "startDateTime", EndParam: "endDateTime",
		StartField: "startDateTime", EndField: "endDateTime",
	}
	e.BulkParent = "user"
	return e
}

func transactionsEntity() *Entity {
	e := makeEntity("transactions", []fieldDef{
		{"name", text(true, false, true, 1, 191, nil)},
		{"description", text(false, false, true, 0, 3000, nil)},
		{"amount", Field{Type: BigInt, Required: true, MinLength: 1, MaxLength: 15, Selectable: true}},
		{"transactionDate", date(true)},
		{"user", fk("users", true, false)},
		{"client", fk("clients", true, false)},
		{"stage", fk("stages", true, false)},
		{"currency", fk("currencies", true, false)},
	})
	tiebreak := []OrderedKey{
		{Field: "transactionDate", Fixed: "desc"},
		{Field: "amount", Fixed: "desc"},
	}
	e.JoinedSorts = map[string][]OrderedKey{
		"name": append([]OrderedKey{{Field: "name"}}, tiebreak...),
	}
	localeSortKeys(e.JoinedSorts, "client", tiebreak)
	localeSortKeys(e.JoinedSorts, "stage", tiebreak)
	localeSortKeys(e.JoinedSorts, "currency", tiebreak)
	e.History = &History{
		Entity:  "transactionhistories",
		Subject: "transaction",
		Tracked: []string{"stage", "client", "currency"},
	}
	e.AdminDelete = true
	return e
}

func transactionhistoriesEntity() *Entity {
	return makeEntity("transactionhistories", []fieldDef{
		{"name", text(true, true, false, 1, 191, nil)},
		{"transaction", fk("transactions", true, true)},
		{"fromStage", fk("stages", false, false)},
		{"toStage", fk("stages", true, false)},
		{"fromClient", fk("clients", false, false)},
		{"toClient", fk("clients", true, false)},
		{"fromCurrency", fk("currencies", false, false)},
		{"toCurrency", fk("currencies", true, false)},
		{"changedBy", fk("users", true, false)},
	})
}

func blacklistsEntity() *Entity {
	return makeEntity("blacklists", []fieldDef{
		{"token", text(true, true, true, 1, 3000, nil)},
	})
}

var registry = func() map[string]*Entity {
	list := []*Entity{
		usersEntity(),
		rolesEntity(),
		featuresEntity(),
		privilegesEntity(),
		categoricalEntity("priorities"),
		categoricalEntity("phases"),
		categoricalEntity("stages"),
		currenciesEntity(),
		clientsEntity(),
		tasksEntity(),
		taskhistoriesEntity(),
		eventsEntity(),
		schedulesEntity(),
		transactionsEntity(),
		transactionhistoriesEntity(),
		blacklistsEntity(),
	}
	m := make(map[string]*Entity, len(list))
	for _, e := range list {
		m[e.Name] = e
	}
	return m
}()

// Lookup resolves an entity schema by name.
func Lookup(name string) (*Entity, bool) {
	e, ok := registry[name]
	return e, ok
}

// MustLookup resolves an entity schema and panics on unknown names. Intended
// for wiring code where the name is a compile-time constant.
func MustLookup(name string) *Entity {
	e, ok := registry[name]
	if !ok {
		panic("schema: unknown entity " + name)
	}
	return e
}

// Names lists every registered entity.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	return out
}
