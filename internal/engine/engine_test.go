package engine

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"backoffice.org/internal/apperr"
	"backoffice.org/internal/schema"
	"backoffice.org/internal/store"
)

type createdRow struct {
	entity string
	data   store.Record
}

type fakeGateway struct {
	rows      map[string][]store.Record
	created   []createdRow
	lastQuery store.Query
	nextID    int64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{rows: map[string][]store.Record{}, nextID: 1000}
}

func (f *fakeGateway) seed(entity string, recs ...store.Record) {
	f.rows[entity] = append(f.rows[entity], recs...)
}

func (f *fakeGateway) matches(rec store.Record, flt store.Filter) bool {
	for k, v := range flt.Equals {
		if fmt.Sprint(rec[k]) != fmt.Sprint(v) {
			return false
		}
	}
	if flt.NotID != nil {
		if id, _ := store.Int64(rec, "id"); id == *flt.NotID {
			return false
		}
	}
	if len(flt.IDIn) > 0 {
		id, _ := store.Int64(rec, "id")
		found := false
		for _, want := range flt.IDIn {
			if id == want {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (f *fakeGateway) Count(_ context.Context, entity string, flt store.Filter) (int64, error) {
	var n int64
	for _, rec := range f.rows[entity] {
		if f.matches(rec, flt) {
			n++
		}
	}
	return n, nil
}

func (f *fakeGateway) FindMany(_ context.Context, entity string, q store.Query) ([]store.Record, error) {
	f.lastQuery = q
	var out []store.Record
	for _, rec := range f.rows[entity] {
		if f.matches(rec, q.Filter) {
			out = append(out, rec)
		}
	}
	if q.Take > 0 && len(out) > q.Take {
		out = out[:q.Take]
	}
	return out, nil
}

func (f *fakeGateway) FindUnique(_ context.Context, entity string, id int64, _ []string) (store.Record, error) {
	for _, rec := range f.rows[entity] {
		if got, _ := store.Int64(rec, "id"); got == id {
			return rec, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeGateway) FindFirst(_ context.Context, entity string, flt store.Filter) (store.Record, error) {
	for _, rec := range f.rows[entity] {
		if f.matches(rec, flt) {
			return rec, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeGateway) Create(_ context.Context, entity string, data store.Record) (store.Record, error) {
	rec := store.Record{}
	for k, v := range data {
		rec[k] = v
	}
	f.nextID++
	rec["id"] = f.nextID
	f.rows[entity] = append(f.rows[entity], rec)
	f.created = append(f.created, createdRow{entity: entity, data: rec})
	return rec, nil
}

func (f *fakeGateway) Update(_ context.Context, entity string, id int64, data store.Record) (store.Record, error) {
	for _, rec := range f.rows[entity] {
		if got, _ := store.Int64(rec, "id"); got == id {
			for k, v := range data {
				rec[k] = v
			}
			return rec, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeGateway) Delete(_ context.Context, entity string, id int64) (store.Record, error) {
	recs := f.rows[entity]
	for i, rec := range recs {
		if got, _ := store.Int64(rec, "id"); got == id {
			f.rows[entity] = append(recs[:i], recs[i+1:]...)
			return rec, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeGateway) DeleteMany(_ context.Context, entity string, ids []int64) (int64, error) {
	var n int64
	for _, id := range ids {
		if _, err := f.Delete(context.Background(), entity, id); err == nil {
			n++
		}
	}
	return n, nil
}

func testEngine(gw *fakeGateway) *Engine {
	return New(gw, nil,
		WithHasher(func(s string) (string, error) { return "hashed:" + s, nil }),
		WithNameFunc(func() string { return "history-name" }),
	)
}

func TestListDefaultsAndPagination(t *testing.T) {
	gw := newFakeGateway()
	e := schema.MustLookup("priorities")
	for i := 0; i < 15; i++ {
		gw.seed("priorities", store.Record{"id": int64(i + 1), "name": fmt.Sprintf("p%d", i)})
	}
	g := testEngine(gw)

	res, err := g.List(context.Background(), e, url.Values{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Page != 1 || res.TotalData != 15 || res.TotalPages != 2 {
		t.Fatalf("unexpected pagination: %+v", res)
	}
	if len(res.Data) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(res.Data))
	}
	if gw.lastQuery.Take != 10 || gw.lastQuery.Skip != 0 {
		t.Fatalf("unexpected window: %+v", gw.lastQuery)
	}
}

func TestListRejectsInvalidSort(t *testing.T) {
	gw := newFakeGateway()
	g := testEngine(gw)
	e := schema.MustLookup("users")

	q := url.Values{"sort": {"nope"}}
	if _, err := g.List(context.Background(), e, q); apperr.StatusOf(err) != 400 {
		t.Fatalf("expected 400, got %v", err)
	}
	roles := schema.MustLookup("roles")
	q = url.Values{"sort": {"status"}}
	if _, err := g.List(context.Background(), roles, q); apperr.StatusOf(err) != 400 {
		t.Fatalf("boolean sort should be rejected, got %v", err)
	}
}

func TestListJoinedSortTieBreaks(t *testing.T) {
	gw := newFakeGateway()
	g := testEngine(gw)
	e := schema.MustLookup("transactions")

	q := url.Values{"sort": {"client.name"}, "order": {"asc"}}
	if _, err := g.List(context.Background(), e, q); err != nil {
		t.Fatalf("list: %v", err)
	}
	sort := gw.lastQuery.Sort
	if len(sort) != 3 {
		t.Fatalf("expected composite sort, got %+v", sort)
	}
	if sort[0].Relation != "client" || sort[0].Field != "name" || sort[0].Direction != "asc" {
		t.Fatalf("unexpected primary leg: %+v", sort[0])
	}
	if sort[1].Field != "transactionDate" || sort[1].Direction != "desc" {
		t.Fatalf("unexpected tie-break: %+v", sort[1])
	}
}

func TestListSearchEscapesWildcards(t *testing.T) {
	gw := newFakeGateway()
	g := testEngine(gw)
	e := schema.MustLookup("clients")

	q := url.Values{"search": {"50%_Off"}}
	if _, err := g.List(context.Background(), e, q); err != nil {
		t.Fatalf("list: %v", err)
	}
	s := gw.lastQuery.Filter.Search
	if s == nil {
		t.Fatalf("expected search clause")
	}
	if s.Term != "50#%#_off" {
		t.Fatalf("unexpected term %q", s.Term)
	}
	if len(s.Fields) == 0 {
		t.Fatalf("expected searchable fields")
	}
}

func TestListRejectsUnsafeSearch(t *testing.T) {
	gw := newFakeGateway()
	g := testEngine(gw)
	e := schema.MustLookup("clients")

	q := url.Values{"search": {"<script>"}}
	if _, err := g.List(context.Background(), e, q); apperr.StatusOf(err) != 400 {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestListForeignKeyFilter(t *testing.T) {
	gw := newFakeGateway()
	g := testEngine(gw)
	e := schema.MustLookup("tasks")

	q := url.Values{"author": {"7"}}
	if _, err := g.List(context.Background(), e, q); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := gw.lastQuery.Filter.Equals["authorId"]; fmt.Sprint(got) != "7" {
		t.Fatalf("expected authorId filter, got %v", gw.lastQuery.Filter.Equals)
	}

	q = url.Values{"author": {"abc"}}
	if _, err := g.List(context.Background(), e, q); apperr.StatusOf(err) != 404 {
		t.Fatalf("expected 404 for bad fk value")
	}
}

func TestListDateRangeWholeDay(t *testing.T) {
	gw := newFakeGateway()
	g := testEngine(gw)
	e := schema.MustLookup("events")

	q := url.Values{"startDateTime": {"2025-03-10"}}
	if _, err := g.List(context.Background(), e, q); err != nil {
		t.Fatalf("list: %v", err)
	}
	ranges := gw.lastQuery.Filter.Ranges
	if len(ranges) != 1 || ranges[0].Field != "startDateTime" {
		t.Fatalf("unexpected ranges: %+v", ranges)
	}
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	if !ranges[0].Gte.Equal(day) || !ranges[0].Lt.Equal(day.AddDate(0, 0, 1)) {
		t.Fatalf("unexpected window: %+v", ranges[0])
	}
}

func TestListDateRangeRejectsInverted(t *testing.T) {
	gw := newFakeGateway()
	g := testEngine(gw)
	e := schema.MustLookup("events")

	q := url.Values{"startDateTime": {"2025-03-12"}, "endDateTime": {"2025-03-10"}}
	_, err := g.List(context.Background(), e, q)
	if apperr.StatusOf(err) != 400 {
		t.Fatalf("expected 400, got %v", err)
	}
	if !strings.Contains(apperr.MessageOf(err), "Invalid range") {
		t.Fatalf("unexpected message %q", apperr.MessageOf(err))
	}
}

func TestValidateRequiredAggregates(t *testing.T) {
	gw := newFakeGateway()
	g := testEngine(gw)
	e := schema.MustLookup("clients")

	err := g.ValidateRequired(e, Input{Body: map[string]string{}})
	if apperr.StatusOf(err) != 400 {
		t.Fatalf("expected 400, got %v", err)
	}
	msg := apperr.MessageOf(err)
	if !strings.HasPrefix(msg, "Missing required fields: ") || !strings.Contains(msg, "name") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestValidateAndCollectLengthAndUnique(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("users", store.Record{"id": int64(1), "email": "taken@example.com"})
	g := testEngine(gw)
	e := schema.MustLookup("users")

	in := Input{Body: map[string]string{
		"name":     "Alice",
		"email":    "taken@example.com",
		"password": "short",
		"phone":    "+628111222333",
		"role":     "3",
	}}
	_, err := g.ValidateAndCollect(context.Background(), e, in, false, 0)
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	msg := apperr.MessageOf(err)
	if !strings.Contains(msg, "password must be between 8 and 191 characters") {
		t.Fatalf("missing length error in %q", msg)
	}
	if !strings.Contains(msg, "email already exists") {
		t.Fatalf("missing uniqueness error in %q", msg)
	}
}

func TestLengthCountsRunesNotBytes(t *testing.T) {
	gw := newFakeGateway()
	g := testEngine(gw)
	e := schema.MustLookup("clients")

	body := map[string]string{
		"name":    "Müller & Söhne",
		"email":   "kontakt@example.com",
		"phone":   "+498912345678",
		"country": "Deutschland",
		"zip":     strings.Repeat("ü", 16),
	}
	if _, err := g.ValidateAndCollect(context.Background(), e, Input{Body: body}, false, 0); err != nil {
		t.Fatalf("16 runes must fit a 16-char field: %v", err)
	}

	body["zip"] = strings.Repeat("ü", 17)
	_, err := g.ValidateAndCollect(context.Background(), e, Input{Body: body}, false, 0)
	if apperr.StatusOf(err) != 400 {
		t.Fatalf("expected 400 for 17 runes, got %v", err)
	}
}

func TestValidateAndCollectUniqueIgnoresSelfOnUpdate(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("users", store.Record{"id": int64(5), "email": "me@example.com"})
	g := testEngine(gw)
	e := schema.MustLookup("users")

	in := Input{Body: map[string]string{
		"name":     "Me",
		"email":    "me@example.com",
		"password": "longenough",
		"phone":    "+628111222333",
		"role":     "3",
	}}
	values, err := g.ValidateAndCollect(context.Background(), e, in, true, 5)
	if err != nil {
		t.Fatalf("update validation: %v", err)
	}
	if values["password"] != "hashed:longenough" {
		t.Fatalf("expected hashed password, got %v", values["password"])
	}
}

func TestCollectValuesCoercion(t *testing.T) {
	gw := newFakeGateway()
	g := testEngine(gw)
	e := schema.MustLookup("features")

	values, err := g.CollectValues(e, Input{Body: map[string]string{
		"name":          "reports",
		"featureCreate": "TRUE",
	}})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if values["featureCreate"] != true {
		t.Fatalf("boolean coercion failed: %v", values["featureCreate"])
	}
}

func TestCreateConnectsParent(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("roles", store.Record{"id": int64(3), "name": "User"})
	g := testEngine(gw)
	e := schema.MustLookup("users")

	in := Input{Body: map[string]string{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "longenough",
		"phone":    "+628111222333",
		"role":     "3",
	}}
	rec, err := g.Create(context.Background(), e, in, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got, _ := store.Int64(rec, "roleId"); got != 3 {
		t.Fatalf("expected roleId 3, got %v", rec["roleId"])
	}
	if _, present := rec["role"]; present {
		t.Fatalf("raw relation value should be dropped")
	}
}

func TestCreateRejectsMissingParent(t *testing.T) {
	gw := newFakeGateway()
	g := testEngine(gw)
	e := schema.MustLookup("users")

	in := Input{Body: map[string]string{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "longenough",
		"phone":    "+628111222333",
		"role":     "99",
	}}
	_, err := g.Create(context.Background(), e, in, 1)
	if apperr.StatusOf(err) != 400 {
		t.Fatalf("expected 400, got %v", err)
	}
	if apperr.MessageOf(err) != "Parent data not found: roles" {
		t.Fatalf("unexpected message %q", apperr.MessageOf(err))
	}
}

func TestPrivilegePairMustBeUnique(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("roles", store.Record{"id": int64(2), "name": "Admin"})
	gw.seed("features", store.Record{"id": int64(5), "name": "tasks"})
	gw.seed("features", store.Record{"id": int64(6), "name": "events"})
	gw.seed("privileges", store.Record{
		"id": int64(11), "roleId": int64(2), "featureId": int64(5),
		"privilegeRead": true,
	})
	g := testEngine(gw)
	e := schema.MustLookup("privileges")

	in := Input{Body: map[string]string{
		"role": "2", "feature": "5",
		"privilegeCreate": "false", "privilegeRead": "true",
		"privilegeUpdate": "false", "privilegeDelete": "false",
	}}
	_, err := g.Create(context.Background(), e, in, 1)
	if apperr.StatusOf(err) != 409 {
		t.Fatalf("expected 409 for duplicate pair, got %v", err)
	}

	in.Body["feature"] = "6"
	rec, err := g.Create(context.Background(), e, in, 1)
	if err != nil {
		t.Fatalf("distinct pair must pass: %v", err)
	}

	// Moving the new row onto the taken pair conflicts; keeping its own
	// pair does not.
	id := fmt.Sprint(rec["id"])
	in.Body["feature"] = "5"
	if _, err := g.Update(context.Background(), e, id, in); apperr.StatusOf(err) != 409 {
		t.Fatalf("expected 409 on update collision, got %v", err)
	}
	in.Body["feature"] = "6"
	if _, err := g.Update(context.Background(), e, id, in); err != nil {
		t.Fatalf("self pair must pass on update: %v", err)
	}
}

func TestCreateWritesInitialHistory(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("users", store.Record{"id": int64(1), "name": "Author"})
	gw.seed("priorities", store.Record{"id": int64(2), "name": "High"})
	gw.seed("phases", store.Record{"id": int64(4), "name": "Todo"})
	g := testEngine(gw)
	e := schema.MustLookup("tasks")

	in := Input{Body: map[string]string{
		"name":     "Ship release",
		"start":    "2025-03-10",
		"deadline": "2025-03-20",
		"author":   "1",
		"priority": "2",
		"phase":    "4",
	}}
	rec, err := g.Create(context.Background(), e, in, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var hist store.Record
	for _, c := range gw.created {
		if c.entity == "taskhistories" {
			hist = c.data
		}
	}
	if hist == nil {
		t.Fatalf("expected taskhistories row")
	}
	taskID, _ := store.Int64(rec, "id")
	if got, _ := store.Int64(hist, "taskId"); got != taskID {
		t.Fatalf("history not linked to task: %+v", hist)
	}
	if got, _ := store.Int64(hist, "toPhaseId"); got != 4 {
		t.Fatalf("expected toPhaseId 4: %+v", hist)
	}
	if _, present := hist["fromPhaseId"]; present {
		t.Fatalf("initial history must not carry a from column")
	}
	if hist["name"] != "history-name" {
		t.Fatalf("expected generated name, got %v", hist["name"])
	}
}

func TestUpdateRequiresScalarFields(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("users", store.Record{"id": int64(1), "name": "Author"})
	gw.seed("priorities", store.Record{"id": int64(2), "name": "High"})
	gw.seed("phases", store.Record{"id": int64(4), "name": "Todo"})
	gw.seed("tasks", store.Record{
		"id": int64(9), "name": "Ship", "authorId": int64(1),
		"priorityId": int64(2), "phaseId": int64(4),
	})
	g := testEngine(gw)
	e := schema.MustLookup("tasks")

	_, err := g.Update(context.Background(), e, "9", Input{Body: map[string]string{
		"description": "notes only",
	}})
	if apperr.StatusOf(err) != 400 {
		t.Fatalf("expected 400, got %v", err)
	}
	msg := apperr.MessageOf(err)
	if !strings.HasPrefix(msg, "Missing required fields: ") || !strings.Contains(msg, "name") {
		t.Fatalf("unexpected message %q", msg)
	}
	if got, _ := store.String(gw.rows["tasks"][0], "description"); got != "" {
		t.Fatalf("rejected update must not persist: %v", gw.rows["tasks"][0])
	}

	_, err = g.Update(context.Background(), e, "9", Input{Body: map[string]string{
		"name":     "",
		"start":    "2025-03-10",
		"deadline": "2025-03-20",
	}})
	if apperr.StatusOf(err) != 400 {
		t.Fatalf("blank required field should be rejected, got %v", err)
	}
}

func TestTransitionByNameWritesHistory(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("phases", store.Record{"id": int64(4), "name": "Todo"}, store.Record{"id": int64(5), "name": "Done"})
	gw.seed("tasks", store.Record{"id": int64(9), "name": "Ship", "phaseId": int64(4)})
	g := testEngine(gw)
	e := schema.MustLookup("tasks")

	rec, err := g.Transition(context.Background(), e, "phase", "9", "Done", 1)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if got, _ := store.Int64(rec, "phaseId"); got != 5 {
		t.Fatalf("expected phaseId 5, got %v", rec["phaseId"])
	}

	var hist store.Record
	for _, c := range gw.created {
		if c.entity == "taskhistories" {
			hist = c.data
		}
	}
	if hist == nil {
		t.Fatalf("expected history row")
	}
	if got, _ := store.Int64(hist, "fromPhaseId"); got != 4 {
		t.Fatalf("expected fromPhaseId 4: %+v", hist)
	}
	if got, _ := store.Int64(hist, "toPhaseId"); got != 5 {
		t.Fatalf("expected toPhaseId 5: %+v", hist)
	}
}

func TestTransitionRejectsUnchanged(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("phases", store.Record{"id": int64(4), "name": "Todo"})
	gw.seed("tasks", store.Record{"id": int64(9), "name": "Ship", "phaseId": int64(4)})
	g := testEngine(gw)
	e := schema.MustLookup("tasks")

	_, err := g.Transition(context.Background(), e, "phase", "9", "4", 1)
	if apperr.StatusOf(err) != 400 {
		t.Fatalf("expected 400, got %v", err)
	}
	if apperr.MessageOf(err) != "Phase is unchanged." {
		t.Fatalf("unexpected message %q", apperr.MessageOf(err))
	}
}

func TestTransitionUntrackedSkipsHistory(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("priorities", store.Record{"id": int64(2), "name": "High"}, store.Record{"id": int64(3), "name": "Low"})
	gw.seed("tasks", store.Record{"id": int64(9), "name": "Ship", "priorityId": int64(2)})
	g := testEngine(gw)
	e := schema.MustLookup("tasks")

	if _, err := g.Transition(context.Background(), e, "priority", "9", "3", 1); err != nil {
		t.Fatalf("transition: %v", err)
	}
	for _, c := range gw.created {
		if c.entity == "taskhistories" {
			t.Fatalf("priority change must not write history")
		}
	}
}

func TestDeleteGuards(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("roles", store.Record{"id": int64(1), "name": "Super Admin"})
	g := testEngine(gw)

	_, err := g.Delete(context.Background(), schema.MustLookup("roles"), "1", false)
	if apperr.StatusOf(err) != 400 {
		t.Fatalf("expected last-row guard, got %v", err)
	}
	if apperr.MessageOf(err) != "roles must be at least have 1 data." {
		t.Fatalf("unexpected message %q", apperr.MessageOf(err))
	}

	gw.seed("tasks", store.Record{"id": int64(9), "name": "Ship"})
	_, err = g.Delete(context.Background(), schema.MustLookup("tasks"), "9", false)
	if apperr.StatusOf(err) != 401 {
		t.Fatalf("expected admin gate, got %v", err)
	}

	rec, err := g.Delete(context.Background(), schema.MustLookup("tasks"), "9", true)
	if err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if got, _ := store.Int64(rec, "id"); got != 9 {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestBulkDeleteValidation(t *testing.T) {
	gw := newFakeGateway()
	g := testEngine(gw)
	e := schema.MustLookup("events")

	_, err := g.BulkDelete(context.Background(), e, "1,abc,2", false)
	if apperr.StatusOf(err) != 400 || apperr.MessageOf(err) != "Invalid IDs: abc" {
		t.Fatalf("unexpected error %v", err)
	}

	_, err = g.BulkDelete(context.Background(), e, "", false)
	if apperr.StatusOf(err) != 400 || apperr.MessageOf(err) != "Invalid IDs" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestBulkDeleteRejectsMultipleOwners(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("events",
		store.Record{"id": int64(1), "title": "a", "userId": int64(1)},
		store.Record{"id": int64(2), "title": "b", "userId": int64(2)},
	)
	g := testEngine(gw)
	e := schema.MustLookup("events")

	_, err := g.BulkDelete(context.Background(), e, "1,2", false)
	if apperr.StatusOf(err) != 400 {
		t.Fatalf("expected 400, got %v", err)
	}
	if !strings.Contains(apperr.MessageOf(err), "multiple user ids") {
		t.Fatalf("unexpected message %q", apperr.MessageOf(err))
	}

	removed, err := g.BulkDelete(context.Background(), e, "1", false)
	if err != nil || len(removed) != 1 {
		t.Fatalf("expected single delete, got %d %v", len(removed), err)
	}
}

func TestBigIntSerializedAsString(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("transactions", store.Record{"id": int64(1), "name": "t", "amount": int64(9007199254740993)})
	g := testEngine(gw)
	e := schema.MustLookup("transactions")

	res, err := g.List(context.Background(), e, url.Values{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Data[0]["amount"] != "9007199254740993" {
		t.Fatalf("expected string amount, got %v", res.Data[0]["amount"])
	}
}
