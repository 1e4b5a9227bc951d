package engine

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"backoffice.org/internal/apperr"
	"backoffice.org/internal/schema"
	"backoffice.org/internal/store"
)

// ListResult is the list response envelope.
type ListResult struct {
	Data       []store.Record `json:"data"`
	Page       int            `json:"page"`
	TotalPages int            `json:"totalPages"`
	TotalData  int64          `json:"totalData"`
}

var fixedSortKeys = []string{"id", "createdAt", "updatedAt"}

// escapeSearch neutralizes LIKE wildcards in a user search term. '#' is the
// escape character the gateway declares.
func escapeSearch(term string) string {
	term = strings.ReplaceAll(term, "#", "##")
	term = strings.ReplaceAll(term, "%", "#%")
	term = strings.ReplaceAll(term, "_", "#_")
	return term
}

func positiveParam(q url.Values, key string, def int) int {
	raw := q.Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// List executes a paginated, filtered, sorted query and returns records with
// pagination metadata.
func (g *Engine) List(ctx context.Context, e *schema.Entity, q url.Values) (*ListResult, error) {
	limit := positiveParam(q, "limit", 10)
	page := positiveParam(q, "page", 1)
	if page < 1 {
		page = 1
	}

	filter := store.Filter{}

	search := q.Get("search")
	if !schema.SafeString.MatchString(search) {
		return nil, apperr.BadRequest("Bad Request")
	}
	if fields := e.SearchFields(); len(fields) > 0 && strings.TrimSpace(search) != "" {
		filter.Search = &store.Search{
			Fields: fields,
			Term:   escapeSearch(strings.ToLower(search)),
		}
	}

	sort, err := g.sortSpec(e, q)
	if err != nil {
		return nil, err
	}

	include := e.ForeignKeys()
	if err := applyForeignKeyFilters(e, q, &filter); err != nil {
		return nil, err
	}
	if err := applyDateRange(e, q, &filter); err != nil {
		return nil, err
	}

	total, err := g.gw.Count(ctx, e.Name, filter)
	if err != nil {
		return nil, err
	}

	result := &ListResult{
		Data:      []store.Record{},
		Page:      page,
		TotalData: total,
	}
	if limit == 0 {
		return result, nil
	}
	result.TotalPages = int((total + int64(limit) - 1) / int64(limit))

	recs, err := g.gw.FindMany(ctx, e.Name, store.Query{
		Filter:  filter,
		Sort:    sort,
		Skip:    (page - 1) * limit,
		Take:    limit,
		Include: include,
	})
	if err != nil {
		return nil, err
	}
	serializeBigInts(e, recs)
	result.Data = recs
	return result, nil
}

// sortSpec resolves the sort and order parameters into a composite ordering,
// validating the key against the entity's allowed set.
func (g *Engine) sortSpec(e *schema.Entity, q url.Values) ([]store.SortKey, error) {
	sort := "updatedAt"
	if raw := q.Get("sort"); raw != "" {
		sort = raw
	}
	order := "desc"
	if q.Get("order") == "asc" {
		order = "asc"
	}

	valid := false
	if f, own := e.Fields[sort]; own {
		if f.Type == schema.Boolean {
			return nil, apperr.BadRequest(fmt.Sprintf("Invalid sort field: '%s'", sort))
		}
		valid = true
	}
	for _, k := range fixedSortKeys {
		if sort == k {
			valid = true
		}
	}
	if _, joined := e.JoinedSorts[sort]; joined {
		valid = true
	}
	if !valid {
		return nil, apperr.BadRequest(fmt.Sprintf("Invalid sort field: '%s'", sort))
	}

	if legs, ok := e.JoinedSorts[sort]; ok {
		spec := make([]store.SortKey, 0, len(legs))
		for _, leg := range legs {
			dir := leg.Fixed
			if dir == "" {
				dir = order
			}
			spec = append(spec, store.SortKey{Relation: leg.Relation, Field: leg.Field, Direction: dir})
		}
		return spec, nil
	}
	return []store.SortKey{{Field: sort, Direction: order}}, nil
}

func applyForeignKeyFilters(e *schema.Entity, q url.Values, filter *store.Filter) error {
	for _, key := range e.ForeignKeys() {
		if !q.Has(key) {
			continue
		}
		raw := q.Get(key)
		if e.Fields[key].FilterRequired && raw == "" {
			return apperr.BadRequest(fmt.Sprintf("Query parameter '%s' is required.", key))
		}
		id, ok := safeInt(raw)
		if !ok {
			return apperr.NotFound(fmt.Sprintf("Data for '%s' is empty or invalid.", key))
		}
		if filter.Equals == nil {
			filter.Equals = map[string]any{}
		}
		filter.Equals[e.Fields[key].Column(key)] = id
	}
	return nil
}

var (
	reDateOnly = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`)
	reDateHM   = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])[ T]([01]\d|2[0-3]):([0-5]\d)$`)
)

// flexTime is one parsed endpoint: either a local whole-day window or an
// exact instant.
type flexTime struct {
	gte   time.Time
	lt    time.Time
	exact *time.Time
}

func parseFlexible(raw, label string) (flexTime, error) {
	if reDateOnly.MatchString(raw) {
		day, _ := time.ParseInLocation("2006-01-02", raw, time.Local)
		return flexTime{gte: day, lt: day.AddDate(0, 0, 1)}, nil
	}
	if reDateHM.MatchString(raw) {
		normalized := strings.Replace(raw, " ", "T", 1)
		t, _ := time.ParseInLocation("2006-01-02T15:04", normalized, time.Local)
		return flexTime{exact: &t}, nil
	}
	if t, ok := parseDate(raw); ok {
		return flexTime{exact: &t}, nil
	}
	return flexTime{}, apperr.BadRequest(fmt.Sprintf("Invalid %s format.", label))
}

// buildBetween combines two endpoints into one range on the start column. A
// date-only end yields an exclusive next-day bound, an exact end is
// inclusive.
func buildBetween(startRaw, endRaw, startLabel, endLabel, field string) (store.Range, error) {
	sp, err := parseFlexible(startRaw, startLabel)
	if err != nil {
		return store.Range{}, err
	}
	ep, err := parseFlexible(endRaw, endLabel)
	if err != nil {
		return store.Range{}, err
	}

	from := sp.gte
	if sp.exact != nil {
		from = *sp.exact
	}
	r := store.Range{Field: field, Gte: &from}
	var upper time.Time
	if ep.exact != nil {
		r.Lte = ep.exact
		upper = *ep.exact
	} else {
		lt := ep.lt
		r.Lt = &lt
		upper = lt
	}
	if from.After(upper) {
		return store.Range{}, apperr.BadRequest(fmt.Sprintf("Invalid range: %s is after %s.", startLabel, endLabel))
	}
	return r, nil
}

func applyDateRange(e *schema.Entity, q url.Values, filter *store.Filter) error {
	dr := e.DateRange
	if dr == nil {
		return nil
	}
	startRaw := q.Get(dr.StartParam)
	endRaw := q.Get(dr.EndParam)

	switch {
	case startRaw != "" && endRaw != "":
		r, err := buildBetween(startRaw, endRaw, dr.StartParam, dr.EndParam, dr.StartField)
		if err != nil {
			return err
		}
		filter.Ranges = append(filter.Ranges, r)
	case startRaw != "":
		p, err := parseFlexible(startRaw, dr.StartParam)
		if err != nil {
			return err
		}
		filter.Ranges = append(filter.Ranges, rangeFrom(dr.StartField, p, false))
	case endRaw != "":
		p, err := parseFlexible(endRaw, dr.EndParam)
		if err != nil {
			return err
		}
		filter.Ranges = append(filter.Ranges, rangeFrom(dr.EndField, p, dr.EndExactLte))
	}
	return nil
}

// rangeFrom turns a single parsed endpoint into a column filter: a whole-day
// window, an exact match, or an at-or-before bound when exactLte is set.
func rangeFrom(field string, p flexTime, exactLte bool) store.Range {
	if p.exact != nil {
		if exactLte {
			return store.Range{Field: field, Lte: p.exact}
		}
		return store.Range{Field: field, Eq: p.exact}
	}
	gte, lt := p.gte, p.lt
	return store.Range{Field: field, Gte: &gte, Lt: &lt}
}

// GetOne fetches a single record by id with every relation included.
func (g *Engine) GetOne(ctx context.Context, e *schema.Entity, rawID string) (store.Record, error) {
	id, ok := safeInt(rawID)
	if !ok {
		return nil, apperr.BadRequest("Invalid module ID.")
	}
	rec, err := g.gw.FindUnique(ctx, e.Name, id, e.ForeignKeys())
	if err != nil {
		return nil, storeErr(err)
	}
	serializeBigInts(e, []store.Record{rec})
	return rec, nil
}
