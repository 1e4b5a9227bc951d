// Package pg implements the persistence gateway on PostgreSQL via
// database/sql and the pgx stdlib driver. Filters, sorts and includes are
// compiled to SQL; all identifiers come from the entity registry, never from
// request input.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"backoffice.org/internal/schema"
	"backoffice.org/internal/store"
)

type Gateway struct {
	db *sql.DB
}

var _ store.Gateway = (*Gateway)(nil)

func Open(dsn string) (*Gateway, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Gateway{db: db}, nil
}

// NewGateway wraps an existing handle, used by tests and the seeder.
func NewGateway(db *sql.DB) *Gateway { return &Gateway{db: db} }

func (g *Gateway) Close() error { return g.db.Close() }

func (g *Gateway) DB() *sql.DB { return g.db }

// quote wraps an identifier in double quotes. Column names are camelCase so
// quoting is mandatory.
func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, ``) + `"`
}

const relPrefix = "__rel_"

func lookup(entity string) (*schema.Entity, error) {
	e, ok := schema.Lookup(entity)
	if !ok {
		return nil, fmt.Errorf("pg: unknown entity %q", entity)
	}
	return e, nil
}

// mapError translates driver failures onto the gateway sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return store.ErrConflict
		case "23503":
			return store.ErrForeignKey
		}
	}
	return err
}

// whereClause compiles a filter into SQL fragments ANDed together. The
// argument list continues from the given offset.
func whereClause(f store.Filter, args []any) (string, []any) {
	var frags []string
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, col := range sortedKeys(f.Equals) {
		frags = append(frags, fmt.Sprintf("t.%s = %s", quote(col), next(f.Equals[col])))
	}
	if f.Search != nil && len(f.Search.Fields) > 0 {
		var ors []string
		for _, field := range f.Search.Fields {
			ors = append(ors, fmt.Sprintf("lower(t.%s) like %s escape '#'",
				quote(field), next("%"+f.Search.Term+"%")))
		}
		frags = append(frags, "("+strings.Join(ors, " or ")+")")
	}
	for _, r := range f.Ranges {
		col := "t." + quote(r.Field)
		switch {
		case r.Eq != nil:
			frags = append(frags, fmt.Sprintf("%s = %s", col, next(*r.Eq)))
		default:
			if r.Gte != nil {
				frags = append(frags, fmt.Sprintf("%s >= %s", col, next(*r.Gte)))
			}
			if r.Lt != nil {
				frags = append(frags, fmt.Sprintf("%s < %s", col, next(*r.Lt)))
			}
			if r.Lte != nil {
				frags = append(frags, fmt.Sprintf("%s <= %s", col, next(*r.Lte)))
			}
		}
	}
	if len(f.IDIn) > 0 {
		holders := make([]string, 0, len(f.IDIn))
		for _, id := range f.IDIn {
			holders = append(holders, next(id))
		}
		frags = append(frags, fmt.Sprintf(`t."id" in (%s)`, strings.Join(holders, ", ")))
	}
	if f.NotID != nil {
		frags = append(frags, fmt.Sprintf(`t."id" <> %s`, next(*f.NotID)))
	}

	if len(frags) == 0 {
		return "", args
	}
	return " where " + strings.Join(frags, " and "), args
}

// sortedKeys keeps generated SQL deterministic for tests and logs.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

func direction(d string) string {
	if d == "asc" {
		return "asc"
	}
	return "desc"
}

// selectQuery builds the full find statement: base columns, one json column
// per included relation, joins for includes and relation sorts.
func selectQuery(e *schema.Entity, q store.Query) (string, []any) {
	var sel strings.Builder
	sel.WriteString("select t.*")

	joins := map[string]bool{}
	var joinOrder []string
	addJoin := func(rel string) {
		if !joins[rel] {
			joins[rel] = true
			joinOrder = append(joinOrder, rel)
		}
	}
	for _, rel := range q.Include {
		addJoin(rel)
		sel.WriteString(fmt.Sprintf(", row_to_json(%s.*) as %s", quote(rel), quote(relPrefix+rel)))
	}
	for _, s := range q.Sort {
		if s.Relation != "" {
			addJoin(s.Relation)
		}
	}

	sel.WriteString(" from " + quote(e.Name) + " as t")
	for _, rel := range joinOrder {
		f := e.Fields[rel]
		sel.WriteString(fmt.Sprintf(" left join %s as %s on %s.\"id\" = t.%s",
			quote(f.Ref), quote(rel), quote(rel), quote(f.Column(rel))))
	}

	where, args := whereClause(q.Filter, nil)
	sel.WriteString(where)

	if len(q.Sort) > 0 {
		var legs []string
		for _, s := range q.Sort {
			if s.Relation != "" {
				legs = append(legs, fmt.Sprintf("%s.%s %s", quote(s.Relation), quote(s.Field), direction(s.Direction)))
			} else {
				legs = append(legs, fmt.Sprintf("t.%s %s", quote(s.Field), direction(s.Direction)))
			}
		}
		sel.WriteString(" order by " + strings.Join(legs, ", "))
	}
	if q.Take > 0 {
		args = append(args, q.Take)
		sel.WriteString(fmt.Sprintf(" limit $%d", len(args)))
	}
	if q.Skip > 0 {
		args = append(args, q.Skip)
		sel.WriteString(fmt.Sprintf(" offset $%d", len(args)))
	}
	return sel.String(), args
}

// scanRecords reads arbitrary rows into Records. Relation json columns are
// decoded into nested Records under the relation field name.
func scanRecords(rows *sql.Rows) ([]store.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []store.Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := store.Record{}
		for i, col := range cols {
			v := values[i]
			if rel, ok := strings.CutPrefix(col, relPrefix); ok {
				rec[rel] = decodeRelation(v)
				continue
			}
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			rec[col] = v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func decodeRelation(v any) any {
	var raw []byte
	switch b := v.(type) {
	case []byte:
		raw = b
	case string:
		raw = []byte(b)
	default:
		return nil
	}
	var rel store.Record
	if err := json.Unmarshal(raw, &rel); err != nil {
		return nil
	}
	return rel
}

func (g *Gateway) Count(ctx context.Context, entity string, f store.Filter) (int64, error) {
	e, err := lookup(entity)
	if err != nil {
		return 0, err
	}
	where, args := whereClause(f, nil)
	var n int64
	err = g.db.QueryRowContext(ctx, "select count(*) from "+quote(e.Name)+" as t"+where, args...).Scan(&n)
	return n, mapError(err)
}

func (g *Gateway) FindMany(ctx context.Context, entity string, q store.Query) ([]store.Record, error) {
	e, err := lookup(entity)
	if err != nil {
		return nil, err
	}
	query, args := selectQuery(e, q)
	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (g *Gateway) FindUnique(ctx context.Context, entity string, id int64, include []string) (store.Record, error) {
	e, err := lookup(entity)
	if err != nil {
		return nil, err
	}
	q := store.Query{
		Filter:  store.Filter{Equals: map[string]any{"id": id}},
		Take:    1,
		Include: include,
	}
	query, args := selectQuery(e, q)
	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, store.ErrNotFound
	}
	return recs[0], nil
}

func (g *Gateway) FindFirst(ctx context.Context, entity string, f store.Filter) (store.Record, error) {
	e, err := lookup(entity)
	if err != nil {
		return nil, err
	}
	query, args := selectQuery(e, store.Query{Filter: f, Take: 1})
	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, store.ErrNotFound
	}
	return recs[0], nil
}

func (g *Gateway) Create(ctx context.Context, entity string, data store.Record) (store.Record, error) {
	e, err := lookup(entity)
	if err != nil {
		return nil, err
	}
	cols := sortedKeysRecord(data)
	var names, holders []string
	var args []any
	for _, col := range cols {
		names = append(names, quote(col))
		args = append(args, data[col])
		holders = append(holders, fmt.Sprintf("$%d", len(args)))
	}
	query := fmt.Sprintf("insert into %s (%s) values (%s) returning *",
		quote(e.Name), strings.Join(names, ", "), strings.Join(holders, ", "))
	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, mapError(err)
	}
	if len(recs) == 0 {
		return nil, store.ErrNotFound
	}
	return recs[0], nil
}

func (g *Gateway) Update(ctx context.Context, entity string, id int64, data store.Record) (store.Record, error) {
	e, err := lookup(entity)
	if err != nil {
		return nil, err
	}
	cols := sortedKeysRecord(data)
	var sets []string
	var args []any
	for _, col := range cols {
		args = append(args, data[col])
		sets = append(sets, fmt.Sprintf("%s = $%d", quote(col), len(args)))
	}
	sets = append(sets, `"updatedAt" = now()`)
	args = append(args, id)
	query := fmt.Sprintf("update %s set %s where \"id\" = $%d returning *",
		quote(e.Name), strings.Join(sets, ", "), len(args))
	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, mapError(err)
	}
	if len(recs) == 0 {
		return nil, store.ErrNotFound
	}
	return recs[0], nil
}

func (g *Gateway) Delete(ctx context.Context, entity string, id int64) (store.Record, error) {
	e, err := lookup(entity)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("delete from %s where \"id\" = $1 returning *", quote(e.Name))
	rows, err := g.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, mapError(err)
	}
	if len(recs) == 0 {
		return nil, store.ErrNotFound
	}
	return recs[0], nil
}

func (g *Gateway) DeleteMany(ctx context.Context, entity string, ids []int64) (int64, error) {
	e, err := lookup(entity)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	holders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
		holders = append(holders, fmt.Sprintf("$%d", len(args)))
	}
	query := fmt.Sprintf(`delete from %s where "id" in (%s)`, quote(e.Name), strings.Join(holders, ", "))
	res, err := g.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return res.RowsAffected()
}

func sortedKeysRecord(r store.Record) []string {
	m := make(map[string]any, len(r))
	for k, v := range r {
		m[k] = v
	}
	return sortedKeys(m)
}
