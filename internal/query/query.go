// Package query turns list request parameters into SQL: filtering, sorting,
// field selection and pagination, plus a total-count query over the same
// filter.
package query

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Pagination defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// reserved parameters are never treated as filters.
var reserved = map[string]bool{"page": true, "sort": true, "limit": true, "fields": true}

var operators = map[string]string{"gte": ">=", "gt": ">", "lte": "<=", "lt": "<"}

var filterKey = regexp.MustCompile(`^([A-Za-z0-9_]+)\[([A-Za-z]+)\]$`)

// falseCond matches no rows. Unknown fields filter everything out instead of
// failing the request.
const falseCond = "FALSE"

type clause struct {
	cond string
	args []any
}

// Query is a chainable list query. Methods may be called in any order.
// The first conversion failure is kept and reported by Err.
type Query struct {
	schema Schema
	params url.Values

	where    []clause
	order    []string
	fields   []string
	selected bool

	page      int
	limit     int
	paginated bool

	err error
}

// New starts a query over schema from the raw request parameters.
func New(schema Schema, params url.Values) *Query {
	if params == nil {
		params = url.Values{}
	}
	return &Query{schema: schema, params: params}
}

// Where adds a precondition with ? placeholders, such as a visibility scope.
func (q *Query) Where(cond string, args ...any) *Query {
	q.where = append(q.where, clause{cond: "(" + cond + ")", args: args})
	return q
}

// Filter turns every non-reserved parameter into an equality or, with a
// [gte|gt|lte|lt] suffix, a comparison.
func (q *Query) Filter() *Query {
	keys := make([]string, 0, len(q.params))
	for k := range q.params {
		if !reserved[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		name, op := key, "="
		if m := filterKey.FindStringSubmatch(key); m != nil {
			name = m[1]
			sqlOp, ok := operators[m[2]]
			if !ok {
				q.where = append(q.where, clause{cond: falseCond})
				continue
			}
			op = sqlOp
		}

		field, ok := q.schema.Lookup(name)
		if !ok {
			q.where = append(q.where, clause{cond: falseCond})
			continue
		}

		for _, raw := range q.params[key] {
			q.where = append(q.where, q.condition(field, op, raw))
		}
	}
	return q
}

func (q *Query) condition(field Field, op, raw string) clause {
	v, err := field.convert(raw)
	if err != nil {
		if q.err == nil {
			q.err = err
		}
		return clause{cond: falseCond}
	}
	if field.Kind == UUIDList {
		if op != "=" {
			return clause{cond: falseCond}
		}
		return clause{cond: "?::uuid = ANY(" + field.Column + ")", args: []any{v}}
	}
	return clause{cond: field.Column + " " + op + " ?", args: []any{v}}
}

// Sort orders by the comma separated keys of the sort parameter; a leading
// "-" sorts descending. Unknown keys are ignored. Without usable keys the
// newest records come first.
func (q *Query) Sort() *Query {
	q.order = q.order[:0]
	for _, key := range splitList(q.params.Get("sort")) {
		dir := "ASC"
		if strings.HasPrefix(key, "-") {
			dir, key = "DESC", key[1:]
		}
		if field, ok := q.schema.Lookup(key); ok {
			q.order = append(q.order, field.Column+" "+dir)
		}
	}
	if len(q.order) == 0 {
		q.order = []string{"created_at DESC", "id ASC"}
	}
	return q
}

// Select projects the fields listed in the fields parameter. The id is
// always kept. Without usable fields every field except hidden ones is kept.
func (q *Query) Select() *Query {
	q.selected = true
	q.fields = q.fields[:0]
	for _, name := range splitList(q.params.Get("fields")) {
		if _, ok := q.schema.Lookup(name); ok && name != "id" {
			q.fields = append(q.fields, name)
		}
	}
	if len(q.fields) > 0 {
		q.fields = append([]string{"id"}, q.fields...)
	}
	return q
}

// Paginate reads page and limit, falling back to the defaults for missing or
// non-positive values and capping limit at MaxLimit. page is capped so the
// offset cannot overflow.
func (q *Query) Paginate() *Query {
	q.page = positiveInt(q.params.Get("page"), DefaultPage)
	q.limit = positiveInt(q.params.Get("limit"), DefaultLimit)
	if q.limit > MaxLimit {
		q.limit = MaxLimit
	}
	if maxPage := math.MaxInt / q.limit; q.page > maxPage {
		q.page = maxPage
	}
	q.paginated = true
	return q
}

// Page returns the page number and size; zero values when Paginate was not called.
func (q *Query) Page() (page, limit int) {
	return q.page, q.limit
}

// Skip is the number of matching rows before the current page.
func (q *Query) Skip() int {
	if !q.paginated {
		return 0
	}
	return (q.page - 1) * q.limit
}

// Err returns the first cast failure met while filtering.
func (q *Query) Err() error {
	return q.err
}

// Fields returns the explicitly selected fields, id first; nil means the
// default projection.
func (q *Query) Fields() []string {
	if len(q.fields) == 0 {
		return nil
	}
	return q.fields
}

func (q *Query) whereSQL() (string, []any) {
	if len(q.where) == 0 {
		return "", nil
	}
	conds := make([]string, 0, len(q.where))
	var args []any
	for _, c := range q.where {
		conds = append(conds, c.cond)
		args = append(args, c.args...)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// SQL returns the page query over table with $n placeholders.
func (q *Query) SQL(table string) (string, []any) {
	where, args := q.whereSQL()
	stmt := "SELECT * FROM " + table + where
	if len(q.order) > 0 {
		stmt += " ORDER BY " + strings.Join(q.order, ", ")
	}
	if q.paginated {
		stmt += " LIMIT ? OFFSET ?"
		args = append(args, q.limit, q.Skip())
	}
	return sqlx.Rebind(sqlx.DOLLAR, stmt), args
}

// CountSQL returns the total-count query sharing the page query's filter.
func (q *Query) CountSQL(table string) (string, []any) {
	where, args := q.whereSQL()
	return sqlx.Rebind(sqlx.DOLLAR, "SELECT COUNT(*) FROM "+table+where), args
}

// Project reduces the JSON form of rows, a slice of records, to the selected
// fields, or drops hidden fields under the default projection. It returns
// rows unchanged when Select was not called.
func (q *Query) Project(rows any) (any, error) {
	if !q.selected {
		return rows, nil
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	var docs []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}

	keep := func(k string) bool {
		f, ok := q.schema.Lookup(k)
		return !ok || !f.Hidden
	}
	if len(q.fields) > 0 {
		selected := make(map[string]bool, len(q.fields))
		for _, f := range q.fields {
			selected[f] = true
		}
		keep = func(k string) bool { return selected[k] }
	}

	for _, doc := range docs {
		for k := range doc {
			if !keep(k) {
				delete(doc, k)
			}
		}
	}
	return docs, nil
}

func positiveInt(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
