package query

import (
	"encoding/json"
	"math"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/sbilibin2017/musicon/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = Schema{
	{Name: "id", Column: "id", Kind: UUID},
	{Name: "name", Column: "name", Kind: Text},
	{Name: "price", Column: "price", Kind: Number},
	{Name: "public", Column: "public", Kind: Bool},
	{Name: "createdAt", Column: "created_at", Kind: Time},
	{Name: "artists", Column: "artists", Kind: UUIDList},
	{Name: "version", Column: "version", Kind: Number, Hidden: true},
}

func mustParse(t *testing.T, raw string) url.Values {
	t.Helper()
	v, err := url.ParseQuery(raw)
	require.NoError(t, err)
	return v
}

func TestQuery_Filter(t *testing.T) {
	artist := uuid.New()

	tests := []struct {
		name     string
		raw      string
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "no filters",
			raw:     "page=2&sort=name&limit=5&fields=name",
			wantSQL: "SELECT * FROM tracks",
		},
		{
			name:     "equality",
			raw:      "name=Blue",
			wantSQL:  "SELECT * FROM tracks WHERE name = $1",
			wantArgs: []any{"Blue"},
		},
		{
			name:     "comparison operator is rewritten",
			raw:      "price[gte]=5&price[lt]=10",
			wantSQL:  "SELECT * FROM tracks WHERE price >= $1 AND price < $2",
			wantArgs: []any{5.0, 10.0},
		},
		{
			name:    "unknown field matches nothing",
			raw:     "colour=red",
			wantSQL: "SELECT * FROM tracks WHERE FALSE",
		},
		{
			name:    "unknown operator matches nothing",
			raw:     "price[ne]=5",
			wantSQL: "SELECT * FROM tracks WHERE FALSE",
		},
		{
			name:     "list membership",
			raw:      "artists=" + artist.String(),
			wantSQL:  "SELECT * FROM tracks WHERE $1::uuid = ANY(artists)",
			wantArgs: []any{artist.String()},
		},
		{
			name:     "bool",
			raw:      "public=false",
			wantSQL:  "SELECT * FROM tracks WHERE public = $1",
			wantArgs: []any{false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New(testSchema, mustParse(t, tt.raw)).Filter()
			require.NoError(t, q.Err())

			sql, args := q.SQL("tracks")
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestQuery_FilterCastError(t *testing.T) {
	q := New(testSchema, mustParse(t, "price[gt]=cheap")).Filter()

	var castErr *apperror.CastError
	require.ErrorAs(t, q.Err(), &castErr)
	assert.Equal(t, "Invalid price: cheap.", castErr.Error())
}

func TestQuery_Sort(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", "SELECT * FROM t ORDER BY created_at DESC, id ASC"},
		{"sort=-price,name", "SELECT * FROM t ORDER BY price DESC, name ASC"},
		{"sort=bogus,-createdAt", "SELECT * FROM t ORDER BY created_at DESC"},
		{"sort=bogus", "SELECT * FROM t ORDER BY created_at DESC, id ASC"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			sql, _ := New(testSchema, mustParse(t, tt.raw)).Sort().SQL("t")
			assert.Equal(t, tt.want, sql)
		})
	}
}

func TestQuery_Paginate(t *testing.T) {
	tests := []struct {
		raw       string
		wantPage  int
		wantLimit int
		wantSkip  int
	}{
		{"", 1, 20, 0},
		{"page=2&limit=10", 2, 10, 10},
		{"page=0&limit=-3", 1, 20, 0},
		{"page=x&limit=y", 1, 20, 0},
		{"page=3&limit=1000", 3, MaxLimit, 2 * MaxLimit},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			q := New(testSchema, mustParse(t, tt.raw)).Paginate()
			page, limit := q.Page()
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantSkip, q.Skip())

			_, args := q.SQL("t")
			assert.Equal(t, []any{tt.wantLimit, tt.wantSkip}, args)
		})
	}
}

func TestQuery_PaginateHugePage(t *testing.T) {
	q := New(testSchema, mustParse(t, "page=92233720368547760&limit=100")).Paginate()

	page, limit := q.Page()
	assert.Equal(t, 100, limit)
	assert.Equal(t, math.MaxInt/100, page)
	assert.GreaterOrEqual(t, q.Skip(), 0)

	_, args := q.SQL("t")
	require.Len(t, args, 2)
	assert.GreaterOrEqual(t, args[1].(int), 0)
}

func TestQuery_ChainOrderIndependent(t *testing.T) {
	owner := uuid.New()
	params := mustParse(t, "name=Blue&sort=-price&page=2&limit=10")

	a := New(testSchema, params).Where("created_by = ? OR public = TRUE", owner).Filter().Sort().Select().Paginate()
	b := New(testSchema, params).Paginate().Select().Sort().Filter().Where("created_by = ? OR public = TRUE", owner)

	sqlA, argsA := a.SQL("playlists")
	sqlB, argsB := b.SQL("playlists")
	assert.ElementsMatch(t, argsA, argsB)
	assert.Contains(t, sqlA, "ORDER BY price DESC LIMIT")
	assert.Contains(t, sqlB, "ORDER BY price DESC LIMIT")
	assert.Contains(t, sqlA, "(created_by = $1 OR public = TRUE)")
	assert.Contains(t, sqlB, "(created_by = $2 OR public = TRUE)")

	count, countArgs := a.CountSQL("playlists")
	assert.Equal(t, "SELECT COUNT(*) FROM playlists WHERE (created_by = $1 OR public = TRUE) AND name = $2", count)
	assert.Equal(t, []any{owner, "Blue"}, countArgs)
}

func TestQuery_Project(t *testing.T) {
	type row struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Price   int    `json:"price"`
		Version int    `json:"version"`
	}
	rows := []row{{ID: "1", Name: "Blue", Price: 3, Version: 2}}

	t.Run("not selected", func(t *testing.T) {
		out, err := New(testSchema, nil).Project(rows)
		require.NoError(t, err)
		assert.Equal(t, rows, out)
	})

	t.Run("default hides version", func(t *testing.T) {
		out, err := New(testSchema, nil).Select().Project(rows)
		require.NoError(t, err)
		b, _ := json.Marshal(out)
		assert.JSONEq(t, `[{"id":"1","name":"Blue","price":3}]`, string(b))
	})

	t.Run("explicit fields keep id", func(t *testing.T) {
		q := New(testSchema, mustParse(t, "fields=price,version,nope")).Select()
		assert.Equal(t, []string{"id", "price", "version"}, q.Fields())

		out, err := q.Project(rows)
		require.NoError(t, err)
		b, _ := json.Marshal(out)
		assert.JSONEq(t, `[{"id":"1","price":3,"version":2}]`, string(b))
	})
}
