package filter_test

import (
	"database/sql"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fy0/qfilter/filter"
)

type postRow struct {
	id     int64
	tag    any
	author any
	status any
}

var postRows = []postRow{
	{id: 1, tag: "photo", author: "joe", status: "published"},
	{id: 2, tag: "video", author: "ann", status: "draft"},
	{id: 3, tag: "news", author: nil, status: "published"},
	{id: 4, tag: nil, author: "joe", status: nil},
}

func openPostsDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE posts (id INTEGER, tag VARCHAR, author VARCHAR, status VARCHAR)`)
	require.NoError(t, err)
	for _, row := range postRows {
		_, err = db.Exec(`INSERT INTO posts VALUES (?, ?, ?, ?)`, row.id, row.tag, row.author, row.status)
		require.NoError(t, err)
	}
	return db
}

func queryPostIDs(t *testing.T, db *sql.DB, stmt filter.Statement) []int64 {
	t.Helper()

	query := `SELECT id FROM posts`
	if stmt.SQL != "" {
		query += ` WHERE ` + stmt.SQL
	}
	rows, err := db.Query(query+` ORDER BY id`, stmt.Args...)
	require.NoError(t, err, query)
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	return ids
}

func matchPostIDs(t *testing.T, program *filter.Program) []int64 {
	t.Helper()

	ids := []int64{}
	for _, row := range postRows {
		record := filter.Bindings{"id": row.id}
		for key, value := range map[string]any{"tag": row.tag, "author": row.author, "status": row.status} {
			if value != nil {
				record[key] = value
			}
		}
		matched, err := program.Match(record)
		require.NoError(t, err)
		if matched {
			ids = append(ids, row.id)
		}
	}
	return ids
}

// The rendered SQL and the in-memory matcher must select the same rows,
// NULL columns included.
func TestDuckDBAgreesWithMatcher(t *testing.T) {
	t.Parallel()

	db := openPostsDB(t)
	engine, err := filter.NewEngine()
	require.NoError(t, err)

	testCases := []struct {
		name     string
		query    string
		obj      any
		expected []int64
	}{
		{name: "empty", query: ``, expected: []int64{1, 2, 3, 4}},
		{name: "equality", query: `tag:photo`, expected: []int64{1}},
		{name: "or", query: `tag:photo,tag:video`, expected: []int64{1, 2}},
		{name: "not equal skips null", query: `!author:joe`, expected: []int64{2}},
		{name: "not in skips null", query: `!tag:[photo,video]`, expected: []int64{3}},
		{name: "in", query: `author:[joe,ann]`, expected: []int64{1, 2, 4}},
		{name: "empty in", query: `tag:[]`, expected: []int64{}},
		{name: "null", query: `author:null`, expected: []int64{3}},
		{name: "not null", query: `!status:null`, expected: []int64{1, 2, 3}},
		{name: "negated group", query: `!(tag:photo+author:joe)`, expected: []int64{2, 3}},
		{name: "nested group", query: `status:published+(tag:news,author:joe)`, expected: []int64{1, 3}},
		{
			name:     "like",
			obj:      map[string]any{"tag": map[string]any{"$like": "%o%"}},
			expected: []int64{1, 2},
		},
		{
			name:     "numeric object",
			obj:      map[string]any{"id": map[string]any{"$gte": 2, "$lt": 4}},
			expected: []int64{2, 3},
		},
		{
			name:     "object or",
			obj:      map[string]any{"$or": []any{map[string]any{"id": 1}, map[string]any{"status": "draft"}}},
			expected: []int64{1, 2},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			var program *filter.Program
			if tc.obj != nil {
				program, err = engine.CompileObject(tc.obj)
			} else {
				program, err = engine.Compile(tc.query)
			}
			require.NoError(t, err)

			stmt, err := program.RenderSQL(filter.Schema{}, filter.RenderOptions{Dialect: filter.DialectDuckDB})
			require.NoError(t, err)

			assert.Equal(t, tc.expected, queryPostIDs(t, db, stmt), stmt.SQL)
			assert.Equal(t, tc.expected, matchPostIDs(t, program))
		})
	}
}
