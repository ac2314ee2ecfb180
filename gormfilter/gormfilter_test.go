package gormfilter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/utils/tests"

	"github.com/fy0/qfilter/filter"
	"github.com/fy0/qfilter/gormfilter"
)

type post struct {
	ID     int64
	Tag    string
	Author string
}

func compile(t *testing.T, query string) *filter.Program {
	t.Helper()

	engine, err := filter.NewEngine()
	require.NoError(t, err)
	program, err := engine.Compile(query)
	require.NoError(t, err)
	return program
}

func dryRun(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	require.NoError(t, err)
	return db
}

func TestExpression(t *testing.T) {
	t.Parallel()

	tag := clause.Column{Name: "tag"}
	author := clause.Column{Name: "author"}

	testCases := []struct {
		name     string
		query    string
		expected clause.Expression
	}{
		{
			name:     "empty",
			query:    ``,
			expected: nil,
		},
		{
			name:     "equality",
			query:    `tag:photo`,
			expected: clause.Eq{Column: tag, Value: "photo"},
		},
		{
			name:  "and",
			query: `tag:photo+author:joe`,
			expected: clause.AndConditions{Exprs: []clause.Expression{
				clause.Eq{Column: tag, Value: "photo"},
				clause.Eq{Column: author, Value: "joe"},
			}},
		},
		{
			name:  "or",
			query: `tag:photo,tag:video`,
			expected: clause.AndConditions{Exprs: []clause.Expression{
				clause.OrConditions{Exprs: []clause.Expression{
					clause.Eq{Column: tag, Value: "photo"},
					clause.Eq{Column: tag, Value: "video"},
				}},
			}},
		},
		{
			name:     "negation",
			query:    `!tag:photo`,
			expected: clause.NotConditions{Exprs: []clause.Expression{clause.Eq{Column: tag, Value: "photo"}}},
		},
		{
			name:     "in",
			query:    `tag:[photo,video]`,
			expected: clause.IN{Column: tag, Values: []any{"photo", "video"}},
		},
		{
			name:     "not in",
			query:    `!tag:[photo]`,
			expected: clause.NotConditions{Exprs: []clause.Expression{clause.IN{Column: tag, Values: []any{"photo"}}}},
		},
		{
			name:     "empty in",
			query:    `tag:[]`,
			expected: clause.Expr{SQL: "1 = 0"},
		},
		{
			name:     "empty not in",
			query:    `!tag:[]`,
			expected: clause.Expr{SQL: "1 = 1"},
		},
		{
			name:     "null",
			query:    `author:null`,
			expected: clause.Eq{Column: author, Value: nil},
		},
		{
			name:     "not null",
			query:    `!author:null`,
			expected: clause.Neq{Column: author, Value: nil},
		},
		{
			name:     "qualified column",
			query:    `p.author:joe`,
			expected: clause.Eq{Column: clause.Column{Table: "p", Name: "author"}, Value: "joe"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			expr, err := gormfilter.Expression(compile(t, tc.query).Plan())
			require.NoError(t, err)
			assert.Equal(t, tc.expected, expr)
		})
	}
}

func TestExpressionComparisons(t *testing.T) {
	t.Parallel()

	count := clause.Column{Name: "count"}
	plan := filter.NewList(
		&filter.Op{Name: filter.OpWhere, Column: "count", Operator: ">", Value: int64(1)},
		&filter.Op{Name: filter.OpWhere, Column: "count", Operator: "<=", Value: int64(9)},
		&filter.Op{Name: filter.OpWhereNot, Column: "title", Operator: "like", Value: "%draft%"},
		&filter.Op{Name: filter.OpWhere, Column: "count", Operator: "!=", Value: int64(5)},
	)

	expr, err := gormfilter.Expression(plan)
	require.NoError(t, err)
	assert.Equal(t, clause.AndConditions{Exprs: []clause.Expression{
		clause.Gt{Column: count, Value: int64(1)},
		clause.Lte{Column: count, Value: int64(9)},
		clause.NotConditions{Exprs: []clause.Expression{clause.Like{Column: clause.Column{Name: "title"}, Value: "%draft%"}}},
		clause.Neq{Column: count, Value: int64(5)},
	}}, expr)
}

func TestExpressionUnsupportedOperator(t *testing.T) {
	t.Parallel()

	plan := &filter.Op{Name: filter.OpWhere, Column: "count", Operator: "~", Value: int64(1)}
	_, err := gormfilter.Expression(plan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported operator "~" for "count"`)
}

func TestScopeDryRun(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		query string
		sql   string
		vars  []any
	}{
		{
			query: ``,
			sql:   "SELECT * FROM `posts`",
		},
		{
			query: `tag:photo`,
			sql:   "SELECT * FROM `posts` WHERE `tag` = ?",
			vars:  []any{"photo"},
		},
		{
			query: `tag:photo+author:joe`,
			sql:   "SELECT * FROM `posts` WHERE `tag` = ? AND `author` = ?",
			vars:  []any{"photo", "joe"},
		},
		{
			query: `tag:photo,tag:video`,
			sql:   "SELECT * FROM `posts` WHERE (`tag` = ? OR `tag` = ?)",
			vars:  []any{"photo", "video"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.query, func(t *testing.T) {
			t.Parallel()

			var posts []post
			tx := dryRun(t).Model(&post{}).Scopes(gormfilter.Scope(compile(t, tc.query))).Find(&posts)
			require.NoError(t, tx.Error)
			assert.Equal(t, tc.sql, tx.Statement.SQL.String())
			if tc.vars == nil {
				assert.Empty(t, tx.Statement.Vars)
				return
			}
			assert.Equal(t, tc.vars, tx.Statement.Vars)
		})
	}
}

func TestScopeNegatedGroupDryRun(t *testing.T) {
	t.Parallel()

	var posts []post
	tx := dryRun(t).Model(&post{}).Scopes(gormfilter.Scope(compile(t, `!(tag:photo+author:joe)`))).Find(&posts)
	require.NoError(t, tx.Error)

	sql := tx.Statement.SQL.String()
	assert.Contains(t, sql, "`tag` <> ?")
	assert.Contains(t, sql, " OR ")
	assert.Contains(t, sql, "`author` <> ?")
	assert.Equal(t, []any{"photo", "joe"}, tx.Statement.Vars)
}

func TestScopeReportsBuildErrors(t *testing.T) {
	t.Parallel()

	program := filter.NewProgramFromPlan(&filter.Op{Name: filter.OpWhere, Column: "count", Operator: "~", Value: int64(1)})

	var posts []post
	tx := dryRun(t).Model(&post{}).Scopes(gormfilter.Scope(program)).Find(&posts)
	require.Error(t, tx.Error)
	assert.Contains(t, tx.Error.Error(), "unsupported operator")
}
