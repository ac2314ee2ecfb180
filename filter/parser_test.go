package filter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fy0/qfilter/filter"
)

func attr(key string, value filter.Value) *filter.Attribute {
	return &filter.Attribute{Key: key, Value: value}
}

func lit(s string) filter.Literal {
	return filter.Literal(s)
}

func TestParseString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		query    string
		expected filter.Node
	}{
		{``, nil},
		{`tag:photo`, attr("tag", lit("photo"))},
		{
			`tag:photo+featured:true`,
			&filter.And{Children: []filter.Node{attr("tag", lit("photo")), attr("featured", lit("true"))}},
		},
		{
			`tag:photo+featured:true,author:-joe`,
			&filter.Or{Children: []filter.Node{
				&filter.And{Children: []filter.Node{attr("tag", lit("photo")), attr("featured", lit("true"))}},
				attr("author", lit("-joe")),
			}},
		},
		{`!tag:photo`, &filter.Not{Child: attr("tag", lit("photo"))}},
		{`!(tag:photo)`, &filter.Not{Child: &filter.Group{Child: attr("tag", lit("photo"))}}},
		{`count:>5`, &filter.Comparison{Key: "count", Op: filter.CompareGT, Value: lit("5")}},
		{`count:<='10'`, &filter.Comparison{Key: "count", Op: filter.CompareLTE, Value: filter.StringLit("10")}},
		{`image:null`, attr("image", filter.Null{})},
		{`tag:[photo, 'big news', video]`, attr("tag", filter.InList{"photo", "big news", "video"})},
		{`tag:[]`, attr("tag", filter.InList{})},
		{`tag:[o'neil,smith]`, attr("tag", filter.InList{"o'neil", "smith"})},
		{`tag:[d'arc, 'a,b']`, attr("tag", filter.InList{"d'arc", "a,b"})},
		{`title:'it\'s here'`, attr("title", filter.StringLit("it's here"))},
		{`slug:a\+b`, attr("slug", lit("a+b"))},
		{`posts.$count:5`, attr("posts.$count", lit("5"))},
		{
			`(a:1,b:2)+c:3`,
			&filter.And{Children: []filter.Node{
				&filter.Group{Child: &filter.Or{Children: []filter.Node{attr("a", lit("1")), attr("b", lit("2"))}}},
				attr("c", lit("3")),
			}},
		},
		{
			`a:1+b:2+c:3`,
			&filter.And{Children: []filter.Node{attr("a", lit("1")), attr("b", lit("2")), attr("c", lit("3"))}},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.query, func(t *testing.T) {
			t.Parallel()

			node, err := filter.ParseString(tc.query)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, node)
		})
	}
}

func TestParseStringErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		query    string
		code     filter.ErrorCode
		position int
	}{
		{`tag:`, filter.ErrorCodeMissingValue, 0},
		{`count:>`, filter.ErrorCodeMissingValue, 6},
		{`(a:1`, filter.ErrorCodeMissingClosingParen, 0},
		{`a:1)`, filter.ErrorCodeUnmatchedClosingParen, 3},
		{`photo`, filter.ErrorCodeBareValue, 0},
		{`a:1+`, filter.ErrorCodeUnexpectedEOF, 4},
		{`!`, filter.ErrorCodeUnexpectedEOF, 1},
		{`count:>null`, filter.ErrorCodeInvalidComparisonValue, 7},
		{`count:>[1,2]`, filter.ErrorCodeInvalidComparisonValue, 7},
		{`+a:1`, filter.ErrorCodeUnexpectedToken, 0},
		{`a:1,,b:2`, filter.ErrorCodeUnexpectedToken, 4},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.query, func(t *testing.T) {
			t.Parallel()

			_, err := filter.ParseString(tc.query)
			require.Error(t, err)

			var synErr filter.SyntaxError
			require.ErrorAs(t, err, &synErr)
			assert.Equal(t, tc.code, synErr.ErrorCode)
			assert.Equal(t, tc.position, synErr.Position)
			assert.Equal(t, tc.query, synErr.Query)
		})
	}
}

func TestParseBareValueKey(t *testing.T) {
	t.Parallel()

	node, err := filter.ParseString(`welcome,'hello world'+tag:news`, filter.WithBareValueKey("slug"))
	require.NoError(t, err)

	expected := &filter.Or{Children: []filter.Node{
		attr("slug", lit("welcome")),
		&filter.And{Children: []filter.Node{attr("slug", filter.StringLit("hello world")), attr("tag", lit("news"))}},
	}}
	assert.Equal(t, expected, node)
}

func TestNodeStringRoundTrip(t *testing.T) {
	t.Parallel()

	queries := []string{
		`tag:photo+featured:true,author:-joe`,
		`!(a:1,b:2)+c:>=3`,
		`title:'it\'s here'+image:null`,
		`tag:[a,b]`,
	}
	for _, query := range queries {
		node, err := filter.ParseString(query)
		require.NoError(t, err)

		reparsed, err := filter.ParseString(node.String())
		require.NoError(t, err, node.String())
		assert.Equal(t, node, reparsed, query)
	}
}

func TestKeysAndRewriteKeys(t *testing.T) {
	t.Parallel()

	node, err := filter.ParseString(`author:joe+(tag:a,!tag:b)+count:>5`)
	require.NoError(t, err)
	assert.Equal(t, []string{"author", "tag", "count"}, filter.Keys(node))

	rewritten := filter.RewriteKeys(node, func(key string) string {
		return "p." + key
	})
	assert.Equal(t, []string{"p.author", "p.tag", "p.count"}, filter.Keys(rewritten))
	assert.Equal(t, []string{"author", "tag", "count"}, filter.Keys(node))
	assert.Nil(t, filter.RewriteKeys(nil, func(key string) string { return key }))
}
