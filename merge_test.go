package qfilter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fy0/qfilter"
	"github.com/fy0/qfilter/filter"
)

func TestMergeFilters(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		enforced string
		defaults string
		custom   string
		want     string
	}{
		{
			name: "all empty",
			want: "and[]",
		},
		{
			name:     "enforced only",
			enforced: "status:published",
			want:     "where(status, =, published)",
		},
		{
			name:     "custom conflicting with enforced is dropped",
			enforced: "status:published",
			custom:   "status:draft+featured:true",
			want:     "and[where(status, =, published), where(featured, =, true)]",
		},
		{
			name:     "defaults conflicting with custom are dropped",
			defaults: "featured:false+tag:photo",
			custom:   "featured:true",
			want:     "and[where(featured, =, true), where(tag, =, photo)]",
		},
		{
			name:     "defaults conflicting with enforced are dropped",
			enforced: "visibility:public",
			defaults: "visibility:paid",
			want:     "where(visibility, =, public)",
		},
		{
			name:     "disjunction touching an enforced key is dropped as a whole",
			enforced: "author:joe",
			custom:   "(author:bob,tag:photo)+featured:true",
			want:     "and[where(author, =, joe), where(featured, =, true)]",
		},
		{
			name:     "kept disjunction stays grouped",
			enforced: "status:published",
			custom:   "tag:photo,tag:video",
			want:     "and[where(status, =, published), or[where(tag, =, photo), where(tag, =, video)]]",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			program, err := qfilter.MergeFilters(tc.enforced, tc.defaults, tc.custom)
			require.NoError(t, err)
			assert.Equal(t, tc.want, program.String())
		})
	}
}

func TestMergeFiltersInvalidInput(t *testing.T) {
	t.Parallel()

	_, err := qfilter.MergeFilters("status:published", "", "tag:photo)")
	require.Error(t, err)
}

func TestMergeFiltersDefaultKey(t *testing.T) {
	t.Parallel()

	program, err := qfilter.MergeFilters("", "slug:welcome", "hello", filter.WithDefaultKey("slug"))
	require.NoError(t, err)
	assert.Equal(t, "where(slug, =, hello)", program.String())
}

func TestAllOfAnyOf(t *testing.T) {
	t.Parallel()

	a := &filter.Attribute{Key: "a", Value: filter.Literal("1")}
	b := &filter.Attribute{Key: "b", Value: filter.Literal("2")}
	c := &filter.Attribute{Key: "c", Value: filter.Literal("3")}

	assert.Nil(t, qfilter.AllOf())
	assert.Nil(t, qfilter.AnyOf(nil, nil))
	assert.Same(t, a, qfilter.AllOf(nil, a))
	assert.Same(t, b, qfilter.AnyOf(b))

	node := qfilter.AllOf(qfilter.AnyOf(a, b), c)
	assert.Equal(t, "(a:1,b:2)+c:3", node.String())

	reparsed, err := filter.ParseString(node.String())
	require.NoError(t, err)
	want, err := filter.Compile(node)
	require.NoError(t, err)
	got, err := filter.Compile(reparsed)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMustCompilePanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		qfilter.MustCompile("tag:photo)")
	})
	assert.NotPanics(t, func() {
		qfilter.MustCompile("tag:photo")
	})
}
