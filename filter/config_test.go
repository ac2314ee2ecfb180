package filter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fy0/qfilter/filter"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	cfg, err := filter.LoadConfig(map[string]any{
		"default_key":          "slug",
		"key_aliases":          map[string]any{"author": "creator_id"},
		"dialect":              "postgres",
		"placeholder_offset":   "2",
		"table_aliases":        map[string]any{"t": "p"},
		"omit_table_qualifier": false,
		"log_level":            "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, "slug", cfg.DefaultKey)
	assert.Equal(t, map[string]string{"author": "creator_id"}, cfg.KeyAliases)
	assert.Equal(t, 2, cfg.PlaceholderOffset)
	assert.Equal(t, filter.RenderOptions{
		Dialect:           filter.DialectPostgres,
		PlaceholderOffset: 2,
		TableAliases:      map[string]string{"t": "p"},
	}, cfg.RenderOptions())
	assert.Len(t, cfg.EngineOptions(), 3)

	engine, err := filter.NewEngine(cfg.EngineOptions()...)
	require.NoError(t, err)

	stmt, err := engine.CompileToStatement(`hello+author:joe`, testSchema(), cfg.RenderOptions())
	require.NoError(t, err)
	assert.Equal(t, `(slug = $3 AND p.creator_id = $4)`, stmt.SQL)
	assert.Equal(t, []any{"hello", "joe"}, stmt.Args)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		raw  map[string]any
	}{
		{"unknown key", map[string]any{"dialekt": "postgres"}},
		{"unknown dialect", map[string]any{"dialect": "oracle"}},
		{"bad log level", map[string]any{"log_level": "loud"}},
		{"bad offset", map[string]any{"placeholder_offset": "many"}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := filter.LoadConfig(tc.raw)
			require.Error(t, err)
		})
	}
}

func TestLoadConfigEmpty(t *testing.T) {
	t.Parallel()

	cfg, err := filter.LoadConfig(nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.EngineOptions())
	assert.Equal(t, filter.RenderOptions{}, cfg.RenderOptions())
}
