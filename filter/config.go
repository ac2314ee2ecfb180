package filter

import (
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"

	"github.com/fy0/qfilter/internal/errors"
)

// Config is the declarative form of engine and render settings, typically
// decoded from an application config file.
type Config struct {
	DefaultKey         string            `mapstructure:"default_key"`
	KeyAliases         map[string]string `mapstructure:"key_aliases"`
	Dialect            string            `mapstructure:"dialect"`
	PlaceholderOffset  int               `mapstructure:"placeholder_offset"`
	TableAliases       map[string]string `mapstructure:"table_aliases"`
	OmitTableQualifier bool              `mapstructure:"omit_table_qualifier"`
	LogLevel           string            `mapstructure:"log_level"`
}

var knownDialects = map[DialectName]struct{}{
	DialectSQLite:            {},
	DialectMySQL:             {},
	DialectPostgres:          {},
	DialectPostgresNamedArgs: {},
	DialectDuckDB:            {},
}

// LoadConfig decodes raw into a Config. Unknown keys, unknown dialects and
// invalid log levels are errors.
func LoadConfig(raw map[string]any) (*Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, errors.WithStackTrace(err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.WithStackTraceAndPrefix(err, "invalid filter config")
	}

	if cfg.Dialect != "" {
		if _, ok := knownDialects[DialectName(cfg.Dialect)]; !ok {
			return nil, errors.Errorf("invalid filter config: unknown dialect %q", cfg.Dialect)
		}
	}
	if cfg.LogLevel != "" {
		if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
			return nil, errors.WithStackTraceAndPrefix(err, "invalid filter config")
		}
	}

	return &cfg, nil
}

// EngineOptions returns the engine options described by the config.
func (c *Config) EngineOptions() []EngineOption {
	opts := make([]EngineOption, 0, 3)
	if c.DefaultKey != "" {
		opts = append(opts, WithDefaultKey(c.DefaultKey))
	}
	if len(c.KeyAliases) > 0 {
		opts = append(opts, WithKeyAliases(c.KeyAliases))
	}
	if c.LogLevel != "" {
		level, err := logrus.ParseLevel(c.LogLevel)
		if err == nil {
			logger := logrus.New()
			logger.SetLevel(level)
			opts = append(opts, WithLogger(logger))
		}
	}
	return opts
}

// RenderOptions returns the SQL render options described by the config.
func (c *Config) RenderOptions() RenderOptions {
	return RenderOptions{
		Dialect:            DialectName(c.Dialect),
		PlaceholderOffset:  c.PlaceholderOffset,
		TableAliases:       c.TableAliases,
		OmitTableQualifier: c.OmitTableQualifier,
	}
}
