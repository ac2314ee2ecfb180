package filter

import (
	"context"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/huandu/go-clone"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// CompileHook can rewrite or replace the filter tree before it is compiled.
//
// Hooks run after parsing and key aliasing. query is empty for trees that
// did not come from text.
//
// Returning (nil, nil) keeps the current tree unchanged.
type CompileHook func(query string, node Node) (Node, error)

type engineConfig struct {
	defaultKey     string
	keyAliases     map[string]string
	compileHooks   []CompileHook
	logger         logrus.FieldLogger
	tracerProvider trace.TracerProvider
	envOptions     []cel.EnvOption
}

// EngineOption customizes Engine construction.
type EngineOption func(*engineConfig)

// WithDefaultKey makes bare values in text filters match against key.
func WithDefaultKey(key string) EngineOption {
	return func(cfg *engineConfig) {
		cfg.defaultKey = key
	}
}

// WithKeyAliases renames filter keys before compilation, e.g. mapping the
// public name `author` to `author_id`.
func WithKeyAliases(aliases map[string]string) EngineOption {
	return func(cfg *engineConfig) {
		if cfg.keyAliases == nil {
			cfg.keyAliases = map[string]string{}
		}
		for k, v := range aliases {
			cfg.keyAliases[k] = v
		}
	}
}

// WithCompileHook appends a hook which can rewrite the filter tree.
func WithCompileHook(hook CompileHook) EngineOption {
	return func(cfg *engineConfig) {
		if hook == nil {
			return
		}
		cfg.compileHooks = append(cfg.compileHooks, hook)
	}
}

// WithLogger sets the logger compile results are reported to.
func WithLogger(logger logrus.FieldLogger) EngineOption {
	return func(cfg *engineConfig) {
		cfg.logger = logger
	}
}

// WithTracerProvider sets the provider parse and compile spans are created
// with. The global provider is used by default.
func WithTracerProvider(provider trace.TracerProvider) EngineOption {
	return func(cfg *engineConfig) {
		cfg.tracerProvider = provider
	}
}

// WithEnvOptions appends CEL environment options for in-memory matchers.
func WithEnvOptions(opts ...cel.EnvOption) EngineOption {
	return func(cfg *engineConfig) {
		cfg.envOptions = append(cfg.envOptions, opts...)
	}
}

// Engine compiles filters into Programs.
//
// An Engine is immutable once built and safe for concurrent use.
type Engine struct {
	cfg engineConfig
	env *cel.Env
}

// NewEngine builds a new Engine.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	cfg := engineConfig{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logrus.StandardLogger()
	}
	if cfg.tracerProvider == nil {
		cfg.tracerProvider = otel.GetTracerProvider()
	}

	env, err := NewEnv(cfg.envOptions...)
	if err != nil {
		return nil, err
	}

	return &Engine{cfg: cfg, env: env}, nil
}

// Compile parses and compiles a text filter.
func (e *Engine) Compile(query string) (*Program, error) {
	return e.CompileContext(context.Background(), query)
}

// CompileContext parses and compiles a text filter, tracing both stages
// under ctx.
func (e *Engine) CompileContext(ctx context.Context, query string) (*Program, error) {
	node, err := e.Parse(ctx, query)
	if err != nil {
		return nil, err
	}
	return e.compile(ctx, query, "text", node)
}

// Parse parses a text filter with the engine's parse settings without
// compiling it. Key aliases are not applied yet.
func (e *Engine) Parse(ctx context.Context, query string) (Node, error) {
	var opts []ParseOption
	if e.cfg.defaultKey != "" {
		opts = append(opts, WithBareValueKey(e.cfg.defaultKey))
	}

	var node Node
	err := traceOp(ctx, e.cfg.tracerProvider, TelemetryOpFilterParse, map[string]any{
		AttrFilterQuery: query,
	}, func(ctx context.Context) error {
		var err error
		node, err = ParseString(query, opts...)
		return err
	})
	if err != nil {
		e.cfg.logger.WithError(err).WithField("query", query).Debug("Rejected filter query")
		return nil, err
	}
	return node, nil
}

// CompileObject compiles a nested filter object, see FromObject.
func (e *Engine) CompileObject(obj any) (*Program, error) {
	node, err := FromObject(obj)
	if err != nil {
		e.cfg.logger.WithError(err).Debug("Rejected filter object")
		return nil, err
	}
	return e.compile(context.Background(), "", "object", node)
}

// CompileJSON compiles a JSON filter object, see FromJSON.
func (e *Engine) CompileJSON(data []byte) (*Program, error) {
	node, err := FromJSON(data)
	if err != nil {
		e.cfg.logger.WithError(err).Debug("Rejected JSON filter")
		return nil, err
	}
	return e.compile(context.Background(), string(data), "json", node)
}

// CompileNode compiles an already-built filter tree.
func (e *Engine) CompileNode(node Node) (*Program, error) {
	return e.compile(context.Background(), "", "node", node)
}

// CompileToStatement compiles and renders the filter in a single step.
func (e *Engine) CompileToStatement(query string, schema Schema, opts RenderOptions) (Statement, error) {
	program, err := e.Compile(query)
	if err != nil {
		return Statement{}, err
	}
	return program.RenderSQL(schema, opts)
}

func (e *Engine) compile(ctx context.Context, query, source string, node Node) (*Program, error) {
	var program *Program
	err := traceOp(ctx, e.cfg.tracerProvider, TelemetryOpFilterCompile, map[string]any{
		AttrFilterQuery:  query,
		AttrFilterSource: source,
	}, func(ctx context.Context) error {
		if len(e.cfg.keyAliases) > 0 {
			node = RewriteKeys(node, func(key string) string {
				if alias, ok := e.cfg.keyAliases[key]; ok {
					return alias
				}
				return key
			})
		}

		for _, hook := range e.cfg.compileHooks {
			next, err := hook(query, node)
			if err != nil {
				return err
			}
			if next != nil {
				node = next
			}
		}

		plan, err := Compile(node)
		if err != nil {
			return err
		}

		setSpanAttributes(ctx, map[string]any{
			AttrFilterOpCount:  OpCount(plan),
			AttrFilterKeyCount: len(Keys(node)),
		})
		program = &Program{query: query, node: node, plan: plan, env: e.env}
		return nil
	})
	if err != nil {
		e.cfg.logger.WithError(err).WithFields(logrus.Fields{
			"query":  query,
			"source": source,
		}).Debug("Failed to compile filter")
		return nil, err
	}

	e.cfg.logger.WithFields(logrus.Fields{
		"query":  query,
		"source": source,
		"ops":    OpCount(program.plan),
	}).Debugf("Compiled filter: %s", program.plan)
	return program, nil
}

// Program stores a compiled filter.
//
// A Program is read-only; it may be applied concurrently to independent
// builders.
type Program struct {
	query string
	node  Node
	plan  Plan
	env   *cel.Env

	matcherOnce sync.Once
	matcher     *Matcher
	matcherErr  error
}

// Apply applies the compiled plan to b and returns the resulting builder.
func (p *Program) Apply(b Builder) Builder {
	return Apply(p.plan, b)
}

// Plan returns a deep copy of the compiled plan.
func (p *Program) Plan() Plan {
	if p.plan == nil {
		return nil
	}
	return clone.Clone(p.plan).(Plan)
}

// Node returns the filter tree the program was compiled from.
func (p *Program) Node() Node {
	return p.node
}

// Query returns the source text, if the program was compiled from text.
func (p *Program) Query() string {
	return p.query
}

func (p *Program) String() string {
	return p.plan.String()
}

// RenderSQL renders the program into a dialect-specific SQL fragment.
func (p *Program) RenderSQL(schema Schema, opts RenderOptions) (Statement, error) {
	return RenderPlan(schema, p.plan, opts)
}

// Matcher returns the in-memory matcher for the program, building it on
// first use.
func (p *Program) Matcher() (*Matcher, error) {
	p.matcherOnce.Do(func() {
		p.matcher, p.matcherErr = NewMatcher(p.env, p.plan)
	})
	return p.matcher, p.matcherErr
}

// Match reports whether record satisfies the program.
func (p *Program) Match(record Bindings) (bool, error) {
	m, err := p.Matcher()
	if err != nil {
		return false, err
	}
	return m.Match(record)
}
