package hookstate

import (
	"errors"
	"fmt"
	"time"
)

// EvalContext carries inputs needed when evaluating an expression against a
// value of the tree.
type EvalContext struct {
	Value    any
	Path     Path
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx EvalContext) withDefaults() EvalContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx EvalContext) timestamp() time.Time {
	if ctx.Now == nil {
		return time.Now()
	}
	return *ctx.Now
}

func (ctx EvalContext) pathLabel() string {
	if ctx.Path.IsRoot() {
		return "<root>"
	}
	return ctx.Path.String()
}

// reservedBindings are environment names that mapping keys never shadow.
var reservedBindings = map[string]struct{}{
	"value":    {},
	"path":     {},
	"now":      {},
	"args":     {},
	"metadata": {},
	"call":     {},
}

// bindings returns the variables visible to an expression: the mapping keys
// of the value, when it is a mapping, plus the reserved names.
func (ctx EvalContext) bindings() map[string]any {
	env := map[string]any{
		"value":    ctx.Value,
		"path":     ctx.Path.String(),
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	if mapping, ok := ctx.Value.(map[string]any); ok {
		for key, value := range mapping {
			if _, reserved := reservedBindings[key]; reserved {
				continue
			}
			env[key] = value
		}
	}
	return env
}

// Evaluator executes expressions against an evaluation context.
type Evaluator interface {
	Evaluate(ctx EvalContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx EvalContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

// ResultKind is the type a compiled rule promises to produce.
type ResultKind int

const (
	// ResultAny accepts whatever the expression returns.
	ResultAny ResultKind = iota
	// ResultBool requires a bool.
	ResultBool
	// ResultInt requires an integer, reported as int.
	ResultInt
	// ResultFloat requires a number, reported as float64.
	ResultFloat
)

func (k ResultKind) String() string {
	switch k {
	case ResultBool:
		return "bool"
	case ResultInt:
		return "int"
	case ResultFloat:
		return "float64"
	default:
		return "any"
	}
}

// ErrResultType is returned when a compiled rule produces a value of the
// wrong kind.
var ErrResultType = errors.New("hookstate: unexpected result type")

type compileConfig struct {
	result ResultKind
}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// ExpectBool makes the rule fail unless it evaluates to a bool. The expr
// evaluator also rejects expressions whose static type is not bool.
func ExpectBool() CompileOption {
	return expectResult(ResultBool)
}

// ExpectInt makes the rule fail unless it evaluates to an integer. Integers
// of any width are reported as int.
func ExpectInt() CompileOption {
	return expectResult(ResultInt)
}

// ExpectFloat makes the rule fail unless it evaluates to a number. Integers
// are converted to float64.
func ExpectFloat() CompileOption {
	return expectResult(ResultFloat)
}

func expectResult(kind ResultKind) CompileOption {
	return compileOptionFunc(func(cfg *compileConfig) {
		cfg.result = kind
	})
}

func newCompileConfig(opts []CompileOption) compileConfig {
	cfg := compileConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyCompileOption(&cfg)
		}
	}
	return cfg
}

// check converts value to the expected kind or reports ErrResultType.
func (cfg compileConfig) check(value any) (any, error) {
	switch cfg.result {
	case ResultBool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case ResultInt:
		if n, ok := integerValue(value); ok {
			return n, nil
		}
	case ResultFloat:
		if f, ok := value.(float64); ok {
			return f, nil
		}
		if f, ok := value.(float32); ok {
			return float64(f), nil
		}
		if n, ok := integerValue(value); ok {
			return float64(n), nil
		}
	default:
		return value, nil
	}
	return nil, fmt.Errorf("%w: expected %s, got %T", ErrResultType, cfg.result, value)
}

func integerValue(value any) (int, bool) {
	switch n := value.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case uint:
		return int(n), true
	}
	return 0, false
}

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

type engineNamer interface {
	engine() string
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(engineNamer); ok {
		return named.engine()
	}
	return "custom"
}

// WithEvaluator configures the evaluator used by Accessor.Evaluate.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *stateConfig) {
		cfg.evaluator = e
	}
}

// WithProgramCache registers a program cache for the default evaluator.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *stateConfig) {
		cfg.programCache = cache
	}
}
