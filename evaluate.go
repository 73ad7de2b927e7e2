package hookstate

import (
	"time"
)

// Evaluate records a value read at the accessor path and runs expr with the
// current value bound. For mappings every key is also bound as a variable.
func (a *Accessor) Evaluate(expr string) (any, error) {
	return a.EvaluateWith(EvalContext{}, expr)
}

// EvaluateWith is Evaluate with caller supplied args, metadata and clock.
// ctx.Value and ctx.Path are always taken from the accessor.
func (a *Accessor) EvaluateWith(ctx EvalContext, expr string) (any, error) {
	if expr == "" {
		return nil, wrapEvaluatorError("evaluate", errEmptyExpression)
	}
	value, err := a.Get()
	if err != nil {
		return nil, err
	}
	evaluator, err := a.state.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	ctx.Value = value
	ctx.Path = a.path
	return a.state.runEvaluation(evaluatorEngineName(evaluator), expr, ctx, func(ctx EvalContext) (any, error) {
		return evaluator.Evaluate(ctx, expr)
	})
}

// Derived is a compiled expression bound to an accessor. Each Evaluate reads
// the accessor again, so a derived value tracks the same paths a direct read
// would.
type Derived struct {
	accessor *Accessor
	rule     CompiledRule
	engine   string
	expr     string
	compile  compileConfig
}

// Compile prepares expr for repeated evaluation against this accessor. The
// Expect options fix the kind of value every evaluation must produce.
func (a *Accessor) Compile(expr string, opts ...CompileOption) (*Derived, error) {
	if err := a.live("compile"); err != nil {
		return nil, err
	}
	evaluator, err := a.state.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	rule, err := evaluator.Compile(expr, opts...)
	if err != nil {
		return nil, wrapEvaluationError(evaluatorEngineName(evaluator), expr, a.path.String(), err)
	}
	return &Derived{
		accessor: a,
		rule:     rule,
		engine:   evaluatorEngineName(evaluator),
		expr:     expr,
		compile:  newCompileConfig(opts),
	}, nil
}

// Expr returns the source expression.
func (d *Derived) Expr() string {
	return d.expr
}

// Accessor returns the accessor the expression reads from.
func (d *Derived) Accessor() *Accessor {
	return d.accessor
}

// Evaluate runs the compiled rule against the current value.
func (d *Derived) Evaluate() (any, error) {
	return d.EvaluateWith(EvalContext{})
}

// EvaluateWith runs the compiled rule with caller supplied args and metadata.
func (d *Derived) EvaluateWith(ctx EvalContext) (any, error) {
	value, err := d.accessor.Get()
	if err != nil {
		return nil, err
	}
	ctx.Value = value
	ctx.Path = d.accessor.path
	return d.accessor.state.runEvaluation(d.engine, d.expr, ctx, func(ctx EvalContext) (any, error) {
		value, err := d.rule.Evaluate(ctx)
		if err != nil {
			return nil, err
		}
		return d.compile.check(value)
	})
}

func (s *State) runEvaluation(engine, expr string, ctx EvalContext, fn func(EvalContext) (any, error)) (any, error) {
	ctx = ctx.withDefaults()
	start := time.Now()
	value, err := fn(ctx)
	duration := time.Since(start)
	err = wrapEvaluationError(engine, expr, ctx.pathLabel(), err)
	s.cfg.logger.LogEvent(LogEvent{
		Kind:     LogEvaluation,
		Path:     ctx.Path,
		Engine:   engine,
		Expr:     expr,
		Duration: duration,
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *State) resolveEvaluator() (Evaluator, error) {
	if s.cfg.evaluator != nil {
		return s.cfg.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if s.cfg.programCache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(s.cfg.programCache))
	}
	if s.cfg.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(s.cfg.functions))
	}
	evaluator := NewExprEvaluator(exprOpts...)
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	s.cfg.evaluator = evaluator
	return evaluator, nil
}
