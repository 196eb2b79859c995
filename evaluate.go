package timetravel

import (
	"fmt"
	"time"
)

// Query evaluates expr against the live document.
func (s *Store) Query(expr string) (Response[any], error) {
	return s.QueryWith(RuleContext{}, expr)
}

// QueryWith evaluates expr using ctx. A nil ctx.Snapshot falls back to the
// live document and empty lineage fields are filled from the store.
func (s *Store) QueryWith(ctx RuleContext, expr string) (Response[any], error) {
	if expr == "" {
		return Response[any]{}, fmt.Errorf("timetravel: expression must not be empty")
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return Response[any]{}, err
	}
	ctx = s.fillContext(ctx)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	evalErr = wrapEvaluationError(evaluatorEngineName(evaluator), expr, ctx.branchLabel(), evalErr)
	s.observeEvaluation(evaluator, expr, ctx, time.Since(start), evalErr)
	if evalErr != nil {
		return Response[any]{}, evalErr
	}
	return Response[any]{Value: value}, nil
}

type predicate struct {
	rule      CompiledRule
	evaluator Evaluator
}

func (s *Store) compilePredicate(expr string) (predicate, error) {
	if expr == "" {
		return predicate{}, fmt.Errorf("timetravel: expression must not be empty")
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return predicate{}, err
	}
	rule, err := evaluator.Compile(expr, AsPredicate())
	if err != nil {
		err = wrapEvaluationError(evaluatorEngineName(evaluator), expr, s.branches.ActiveID(), err)
		s.observeEvaluation(evaluator, expr, s.ruleContext(nil), 0, err)
		return predicate{}, err
	}
	return predicate{rule: rule, evaluator: evaluator}, nil
}

// test runs a compiled predicate and insists on a bool result.
func (s *Store) test(p predicate, ctx RuleContext, expr string) (bool, error) {
	engine := evaluatorEngineName(p.evaluator)
	start := time.Now()
	value, err := p.rule.Evaluate(ctx)
	if err == nil {
		if _, ok := value.(bool); !ok {
			err = fmt.Errorf("%w: got %T", ErrNonBooleanResult, value)
		}
	}
	err = wrapEvaluationError(engine, expr, ctx.branchLabel(), err)
	s.observeEvaluation(p.evaluator, expr, ctx, time.Since(start), err)
	if err != nil {
		return false, err
	}
	return value.(bool), nil
}

// ruleContext builds a context for state on the active branch. A nil state
// means the live document.
func (s *Store) ruleContext(state map[string]any) RuleContext {
	if state == nil {
		state = s.data
	}
	now := s.cfg.now()
	engine := s.engine()
	return RuleContext{
		Snapshot: state,
		Now:      &now,
		Store:    s.cfg.name,
		Branch:   s.branches.ActiveID(),
		Position: engine.Position(),
		Length:   engine.Len(),
	}.withDefaultMaps()
}

func (s *Store) fillContext(ctx RuleContext) RuleContext {
	base := s.ruleContext(nil)
	if ctx.Snapshot == nil {
		ctx.Snapshot = base.Snapshot
		ctx.Position = base.Position
		ctx.Length = base.Length
	}
	if ctx.Now == nil {
		ctx.Now = base.Now
	}
	if ctx.Store == "" {
		ctx.Store = base.Store
	}
	if ctx.Branch == "" {
		ctx.Branch = base.Branch
	}
	return ctx.withDefaultMaps()
}

func (s *Store) observeEvaluation(evaluator Evaluator, expr string, ctx RuleContext, duration time.Duration, err error) {
	engine := evaluatorEngineName(evaluator)
	s.cfg.evalLogger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Store:    ctx.Store,
		Branch:   ctx.branchLabel(),
		Position: ctx.Position,
		Duration: duration,
		Err:      err,
	})
	s.cfg.metrics.Query(s.cfg.name, engine, duration, err)
}

func (s *Store) resolveEvaluator() (Evaluator, error) {
	if s.evaluator != nil {
		return s.evaluator, nil
	}
	if s.cfg.evaluator != nil {
		s.evaluator = s.cfg.evaluator
		return s.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if s.cfg.programCache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(s.cfg.programCache))
	}
	if s.cfg.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(s.cfg.functions))
	}
	defaultEvaluator := NewExprEvaluator(exprOpts...)
	if defaultEvaluator == nil {
		return nil, ErrNoEvaluator
	}
	s.evaluator = defaultEvaluator
	return defaultEvaluator, nil
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	default:
		if name := fmt.Sprintf("%T", e); name == "*timetravel.jsEvaluator" {
			return "js"
		}
		return "custom"
	}
}
