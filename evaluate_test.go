package timetravel

import (
	"errors"
	"testing"
	"time"
)

var evaluatorFactories = []struct {
	name string
	new  func(cache ProgramCache, registry *FunctionRegistry) Evaluator
}{
	{
		name: "expr",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []ExprEvaluatorOption{}
			if cache != nil {
				opts = append(opts, ExprWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, ExprWithFunctionRegistry(registry))
			}
			return NewExprEvaluator(opts...)
		},
	},
	{
		name: "cel",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []CELEvaluatorOption{}
			if cache != nil {
				opts = append(opts, CELWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, CELWithFunctionRegistry(registry))
			}
			return NewCELEvaluator(opts...)
		},
	},
}

func seededStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := newTestStore(t, opts...)
	for i := 1; i <= 4; i++ {
		if err := s.Merge(map[string]any{"count": i}); err != nil {
			t.Fatalf("merge: %v", err)
		}
	}
	return s
}

func TestQueryLiveDocument(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			s := seededStore(t, WithEvaluator(factory.new(nil, nil)))
			resp, err := s.Query("count > 3 && timeline.position == 4")
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if resp.Value != true {
				t.Fatalf("expected true, got %v", resp.Value)
			}
		})
	}
}

func TestTemporalWhereAndSeek(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			s := seededStore(t, WithEvaluator(factory.new(nil, nil)))

			positions, err := s.Temporal().Where("count >= 2 && count < 4")
			if err != nil {
				t.Fatalf("where: %v", err)
			}
			if len(positions) != 2 || positions[0] != 2 || positions[1] != 3 {
				t.Fatalf("expected positions [2 3], got %v", positions)
			}

			position, err := s.Temporal().Seek("count == 1")
			if err != nil {
				t.Fatalf("seek: %v", err)
			}
			if position != 1 || s.State()["count"] != 1 {
				t.Fatalf("expected seek to position 1, got %d state=%v", position, s.State())
			}

			if _, err := s.Temporal().Seek("count == 99"); !errors.Is(err, ErrNoMatch) {
				t.Fatalf("expected ErrNoMatch, got %v", err)
			}
			if s.Temporal().Position() != 1 {
				t.Fatalf("expected failed seek to stay put, got %d", s.Temporal().Position())
			}
		})
	}
}

func TestInspectorQuery(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			s := newTestStore(t,
				WithEvaluator(factory.new(nil, nil)),
				WithActions(map[string]Action{"increment": increment}),
			)
			_ = s.Dispatch("increment")
			_ = s.Merge(map[string]any{"label": "x"})
			_ = s.Dispatch("increment")

			entries, err := s.Inspector().Query(`action == "increment"`)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if len(entries) != 2 {
				t.Fatalf("expected 2 matching entries, got %d", len(entries))
			}

			entries, err = s.Inspector().Query(`"/label" in paths`)
			if err != nil {
				t.Fatalf("query paths: %v", err)
			}
			if len(entries) != 1 || entries[0].ActionName != "set(label)" {
				t.Fatalf("expected the label merge, got %+v", entries)
			}
		})
	}
}

func TestQueryDocumentFunctions(t *testing.T) {
	s, err := New(map[string]any{"user": map[string]any{"name": "ada"}},
		WithFunctionRegistry(NewDocumentFunctionRegistry()),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	resp, err := s.Query(`lookup(state, "user.name")`)
	if err != nil {
		t.Fatalf("query get: %v", err)
	}
	if resp.Value != "ada" {
		t.Fatalf("expected ada, got %v", resp.Value)
	}

	resp, err = s.Query(`exists(state, "user.email")`)
	if err != nil {
		t.Fatalf("query has: %v", err)
	}
	if resp.Value != false {
		t.Fatalf("expected false, got %v", resp.Value)
	}
}

func TestQueryCELCallBinding(t *testing.T) {
	registry := NewFunctionRegistry()
	_ = registry.Register("double", func(args ...any) (any, error) {
		return args[0].(int64) * 2, nil
	})
	s := seededStore(t, WithEvaluator(NewCELEvaluator(CELWithFunctionRegistry(registry))))

	resp, err := s.Query(`call("double", [count])`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if resp.Value != int64(8) {
		t.Fatalf("expected 8, got %v (%T)", resp.Value, resp.Value)
	}
}

func TestQueryUsesProgramCache(t *testing.T) {
	cache := NewMapProgramCache()
	s := seededStore(t, WithProgramCache(cache))

	if _, err := s.Temporal().Where("count > 1"); err != nil {
		t.Fatalf("where: %v", err)
	}
	if _, err := s.Temporal().Where("count > 1"); err != nil {
		t.Fatalf("where: %v", err)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected a single cached program, got %d", cache.Len())
	}
}

type constantEvaluator struct {
	value any
}

func (e constantEvaluator) Evaluate(RuleContext, string) (any, error) { return e.value, nil }

func (e constantEvaluator) Compile(string, ...CompileOption) (CompiledRule, error) {
	return constantRule(e), nil
}

type constantRule struct {
	value any
}

func (r constantRule) Evaluate(RuleContext) (any, error) { return r.value, nil }

func TestPredicateRequiresBool(t *testing.T) {
	s := seededStore(t, WithEvaluator(constantEvaluator{value: 3}))

	_, err := s.Temporal().Where("anything")
	if !errors.Is(err, ErrNonBooleanResult) {
		t.Fatalf("expected ErrNonBooleanResult, got %v", err)
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "custom" || evalErr.Position != 0 || evalErr.Branch != "main" {
		t.Fatalf("unexpected error metadata: %+v", evalErr)
	}
}

func TestQueryReportsToEvaluatorLogger(t *testing.T) {
	var events []EvaluatorLogEvent
	s := seededStore(t, WithEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		events = append(events, event)
	})), WithName("counter"))

	if _, err := s.Query("count +"); err == nil {
		t.Fatalf("expected compile error")
	}
	if len(events) != 1 {
		t.Fatalf("expected one log event, got %d", len(events))
	}
	if events[0].Engine != "expr" || events[0].Store != "counter" || events[0].Err == nil {
		t.Fatalf("unexpected log event: %+v", events[0])
	}
}

type capturingEvaluator struct {
	contexts []RuleContext
}

func (c *capturingEvaluator) Evaluate(ctx RuleContext, _ string) (any, error) {
	c.contexts = append(c.contexts, ctx)
	return true, nil
}

func (c *capturingEvaluator) Compile(string, ...CompileOption) (CompiledRule, error) {
	return nil, errors.New("not supported")
}

func TestQueryWithOverridesSnapshot(t *testing.T) {
	s := newTestStore(t)
	resp, err := s.QueryWith(RuleContext{
		Snapshot: map[string]any{"count": 42},
		Args:     map[string]any{"min": 40},
	}, "count > args.min")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if resp.Value != true {
		t.Fatalf("expected true, got %v", resp.Value)
	}

	if _, err := s.Query(""); err == nil {
		t.Fatalf("expected empty expression error")
	}
}

func TestQueryContextCarriesLineageAndClock(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	capture := &capturingEvaluator{}
	s := seededStore(t, WithName("counter"), WithEvaluator(capture), WithClock(func() time.Time { return fixed }))

	if _, err := s.Query("anything"); err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(capture.contexts) != 1 {
		t.Fatalf("expected one context, got %d", len(capture.contexts))
	}
	ctx := capture.contexts[0]
	if ctx.Now == nil || !ctx.Now.Equal(fixed) {
		t.Fatalf("expected clock applied, got %v", ctx.Now)
	}
	if ctx.Store != "counter" || ctx.Branch != "main" || ctx.Position != 4 || ctx.Length != 4 {
		t.Fatalf("unexpected lineage: %+v", ctx)
	}
	if ctx.Args == nil || ctx.Metadata == nil {
		t.Fatalf("expected default maps")
	}
	snapshot := ctx.Snapshot.(map[string]any)
	if snapshot["count"] != 4 {
		t.Fatalf("expected live snapshot, got %v", snapshot)
	}

	if _, err := s.Temporal().Where("anything"); err == nil {
		t.Fatalf("expected compile failure to surface")
	}
}

func TestExprDocumentKeysShadowBuiltins(t *testing.T) {
	evaluator := NewExprEvaluator()
	ctx := RuleContext{
		Snapshot: map[string]any{
			"count": 3,
			"len":   "short",
			"items": []any{"a", "b"},
		},
		Args: map[string]any{"min": 2},
	}

	cases := map[string]any{
		"count > 2":           true,
		"count > args.min":    true,
		`len == "short"`:      true,
		"len(items)":          2,
		"state.count + 1":     4,
		"args.missing == nil": true,
	}
	for expression, want := range cases {
		got, err := evaluator.Evaluate(ctx, expression)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", expression, err)
		}
		if got != want {
			t.Fatalf("%s: expected %v, got %v", expression, want, got)
		}
	}

	rule, err := evaluator.Compile("count > args.min", AsPredicate())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got, err := rule.Evaluate(RuleContext{Snapshot: map[string]any{"count": 1}, Args: map[string]any{"min": 2}})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != false {
		t.Fatalf("expected false, got %v", got)
	}
}
