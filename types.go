package timetravel

import (
	"time"

	"github.com/goliatone/go-timetravel/branch"
	"github.com/goliatone/go-timetravel/inspector"
	"github.com/goliatone/go-timetravel/timeline"
)

// TimelineConfig controls history recording for a store.
type TimelineConfig = timeline.Config

// BranchConfig controls branching for a store.
type BranchConfig = branch.Config

// InspectorConfig controls the action log.
type InspectorConfig struct {
	Enabled bool
	// Capacity bounds the log; zero means inspector.DefaultCapacity.
	Capacity int
}

// DefaultTimelineConfig returns the timeline defaults: enabled, 100 entries,
// auto archive.
func DefaultTimelineConfig() TimelineConfig {
	return timeline.DefaultConfig()
}

// DefaultBranchConfig returns branching enabled.
func DefaultBranchConfig() BranchConfig {
	return BranchConfig{Enabled: true}
}

// DefaultInspectorConfig returns the inspector enabled with the default
// capacity.
func DefaultInspectorConfig() InspectorConfig {
	return InspectorConfig{Enabled: true, Capacity: inspector.DefaultCapacity}
}

// Action is a named mutator registered with WithActions and invoked through
// Store.Dispatch. It edits draft in place.
type Action func(draft map[string]any, args ...any) error

// Response stores a typed result produced by an evaluator.
type Response[T any] struct {
	Value T
}

// RuleContext carries inputs needed when evaluating an expression.
type RuleContext struct {
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	Store    string
	Branch   string
	Position int
	Length   int
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) branchLabel() string {
	if ctx.Branch != "" {
		return ctx.Branch
	}
	return "unknown"
}

// timelineBinding exposes the lineage coordinates under the "timeline"
// variable.
func (ctx RuleContext) timelineBinding() map[string]any {
	return map[string]any{
		"store":    ctx.Store,
		"branch":   ctx.Branch,
		"position": ctx.Position,
		"length":   ctx.Length,
	}
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct {
	predicate bool
}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// AsPredicate requires the compiled expression to yield a bool. Engines that
// type-check at compile time reject other result types up front.
func AsPredicate() CompileOption {
	return compileOptionFunc(func(cfg *compileConfig) {
		cfg.predicate = true
	})
}

func applyCompileOptions(opts []CompileOption) compileConfig {
	cfg := compileConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyCompileOption(&cfg)
		}
	}
	return cfg
}

func (cfg compileConfig) cacheKey(engine, expression string) string {
	if cfg.predicate {
		return engine + ":bool:" + expression
	}
	return engine + ":" + expression
}
