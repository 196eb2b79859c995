package timetravel

import (
	"maps"
	"time"

	"github.com/goliatone/go-timetravel/pkg/activity"
)

// Option configures a Store.
type Option func(*storeConfig)

type storeConfig struct {
	name          string
	timeline      TimelineConfig
	branching     BranchConfig
	inspector     InspectorConfig
	actions       map[string]Action
	logger        Logger
	evalLogger    EvaluatorLogger
	metrics       Metrics
	evaluator     Evaluator
	programCache  ProgramCache
	functions     *FunctionRegistry
	activityHooks activity.Hooks
	activity      activity.Config
	actor         activityActor
	now           func() time.Time
}

func applyOptions(opts []Option) storeConfig {
	cfg := storeConfig{
		name:       "store",
		timeline:   DefaultTimelineConfig(),
		branching:  DefaultBranchConfig(),
		inspector:  DefaultInspectorConfig(),
		actions:    map[string]Action{},
		logger:     noopLogger{},
		evalLogger: noopEvaluatorLogger{},
		metrics:    noopMetrics{},
		activity:   activity.Config{Enabled: true},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.activity.Now = cfg.now
	return cfg
}

// WithName sets the store name used in logs, metrics and activity.
func WithName(name string) Option {
	return func(cfg *storeConfig) {
		if name != "" {
			cfg.name = name
		}
	}
}

// WithTimeline configures history recording.
func WithTimeline(timeline TimelineConfig) Option {
	return func(cfg *storeConfig) {
		cfg.timeline = timeline
	}
}

// WithBranching configures the branch manager.
func WithBranching(branching BranchConfig) Option {
	return func(cfg *storeConfig) {
		cfg.branching = branching
	}
}

// WithInspector configures the action log.
func WithInspector(inspector InspectorConfig) Option {
	return func(cfg *storeConfig) {
		cfg.inspector = inspector
	}
}

// WithActions registers named actions for Dispatch. Later registrations
// replace earlier ones with the same name.
func WithActions(actions map[string]Action) Option {
	return func(cfg *storeConfig) {
		maps.Copy(cfg.actions, actions)
	}
}

// WithEvaluator configures the evaluator used by queries.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *storeConfig) {
		cfg.evaluator = e
	}
}

// WithClock overrides the time source for branch records, log entries and
// rule contexts.
func WithClock(now func() time.Time) Option {
	return func(cfg *storeConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}
