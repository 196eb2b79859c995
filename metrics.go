package timetravel

import "time"

// Metrics receives counters and gauges from store operations. Implementations
// must not call back into the store.
type Metrics interface {
	// Mutation is called after every successful Set.
	Mutation(store, branch string, changed bool)
	// Travel is called after Back, Forward, Go and Reset move the cursor.
	Travel(store, branch string, position, length int)
	// Branch is called after a lifecycle event with the current branch count.
	Branch(store string, kind string, count int)
	// Action is called after an entry is appended to the action log.
	Action(store, name string, size int)
	// Query is called after every expression evaluation.
	Query(store, engine string, duration time.Duration, err error)
}

type noopMetrics struct{}

func (noopMetrics) Mutation(string, string, bool)              {}
func (noopMetrics) Travel(string, string, int, int)            {}
func (noopMetrics) Branch(string, string, int)                 {}
func (noopMetrics) Action(string, string, int)                 {}
func (noopMetrics) Query(string, string, time.Duration, error) {}

// WithMetrics attaches a metrics sink.
func WithMetrics(metrics Metrics) Option {
	return func(cfg *storeConfig) {
		if metrics == nil {
			cfg.metrics = noopMetrics{}
			return
		}
		cfg.metrics = metrics
	}
}
