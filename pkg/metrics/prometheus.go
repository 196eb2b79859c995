// Package metrics exports store activity as Prometheus collectors.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	timetravel "github.com/goliatone/go-timetravel"
)

const (
	namespace = "timetravel"
	subsystem = "store"
)

var _ timetravel.Metrics = (*Prometheus)(nil)

// Prometheus implements timetravel.Metrics.
type Prometheus struct {
	mutations     *prometheus.CounterVec
	position      *prometheus.GaugeVec
	length        *prometheus.GaugeVec
	travels       *prometheus.CounterVec
	branchEvents  *prometheus.CounterVec
	branches      *prometheus.GaugeVec
	actions       *prometheus.CounterVec
	actionLogSize *prometheus.GaugeVec
	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
}

// New builds the collectors and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prometheus{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "mutations_total",
			Help:      "Successful store mutations.",
		}, []string{"store", "branch", "changed"}),
		position: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "timeline_position",
			Help:      "Cursor position of the active timeline.",
		}, []string{"store", "branch"}),
		length: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "timeline_length",
			Help:      "Number of entries in the active timeline.",
		}, []string{"store", "branch"}),
		travels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "travels_total",
			Help:      "Cursor moves.",
		}, []string{"store", "branch"}),
		branchEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "branch_events_total",
			Help:      "Branch lifecycle events by kind.",
		}, []string{"store", "kind"}),
		branches: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "branches",
			Help:      "Number of branches.",
		}, []string{"store"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "actions_total",
			Help:      "Entries appended to the action log.",
		}, []string{"store", "action"}),
		actionLogSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "action_log_size",
			Help:      "Entries currently held by the action log.",
		}, []string{"store"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queries_total",
			Help:      "Expression evaluations by engine and result.",
		}, []string{"store", "engine", "result"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "query_duration_seconds",
			Help:      "Expression evaluation latency.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"store", "engine"}),
	}

	for _, collector := range []prometheus.Collector{
		p.mutations, p.position, p.length, p.travels, p.branchEvents,
		p.branches, p.actions, p.actionLogSize, p.queries, p.queryDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return p, nil
}

func (p *Prometheus) Mutation(store, branch string, changed bool) {
	p.mutations.WithLabelValues(store, branch, fmt.Sprint(changed)).Inc()
}

func (p *Prometheus) Travel(store, branch string, position, length int) {
	p.travels.WithLabelValues(store, branch).Inc()
	p.position.WithLabelValues(store, branch).Set(float64(position))
	p.length.WithLabelValues(store, branch).Set(float64(length))
}

func (p *Prometheus) Branch(store string, kind string, count int) {
	p.branchEvents.WithLabelValues(store, kind).Inc()
	p.branches.WithLabelValues(store).Set(float64(count))
}

func (p *Prometheus) Action(store, name string, size int) {
	p.actions.WithLabelValues(store, name).Inc()
	p.actionLogSize.WithLabelValues(store).Set(float64(size))
}

func (p *Prometheus) Query(store, engine string, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.queries.WithLabelValues(store, engine, result).Inc()
	p.queryDuration.WithLabelValues(store, engine).Observe(duration.Seconds())
}
