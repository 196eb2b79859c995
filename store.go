package timetravel

import (
	"fmt"
	"slices"

	"github.com/goliatone/go-timetravel/branch"
	"github.com/goliatone/go-timetravel/inspector"
	"github.com/goliatone/go-timetravel/mutation"
	"github.com/goliatone/go-timetravel/patch"
	"github.com/goliatone/go-timetravel/pkg/activity"
	"github.com/goliatone/go-timetravel/timeline"
)

// Listener receives the new and previous document after every change to the
// live data: mutations, travel and branch switches. Both maps are copies.
type Listener func(state, previous map[string]any)

// Store is a mutable document with history, branches and an action log.
type Store struct {
	cfg       storeConfig
	data      map[string]any
	branches  *branch.Manager
	actions   *inspector.Log
	emitter   *activity.Emitter
	evaluator Evaluator

	listeners      []listenerEntry[Listener]
	travelers      []listenerEntry[timeline.Listener]
	nextListenerID int
}

type listenerEntry[F any] struct {
	id int
	fn F
}

// New builds a store holding initial. The main branch is captured before New
// returns, so every branch operation is available immediately.
func New(initial map[string]any, opts ...Option) (*Store, error) {
	if err := patch.Validate(initial); err != nil {
		return nil, fmt.Errorf("timetravel: initial state: %w", err)
	}
	cfg := applyOptions(opts)
	s := &Store{
		cfg:     cfg,
		data:    patch.CloneDocument(initial),
		emitter: activity.NewEmitter(cfg.activityHooks, cfg.activity),
	}

	if cfg.inspector.Enabled {
		s.actions = inspector.New(
			inspector.WithCapacity(cfg.inspector.Capacity),
			inspector.WithClock(cfg.now),
			inspector.WithErrorHandler(s.inspectorFailed),
		)
		s.actions.Subscribe(s.actionRecorded)
	}

	s.branches = branch.NewManager(cfg.branching, s.restoreEngine,
		branch.WithClock(cfg.now),
		branch.WithPublisher(s.publish),
	)
	s.branches.Subscribe(s.branchChanged)
	if err := s.branches.Init(s.watch(timeline.New(s.data, cfg.timeline, s.publish))); err != nil {
		return nil, fmt.Errorf("timetravel: %s: %w", cfg.name, err)
	}
	return s, nil
}

// Name returns the store name.
func (s *Store) Name() string {
	return s.cfg.name
}

// State returns a copy of the live document.
func (s *Store) State() map[string]any {
	return patch.Clone(s.data)
}

// Set applies update on the active branch. No-op updates are not recorded on
// the timeline but still reach the action log.
func (s *Store) Set(update mutation.Update) error {
	name := update.ActionNameFor(s.data)
	result, err := s.engine().Mutate(update)
	if err != nil {
		s.cfg.logger.LogEvent(LogEvent{Kind: LogMutation, Store: s.cfg.name, Branch: s.branches.ActiveID(), Action: name, Err: err})
		return fmt.Errorf("timetravel: %s %s: %w", s.cfg.name, name, err)
	}

	s.cfg.logger.LogEvent(LogEvent{
		Kind:     LogMutation,
		Store:    s.cfg.name,
		Branch:   s.branches.ActiveID(),
		Action:   name,
		Position: result.Position,
		Length:   s.engine().Len(),
		Changed:  result.Changed,
	})
	s.cfg.metrics.Mutation(s.cfg.name, s.branches.ActiveID(), result.Changed)
	if s.actions != nil {
		s.actions.Record(update, result.Pre, result.Post)
	}
	return nil
}

// Replace overwrites the whole document.
func (s *Store) Replace(data map[string]any) error {
	return s.Set(mutation.Replace(data))
}

// Merge overwrites the given top-level keys.
func (s *Store) Merge(partial map[string]any) error {
	return s.Set(mutation.Merge(partial))
}

// Update runs fn against a draft copy of the document.
func (s *Store) Update(fn mutation.Func) error {
	return s.Set(mutation.Apply(fn))
}

// Dispatch runs the action registered under name with args. The action name
// is what the action log records.
func (s *Store) Dispatch(name string, args ...any) error {
	action, ok := s.cfg.actions[name]
	if !ok || action == nil {
		return fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return s.Set(mutation.Named(name, func(draft map[string]any) error {
		return action(draft, args...)
	}))
}

// Actions lists registered action names, sorted.
func (s *Store) Actions() []string {
	names := make([]string, 0, len(s.cfg.actions))
	for name := range s.cfg.actions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Subscribe registers fn for data changes. The returned function removes it;
// removal during a notification takes effect on the next one.
func (s *Store) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	s.nextListenerID++
	id := s.nextListenerID
	s.listeners = append(s.listeners, listenerEntry[Listener]{id: id, fn: fn})
	return func() {
		s.listeners = slices.DeleteFunc(s.listeners, func(entry listenerEntry[Listener]) bool {
			return entry.id == id
		})
	}
}

// Temporal returns the undo/redo facade for the active branch.
func (s *Store) Temporal() *Temporal {
	return &Temporal{store: s}
}

// Branches returns the branching facade.
func (s *Store) Branches() *Branches {
	return &Branches{store: s}
}

// Inspector returns the action log facade.
func (s *Store) Inspector() *Inspector {
	return &Inspector{store: s}
}

func (s *Store) engine() *timeline.Engine {
	return s.branches.Engine()
}

// publish installs state as the live document and notifies listeners. It is
// the publisher of every engine and of the branch manager.
func (s *Store) publish(state map[string]any) {
	previous := s.data
	s.data = state
	for _, entry := range slices.Clone(s.listeners) {
		entry.fn(patch.Clone(state), patch.Clone(previous))
	}
}

// restoreEngine is the branch manager's engine factory.
func (s *Store) restoreEngine(state timeline.State) (*timeline.Engine, error) {
	engine, err := timeline.Restore(state.Current, state.Log, state.Position, s.cfg.timeline, s.publish)
	if err != nil {
		return nil, err
	}
	return s.watch(engine), nil
}

func (s *Store) watch(engine *timeline.Engine) *timeline.Engine {
	engine.Subscribe(s.timelineChanged)
	return engine
}

func (s *Store) timelineChanged(event timeline.Event) {
	if event.Kind != timeline.EventMutate {
		s.cfg.logger.LogEvent(LogEvent{
			Kind:     LogTravel,
			Store:    s.cfg.name,
			Branch:   s.branches.ActiveID(),
			Action:   string(event.Kind),
			Position: event.Position,
			Length:   event.Length,
		})
		s.cfg.metrics.Travel(s.cfg.name, s.branches.ActiveID(), event.Position, event.Length)
	}
	for _, entry := range slices.Clone(s.travelers) {
		entry.fn(event)
	}
}

func (s *Store) subscribeTimeline(fn timeline.Listener) func() {
	if fn == nil {
		return func() {}
	}
	s.nextListenerID++
	id := s.nextListenerID
	s.travelers = append(s.travelers, listenerEntry[timeline.Listener]{id: id, fn: fn})
	return func() {
		s.travelers = slices.DeleteFunc(s.travelers, func(entry listenerEntry[timeline.Listener]) bool {
			return entry.id == id
		})
	}
}

func (s *Store) inspectorFailed(err error) {
	s.cfg.logger.LogEvent(LogEvent{Kind: LogAction, Store: s.cfg.name, Branch: s.branches.ActiveID(), Err: err})
}
