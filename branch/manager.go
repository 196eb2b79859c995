package branch

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-timetravel/diff"
	"github.com/goliatone/go-timetravel/patch"
	"github.com/goliatone/go-timetravel/timeline"
)

// EngineFactory builds the live engine for a branch being switched to.
type EngineFactory func(state timeline.State) (*timeline.Engine, error)

// Publisher replaces the host's live data after a switch.
type Publisher func(state map[string]any)

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator overrides branch id generation.
func WithIDGenerator(next func() string) Option {
	return func(m *Manager) {
		if next != nil {
			m.newID = next
		}
	}
}

// WithPublisher registers the host callback invoked with the target branch
// data after a switch.
func WithPublisher(publish Publisher) Option {
	return func(m *Manager) {
		m.publish = publish
	}
}

// Manager owns the branch records and the active engine. It is not safe for
// concurrent use.
type Manager struct {
	cfg       Config
	factory   EngineFactory
	publish   Publisher
	now       func() time.Time
	newID     func() string
	branches  map[string]*Branch
	order     []string
	activeID  string
	engine    *timeline.Engine
	ready     bool
	listeners []listenerEntry
	nextID    int
}

type listenerEntry struct {
	id int
	fn func(Event)
}

// NewManager prepares a manager. factory builds engines on switch; when nil,
// engines are restored with timeline.DefaultConfig and no publisher.
func NewManager(cfg Config, factory EngineFactory, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		factory:  factory,
		now:      time.Now,
		newID:    uuid.NewString,
		branches: map[string]*Branch{},
	}
	if m.factory == nil {
		m.factory = func(state timeline.State) (*timeline.Engine, error) {
			return timeline.Restore(state.Current, state.Log, state.Position, timeline.DefaultConfig(), nil)
		}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Init captures engine's current lineage as main and marks the manager
// ready. Calling Init again is a no-op.
func (m *Manager) Init(engine *timeline.Engine) error {
	if engine == nil {
		return fmt.Errorf("branch: init requires an engine")
	}
	if m.ready {
		return nil
	}
	saved := engine.Snapshot()
	m.branches[MainID] = &Branch{
		ID:           MainID,
		Name:         MainID,
		Snapshot:     patch.Clone(saved.Current),
		CurrentState: saved.Current,
		Log:          saved.Log,
		Position:     saved.Position,
		CreatedAt:    m.now(),
	}
	m.order = []string{MainID}
	m.activeID = MainID
	m.engine = engine
	m.ready = true
	return nil
}

// Ready reports whether Init has completed.
func (m *Manager) Ready() bool {
	return m.ready
}

// Enabled reports whether branching is on.
func (m *Manager) Enabled() bool {
	return m.cfg.Enabled
}

// Engine returns the live engine of the active branch.
func (m *Manager) Engine() *timeline.Engine {
	return m.engine
}

// ActiveID returns the active branch id, or "" before Init.
func (m *Manager) ActiveID() string {
	return m.activeID
}

// Fork creates a branch from the active branch's current data. The new
// branch starts with an empty log; name defaults to "branch-<shortid>".
func (m *Manager) Fork(name string) (Branch, error) {
	if err := m.checkReady(); err != nil {
		return Branch{}, err
	}
	if !m.cfg.Enabled {
		return m.activeRecord(), nil
	}

	parent := m.persist()
	id := m.newID()
	name = strings.TrimSpace(name)
	if name == "" {
		name = "branch-" + shortID(id)
	}
	child := &Branch{
		ID:           id,
		Name:         name,
		ParentID:     parent.ID,
		ForkPoint:    parent.Position,
		Snapshot:     patch.Clone(parent.CurrentState),
		CurrentState: patch.Clone(parent.CurrentState),
		Position:     0,
		CreatedAt:    m.now(),
	}
	m.branches[id] = child
	m.order = append(m.order, id)

	m.notify(Event{Kind: EventForked, BranchID: id, Name: name, PreviousID: parent.ID})
	return child.Clone(), nil
}

// Switch activates branchID, rebuilding the live engine from the branch's
// saved data, log and cursor, and publishing its data to the host.
func (m *Manager) Switch(branchID string) error {
	if err := m.checkReady(); err != nil {
		return err
	}
	if !m.cfg.Enabled || branchID == m.activeID {
		return nil
	}
	target, ok := m.branches[branchID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBranch, branchID)
	}

	previous := m.persist()
	engine, err := m.factory(timeline.State{
		Current:  patch.Clone(target.CurrentState),
		Log:      patch.ClonePairs(target.Log),
		Position: target.Position,
	})
	if err != nil {
		return fmt.Errorf("branch: switch to %q: %w", branchID, err)
	}

	m.activeID = branchID
	m.engine = engine
	if m.publish != nil {
		m.publish(patch.Clone(target.CurrentState))
	}
	m.notify(Event{Kind: EventSwitched, BranchID: branchID, Name: target.Name, PreviousID: previous.ID})
	return nil
}

// List returns copies of every branch in creation order.
func (m *Manager) List() ([]Branch, error) {
	if err := m.checkReady(); err != nil {
		return nil, err
	}
	if !m.cfg.Enabled {
		return []Branch{m.activeRecord()}, nil
	}
	m.persist()
	out := make([]Branch, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.branches[id].Clone())
	}
	return out, nil
}

// Len reports how many branches List would return without copying them.
// It is 0 before Init and always 1 when branching is disabled.
func (m *Manager) Len() int {
	if m.checkReady() != nil {
		return 0
	}
	if !m.cfg.Enabled {
		return 1
	}
	return len(m.order)
}

// Active returns a copy of the active branch.
func (m *Manager) Active() (Branch, error) {
	if err := m.checkReady(); err != nil {
		return Branch{}, err
	}
	return m.activeRecord(), nil
}

// Get returns a copy of the branch with the given id.
func (m *Manager) Get(branchID string) (Branch, error) {
	if err := m.checkReady(); err != nil {
		return Branch{}, err
	}
	if !m.cfg.Enabled {
		if branchID != MainID {
			return Branch{}, fmt.Errorf("%w: %q", ErrUnknownBranch, branchID)
		}
		return m.activeRecord(), nil
	}
	m.persist()
	b, ok := m.branches[branchID]
	if !ok {
		return Branch{}, fmt.Errorf("%w: %q", ErrUnknownBranch, branchID)
	}
	return b.Clone(), nil
}

// Find resolves a branch by id, then by unique name.
func (m *Manager) Find(nameOrID string) (Branch, error) {
	if err := m.checkReady(); err != nil {
		return Branch{}, err
	}
	if !m.cfg.Enabled {
		return m.Get(nameOrID)
	}
	if _, ok := m.branches[nameOrID]; ok {
		return m.Get(nameOrID)
	}
	var match string
	for _, id := range m.order {
		if m.branches[id].Name != nameOrID {
			continue
		}
		if match != "" {
			return Branch{}, fmt.Errorf("%w: %q", ErrAmbiguousName, nameOrID)
		}
		match = id
	}
	if match == "" {
		return Branch{}, fmt.Errorf("%w: %q", ErrUnknownBranch, nameOrID)
	}
	return m.Get(match)
}

// Diff compares the current data of two branches, from a to b.
func (m *Manager) Diff(branchA, branchB string) ([]diff.Change, error) {
	if err := m.checkReady(); err != nil {
		return nil, err
	}
	if !m.cfg.Enabled {
		return []diff.Change{}, nil
	}
	m.persist()
	a, ok := m.branches[branchA]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBranch, branchA)
	}
	b, ok := m.branches[branchB]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBranch, branchB)
	}
	return diff.Compare(a.CurrentState, b.CurrentState), nil
}

// Delete removes a branch permanently. Children keep the dangling ParentID.
func (m *Manager) Delete(branchID string) error {
	if err := m.checkReady(); err != nil {
		return err
	}
	if !m.cfg.Enabled {
		return nil
	}
	if branchID == MainID {
		return ErrProtectedBranch
	}
	if branchID == m.activeID {
		return fmt.Errorf("%w: %q", ErrActiveBranchProtected, branchID)
	}
	b, ok := m.branches[branchID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBranch, branchID)
	}
	delete(m.branches, branchID)
	m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == branchID })

	m.notify(Event{Kind: EventDeleted, BranchID: branchID, Name: b.Name})
	return nil
}

// Rename changes a branch's display name. The id is unaffected.
func (m *Manager) Rename(branchID, name string) error {
	if err := m.checkReady(); err != nil {
		return err
	}
	if !m.cfg.Enabled {
		return nil
	}
	b, ok := m.branches[branchID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBranch, branchID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	previous := b.Name
	b.Name = name

	m.notify(Event{Kind: EventRenamed, BranchID: branchID, Name: name, PreviousName: previous})
	return nil
}

// Subscribe registers fn for lifecycle events. The returned function removes
// it.
func (m *Manager) Subscribe(fn func(Event)) func() {
	if fn == nil {
		return func() {}
	}
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		m.listeners = slices.DeleteFunc(m.listeners, func(entry listenerEntry) bool {
			return entry.id == id
		})
	}
}

func (m *Manager) notify(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = m.now()
	}
	for _, entry := range slices.Clone(m.listeners) {
		entry.fn(event)
	}
}

func (m *Manager) checkReady() error {
	if m.cfg.Enabled && !m.ready {
		return ErrNotInitialized
	}
	return nil
}

// persist refreshes the active record from the live engine and returns it.
func (m *Manager) persist() *Branch {
	active := m.branches[m.activeID]
	if active == nil || m.engine == nil {
		return active
	}
	saved := m.engine.Snapshot()
	active.CurrentState = saved.Current
	active.Log = saved.Log
	active.Position = saved.Position
	return active
}

// activeRecord returns a copy of the active branch, synthesizing main when
// branching is disabled and Init was skipped.
func (m *Manager) activeRecord() Branch {
	if active := m.persist(); active != nil {
		return active.Clone()
	}
	synthetic := Branch{ID: MainID, Name: MainID, CurrentState: map[string]any{}, Snapshot: map[string]any{}}
	if m.engine != nil {
		saved := m.engine.Snapshot()
		synthetic.CurrentState = saved.Current
		synthetic.Snapshot = patch.Clone(saved.Current)
		synthetic.Log = saved.Log
		synthetic.Position = saved.Position
	}
	return synthetic
}

func shortID(id string) string {
	compact := strings.ReplaceAll(id, "-", "")
	if len(compact) > 8 {
		return compact[:8]
	}
	if compact == "" {
		return uuid.NewString()[:8]
	}
	return compact
}
