package timetravel

import (
	"context"
	"strings"

	"github.com/goliatone/go-timetravel/branch"
	"github.com/goliatone/go-timetravel/inspector"
	"github.com/goliatone/go-timetravel/pkg/activity"
)

type activityActor struct {
	actorID  string
	userID   string
	tenantID string
}

// WithActivityHooks attaches activity hooks notified on branch lifecycle
// events and recorded actions. Hooks are cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := activity.Compact(hooks)
	return func(cfg *storeConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel overrides activity.DefaultChannel.
func WithActivityChannel(channel string) Option {
	return func(cfg *storeConfig) {
		cfg.activity.Channel = strings.TrimSpace(channel)
	}
}

// WithActivityActor stamps emitted events with the given identities.
func WithActivityActor(actorID, userID, tenantID string) Option {
	return func(cfg *storeConfig) {
		cfg.actor = activityActor{actorID: actorID, userID: userID, tenantID: tenantID}
	}
}

// ActivityHooks returns a cloned slice of the configured activity hooks.
func (s *Store) ActivityHooks() activity.Hooks {
	if s == nil {
		return nil
	}
	return activity.Compact(s.cfg.activityHooks)
}

var branchLogKinds = map[branch.EventKind]LogKind{
	branch.EventForked:   LogFork,
	branch.EventSwitched: LogSwitch,
	branch.EventDeleted:  LogDelete,
	branch.EventRenamed:  LogRename,
}

// branchChanged fans branch lifecycle events out to the logger, metrics and
// activity hooks.
func (s *Store) branchChanged(event branch.Event) {
	engine := s.engine()
	s.cfg.logger.LogEvent(LogEvent{
		Kind:     branchLogKinds[event.Kind],
		Store:    s.cfg.name,
		Branch:   event.BranchID,
		Action:   event.Name,
		Position: engine.Position(),
		Length:   engine.Len(),
	})
	s.cfg.metrics.Branch(s.cfg.name, string(event.Kind), s.branches.Len())

	if !s.emitter.Enabled() {
		return
	}
	input := activity.BranchEventInput{
		ActorID:      s.cfg.actor.actorID,
		UserID:       s.cfg.actor.userID,
		TenantID:     s.cfg.actor.tenantID,
		BranchID:     event.BranchID,
		Name:         event.Name,
		PreviousID:   event.PreviousID,
		PreviousName: event.PreviousName,
		Store: activity.StoreContext{
			Store:    s.cfg.name,
			BranchID: s.branches.ActiveID(),
			Position: engine.Position(),
		},
		OccurredAt: event.OccurredAt,
	}
	var built activity.Event
	switch event.Kind {
	case branch.EventForked:
		built = activity.BuildBranchForkedEvent(input)
	case branch.EventSwitched:
		built = activity.BuildBranchSwitchedEvent(input)
	case branch.EventDeleted:
		built = activity.BuildBranchDeletedEvent(input)
	case branch.EventRenamed:
		built = activity.BuildBranchRenamedEvent(input)
	default:
		return
	}
	s.emitActivity(built)
}

// actionRecorded reports a new action log entry.
func (s *Store) actionRecorded(entry inspector.Entry) {
	size := s.actions.Len()
	s.cfg.logger.LogEvent(LogEvent{
		Kind:     LogAction,
		Store:    s.cfg.name,
		Branch:   s.branches.ActiveID(),
		Action:   entry.ActionName,
		Position: s.engine().Position(),
		Length:   size,
	})
	s.cfg.metrics.Action(s.cfg.name, entry.ActionName, size)

	if !s.emitter.Enabled() {
		return
	}
	paths := make([]string, 0, len(entry.Patches))
	for _, op := range entry.Patches {
		paths = append(paths, op.PathString())
	}
	s.emitActivity(activity.BuildActionRecordedEvent(activity.ActionEventInput{
		ActorID:    s.cfg.actor.actorID,
		UserID:     s.cfg.actor.userID,
		TenantID:   s.cfg.actor.tenantID,
		EntryID:    entry.ID,
		ActionName: entry.ActionName,
		Paths:      paths,
		Store: activity.StoreContext{
			Store:    s.cfg.name,
			BranchID: s.branches.ActiveID(),
			Position: s.engine().Position(),
		},
		OccurredAt: entry.Timestamp,
	}))
}

// emitActivity never fails the caller: hook errors are logged.
func (s *Store) emitActivity(event activity.Event) {
	if err := s.emitter.Emit(context.Background(), event); err != nil {
		s.cfg.logger.LogEvent(LogEvent{
			Kind:   LogHook,
			Store:  s.cfg.name,
			Branch: s.branches.ActiveID(),
			Action: event.Verb,
			Err:    err,
		})
	}
}
