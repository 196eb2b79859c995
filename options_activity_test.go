package timetravel

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-timetravel/pkg/activity"
)

func TestWithActivityHooksClonesAndFiltersNil(t *testing.T) {
	hook := activity.HookFunc(func(context.Context, activity.Event) error { return nil })

	s := newTestStore(t, WithActivityHooks(activity.Hooks{nil, hook}))
	hooks := s.ActivityHooks()
	if len(hooks) != 1 {
		t.Fatalf("expected 1 hook, got %d", len(hooks))
	}

	hooks[0] = nil
	again := s.ActivityHooks()
	if len(again) != 1 || again[0] == nil {
		t.Fatalf("expected cloned hooks unaffected by mutation, got %+v", again)
	}
}

func TestActivityHooksDefaultNil(t *testing.T) {
	if hooks := newTestStore(t).ActivityHooks(); hooks != nil {
		t.Fatalf("expected nil hooks by default, got %+v", hooks)
	}
}

func TestBranchLifecycleEmitsActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	s := newTestStore(t,
		WithName("editor"),
		WithInspector(InspectorConfig{Enabled: false}),
		WithActivityHooks(activity.Hooks{capture}),
		WithActivityChannel("devtools"),
		WithActivityActor("actor-1", "user-1", "tenant-1"),
	)

	exp, err := s.Branches().Fork("exp")
	if err != nil {
		t.Fatalf("fork: %v", err)
	}
	_ = s.Branches().Switch(exp.ID)
	_ = s.Branches().Rename(exp.ID, "experiment")
	_ = s.Branches().Switch("main")
	_ = s.Branches().Delete(exp.ID)

	verbs := []string{"branch.forked", "branch.switched", "branch.renamed", "branch.switched", "branch.deleted"}
	if len(capture.Events) != len(verbs) {
		t.Fatalf("expected %d events, got %d", len(verbs), len(capture.Events))
	}
	for i, verb := range verbs {
		if capture.Events[i].Verb != verb {
			t.Fatalf("event %d: expected %s, got %s", i, verb, capture.Events[i].Verb)
		}
	}

	forked := capture.Events[0]
	if forked.ObjectID != exp.ID || forked.ObjectType != activity.ObjectTypeBranch {
		t.Fatalf("unexpected object fields: %+v", forked)
	}
	if forked.Channel != "devtools" || forked.ActorID != "actor-1" || forked.TenantID != "tenant-1" {
		t.Fatalf("unexpected envelope: %+v", forked)
	}
	if forked.Metadata["store"] != "editor" || forked.Metadata["name"] != "exp" || forked.Metadata["previous_id"] != "main" {
		t.Fatalf("unexpected metadata: %+v", forked.Metadata)
	}
	if capture.Events[2].Metadata["previous_name"] != "exp" {
		t.Fatalf("expected rename to carry previous name, got %+v", capture.Events[2].Metadata)
	}
}

func TestRecordedActionsEmitActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	s := newTestStore(t, WithActivityHooks(activity.Hooks{capture}))

	_ = s.Merge(map[string]any{"count": 1})

	if len(capture.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(capture.Events))
	}
	event := capture.Events[0]
	entry := s.Inspector().ActionLog()[0]
	if event.Verb != "action.recorded" || event.ObjectID != entry.ID {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Channel != activity.DefaultChannel {
		t.Fatalf("expected default channel, got %q", event.Channel)
	}
	paths, ok := event.Metadata["paths"].([]string)
	if !ok || len(paths) != 1 || paths[0] != "/count" {
		t.Fatalf("expected changed paths, got %v", event.Metadata["paths"])
	}
}

func TestActivityHookFailureIsLoggedNotReturned(t *testing.T) {
	boom := errors.New("sink down")
	var logged []LogEvent
	s := newTestStore(t,
		WithActivityHooks(activity.Hooks{&activity.CaptureHook{Err: boom}}),
		WithLogger(LoggerFunc(func(event LogEvent) {
			if event.Kind == LogHook {
				logged = append(logged, event)
			}
		})),
	)

	if err := s.Merge(map[string]any{"count": 1}); err != nil {
		t.Fatalf("expected mutation to succeed, got %v", err)
	}
	if len(logged) != 1 || !errors.Is(logged[0].Err, boom) {
		t.Fatalf("expected hook failure logged, got %+v", logged)
	}
	if logged[0].Action != "action.recorded" {
		t.Fatalf("expected verb in log event, got %q", logged[0].Action)
	}
}
