package activity

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestNormalizeEventTrimsAndCopies(t *testing.T) {
	meta := map[string]any{"store": "editor"}
	recipients := []string{" a ", "b "}
	evt := Event{
		Verb:       " branch.forked ",
		ActorID:    " actor ",
		ObjectType: " timetravel.branch ",
		ObjectID:   " b-1 ",
		Channel:    " devtools ",
		Recipients: recipients,
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != "branch.forked" || got.ObjectType != ObjectTypeBranch || got.ObjectID != "b-1" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "actor" || got.Channel != "devtools" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	got.Metadata["store"] = "changed"
	got.Recipients[0] = "changed"
	if meta["store"] != "editor" || recipients[0] != " a " {
		t.Fatalf("expected inputs untouched, got %v %v", meta, recipients)
	}
}

func TestHooksNotifyDropsInvalidEvents(t *testing.T) {
	capture := &CaptureHook{}
	if err := (Hooks{capture}).Notify(context.Background(), Event{Verb: "branch.forked"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	boom1 := errors.New("boom1")
	boom2 := errors.New("boom2")
	capture := &CaptureHook{}
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, _ Event) error {
			ctxSeen = ctx != nil
			return nil
		}),
		capture,
		HookFunc(func(context.Context, Event) error { return boom1 }),
		nil,
		HookFunc(func(context.Context, Event) error { return boom2 }),
	}

	err := hooks.Notify(nil, Event{Verb: "branch.switched", ObjectType: ObjectTypeBranch, ObjectID: "main"})
	if !errors.Is(err, boom1) || !errors.Is(err, boom2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !strings.Contains(err.Error(), "hook 2") || !strings.Contains(err.Error(), "hook 4") {
		t.Fatalf("expected hook indexes in error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected context fallback to be non-nil")
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected event to be captured once, got %d", len(capture.Events))
	}
}

func TestCompact(t *testing.T) {
	if Compact(Hooks{nil, nil}) != nil {
		t.Fatalf("expected nil for all-nil hooks")
	}
	capture := &CaptureHook{}
	in := Hooks{nil, capture}
	out := Compact(in)
	if len(out) != 1 || out[0] != capture {
		t.Fatalf("unexpected compacted hooks: %+v", out)
	}
	out[0] = nil
	if in[1] == nil {
		t.Fatalf("expected compact to copy")
	}
}

func TestMatchFiltersByVerb(t *testing.T) {
	capture := &CaptureHook{}
	hook := Match(capture, "branch.", "action.recorded", " ")

	for _, verb := range []string{"branch.forked", "action.recorded", "store.replaced", "branching", "branch.deleted"} {
		_ = hook.Notify(context.Background(), Event{Verb: verb, ObjectType: "t", ObjectID: "1"})
	}

	want := []string{"branch.forked", "action.recorded", "branch.deleted"}
	if got := capture.Verbs(); !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if Match(nil, "branch.") != nil {
		t.Fatalf("expected nil hook to stay nil")
	}
}

func TestCaptureHookSnapshotAndReset(t *testing.T) {
	capture := &CaptureHook{}
	_ = capture.Notify(context.Background(), Event{Verb: "branch.forked"})

	snapshot := capture.Snapshot()
	capture.Reset()
	if len(snapshot) != 1 || len(capture.Events) != 0 {
		t.Fatalf("expected snapshot kept after reset, got %d/%d", len(snapshot), len(capture.Events))
	}
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	capture := &CaptureHook{}
	event := Event{Verb: "branch.forked", ObjectType: ObjectTypeBranch, ObjectID: "b-1"}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := disabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured when disabled")
	}
	if NewEmitter(Hooks{nil}, Config{Enabled: true}).Enabled() {
		t.Fatalf("expected emitter without hooks to be disabled")
	}

	enabled := NewEmitter(Hooks{capture}, Config{Enabled: true})
	if err := enabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(capture.Events) != 1 || capture.Events[0].Channel != DefaultChannel {
		t.Fatalf("expected default channel applied, got %+v", capture.Events)
	}
}

func TestEmitterAppliesClockAndKeepsExplicitFields(t *testing.T) {
	capture := &CaptureHook{}
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	emitter := NewEmitter(Hooks{capture}, Config{
		Enabled: true,
		Channel: "default",
		Now:     func() time.Time { return clock },
	})

	_ = emitter.Emit(context.Background(), Event{Verb: "branch.forked", ObjectType: ObjectTypeBranch, ObjectID: "1"})
	explicit := clock.Add(time.Hour)
	_ = emitter.Emit(context.Background(), Event{Verb: "branch.forked", ObjectType: ObjectTypeBranch, ObjectID: "2", Channel: "custom", OccurredAt: explicit})

	if !capture.Events[0].OccurredAt.Equal(clock) || capture.Events[0].Channel != "default" {
		t.Fatalf("expected clock and configured channel, got %+v", capture.Events[0])
	}
	if !capture.Events[1].OccurredAt.Equal(explicit) || capture.Events[1].Channel != "custom" {
		t.Fatalf("expected explicit fields preserved, got %+v", capture.Events[1])
	}
}
