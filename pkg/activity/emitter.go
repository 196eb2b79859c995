package activity

import (
	"context"
	"strings"
	"time"
)

// DefaultChannel is applied to events emitted without a channel.
const DefaultChannel = "timetravel"

// Config controls emission defaults.
type Config struct {
	Enabled bool
	Channel string
	// Now stamps events that carry no OccurredAt. Defaults to time.Now.
	Now func() time.Time
}

// Emitter applies channel and timestamp defaults before fanning out to hooks.
type Emitter struct {
	hooks   Hooks
	channel string
	now     func() time.Time
}

// NewEmitter returns an emitter over the non-nil hooks. A disabled config
// yields an emitter that drops everything.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	e := &Emitter{
		channel: strings.TrimSpace(cfg.Channel),
		now:     cfg.Now,
	}
	if cfg.Enabled {
		e.hooks = Compact(hooks)
	}
	if e.channel == "" {
		e.channel = DefaultChannel
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Enabled reports whether Emit would reach any hook.
func (e *Emitter) Enabled() bool {
	return e != nil && len(e.hooks) > 0
}

// Emit forwards event to the hooks.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	event = normalizeAt(event, e.now)
	if event.Channel == "" {
		event.Channel = e.channel
	}
	return e.hooks.Notify(ctx, event)
}
