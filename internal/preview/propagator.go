// ABOUTME: Debounced propagation of in-progress edits to the shared state store.
// ABOUTME: Owns its own debounce slot; PushNow bypasses the delay for close-time snaps.

package preview

import (
	"time"

	"github.com/2389/studio/internal/debounce"
	"github.com/2389/studio/internal/session"
)

// DefaultDelay is the quiet period between the last edit and a preview push.
const DefaultDelay = 300 * time.Millisecond

const slotKey = "preview"

// StateStore is the process-wide publish/subscribe store other screens read
// from. The core only consumes this contract.
type StateStore interface {
	Publish(entityID string, patch map[string]any)
	Subscribe(entityID string, fn func(patch map[string]any)) (unsubscribe func())
}

// Fallback receives pushes when no state store capability is available.
type Fallback func(entityID string, patch map[string]any)

// Propagator pushes the working buffer outward, merged with the entity's
// non-configuration fields, without waiting for validation. Its debounce slot
// is independent of the validation slot: the two never cancel each other.
type Propagator struct {
	sched    *debounce.Scheduler
	store    StateStore
	fallback Fallback
	entityID string
	meta     map[string]any
	delay    time.Duration
}

// New builds a propagator. The store capability is resolved once here: when
// store is nil every push goes through fallback instead (and is dropped if
// that is nil too). delay <= 0 selects DefaultDelay.
func New(sched *debounce.Scheduler, store StateStore, fallback Fallback, entity session.Entity, delay time.Duration) *Propagator {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Propagator{
		sched:    sched,
		store:    store,
		fallback: fallback,
		entityID: entity.ID,
		meta:     session.CloneMap(entity.Meta),
		delay:    delay,
	}
}

// Request schedules a debounced push of buffer.
func (p *Propagator) Request(buffer map[string]any) {
	buf := session.CloneMap(buffer)
	p.sched.Schedule(slotKey, p.delay, func() {
		p.publish(buf)
	})
}

// PushNow cancels any pending push and publishes buffer synchronously. Used
// when a session closes with unsaved edits so the live preview snaps back to
// the snapshot instead of waiting out a stale timer.
func (p *Propagator) PushNow(buffer map[string]any) {
	p.sched.Cancel(slotKey)
	p.publish(session.CloneMap(buffer))
}

// CancelPending drops any not-yet-fired push.
func (p *Propagator) CancelPending() {
	p.sched.Cancel(slotKey)
}

func (p *Propagator) publish(buffer map[string]any) {
	patch := session.CloneMap(p.meta)
	if patch == nil {
		patch = make(map[string]any)
	}
	patch["configuration"] = buffer

	switch {
	case p.store != nil:
		p.store.Publish(p.entityID, patch)
	case p.fallback != nil:
		p.fallback(p.entityID, patch)
	}
}
