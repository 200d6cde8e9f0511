// ABOUTME: Controller wires one EditSession to its validation and preview coordinators.
// ABOUTME: Enforces the close protocol: cancel timers, synchronous revert push, then closed.

package editor

import (
	"time"

	"github.com/2389/studio/internal/debounce"
	"github.com/2389/studio/internal/preview"
	"github.com/2389/studio/internal/session"
	"github.com/2389/studio/internal/validation"
)

// Config carries the collaborators and tuning for one edit session.
type Config struct {
	Validator RemoteValidator
	Store     preview.StateStore
	Fallback  preview.Fallback

	// ValidateDelay and PreviewDelay default to the coordinators' 300ms.
	ValidateDelay time.Duration
	PreviewDelay  time.Duration

	// OnValidation receives each published result set. Optional.
	OnValidation func(validation.ResultSet)
}

// RemoteValidator re-exports the validation collaborator so callers wiring a
// controller need only this package.
type RemoteValidator = validation.RemoteValidator

// Controller owns the per-session wiring. The configuration buffer is owned
// exclusively by the underlying EditSession; external consumers receive
// copies through the state store.
type Controller struct {
	id      string
	sess    *session.EditSession
	sched   *debounce.Scheduler
	valid   *validation.Coordinator
	preview *preview.Propagator
}

// open builds the wiring around an already-opened session.
func open(id string, sess *session.EditSession, cfg Config) *Controller {
	sched := debounce.NewScheduler()
	entity := sess.Entity()

	c := &Controller{
		id:      id,
		sess:    sess,
		sched:   sched,
		valid:   validation.New(sched, cfg.Validator, entity.TypeID, cfg.ValidateDelay, cfg.OnValidation),
		preview: preview.New(sched, cfg.Store, cfg.Fallback, entity, cfg.PreviewDelay),
	}

	// Saved and Reverted contents bypass the debounce: a save should reach
	// the preview immediately, and the close-time implicit revert must land
	// before the closed event goes out to any listener.
	sess.Subscribe(func(evt session.Event, buffer map[string]any) {
		switch evt {
		case session.EventSaved, session.EventReverted:
			c.preview.PushNow(buffer)
		}
	})
	return c
}

// ID returns the session identifier assigned by the manager.
func (c *Controller) ID() string { return c.id }

// Session exposes the underlying edit session.
func (c *Controller) Session() *session.EditSession { return c.sess }

// SetField applies one optimistic local mutation, then schedules debounced
// validation and preview propagation carrying the updated buffer. Returns the
// new dirty state.
func (c *Controller) SetField(name string, value any) bool {
	dirty := c.sess.SetField(name, value)
	buf := c.sess.Buffer()
	c.valid.Request(buf)
	c.preview.Request(buf)
	return dirty
}

// Save commits the buffer as the new snapshot and returns the committed
// contents. The session's Saved event pushes the committed state to the
// preview synchronously.
func (c *Controller) Save() map[string]any {
	c.valid.CancelPending()
	return c.sess.Save()
}

// Revert restores the buffer from the snapshot, drops any pending validation,
// and returns the restored contents.
func (c *Controller) Revert() map[string]any {
	c.valid.CancelPending()
	return c.sess.Revert()
}

// Validation returns the last published validation result set.
func (c *Controller) Validation() validation.ResultSet {
	return c.valid.Result()
}

// Close ends the session. Pending debounce timers are cancelled first so a
// stale task cannot fire mid-close; the session then runs its implicit revert
// (pushed synchronously through the Reverted listener) before signaling
// closed. In-flight validator responses are dropped by the token check.
func (c *Controller) Close() {
	c.valid.Close()
	c.preview.CancelPending()
	c.sess.Close()
	c.sched.Stop()
}
