// ABOUTME: EditSession owns the mutable configuration buffer for one open entity.
// ABOUTME: Tracks the original snapshot, derives dirty state, and emits lifecycle events.

package session

import "sync"

// Entity is the target of an edit session: a widget's identity plus its
// editable configuration and the non-configuration fields that accompany it
// in preview pushes.
type Entity struct {
	ID     string
	TypeID string
	Config map[string]any
	Meta   map[string]any
}

// Event identifies a session lifecycle transition.
type Event string

const (
	EventOpened   Event = "sessionOpened"
	EventSaved    Event = "sessionSaved"
	EventReverted Event = "sessionReverted"
	EventClosed   Event = "sessionClosed"
)

// Listener receives lifecycle events with a read-only copy of the buffer at
// the time of the event.
type Listener func(evt Event, buffer map[string]any)

// EditSession holds the working buffer and the immutable snapshot it is
// diffed against. All operations are pure local-state transitions; none can
// fail. Dirty is derived by structural equality, never stored authoritatively.
type EditSession struct {
	mu        sync.Mutex
	entity    Entity
	buffer    map[string]any
	snapshot  map[string]any
	dirty     bool
	closed    bool
	listeners []Listener
}

// Open creates a session over entity with buffer and snapshot both set to a
// deep copy of the entity's configuration.
func Open(entity Entity) *EditSession {
	s := &EditSession{}
	s.Reinit(entity)
	return s
}

// Reinit replaces the session's target wholesale: new buffer, new snapshot,
// dirty cleared. Used when the session switches to a different entity.
func (s *EditSession) Reinit(entity Entity) {
	s.mu.Lock()
	s.entity = entity
	s.buffer = CloneMap(entity.Config)
	s.snapshot = CloneMap(entity.Config)
	s.dirty = false
	s.closed = false
	buf := CloneMap(s.buffer)
	s.mu.Unlock()

	s.emit(EventOpened, buf)
}

// Subscribe registers a lifecycle listener. Listeners are invoked in
// registration order, synchronously.
func (s *EditSession) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Entity returns the session's target entity.
func (s *EditSession) Entity() Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entity
}

// SetField assigns one buffer field and returns the recomputed dirty state.
func (s *EditSession) SetField(name string, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.buffer[name] = cloneValue(value)
	s.dirty = !Equal(s.buffer, s.snapshot)
	return s.dirty
}

// Buffer returns a deep copy of the working buffer.
func (s *EditSession) Buffer() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CloneMap(s.buffer)
}

// Snapshot returns a deep copy of the original snapshot.
func (s *EditSession) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CloneMap(s.snapshot)
}

// Dirty reports whether the buffer differs structurally from the snapshot.
func (s *EditSession) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Closed reports whether the session has been closed.
func (s *EditSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Save promotes the buffer to the new snapshot and emits the committed
// contents. It does not persist anything itself; the emitted buffer is the
// unit the caller persists.
func (s *EditSession) Save() map[string]any {
	s.mu.Lock()
	s.snapshot = CloneMap(s.buffer)
	s.dirty = false
	buf := CloneMap(s.buffer)
	s.mu.Unlock()

	s.emit(EventSaved, buf)
	return buf
}

// Revert restores the buffer from the snapshot and emits the restored
// contents. Reverting an already-clean session is a no-op apart from the
// event.
func (s *EditSession) Revert() map[string]any {
	s.mu.Lock()
	s.buffer = CloneMap(s.snapshot)
	s.dirty = false
	buf := CloneMap(s.buffer)
	s.mu.Unlock()

	s.emit(EventReverted, buf)
	return buf
}

// Close ends the session. If the buffer holds unsaved edits, an implicit
// Revert runs first so every listener sees the reverted contents before any
// listener sees the close. Reverting after close would fire against
// consumers that already tore down.
func (s *EditSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	wasDirty := s.dirty
	s.mu.Unlock()

	if wasDirty {
		s.Revert()
	}

	s.mu.Lock()
	s.closed = true
	buf := CloneMap(s.snapshot)
	s.mu.Unlock()

	s.emit(EventClosed, buf)
}

func (s *EditSession) emit(evt Event, buffer map[string]any) {
	s.mu.Lock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l(evt, buffer)
	}
}
