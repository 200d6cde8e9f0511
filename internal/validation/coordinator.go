// ABOUTME: Debounced remote-validation coordinator with stale-response rejection.
// ABOUTME: Serializes requests with monotonic tokens; only the latest response is published.

package validation

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/2389/studio/internal/debounce"
	"github.com/2389/studio/internal/session"
)

// DefaultDelay is the quiet period between the last edit and the validation
// request.
const DefaultDelay = 300 * time.Millisecond

const slotKey = "validate"

// remoteTimeout bounds a single validator round trip.
const remoteTimeout = 15 * time.Second

// RemoteResult is the raw shape returned by the remote validation service.
type RemoteResult struct {
	IsValid  bool
	Errors   map[string][]string
	Warnings map[string][]string
}

// RemoteValidator is the external service that validates a configuration
// against its widget type. It may fail; failures are advisory here.
type RemoteValidator interface {
	Validate(ctx context.Context, typeID string, config map[string]any) (RemoteResult, error)
}

// FieldResult is the per-field validation outcome published to consumers.
type FieldResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ResultSet is the session-wide validation outcome. It always reflects the
// last requested buffer, never a stale one.
type ResultSet struct {
	Fields  map[string]FieldResult `json:"fields"`
	IsValid bool                   `json:"isValid"`
}

// Coordinator debounces validation requests and discards responses whose
// request token is no longer current.
type Coordinator struct {
	mu        sync.Mutex
	sched     *debounce.Scheduler
	validator RemoteValidator
	typeID    string
	delay     time.Duration
	token     uint64
	current   ResultSet
	onUpdate  func(ResultSet)
	closed    bool
}

// New builds a coordinator. onUpdate may be nil; delay <= 0 selects
// DefaultDelay.
func New(sched *debounce.Scheduler, validator RemoteValidator, typeID string, delay time.Duration, onUpdate func(ResultSet)) *Coordinator {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Coordinator{
		sched:     sched,
		validator: validator,
		typeID:    typeID,
		delay:     delay,
		current:   ResultSet{Fields: map[string]FieldResult{}, IsValid: true},
		onUpdate:  onUpdate,
	}
}

// Request schedules a validation of buffer after the debounce delay. Edits
// arriving inside the window supersede each other so exactly one network call
// is issued, carrying the final buffer.
func (c *Coordinator) Request(buffer map[string]any) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.token++
	tok := c.token
	c.mu.Unlock()

	buf := session.CloneMap(buffer)
	c.sched.Schedule(slotKey, c.delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()

		res, err := c.validator.Validate(ctx, c.typeID, buf)
		if err != nil {
			// Validation is advisory: keep the previous result set.
			log.Printf("validation request failed for type %s: %v", c.typeID, err)
			return
		}
		c.apply(tok, res)
	})
}

// apply publishes res unless the token was superseded or the coordinator was
// closed while the call was in flight.
func (c *Coordinator) apply(tok uint64, res RemoteResult) {
	c.mu.Lock()
	if c.closed || tok != c.token {
		c.mu.Unlock()
		return
	}
	rs := buildResultSet(res)
	c.current = rs
	onUpdate := c.onUpdate
	c.mu.Unlock()

	if onUpdate != nil {
		onUpdate(rs)
	}
}

// Result returns the last published result set.
func (c *Coordinator) Result() ResultSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// CancelPending drops any not-yet-fired validation task.
func (c *Coordinator) CancelPending() {
	c.sched.Cancel(slotKey)
}

// Close cancels pending work and marks the coordinator so late in-flight
// responses are dropped.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.sched.Cancel(slotKey)
}

func buildResultSet(res RemoteResult) ResultSet {
	fields := make(map[string]FieldResult)
	for name, errs := range res.Errors {
		fr := fields[name]
		fr.Errors = append(fr.Errors, errs...)
		fields[name] = fr
	}
	for name, warns := range res.Warnings {
		fr := fields[name]
		fr.Warnings = append(fr.Warnings, warns...)
		fields[name] = fr
	}
	for name, fr := range fields {
		fr.IsValid = len(fr.Errors) == 0
		fields[name] = fr
	}
	return ResultSet{Fields: fields, IsValid: res.IsValid}
}
