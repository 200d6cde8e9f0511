// ABOUTME: Upload coordinator state machine: upload, duplicate resolution, retry, handoff.
// ABOUTME: Retains blobs across retries; checks both response and error paths for conflicts.

package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/2389/studio/internal/debounce"
)

// State names the coordinator's position in the upload cycle.
type State string

const (
	StateIdle             State = "idle"
	StateUploading        State = "uploading"
	StateNeedsResolution  State = "needs_resolution"
	StateAwaitingApproval State = "awaiting_approval"
	StateComplete         State = "complete"
)

// DefaultResetDelay is how long Complete is displayed before the coordinator
// auto-resets to Idle.
const DefaultResetDelay = 2 * time.Second

const resetKey = "upload-reset"

// Hooks are the coordinator's outward notifications. All are optional.
type Hooks struct {
	// OnPending hands accepted not-yet-committed files to the approval step.
	OnPending func(files []PendingFile)
	// OnNeedsResolution fires when duplicate conflicts require user decisions.
	OnNeedsResolution func(duplicates []Duplicate)
	// OnRejected surfaces one per-file policy refusal (warning severity).
	OnRejected func(r Rejection)
	// OnItemError surfaces one per-file processing failure.
	OnItemError func(e ItemError)
	// OnComplete fires when the cycle finishes with no approval step owed.
	OnComplete func()
	// OnStateChange observes every transition.
	OnStateChange func(s State)
}

// Coordinator drives the upload → duplicate-detection → resolution → retry →
// pending → approval cycle for one namespace.
type Coordinator struct {
	mu         sync.Mutex
	uploader   RemoteUploader
	namespace  string
	hooks      Hooks
	sched      *debounce.Scheduler
	resetDelay time.Duration

	state      State
	retained   []FileBlob
	resolution *ResolutionState
	awaiting   int // pending files handed to approval, not yet finished
}

// NewCoordinator builds an idle coordinator. resetDelay <= 0 selects
// DefaultResetDelay.
func NewCoordinator(uploader RemoteUploader, namespace string, resetDelay time.Duration, hooks Hooks) *Coordinator {
	if resetDelay <= 0 {
		resetDelay = DefaultResetDelay
	}
	return &Coordinator{
		uploader:   uploader,
		namespace:  namespace,
		hooks:      hooks,
		sched:      debounce.NewScheduler(),
		resetDelay: resetDelay,
		state:      StateIdle,
	}
}

// State returns the current machine state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Resolution returns the duplicate decision state, non-nil only in
// StateNeedsResolution.
func (c *Coordinator) Resolution() *ResolutionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolution
}

// Upload starts the cycle with the selected files. Only legal from Idle.
func (c *Coordinator) Upload(ctx context.Context, files []FileBlob) error {
	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("upload not allowed in state %s", state)
	}
	c.setStateLocked(StateUploading)
	c.retained = files
	c.mu.Unlock()

	return c.perform(ctx, files, nil, StateIdle)
}

// Resolve re-issues the upload for the conflicted files with the completed
// decision map. Only legal from NeedsResolution; the decision map is expected
// to come from ResolutionState.BuildResolution, already sanitized.
func (c *Coordinator) Resolve(ctx context.Context, decisions map[string]Resolution) error {
	c.mu.Lock()
	if c.state != StateNeedsResolution {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("resolve not allowed in state %s", state)
	}
	c.setStateLocked(StateUploading)
	files := c.retained
	c.mu.Unlock()

	return c.perform(ctx, files, decisions, StateNeedsResolution)
}

// CancelResolution abandons the conflicted files and returns to Idle. The
// retained blobs and decisions are discarded.
func (c *Coordinator) CancelResolution() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateNeedsResolution {
		return
	}
	c.retained = nil
	c.resolution = nil
	c.setStateLocked(StateIdle)
}

// ApprovalFinished reports the end of the approval step the coordinator
// handed off to. Success completes the cycle; a cancelled approval returns to
// Idle (the remote pending files stay pending).
func (c *Coordinator) ApprovalFinished(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAwaitingApproval {
		return
	}
	c.awaiting = 0
	if success {
		c.completeLocked()
	} else {
		c.retained = nil
		c.setStateLocked(StateIdle)
	}
}

// perform runs one uploader round trip and applies the outcome. failState is
// where a wholesale transport failure returns us (the blobs survive so the
// user can retry without reselecting).
func (c *Coordinator) perform(ctx context.Context, files []FileBlob, decisions map[string]Resolution, failState State) error {
	res, err := c.uploader.Upload(ctx, files, c.namespace, decisions)

	// A duplicate conflict can arrive through the thrown path with the same
	// payload shape as the response; check it before treating the error as
	// fatal.
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) && len(te.NeedsAction) > 0 {
			c.enterResolution(files, te.NeedsAction)
			return nil
		}
		c.mu.Lock()
		if failState == StateIdle {
			c.retained = nil
		}
		c.setStateLocked(failState)
		c.mu.Unlock()
		return err
	}

	for _, r := range res.Rejected {
		if c.hooks.OnRejected != nil {
			c.hooks.OnRejected(r)
		}
	}
	for _, e := range res.Errored {
		if c.hooks.OnItemError != nil {
			c.hooks.OnItemError(e)
		}
	}

	if len(res.NeedsAction) > 0 {
		c.handleAccepted(res.Accepted)
		c.enterResolution(files, res.NeedsAction)
		return nil
	}

	pendingCount := c.handleAccepted(res.Accepted)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.retained = nil
	c.resolution = nil

	switch {
	case pendingCount > 0:
		// Accepted files are awaiting approval: hold here, Complete only
		// once the approval step finishes.
		c.awaiting = pendingCount
		c.setStateLocked(StateAwaitingApproval)
	case len(res.Accepted) > 0:
		// Everything accepted was committed directly.
		c.completeLocked()
	default:
		// Full rejection: nothing to hold on to.
		c.setStateLocked(StateIdle)
	}
	return nil
}

// handleAccepted fires the approval handoff for non-committed files and
// returns how many there were.
func (c *Coordinator) handleAccepted(accepted []PendingFile) int {
	var pending []PendingFile
	for _, f := range accepted {
		if !f.Committed {
			pending = append(pending, f)
		}
	}
	if len(pending) > 0 && c.hooks.OnPending != nil {
		c.hooks.OnPending(pending)
	}
	return len(pending)
}

// enterResolution retains only the conflicted blobs for the retry and seeds
// the decision state with per-reason defaults.
func (c *Coordinator) enterResolution(files []FileBlob, duplicates []Duplicate) {
	conflicted := make(map[string]bool, len(duplicates))
	for _, d := range duplicates {
		conflicted[d.Filename] = true
	}
	var keep []FileBlob
	for _, f := range files {
		if conflicted[f.Name] {
			keep = append(keep, f)
		}
	}

	c.mu.Lock()
	c.retained = keep
	c.resolution = NewResolutionState(duplicates)
	c.setStateLocked(StateNeedsResolution)
	c.mu.Unlock()

	if c.hooks.OnNeedsResolution != nil {
		c.hooks.OnNeedsResolution(duplicates)
	}
}

// completeLocked enters Complete and schedules the auto-reset back to Idle.
// Caller holds c.mu.
func (c *Coordinator) completeLocked() {
	c.setStateLocked(StateComplete)
	if c.hooks.OnComplete != nil {
		go c.hooks.OnComplete()
	}
	c.sched.Schedule(resetKey, c.resetDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state == StateComplete {
			c.setStateLocked(StateIdle)
		}
	})
}

// setStateLocked transitions and notifies. Caller holds c.mu.
func (c *Coordinator) setStateLocked(s State) {
	c.state = s
	if c.hooks.OnStateChange != nil {
		go c.hooks.OnStateChange(s)
	}
}

// Teardown cancels the auto-reset timer. Safe to call at any time.
func (c *Coordinator) Teardown() {
	c.sched.Stop()
}
