// ABOUTME: Per-filename duplicate decision tracking and readiness rules.
// ABOUTME: Confirm is gated on every conflict having a non-undecided action.

package upload

import (
	"fmt"
	"sort"
	"sync"
)

// DecisionRecord is the client-side view of one duplicate conflict: the
// transport fields plus the bookkeeping (filename, reason) that is stripped
// before forwarding.
type DecisionRecord struct {
	Filename       string   `json:"filename"`
	Reason         string   `json:"reason"`
	Action         Decision `json:"action"`
	ExistingFileID string   `json:"existingFileId,omitempty"`
	PendingFileID  string   `json:"pendingFileId,omitempty"`
}

// ResolutionState tracks the user's decision per conflicting filename.
type ResolutionState struct {
	mu      sync.Mutex
	records map[string]*DecisionRecord
}

// NewResolutionState seeds one record per duplicate. The default action is
// replace only when the existing file was itself soft-deleted; every other
// conflict starts undecided.
func NewResolutionState(duplicates []Duplicate) *ResolutionState {
	rs := &ResolutionState{records: make(map[string]*DecisionRecord, len(duplicates))}
	for _, d := range duplicates {
		action := DecisionUndecided
		if d.Reason == ReasonDuplicateDeleted {
			action = DecisionReplace
		}
		rs.records[d.Filename] = &DecisionRecord{
			Filename:       d.Filename,
			Reason:         d.Reason,
			Action:         action,
			ExistingFileID: d.ExistingFileID,
			PendingFileID:  d.PendingFileID,
		}
	}
	return rs
}

// SetDecision records the action for one filename. Unknown filenames are
// ignored.
func (rs *ResolutionState) SetDecision(filename string, action Decision) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rec, ok := rs.records[filename]; ok {
		rec.Action = action
	}
}

// SetAllDecisions applies action to every conflict.
func (rs *ResolutionState) SetAllDecisions(action Decision) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, rec := range rs.records {
		rec.Action = action
	}
}

// IsReadyToResolve reports whether every filename has a non-undecided action.
func (rs *ResolutionState) IsReadyToResolve() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, rec := range rs.records {
		if rec.Action == DecisionUndecided {
			return false
		}
	}
	return true
}

// Records returns the decision records sorted by filename, for display.
func (rs *ResolutionState) Records() []DecisionRecord {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]DecisionRecord, 0, len(rs.records))
	for _, rec := range rs.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out
}

// BuildResolution emits the sanitized filename-to-decision map consumed by
// the coordinator's resolve transition. It refuses while any decision is
// still undecided; callers gate the confirm action on IsReadyToResolve.
func (rs *ResolutionState) BuildResolution() (map[string]Resolution, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make(map[string]Resolution, len(rs.records))
	for name, rec := range rs.records {
		if rec.Action == DecisionUndecided {
			return nil, fmt.Errorf("file %s has no decision yet", name)
		}
		out[name] = Resolution{
			Action:         rec.Action,
			ExistingFileID: rec.ExistingFileID,
			PendingFileID:  rec.PendingFileID,
		}
	}
	return out, nil
}
