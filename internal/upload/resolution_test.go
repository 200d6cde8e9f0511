// ABOUTME: Tests for duplicate decision defaults, readiness gating, and sanitization.
// ABOUTME: Replace defaults only for soft-deleted conflicts; confirm requires full decisions.

package upload

import "testing"

func sampleDuplicates() []Duplicate {
	return []Duplicate{
		{Filename: "a.jpg", Reason: ReasonDuplicateExisting, ExistingFileID: "asset-1"},
		{Filename: "b.jpg", Reason: ReasonDuplicateDeleted, ExistingFileID: "asset-2"},
		{Filename: "c.jpg", Reason: ReasonDuplicatePending, PendingFileID: "pending-3"},
	}
}

func TestDefaultDecisions(t *testing.T) {
	rs := NewResolutionState(sampleDuplicates())

	tests := []struct {
		filename string
		want     Decision
	}{
		{"a.jpg", DecisionUndecided},
		{"b.jpg", DecisionReplace}, // existing file was soft-deleted
		{"c.jpg", DecisionUndecided},
	}
	byName := make(map[string]DecisionRecord)
	for _, rec := range rs.Records() {
		byName[rec.Filename] = rec
	}
	for _, tt := range tests {
		if got := byName[tt.filename].Action; got != tt.want {
			t.Errorf("%s default = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestReadinessGate(t *testing.T) {
	rs := NewResolutionState(sampleDuplicates())

	if rs.IsReadyToResolve() {
		t.Fatal("undecided conflicts must not be ready")
	}
	if _, err := rs.BuildResolution(); err == nil {
		t.Fatal("BuildResolution must refuse while undecided")
	}

	rs.SetDecision("a.jpg", DecisionReplace)
	if rs.IsReadyToResolve() {
		t.Fatal("one remaining undecided conflict must block readiness")
	}

	rs.SetDecision("c.jpg", DecisionKeep)
	if !rs.IsReadyToResolve() {
		t.Fatal("all decided, expected ready")
	}
}

func TestSetAllDecisions(t *testing.T) {
	rs := NewResolutionState(sampleDuplicates())
	rs.SetAllDecisions(DecisionKeep)

	if !rs.IsReadyToResolve() {
		t.Fatal("bulk apply should make state ready")
	}
	for _, rec := range rs.Records() {
		if rec.Action != DecisionKeep {
			t.Errorf("%s action = %q, want keep", rec.Filename, rec.Action)
		}
	}
}

func TestBuildResolutionSanitizes(t *testing.T) {
	rs := NewResolutionState(sampleDuplicates())
	rs.SetAllDecisions(DecisionReplace)

	res, err := rs.BuildResolution()
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 3 {
		t.Fatalf("resolution has %d entries, want 3", len(res))
	}
	got := res["a.jpg"]
	if got.Action != DecisionReplace || got.ExistingFileID != "asset-1" || got.PendingFileID != "" {
		t.Errorf("a.jpg resolution = %+v", got)
	}
	if got := res["c.jpg"]; got.PendingFileID != "pending-3" {
		t.Errorf("c.jpg resolution = %+v", got)
	}
}

func TestSetDecisionUnknownFilenameIgnored(t *testing.T) {
	rs := NewResolutionState(sampleDuplicates())
	rs.SetDecision("nope.jpg", DecisionReplace)

	if len(rs.Records()) != 3 {
		t.Error("unknown filename created a record")
	}
}
