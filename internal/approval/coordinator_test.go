// ABOUTME: Tests for the approval coordinator.
// ABOUTME: Covers seeding, bulk tag merge, all-or-nothing validation, and endpoint selection.

package approval

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/2389/studio/internal/upload"
)

type mockApprover struct {
	mu        sync.Mutex
	oneCalls  []string
	bulkCalls [][]BulkItem
	fail      error
}

func (m *mockApprover) ApproveOne(ctx context.Context, pendingID string, meta AssetMeta) (Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oneCalls = append(m.oneCalls, pendingID)
	if m.fail != nil {
		return Asset{}, m.fail
	}
	return Asset{ID: "asset-" + pendingID, Title: meta.Title, Tags: meta.Tags}, nil
}

func (m *mockApprover) ApproveBulk(ctx context.Context, items []BulkItem) ([]Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulkCalls = append(m.bulkCalls, items)
	if m.fail != nil {
		return nil, m.fail
	}
	assets := make([]Asset, 0, len(items))
	for _, it := range items {
		assets = append(assets, Asset{ID: "asset-" + it.PendingID, Title: it.Meta.Title, Tags: it.Meta.Tags})
	}
	return assets, nil
}

func (m *mockApprover) networkCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.oneCalls) + len(m.bulkCalls)
}

func pendingFiles(n int) []upload.PendingFile {
	names := []string{"sunset.jpg", "forest.png", "river.jpg", "cliff.png", "meadow.jpg"}
	out := make([]upload.PendingFile, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, upload.PendingFile{
			ID:       names[i][:strings.Index(names[i], ".")],
			Filename: names[i],
		})
	}
	return out
}

func TestInitFromDerivesTitles(t *testing.T) {
	c := New(&mockApprover{}, nil)
	c.InitFrom([]upload.PendingFile{
		{ID: "p1", Filename: "sunset.jpg", SuggestedTitle: "Golden hour", SuggestedTags: []string{"nature", "sky"}},
		{ID: "p2", Filename: "archive.tar.gz"},
	})

	recs := c.Records()
	if len(recs) != 2 {
		t.Fatalf("got %d records", len(recs))
	}
	if recs[0].Title != "Golden hour" {
		t.Errorf("suggested title ignored: %q", recs[0].Title)
	}
	if len(recs[0].Tags) != 2 {
		t.Errorf("suggested tags = %v", recs[0].Tags)
	}
	// Filename-derived title strips only the final extension.
	if recs[1].Title != "archive.tar" {
		t.Errorf("derived title = %q, want archive.tar", recs[1].Title)
	}
}

func TestUpdateFieldClearsError(t *testing.T) {
	c := New(&mockApprover{}, nil)
	c.InitFrom(pendingFiles(1))

	// Force a validation error onto the record.
	c.UpdateField("sunset", "title", "")
	if c.ValidateAll() == nil {
		t.Fatal("expected validation failure for empty title")
	}
	recs := c.Records()
	if recs[0].FieldErrors["title"] == "" {
		t.Fatal("title error not recorded")
	}

	c.UpdateField("sunset", "title", "Sunset over the bay")
	recs = c.Records()
	if _, ok := recs[0].FieldErrors["title"]; ok {
		t.Error("updating the field did not clear its error")
	}
}

func TestApplyBulkTagsNoDuplicates(t *testing.T) {
	c := New(&mockApprover{}, nil)
	files := pendingFiles(5)
	// File #3 already carries the tag being bulk-applied.
	files[2].SuggestedTags = []string{"nature"}
	c.InitFrom(files)

	c.ApplyBulkTags([]Tag{{Name: "nature"}})

	for i, rec := range c.Records() {
		if got := len(rec.Tags); got != 1 {
			t.Errorf("record %d has %d tags, want 1", i, got)
		}
	}
}

func TestApplyBulkTagsDedupeByID(t *testing.T) {
	c := New(&mockApprover{}, nil)
	c.InitFrom(pendingFiles(1))
	c.SetTags("sunset", []Tag{{ID: "t1", Name: "Nature"}})

	// Same server id under a different display name must not duplicate.
	c.ApplyBulkTags([]Tag{{ID: "t1", Name: "nature-renamed"}})
	// Same name (case-insensitive) without id must not duplicate either.
	c.ApplyBulkTags([]Tag{{Name: "NATURE"}})

	recs := c.Records()
	if got := len(recs[0].Tags); got != 1 {
		t.Errorf("tag set = %v, want 1 entry", recs[0].Tags)
	}
}

func TestApproveAllOrNothing(t *testing.T) {
	mock := &mockApprover{}
	c := New(mock, nil)
	files := pendingFiles(3)
	c.InitFrom(files)
	c.ApplyBulkTags([]Tag{{Name: "nature"}})
	// File #2 has an empty title.
	c.UpdateField("forest", "title", "")

	_, err := c.Approve(context.Background())
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if mock.networkCalls() != 0 {
		t.Errorf("validation failure still made %d network calls", mock.networkCalls())
	}
	if len(ve.PerFile) != 1 {
		t.Fatalf("failures for %d files, want 1", len(ve.PerFile))
	}
	fieldErrs := ve.PerFile["forest"]
	if len(fieldErrs) != 1 || fieldErrs["title"] == "" {
		t.Errorf("file #2 errors = %v, want exactly one title error", fieldErrs)
	}
}

func TestApproveSingleUsesOneEndpoint(t *testing.T) {
	mock := &mockApprover{}
	c := New(mock, nil)
	c.InitFrom(pendingFiles(1))
	c.ApplyBulkTags([]Tag{{Name: "nature"}})

	assets, err := c.Approve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(mock.oneCalls) != 1 || len(mock.bulkCalls) != 0 {
		t.Errorf("one=%d bulk=%d, want the single-file endpoint", len(mock.oneCalls), len(mock.bulkCalls))
	}
	if len(assets) != 1 {
		t.Errorf("got %d assets", len(assets))
	}
	if len(c.Records()) != 0 {
		t.Error("records not cleared after successful approve")
	}
}

func TestApproveBulkUsesBulkEndpoint(t *testing.T) {
	mock := &mockApprover{}
	var completed []Asset
	c := New(mock, func(assets []Asset) { completed = assets })
	c.InitFrom(pendingFiles(3))
	c.ApplyBulkTags([]Tag{{Name: "nature"}})

	assets, err := c.Approve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(mock.bulkCalls) != 1 || len(mock.oneCalls) != 0 {
		t.Errorf("one=%d bulk=%d, want the bulk endpoint", len(mock.oneCalls), len(mock.bulkCalls))
	}
	if len(assets) != 3 || len(completed) != 3 {
		t.Errorf("assets=%d completed=%d, want 3 each", len(assets), len(completed))
	}
}

func TestApproveFailureKeepsRecords(t *testing.T) {
	mock := &mockApprover{fail: errors.New("storage quota exceeded")}
	c := New(mock, nil)
	c.InitFrom(pendingFiles(2))
	c.ApplyBulkTags([]Tag{{Name: "nature"}})
	c.UpdateField("sunset", "description", "warm light")

	if _, err := c.Approve(context.Background()); err == nil {
		t.Fatal("expected remote failure to surface")
	}

	recs := c.Records()
	if len(recs) != 2 {
		t.Fatalf("records dropped on failure: %d left", len(recs))
	}
	if recs[0].Description != "warm light" {
		t.Error("user-entered data lost on failure")
	}
}

func TestTitleLengthLimit(t *testing.T) {
	c := New(&mockApprover{}, nil)
	c.InitFrom(pendingFiles(1))
	c.ApplyBulkTags([]Tag{{Name: "nature"}})
	c.UpdateField("sunset", "title", strings.Repeat("x", MaxTitleLen+1))

	failures := c.ValidateAll()
	if failures == nil || failures["sunset"]["title"] == "" {
		t.Errorf("overlong title passed validation: %v", failures)
	}

	c.UpdateField("sunset", "title", strings.Repeat("x", MaxTitleLen))
	if failures := c.ValidateAll(); failures != nil {
		t.Errorf("boundary-length title rejected: %v", failures)
	}
}

func TestCancelKeepsRemotePending(t *testing.T) {
	mock := &mockApprover{}
	c := New(mock, nil)
	c.InitFrom(pendingFiles(2))

	c.Cancel()
	if len(c.Records()) != 0 {
		t.Error("cancel left local records")
	}
	if mock.networkCalls() != 0 {
		t.Error("cancel issued a network call; remote pending files must stay pending")
	}
}
