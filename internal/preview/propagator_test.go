// ABOUTME: Tests for the preview propagator.
// ABOUTME: Verifies debounce coalescing, meta merging, PushNow bypass, and fallback.

package preview

import (
	"sync"
	"testing"
	"time"

	"github.com/2389/studio/internal/debounce"
	"github.com/2389/studio/internal/session"
)

type mockStore struct {
	mu      sync.Mutex
	patches []map[string]any
}

func (m *mockStore) Publish(entityID string, patch map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patches = append(m.patches, patch)
}

func (m *mockStore) Subscribe(entityID string, fn func(patch map[string]any)) func() {
	return func() {}
}

func (m *mockStore) all() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]map[string]any, len(m.patches))
	copy(out, m.patches)
	return out
}

func testEntity() session.Entity {
	return session.Entity{
		ID:     "widget-1",
		TypeID: "banner",
		Config: map[string]any{"color": "red"},
		Meta:   map[string]any{"name": "Hero banner"},
	}
}

func TestDebouncedPushCoalesces(t *testing.T) {
	store := &mockStore{}
	p := New(debounce.NewScheduler(), store, nil, testEntity(), 20*time.Millisecond)

	for i := 0; i < 4; i++ {
		p.Request(map[string]any{"rev": i})
	}

	time.Sleep(80 * time.Millisecond)
	patches := store.all()
	if len(patches) != 1 {
		t.Fatalf("published %d patches, want 1", len(patches))
	}
	config := patches[0]["configuration"].(map[string]any)
	if config["rev"] != 3 {
		t.Errorf("published rev %v, want 3", config["rev"])
	}
}

func TestPatchMergesMeta(t *testing.T) {
	store := &mockStore{}
	p := New(debounce.NewScheduler(), store, nil, testEntity(), time.Millisecond)

	p.PushNow(map[string]any{"color": "blue"})

	patches := store.all()
	if len(patches) != 1 {
		t.Fatalf("published %d patches, want 1", len(patches))
	}
	if patches[0]["name"] != "Hero banner" {
		t.Errorf("non-configuration fields missing from patch: %v", patches[0])
	}
	config := patches[0]["configuration"].(map[string]any)
	if config["color"] != "blue" {
		t.Errorf("configuration = %v", config)
	}
}

func TestPushNowCancelsPendingPush(t *testing.T) {
	store := &mockStore{}
	p := New(debounce.NewScheduler(), store, nil, testEntity(), 30*time.Millisecond)

	p.Request(map[string]any{"color": "blue"})
	p.PushNow(map[string]any{"color": "red"})

	time.Sleep(80 * time.Millisecond)
	patches := store.all()
	if len(patches) != 1 {
		t.Fatalf("published %d patches, want 1 (debounced push superseded)", len(patches))
	}
	config := patches[0]["configuration"].(map[string]any)
	if config["color"] != "red" {
		t.Errorf("final published color = %v, want red", config["color"])
	}
}

func TestFallbackWhenNoStore(t *testing.T) {
	var mu sync.Mutex
	var gotEntity string
	var gotPatch map[string]any
	fallback := func(entityID string, patch map[string]any) {
		mu.Lock()
		defer mu.Unlock()
		gotEntity = entityID
		gotPatch = patch
	}

	p := New(debounce.NewScheduler(), nil, fallback, testEntity(), time.Millisecond)
	p.PushNow(map[string]any{"color": "blue"})

	mu.Lock()
	defer mu.Unlock()
	if gotEntity != "widget-1" {
		t.Errorf("fallback entity = %q", gotEntity)
	}
	if gotPatch == nil || gotPatch["configuration"].(map[string]any)["color"] != "blue" {
		t.Errorf("fallback patch = %v", gotPatch)
	}
}

func TestCancelPending(t *testing.T) {
	store := &mockStore{}
	p := New(debounce.NewScheduler(), store, nil, testEntity(), 10*time.Millisecond)

	p.Request(map[string]any{"color": "blue"})
	p.CancelPending()

	time.Sleep(50 * time.Millisecond)
	if got := len(store.all()); got != 0 {
		t.Errorf("cancelled push still published %d patches", got)
	}
}
