// ABOUTME: Tests for widget validation and edit session HTTP endpoints.
// ABOUTME: Drives the session lifecycle over the router and checks published state.

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/2389/studio/internal/auth"
	"github.com/2389/studio/internal/editor"
	"github.com/2389/studio/internal/schema"
	"github.com/2389/studio/internal/statestore"
	"github.com/2389/studio/internal/store"
	"github.com/2389/studio/internal/suggest"
)

func newTestServer(t *testing.T) (*store.Store, *statestore.Store, chi.Router) {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	states := statestore.New()
	sessions := editor.NewManager(editor.Config{
		Validator:     NewLocalValidator(s),
		Store:         states,
		ValidateDelay: time.Millisecond,
		PreviewDelay:  time.Millisecond,
	})
	t.Cleanup(sessions.CloseAll)

	h := NewHandlers(s, suggest.NewSuggester(), sessions, states)
	r := chi.NewRouter()
	r.Use(auth.Middleware)
	h.RegisterRoutes(r)
	return s, states, r
}

func seedWidget(t *testing.T, s *store.Store) {
	t.Helper()

	err := s.CreateWidgetType(&schema.WidgetType{
		ID:   "banner",
		Name: "Banner",
		Fields: []schema.FieldSpec{
			{Name: "title", Display: "Title", Type: "string", Required: true, MaxLen: 80},
			{Name: "color", Display: "Color", Type: "select", Options: []string{"red", "blue"}},
			{Name: "subtitle", Display: "Subtitle", Type: "string", Recommended: true},
		},
	})
	if err != nil {
		t.Fatalf("failed to seed widget type: %v", err)
	}

	err = s.CreateWidget(&store.Widget{
		ID:            "w1",
		TypeID:        "banner",
		Name:          "Home banner",
		Configuration: map[string]any{"title": "Hello", "color": "red"},
	})
	if err != nil {
		t.Fatalf("failed to seed widget: %v", err)
	}
}

func postJSON(t *testing.T, r chi.Router, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestValidateWidget(t *testing.T) {
	s, _, r := newTestServer(t)
	seedWidget(t, s)

	tests := []struct {
		name       string
		config     map[string]any
		wantValid  bool
		wantErrOn  string
		wantWarnOn string
	}{
		{
			name:      "valid configuration",
			config:    map[string]any{"title": "Hi", "color": "blue", "subtitle": "s"},
			wantValid: true,
		},
		{
			name:      "missing required field",
			config:    map[string]any{"color": "blue"},
			wantValid: false,
			wantErrOn: "title",
		},
		{
			name:      "bad enum value",
			config:    map[string]any{"title": "Hi", "color": "green"},
			wantValid: false,
			wantErrOn: "color",
		},
		{
			name:       "missing recommended field warns only",
			config:     map[string]any{"title": "Hi"},
			wantValid:  true,
			wantWarnOn: "subtitle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(t, r, "/api/widgets/banner/validate", map[string]any{"configuration": tt.config})
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
			}

			resp := decodeJSON(t, rr)
			if resp["isValid"] != tt.wantValid {
				t.Errorf("isValid = %v, want %v", resp["isValid"], tt.wantValid)
			}
			if tt.wantErrOn != "" {
				errs, _ := resp["errors"].(map[string]any)
				if _, ok := errs[tt.wantErrOn]; !ok {
					t.Errorf("expected error on field %q, got %v", tt.wantErrOn, errs)
				}
			}
			if tt.wantWarnOn != "" {
				warns, _ := resp["warnings"].(map[string]any)
				if _, ok := warns[tt.wantWarnOn]; !ok {
					t.Errorf("expected warning on field %q, got %v", tt.wantWarnOn, warns)
				}
			}
		})
	}
}

func TestValidateWidget_UnknownType(t *testing.T) {
	_, _, r := newTestServer(t)

	rr := postJSON(t, r, "/api/widgets/missing/validate", map[string]any{"configuration": map[string]any{}})
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s, _, r := newTestServer(t)
	seedWidget(t, s)

	// Open
	rr := postJSON(t, r, "/api/sessions", map[string]any{"entityId": "w1"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("open status = %d, want %d: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	opened := decodeJSON(t, rr)
	sessionID, _ := opened["sessionId"].(string)
	if sessionID == "" {
		t.Fatal("expected a session id")
	}

	// Edit
	rr = postJSON(t, r, "/api/sessions/"+sessionID+"/fields", map[string]any{"name": "color", "value": "blue"})
	if rr.Code != http.StatusOK {
		t.Fatalf("set-field status = %d, want %d", rr.Code, http.StatusOK)
	}
	if edited := decodeJSON(t, rr); edited["dirty"] != true {
		t.Errorf("dirty = %v, want true", edited["dirty"])
	}

	// Save persists
	rr = postJSON(t, r, "/api/sessions/"+sessionID+"/save", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("save status = %d, want %d", rr.Code, http.StatusOK)
	}
	widget, err := s.GetWidget("w1")
	if err != nil {
		t.Fatalf("failed to reload widget: %v", err)
	}
	if widget.Configuration["color"] != "blue" {
		t.Errorf("persisted color = %v, want blue", widget.Configuration["color"])
	}

	// Close
	req := httptest.NewRequest("DELETE", "/api/sessions/"+sessionID, nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("close status = %d, want %d", rr.Code, http.StatusOK)
	}
	closed := decodeJSON(t, rr)
	published, _ := closed["published"].(map[string]any)
	config, _ := published["configuration"].(map[string]any)
	if config["color"] != "blue" {
		t.Errorf("published color = %v, want blue", config["color"])
	}

	// Session is gone afterwards
	rr = postJSON(t, r, "/api/sessions/"+sessionID+"/fields", map[string]any{"name": "color", "value": "red"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("set-field after close status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestCloseDiscardsUnsavedEdits(t *testing.T) {
	s, states, r := newTestServer(t)
	seedWidget(t, s)

	rr := postJSON(t, r, "/api/sessions", map[string]any{"entityId": "w1"})
	opened := decodeJSON(t, rr)
	sessionID, _ := opened["sessionId"].(string)

	postJSON(t, r, "/api/sessions/"+sessionID+"/fields", map[string]any{"name": "color", "value": "blue"})

	req := httptest.NewRequest("DELETE", "/api/sessions/"+sessionID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	closed := decodeJSON(t, rec)
	published, _ := closed["published"].(map[string]any)
	config, _ := published["configuration"].(map[string]any)
	if config["color"] != "red" {
		t.Errorf("published color = %v, want red (unsaved edit discarded)", config["color"])
	}

	current := states.Current("w1")
	if cfg, _ := current["configuration"].(map[string]any); cfg["color"] != "red" {
		t.Errorf("state store color = %v, want red", cfg["color"])
	}
}

func TestOpenSession_AlreadyEditing(t *testing.T) {
	s, _, r := newTestServer(t)
	seedWidget(t, s)

	rr := postJSON(t, r, "/api/sessions", map[string]any{"entityId": "w1"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("open status = %d, want %d", rr.Code, http.StatusCreated)
	}

	rr = postJSON(t, r, "/api/sessions", map[string]any{"entityId": "w1"})
	if rr.Code != http.StatusConflict {
		t.Errorf("second open status = %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestOpenSession_UnknownWidget(t *testing.T) {
	_, _, r := newTestServer(t)

	rr := postJSON(t, r, "/api/sessions", map[string]any{"entityId": "missing"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestListWidgets(t *testing.T) {
	s, _, r := newTestServer(t)
	seedWidget(t, s)

	req := httptest.NewRequest("GET", "/api/widgets", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeJSON(t, rr)
	widgets, _ := resp["widgets"].([]any)
	if len(widgets) != 1 {
		t.Errorf("widgets = %d, want 1", len(widgets))
	}
}

func TestListRequestLogs(t *testing.T) {
	s, _, r := newTestServer(t)

	for _, path := range []string{"/api/widgets", "/api/widgets", "/api/media/assets"} {
		err := s.LogRequest(&store.RequestLog{
			Namespace: "studio", Method: "GET", Path: path, StatusCode: 200, DurationMs: 3,
		})
		if err != nil {
			t.Fatalf("LogRequest() error = %v", err)
		}
	}

	req := httptest.NewRequest("GET", "/api/logs?path=/api/widgets", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeJSON(t, rr)
	if resp["count"] != float64(2) {
		t.Errorf("count = %v, want 2", resp["count"])
	}

	req = httptest.NewRequest("GET", "/api/logs/stats", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("stats status = %d, want %d", rr.Code, http.StatusOK)
	}
	stats := decodeJSON(t, rr)
	if stats["TotalRequests"] != float64(3) {
		t.Errorf("TotalRequests = %v, want 3", stats["TotalRequests"])
	}
}
