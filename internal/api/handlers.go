// ABOUTME: HTTP handlers for the studio backend API.
// ABOUTME: Widget validation, edit session endpoints, and shared JSON helpers.

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/2389/studio/internal/editor"
	apperrors "github.com/2389/studio/internal/errors"
	"github.com/2389/studio/internal/schema"
	"github.com/2389/studio/internal/session"
	"github.com/2389/studio/internal/statestore"
	"github.com/2389/studio/internal/store"
	"github.com/2389/studio/internal/suggest"
)

type Handlers struct {
	store    *store.Store
	suggest  *suggest.Suggester
	sessions *editor.Manager
	states   *statestore.Store
}

func NewHandlers(s *store.Store, sg *suggest.Suggester, sessions *editor.Manager, states *statestore.Store) *Handlers {
	return &Handlers{store: s, suggest: sg, sessions: sessions, states: states}
}

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/widgets/{typeID}/validate", h.validateWidget)
		r.Get("/widgets", h.listWidgets)
		r.Get("/widgets/{id}", h.getWidget)

		r.Post("/media/{namespace}/upload", h.uploadMedia)
		r.Get("/media/{namespace}", h.listMedia)
		r.Post("/media/pending/approve", h.approveBulk)
		r.Post("/media/pending/{id}/approve", h.approveOne)

		r.Post("/sessions", h.openSession)
		r.Get("/sessions/{id}", h.getSession)
		r.Post("/sessions/{id}/fields", h.setSessionField)
		r.Post("/sessions/{id}/save", h.saveSession)
		r.Post("/sessions/{id}/revert", h.revertSession)
		r.Delete("/sessions/{id}", h.closeSession)

		r.Get("/preview/{entityID}", h.previewSocket)

		r.Get("/logs", h.listRequestLogs)
		r.Get("/logs/stats", h.requestLogStats)
	})
}

// listRequestLogs returns recent request logs, filterable by method, path
// prefix, status, and namespace.
func (h *Handlers) listRequestLogs(w http.ResponseWriter, r *http.Request) {
	q := &store.RequestLogQuery{
		Limit:      100,
		Method:     r.URL.Query().Get("method"),
		PathPrefix: r.URL.Query().Get("path"),
		Namespace:  r.URL.Query().Get("namespace"),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil && v > 0 && v <= 1000 {
			q.Limit = v
		}
	}
	if status := r.URL.Query().Get("status"); status != "" {
		if v, err := strconv.Atoi(status); err == nil {
			q.StatusCode = v
		}
	}

	logs, err := h.store.GetRequestLogs(q)
	if err != nil {
		apperrors.WriteError(w, http.StatusInternalServerError, apperrors.ErrDatabaseError, "Failed to query request logs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs, "count": len(logs)})
}

func (h *Handlers) requestLogStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetRequestLogStats()
	if err != nil {
		apperrors.WriteError(w, http.StatusInternalServerError, apperrors.ErrDatabaseError, "Failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// validateWidget evaluates a configuration against the widget type's field
// schema.
func (h *Handlers) validateWidget(w http.ResponseWriter, r *http.Request) {
	typeID := chi.URLParam(r, "typeID")

	var body struct {
		Configuration map[string]any `json:"configuration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apperrors.WriteError(w, http.StatusBadRequest, apperrors.ErrInvalidBody, "Request body is malformed")
		return
	}

	wt, err := h.store.GetWidgetType(typeID)
	if err != nil {
		apperrors.WriteError(w, http.StatusNotFound, apperrors.ErrNotFound, "Widget type not found")
		return
	}

	fieldErrors, warnings, isValid := schema.Validate(wt.Fields, body.Configuration)
	writeJSON(w, http.StatusOK, map[string]any{
		"isValid":  isValid,
		"errors":   fieldErrors,
		"warnings": warnings,
	})
}

func (h *Handlers) listWidgets(w http.ResponseWriter, r *http.Request) {
	widgets, err := h.store.ListWidgets()
	if err != nil {
		apperrors.WriteError(w, http.StatusInternalServerError, apperrors.ErrDatabaseError, "Failed to list widgets")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"widgets": widgetViews(widgets)})
}

func (h *Handlers) getWidget(w http.ResponseWriter, r *http.Request) {
	widget, err := h.store.GetWidget(chi.URLParam(r, "id"))
	if err != nil {
		apperrors.WriteError(w, http.StatusNotFound, apperrors.ErrNotFound, "Widget not found")
		return
	}
	writeJSON(w, http.StatusOK, widgetView(widget))
}

// openSession starts an edit session for a widget and returns the session id
// with the initial buffer.
func (h *Handlers) openSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EntityID string `json:"entityId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.EntityID == "" {
		apperrors.WriteErrorWithField(w, http.StatusBadRequest, apperrors.ErrMissingField, "entityId is required", "entityId")
		return
	}

	widget, err := h.store.GetWidget(body.EntityID)
	if err != nil {
		apperrors.WriteError(w, http.StatusNotFound, apperrors.ErrNotFound, "Widget not found")
		return
	}

	ctrl, err := h.sessions.Open(session.Entity{
		ID:     widget.ID,
		TypeID: widget.TypeID,
		Config: widget.Configuration,
		Meta:   map[string]any{"name": widget.Name},
	})
	if err != nil {
		apperrors.WriteError(w, http.StatusConflict, apperrors.ErrSessionBusy, "Widget is already being edited")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"sessionId": ctrl.ID(),
		"entityId":  widget.ID,
		"buffer":    ctrl.Session().Buffer(),
	})
}

func (h *Handlers) getSession(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		apperrors.WriteError(w, http.StatusNotFound, apperrors.ErrNotFound, "Session not found")
		return
	}

	sess := ctrl.Session()
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId":  ctrl.ID(),
		"entityId":   sess.Entity().ID,
		"dirty":      sess.Dirty(),
		"buffer":     sess.Buffer(),
		"validation": ctrl.Validation(),
	})
}

// setSessionField applies one optimistic field edit. Validation and preview
// propagation are scheduled debounced; the response reflects only the local
// mutation.
func (h *Handlers) setSessionField(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		apperrors.WriteError(w, http.StatusNotFound, apperrors.ErrNotFound, "Session not found")
		return
	}

	var body struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		apperrors.WriteErrorWithField(w, http.StatusBadRequest, apperrors.ErrMissingField, "name is required", "name")
		return
	}

	dirty := ctrl.SetField(body.Name, body.Value)
	writeJSON(w, http.StatusOK, map[string]any{"dirty": dirty})
}

func (h *Handlers) saveSession(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		apperrors.WriteError(w, http.StatusNotFound, apperrors.ErrNotFound, "Session not found")
		return
	}

	committed := ctrl.Save()
	entityID := ctrl.Session().Entity().ID
	if err := h.store.SaveWidgetConfiguration(entityID, committed); err != nil {
		apperrors.WriteError(w, http.StatusInternalServerError, apperrors.ErrDatabaseError, "Failed to persist configuration")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"configuration": committed, "dirty": false})
}

func (h *Handlers) revertSession(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		apperrors.WriteError(w, http.StatusNotFound, apperrors.ErrNotFound, "Session not found")
		return
	}

	restored := ctrl.Revert()
	writeJSON(w, http.StatusOK, map[string]any{"configuration": restored, "dirty": false})
}

// closeSession ends the session and returns the final published preview state.
func (h *Handlers) closeSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctrl, ok := h.sessions.Get(id)
	if !ok {
		apperrors.WriteError(w, http.StatusNotFound, apperrors.ErrNotFound, "Session not found")
		return
	}

	entityID := ctrl.Session().Entity().ID
	h.sessions.Close(id)

	writeJSON(w, http.StatusOK, map[string]any{
		"closed":    true,
		"published": h.states.Current(entityID),
	})
}

func widgetView(widget *store.Widget) map[string]any {
	return map[string]any{
		"id":            widget.ID,
		"typeId":        widget.TypeID,
		"name":          widget.Name,
		"configuration": widget.Configuration,
	}
}

func widgetViews(widgets []store.Widget) []map[string]any {
	views := make([]map[string]any, len(widgets))
	for i := range widgets {
		views[i] = widgetView(&widgets[i])
	}
	return views
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
