// ABOUTME: HTTP handlers for media upload and pending-file approval.
// ABOUTME: Multipart intake with policy checks, duplicate detection, and commit.

package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/2389/studio/internal/approval"
	apperrors "github.com/2389/studio/internal/errors"
	"github.com/2389/studio/internal/store"
	"github.com/2389/studio/internal/upload"
)

const (
	maxUploadMemory = 64 << 20
	maxFileSize     = 25 << 20
)

// directNamespaces skip the approval step: accepted files become committed
// assets immediately instead of pending files.
var directNamespaces = map[string]bool{
	"public": true,
}

func allowedMediaType(mt string) bool {
	switch {
	case strings.HasPrefix(mt, "image/"),
		strings.HasPrefix(mt, "video/"),
		strings.HasPrefix(mt, "audio/"),
		mt == "application/pdf":
		return true
	}
	return false
}

// uploadMedia accepts a multipart batch of files plus an optional "decisions"
// JSON part carrying per-filename duplicate resolutions. Outcomes are
// partitioned per file; one bad file never blocks its siblings. A batch where
// every file collides returns 409 with the needs-action list in the body.
func (h *Handlers) uploadMedia(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		apperrors.WriteError(w, http.StatusBadRequest, apperrors.ErrInvalidBody, "Failed to parse multipart form")
		return
	}

	decisions := map[string]upload.Resolution{}
	if raw := r.FormValue("decisions"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &decisions); err != nil {
			apperrors.WriteErrorWithField(w, http.StatusBadRequest, apperrors.ErrInvalidBody, "decisions must be a JSON object", "decisions")
			return
		}
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		apperrors.WriteErrorWithField(w, http.StatusBadRequest, apperrors.ErrMissingField, "at least one file part is required", "files")
		return
	}

	result := &upload.Result{
		Accepted:    []upload.PendingFile{},
		Rejected:    []upload.Rejection{},
		Errored:     []upload.ItemError{},
		NeedsAction: []upload.Duplicate{},
	}

	for _, fh := range headers {
		filename := filepath.Base(fh.Filename)
		mediaType := fh.Header.Get("Content-Type")

		switch {
		case fh.Size == 0:
			result.Rejected = append(result.Rejected, upload.Rejection{Filename: filename, Reason: "empty_file"})
			continue
		case fh.Size > maxFileSize:
			result.Rejected = append(result.Rejected, upload.Rejection{Filename: filename, Reason: "file_too_large"})
			continue
		case !allowedMediaType(mediaType):
			result.Rejected = append(result.Rejected, upload.Rejection{Filename: filename, Reason: "unsupported_media_type"})
			continue
		}

		storeAs := filename
		decision, decided := decisions[filename]
		switch {
		case decided && decision.Action == upload.DecisionReplace:
			if err := h.replaceConflicting(decision); err != nil {
				result.Errored = append(result.Errored, upload.ItemError{Filename: filename, Message: err.Error()})
				continue
			}
		case decided && decision.Action == upload.DecisionKeep:
			renamed, err := h.distinctFilename(namespace, filename)
			if err != nil {
				result.Errored = append(result.Errored, upload.ItemError{Filename: filename, Message: err.Error()})
				continue
			}
			storeAs = renamed
		default:
			dup, err := h.findDuplicate(namespace, filename)
			if err != nil {
				result.Errored = append(result.Errored, upload.ItemError{Filename: filename, Message: err.Error()})
				continue
			}
			if dup != nil {
				result.NeedsAction = append(result.NeedsAction, *dup)
				continue
			}
		}

		file, err := fh.Open()
		if err != nil {
			result.Errored = append(result.Errored, upload.ItemError{Filename: filename, Message: "failed to read file"})
			continue
		}
		io.Copy(io.Discard, file) // content is not retained, only metadata
		file.Close()

		suggestion := h.suggest.Suggest(r.Context(), storeAs, mediaType)

		if directNamespaces[namespace] {
			asset := &store.MediaAsset{
				ID:        uuid.NewString(),
				Namespace: namespace,
				Filename:  storeAs,
				Title:     suggestion.Title,
				MediaType: mediaType,
				Size:      fh.Size,
				Tags:      suggestion.Tags,
			}
			if err := h.store.CreateMediaAsset(asset); err != nil {
				result.Errored = append(result.Errored, upload.ItemError{Filename: filename, Message: "failed to store file"})
				continue
			}
			result.Accepted = append(result.Accepted, upload.PendingFile{
				ID:        asset.ID,
				Filename:  storeAs,
				Size:      fh.Size,
				MediaType: mediaType,
				Committed: true,
			})
			continue
		}

		row := &store.PendingFileRow{
			ID:             uuid.NewString(),
			Namespace:      namespace,
			Filename:       storeAs,
			MediaType:      mediaType,
			Size:           fh.Size,
			SuggestedTitle: suggestion.Title,
			SuggestedTags:  suggestion.Tags,
		}
		if err := h.store.CreatePendingFile(row); err != nil {
			result.Errored = append(result.Errored, upload.ItemError{Filename: filename, Message: "failed to store file"})
			continue
		}
		result.Accepted = append(result.Accepted, upload.PendingFile{
			ID:             row.ID,
			Filename:       storeAs,
			Size:           fh.Size,
			MediaType:      mediaType,
			SuggestedTitle: row.SuggestedTitle,
			SuggestedTags:  row.SuggestedTags,
		})
	}

	// A batch where nothing got through and every conflict needs a decision is
	// a 409 so clients can surface resolution from the error path too.
	if len(result.NeedsAction) > 0 && len(result.Accepted)+len(result.Rejected)+len(result.Errored) == 0 {
		writeJSON(w, http.StatusConflict, map[string]any{
			"code":        apperrors.ErrDuplicateFiles,
			"message":     "All files collide with existing or pending files",
			"needsAction": result.NeedsAction,
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// findDuplicate checks committed assets (including soft-deleted ones) and
// pending files for a filename collision.
func (h *Handlers) findDuplicate(namespace, filename string) (*upload.Duplicate, error) {
	asset, err := h.store.FindAssetByFilename(namespace, filename)
	if err != nil {
		return nil, err
	}
	if asset != nil {
		reason := upload.ReasonDuplicateExisting
		if asset.Deleted {
			reason = upload.ReasonDuplicateDeleted
		}
		return &upload.Duplicate{Filename: filename, Reason: reason, ExistingFileID: asset.ID}, nil
	}

	pending, err := h.store.FindPendingByFilename(namespace, filename)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return &upload.Duplicate{Filename: filename, Reason: upload.ReasonDuplicatePending, PendingFileID: pending.ID}, nil
	}
	return nil, nil
}

// replaceConflicting retires whatever the replace decision points at.
func (h *Handlers) replaceConflicting(decision upload.Resolution) error {
	if decision.ExistingFileID != "" {
		if err := h.store.SoftDeleteAsset(decision.ExistingFileID); err != nil {
			return err
		}
	}
	if decision.PendingFileID != "" {
		if err := h.store.DeletePendingFile(decision.PendingFileID); err != nil {
			return err
		}
	}
	return nil
}

// distinctFilename appends a counter suffix until the name is free in both
// the asset and pending tables.
func (h *Handlers) distinctFilename(namespace, filename string) (string, error) {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	for i := 2; i < 100; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		asset, err := h.store.FindAssetByFilename(namespace, candidate)
		if err != nil {
			return "", err
		}
		pending, err := h.store.FindPendingByFilename(namespace, candidate)
		if err != nil {
			return "", err
		}
		if asset == nil && pending == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free filename variant for %s", filename)
}

// approveOne promotes a single pending file to a committed asset.
func (h *Handlers) approveOne(w http.ResponseWriter, r *http.Request) {
	pendingID := chi.URLParam(r, "id")

	var meta approval.AssetMeta
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		apperrors.WriteError(w, http.StatusBadRequest, apperrors.ErrInvalidBody, "Request body is malformed")
		return
	}

	if field, msg := checkMeta(meta); field != "" {
		apperrors.WriteErrorWithField(w, http.StatusBadRequest, apperrors.ErrValidationFailed, msg, field)
		return
	}

	asset, err := h.commitPending(pendingID, meta)
	if err != nil {
		apperrors.WriteError(w, http.StatusNotFound, apperrors.ErrNotFound, "Pending file not found")
		return
	}

	writeJSON(w, http.StatusOK, asset)
}

// approveBulk promotes a batch of pending files. Validation is all-or-nothing:
// any invalid item refuses the whole batch before a single commit happens.
func (h *Handlers) approveBulk(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Items []approval.BulkItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Items) == 0 {
		apperrors.WriteErrorWithField(w, http.StatusBadRequest, apperrors.ErrMissingField, "items is required", "items")
		return
	}

	for _, item := range body.Items {
		if field, msg := checkMeta(item.Meta); field != "" {
			apperrors.WriteErrorWithDetails(w, http.StatusBadRequest, apperrors.ErrValidationFailed, msg, "pendingId "+item.PendingID+" field "+field)
			return
		}
	}

	assets := make([]approval.Asset, 0, len(body.Items))
	for _, item := range body.Items {
		asset, err := h.commitPending(item.PendingID, item.Meta)
		if err != nil {
			apperrors.WriteErrorWithDetails(w, http.StatusNotFound, apperrors.ErrNotFound, "Pending file not found", "pendingId "+item.PendingID)
			return
		}
		assets = append(assets, asset)
	}

	writeJSON(w, http.StatusOK, map[string]any{"assets": assets})
}

func checkMeta(meta approval.AssetMeta) (field, msg string) {
	title := strings.TrimSpace(meta.Title)
	if title == "" {
		return "title", "Title is required"
	}
	if len([]rune(title)) > approval.MaxTitleLen {
		return "title", "Title is too long"
	}
	if len(meta.Tags) == 0 {
		return "tags", "At least one tag is required"
	}
	return "", ""
}

// commitPending moves a pending row into the assets table and assigns ids to
// user-typed tags that do not exist server-side yet.
func (h *Handlers) commitPending(pendingID string, meta approval.AssetMeta) (approval.Asset, error) {
	pending, err := h.store.GetPendingFile(pendingID)
	if err != nil {
		return approval.Asset{}, err
	}

	tags := make([]approval.Tag, len(meta.Tags))
	tagNames := make([]string, len(meta.Tags))
	for i, t := range meta.Tags {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		tags[i] = t
		tagNames[i] = t.Name
	}

	asset := &store.MediaAsset{
		ID:          uuid.NewString(),
		Namespace:   pending.Namespace,
		Filename:    pending.Filename,
		Title:       strings.TrimSpace(meta.Title),
		Description: meta.Description,
		AccessLevel: meta.AccessLevel,
		MediaType:   pending.MediaType,
		Size:        pending.Size,
		Tags:        tagNames,
	}
	if err := h.store.CreateMediaAsset(asset); err != nil {
		return approval.Asset{}, err
	}
	if err := h.store.DeletePendingFile(pendingID); err != nil {
		return approval.Asset{}, err
	}

	return approval.Asset{
		ID:        asset.ID,
		Filename:  asset.Filename,
		Title:     asset.Title,
		MediaType: asset.MediaType,
		Tags:      tags,
	}, nil
}

func (h *Handlers) listMedia(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")

	assets, err := h.store.ListMediaAssets(namespace)
	if err != nil {
		apperrors.WriteError(w, http.StatusInternalServerError, apperrors.ErrDatabaseError, "Failed to list media assets")
		return
	}
	pending, err := h.store.ListPendingFiles(namespace)
	if err != nil {
		apperrors.WriteError(w, http.StatusInternalServerError, apperrors.ErrDatabaseError, "Failed to list pending files")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"assets":  assetViews(assets),
		"pending": pendingViews(pending),
	})
}

func assetViews(assets []store.MediaAsset) []map[string]any {
	views := make([]map[string]any, len(assets))
	for i, a := range assets {
		views[i] = map[string]any{
			"id":          a.ID,
			"filename":    a.Filename,
			"title":       a.Title,
			"description": a.Description,
			"accessLevel": a.AccessLevel,
			"mediaType":   a.MediaType,
			"size":        a.Size,
			"tags":        a.Tags,
		}
	}
	return views
}

func pendingViews(pending []store.PendingFileRow) []map[string]any {
	views := make([]map[string]any, len(pending))
	for i, p := range pending {
		views[i] = map[string]any{
			"id":             p.ID,
			"filename":       p.Filename,
			"mediaType":      p.MediaType,
			"size":           p.Size,
			"suggestedTitle": p.SuggestedTitle,
			"suggestedTags":  p.SuggestedTags,
		}
	}
	return views
}
