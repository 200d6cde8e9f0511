// ABOUTME: Shared types for the media upload pipeline.
// ABOUTME: Blobs, pending files, per-item outcomes, and the transport error shape.

package upload

import (
	"context"
	"fmt"
)

// FileBlob is an in-memory file selected for upload. Blobs are retained by
// the coordinator across a duplicate-resolution retry so the user never has
// to reselect files.
type FileBlob struct {
	Name      string
	Size      int64
	MediaType string
	Data      []byte
}

// PendingFile is a file accepted by storage but not yet promoted to a
// committed asset. Committed is set when the target namespace has no approval
// step and the file was stored directly.
type PendingFile struct {
	ID             string   `json:"id"`
	Filename       string   `json:"filename"`
	Size           int64    `json:"size"`
	MediaType      string   `json:"mediaType"`
	SuggestedTitle string   `json:"suggestedTitle,omitempty"`
	SuggestedTags  []string `json:"suggestedTags,omitempty"`
	Committed      bool     `json:"committed,omitempty"`
}

// Rejection is a per-file policy refusal. It never blocks sibling files.
type Rejection struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// ItemError is a per-file processing failure.
type ItemError struct {
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// Duplicate conflict reasons reported by the remote uploader.
const (
	ReasonDuplicateExisting = "duplicate_existing"
	ReasonDuplicatePending  = "duplicate_pending"
	ReasonDuplicateDeleted  = "duplicate_deleted"
)

// Duplicate is a needs-action conflict: the uploaded filename collides with a
// committed, soft-deleted, or already-pending file.
type Duplicate struct {
	Filename       string `json:"filename"`
	Reason         string `json:"reason"`
	ExistingFileID string `json:"existingFileId,omitempty"`
	PendingFileID  string `json:"pendingFileId,omitempty"`
}

// Result is the partitioned outcome of one upload call.
type Result struct {
	Accepted    []PendingFile `json:"accepted"`
	Rejected    []Rejection   `json:"rejected"`
	Errored     []ItemError   `json:"errored"`
	NeedsAction []Duplicate   `json:"needsAction"`
}

// Decision is the user's answer to one duplicate conflict.
type Decision string

const (
	DecisionUndecided Decision = ""
	DecisionReplace   Decision = "replace"
	DecisionKeep      Decision = "keep"
)

// Resolution is the sanitized per-filename decision forwarded to the
// transport: only the fields the remote understands, no client-side
// bookkeeping.
type Resolution struct {
	Action         Decision `json:"action"`
	ExistingFileID string   `json:"existingFileId,omitempty"`
	PendingFileID  string   `json:"pendingFileId,omitempty"`
}

// RemoteUploader stores file blobs in a namespace, honoring per-filename
// replace decisions on retry.
type RemoteUploader interface {
	Upload(ctx context.Context, files []FileBlob, namespace string, decisions map[string]Resolution) (*Result, error)
}

// TransportError is a thrown transport failure that may itself carry
// needs-action entries (a duplicate can surface through the error path with
// the same payload shape as the response path).
type TransportError struct {
	Message     string
	NeedsAction []Duplicate
}

func (e *TransportError) Error() string {
	if len(e.NeedsAction) > 0 {
		return fmt.Sprintf("%s (%d files need action)", e.Message, len(e.NeedsAction))
	}
	return e.Message
}
