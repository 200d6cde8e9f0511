// ABOUTME: Approval coordinator for promoting pending files to committed assets.
// ABOUTME: All-or-nothing field validation; single vs bulk endpoint picked by batch size.

package approval

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/2389/studio/internal/upload"
)

// MaxTitleLen is the longest title the commit accepts.
const MaxTitleLen = 255

// Tag is a named label on an asset. ID may be empty for tags the user typed
// that do not exist server-side yet.
type Tag struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// AssetMeta is the user-supplied metadata submitted with an approval.
type AssetMeta struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AccessLevel string `json:"accessLevel,omitempty"`
	Tags        []Tag  `json:"tags"`
}

// Asset is a committed, referencable media asset.
type Asset struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Title     string `json:"title"`
	MediaType string `json:"mediaType"`
	Tags      []Tag  `json:"tags"`
}

// BulkItem pairs one pending file with its metadata for the bulk endpoint.
type BulkItem struct {
	PendingID string    `json:"pendingId"`
	Meta      AssetMeta `json:"meta"`
}

// RemoteApprover promotes pending files, singly or in bulk. May fail; a
// failure leaves local records untouched so the user can retry.
type RemoteApprover interface {
	ApproveOne(ctx context.Context, pendingID string, meta AssetMeta) (Asset, error)
	ApproveBulk(ctx context.Context, items []BulkItem) ([]Asset, error)
}

// Record is the editable approval form for one pending file.
type Record struct {
	FileID      string            `json:"fileId"`
	Filename    string            `json:"filename"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	AccessLevel string            `json:"accessLevel"`
	Tags        []Tag             `json:"tags"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

// ValidationError reports per-file field failures. The commit is refused
// before any network call when this is returned.
type ValidationError struct {
	PerFile map[string]map[string]string // fileID -> field -> message
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d files have invalid approval fields", len(e.PerFile))
}

// Coordinator drives the pending-file metadata-and-commit cycle.
type Coordinator struct {
	mu          sync.Mutex
	approver    RemoteApprover
	records     []*Record
	onCompleted func(assets []Asset)
}

// New builds an empty coordinator. onCompleted may be nil.
func New(approver RemoteApprover, onCompleted func(assets []Asset)) *Coordinator {
	return &Coordinator{approver: approver, onCompleted: onCompleted}
}

// InitFrom seeds one record per pending file. The title prefers the
// AI-suggested one; otherwise it derives from the filename with its extension
// stripped. Suggested tags arrive without server ids.
func (c *Coordinator) InitFrom(pending []upload.PendingFile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = c.records[:0]
	for _, f := range pending {
		title := f.SuggestedTitle
		if title == "" {
			title = strings.TrimSuffix(f.Filename, filepath.Ext(f.Filename))
		}
		var tags []Tag
		for _, name := range f.SuggestedTags {
			tags = appendTag(tags, Tag{Name: name})
		}
		c.records = append(c.records, &Record{
			FileID:      f.ID,
			Filename:    f.Filename,
			Title:       title,
			Tags:        tags,
			FieldErrors: map[string]string{},
		})
	}
}

// Records returns a copy of the current approval forms, in seed order.
func (c *Coordinator) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, *r)
	}
	return out
}

// UpdateField mutates one text field on one record and clears any existing
// validation error for that field.
func (c *Coordinator) UpdateField(fileID, field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.findLocked(fileID)
	if rec == nil {
		return fmt.Errorf("no approval record for file %s", fileID)
	}
	switch field {
	case "title":
		rec.Title = value
	case "description":
		rec.Description = value
	case "accessLevel":
		rec.AccessLevel = value
	default:
		return fmt.Errorf("unknown approval field %q", field)
	}
	delete(rec.FieldErrors, field)
	return nil
}

// SetTags replaces one record's tag set and clears its tags error.
func (c *Coordinator) SetTags(fileID string, tags []Tag) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.findLocked(fileID)
	if rec == nil {
		return fmt.Errorf("no approval record for file %s", fileID)
	}
	rec.Tags = nil
	for _, t := range tags {
		rec.Tags = appendTag(rec.Tags, t)
	}
	delete(rec.FieldErrors, "tags")
	return nil
}

// ApplyBulkTags merges tags into every record, de-duplicated by id/name,
// never overwriting existing tags.
func (c *Coordinator) ApplyBulkTags(tags []Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, rec := range c.records {
		for _, t := range tags {
			rec.Tags = appendTag(rec.Tags, t)
		}
		delete(rec.FieldErrors, "tags")
	}
}

// ValidateAll checks every record: title non-empty and at most MaxTitleLen
// characters, at least one tag. Failures are recorded on the records and
// returned per file; an empty result means the batch may commit.
func (c *Coordinator) ValidateAll() map[string]map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateAllLocked()
}

func (c *Coordinator) validateAllLocked() map[string]map[string]string {
	failures := make(map[string]map[string]string)
	for _, rec := range c.records {
		errs := make(map[string]string)
		title := strings.TrimSpace(rec.Title)
		if title == "" {
			errs["title"] = "title is required"
		} else if utf8.RuneCountInString(rec.Title) > MaxTitleLen {
			errs["title"] = fmt.Sprintf("title must be at most %d characters", MaxTitleLen)
		}
		if len(rec.Tags) == 0 {
			errs["tags"] = "at least one tag is required"
		}
		if len(errs) > 0 {
			failures[rec.FileID] = errs
			for field, msg := range errs {
				rec.FieldErrors[field] = msg
			}
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return failures
}

// Approve validates, then commits: the single-file endpoint for one record,
// the bulk endpoint otherwise. Validation failures refuse the commit with
// zero network calls. Remote failure surfaces the error and leaves every
// record intact for retry; success clears local pending state.
func (c *Coordinator) Approve(ctx context.Context) ([]Asset, error) {
	c.mu.Lock()
	if len(c.records) == 0 {
		c.mu.Unlock()
		return nil, fmt.Errorf("nothing to approve")
	}
	if failures := c.validateAllLocked(); failures != nil {
		c.mu.Unlock()
		return nil, &ValidationError{PerFile: failures}
	}

	singles := len(c.records) == 1
	var oneID string
	var oneMeta AssetMeta
	var items []BulkItem
	if singles {
		oneID = c.records[0].FileID
		oneMeta = metaOf(c.records[0])
	} else {
		for _, rec := range c.records {
			items = append(items, BulkItem{PendingID: rec.FileID, Meta: metaOf(rec)})
		}
	}
	c.mu.Unlock()

	var assets []Asset
	var err error
	if singles {
		var a Asset
		a, err = c.approver.ApproveOne(ctx, oneID, oneMeta)
		assets = []Asset{a}
	} else {
		assets, err = c.approver.ApproveBulk(ctx, items)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.records = nil
	onCompleted := c.onCompleted
	c.mu.Unlock()

	if onCompleted != nil {
		onCompleted(assets)
	}
	return assets, nil
}

// Cancel discards the local records. The remote pending files are not
// deleted; they stay available for a future approval attempt.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = nil
}

func (c *Coordinator) findLocked(fileID string) *Record {
	for _, rec := range c.records {
		if rec.FileID == fileID {
			return rec
		}
	}
	return nil
}

func metaOf(rec *Record) AssetMeta {
	tags := make([]Tag, len(rec.Tags))
	copy(tags, rec.Tags)
	return AssetMeta{
		Title:       rec.Title,
		Description: rec.Description,
		AccessLevel: rec.AccessLevel,
		Tags:        tags,
	}
}

// appendTag adds t unless an equivalent tag is present. Equivalence is by
// server id when both have one, else by case-insensitive name.
func appendTag(tags []Tag, t Tag) []Tag {
	for _, existing := range tags {
		if t.ID != "" && existing.ID != "" && t.ID == existing.ID {
			return tags
		}
		if strings.EqualFold(existing.Name, t.Name) {
			return tags
		}
	}
	return append(tags, t)
}

// SortTags orders tags by name for stable display.
func SortTags(tags []Tag) {
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
}
