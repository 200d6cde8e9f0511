// ABOUTME: Media asset and pending file store operations.
// ABOUTME: Committed assets support soft delete; duplicate lookup spans both tables.

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type MediaAsset struct {
	ID          string
	Namespace   string
	Filename    string
	Title       string
	Description string
	AccessLevel string
	MediaType   string
	Size        int64
	Tags        []string
	Deleted     bool
	CreatedAt   time.Time
}

type PendingFileRow struct {
	ID             string
	Namespace      string
	Filename       string
	MediaType      string
	Size           int64
	SuggestedTitle string
	SuggestedTags  []string
	CreatedAt      time.Time
}

func (s *Store) CreateMediaAsset(a *MediaAsset) error {
	tagsJSON, _ := json.Marshal(a.Tags)
	_, err := s.db.Exec(`
		INSERT INTO media_assets (id, namespace, filename, title, description, access_level, media_type, size, tags, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Namespace, a.Filename, a.Title, a.Description, a.AccessLevel, a.MediaType, a.Size, string(tagsJSON), boolToInt(a.Deleted))
	return err
}

func (s *Store) GetMediaAsset(id string) (*MediaAsset, error) {
	row := s.db.QueryRow(`
		SELECT id, namespace, filename, title, description, access_level, media_type, size, tags, deleted, created_at
		FROM media_assets WHERE id = ?
	`, id)
	a, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("media asset %s not found", id)
	}
	return a, err
}

// FindAssetByFilename returns the newest asset matching namespace+filename,
// deleted or not. Duplicate detection needs the deleted ones too: a collision
// with a soft-deleted asset is reported with its own conflict reason.
func (s *Store) FindAssetByFilename(namespace, filename string) (*MediaAsset, error) {
	row := s.db.QueryRow(`
		SELECT id, namespace, filename, title, description, access_level, media_type, size, tags, deleted, created_at
		FROM media_assets WHERE namespace = ? AND filename = ?
		ORDER BY created_at DESC LIMIT 1
	`, namespace, filename)
	a, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// SoftDeleteAsset marks an asset deleted without removing the row.
func (s *Store) SoftDeleteAsset(id string) error {
	_, err := s.db.Exec("UPDATE media_assets SET deleted = 1 WHERE id = ?", id)
	return err
}

func (s *Store) ListMediaAssets(namespace string) ([]MediaAsset, error) {
	rows, err := s.db.Query(`
		SELECT id, namespace, filename, title, description, access_level, media_type, size, tags, deleted, created_at
		FROM media_assets WHERE namespace = ? AND deleted = 0 ORDER BY created_at DESC
	`, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MediaAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) CreatePendingFile(p *PendingFileRow) error {
	tagsJSON, _ := json.Marshal(p.SuggestedTags)
	_, err := s.db.Exec(`
		INSERT INTO pending_files (id, namespace, filename, media_type, size, suggested_title, suggested_tags)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Namespace, p.Filename, p.MediaType, p.Size, p.SuggestedTitle, string(tagsJSON))
	return err
}

func (s *Store) GetPendingFile(id string) (*PendingFileRow, error) {
	row := s.db.QueryRow(`
		SELECT id, namespace, filename, media_type, size, suggested_title, suggested_tags, created_at
		FROM pending_files WHERE id = ?
	`, id)
	p, err := scanPending(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("pending file %s not found", id)
	}
	return p, err
}

// FindPendingByFilename returns a pending file colliding on filename, or nil.
func (s *Store) FindPendingByFilename(namespace, filename string) (*PendingFileRow, error) {
	row := s.db.QueryRow(`
		SELECT id, namespace, filename, media_type, size, suggested_title, suggested_tags, created_at
		FROM pending_files WHERE namespace = ? AND filename = ? LIMIT 1
	`, namespace, filename)
	p, err := scanPending(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// DeletePendingFile removes a pending record, typically after promotion.
func (s *Store) DeletePendingFile(id string) error {
	_, err := s.db.Exec("DELETE FROM pending_files WHERE id = ?", id)
	return err
}

func (s *Store) ListPendingFiles(namespace string) ([]PendingFileRow, error) {
	rows, err := s.db.Query(`
		SELECT id, namespace, filename, media_type, size, suggested_title, suggested_tags, created_at
		FROM pending_files WHERE namespace = ? ORDER BY created_at
	`, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingFileRow
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(r rowScanner) (*MediaAsset, error) {
	var a MediaAsset
	var tagsJSON string
	var deleted int
	err := r.Scan(&a.ID, &a.Namespace, &a.Filename, &a.Title, &a.Description, &a.AccessLevel,
		&a.MediaType, &a.Size, &tagsJSON, &deleted, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Deleted = deleted != 0
	if err := json.Unmarshal([]byte(tagsJSON), &a.Tags); err != nil {
		return nil, fmt.Errorf("corrupt tags for asset %s: %w", a.ID, err)
	}
	return &a, nil
}

func scanPending(r rowScanner) (*PendingFileRow, error) {
	var p PendingFileRow
	var tagsJSON string
	err := r.Scan(&p.ID, &p.Namespace, &p.Filename, &p.MediaType, &p.Size, &p.SuggestedTitle, &tagsJSON, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &p.SuggestedTags); err != nil {
		return nil, fmt.Errorf("corrupt tags for pending file %s: %w", p.ID, err)
	}
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
