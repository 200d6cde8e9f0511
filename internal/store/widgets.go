// ABOUTME: Widget type and widget store operations.
// ABOUTME: Widget types carry the field schemas configurations are validated against.

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/2389/studio/internal/schema"
)

type Widget struct {
	ID            string
	TypeID        string
	Name          string
	Configuration map[string]any
	UpdatedAt     time.Time
}

func (s *Store) CreateWidgetType(wt *schema.WidgetType) error {
	fieldsJSON, err := json.Marshal(wt.Fields)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		"INSERT INTO widget_types (id, name, fields) VALUES (?, ?, ?)",
		wt.ID, wt.Name, string(fieldsJSON),
	)
	return err
}

func (s *Store) GetWidgetType(id string) (*schema.WidgetType, error) {
	var wt schema.WidgetType
	var fieldsJSON string
	err := s.db.QueryRow(
		"SELECT id, name, fields FROM widget_types WHERE id = ?", id,
	).Scan(&wt.ID, &wt.Name, &fieldsJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("widget type %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &wt.Fields); err != nil {
		return nil, fmt.Errorf("corrupt field schema for type %s: %w", id, err)
	}
	return &wt, nil
}

func (s *Store) ListWidgetTypes() ([]schema.WidgetType, error) {
	rows, err := s.db.Query("SELECT id, name, fields FROM widget_types ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schema.WidgetType
	for rows.Next() {
		var wt schema.WidgetType
		var fieldsJSON string
		if err := rows.Scan(&wt.ID, &wt.Name, &fieldsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(fieldsJSON), &wt.Fields); err != nil {
			return nil, err
		}
		out = append(out, wt)
	}
	return out, rows.Err()
}

func (s *Store) CreateWidget(w *Widget) error {
	configJSON, err := json.Marshal(w.Configuration)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		"INSERT INTO widgets (id, type_id, name, configuration) VALUES (?, ?, ?, ?)",
		w.ID, w.TypeID, w.Name, string(configJSON),
	)
	return err
}

func (s *Store) GetWidget(id string) (*Widget, error) {
	var w Widget
	var configJSON string
	err := s.db.QueryRow(
		"SELECT id, type_id, name, configuration, updated_at FROM widgets WHERE id = ?", id,
	).Scan(&w.ID, &w.TypeID, &w.Name, &configJSON, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("widget %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(configJSON), &w.Configuration); err != nil {
		return nil, fmt.Errorf("corrupt configuration for widget %s: %w", id, err)
	}
	return &w, nil
}

// SaveWidgetConfiguration persists a committed configuration buffer.
func (s *Store) SaveWidgetConfiguration(id string, config map[string]any) error {
	configJSON, err := json.Marshal(config)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(
		"UPDATE widgets SET configuration = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		string(configJSON), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("widget %s not found", id)
	}
	return nil
}

func (s *Store) ListWidgets() ([]Widget, error) {
	rows, err := s.db.Query("SELECT id, type_id, name, configuration, updated_at FROM widgets ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Widget
	for rows.Next() {
		var w Widget
		var configJSON string
		if err := rows.Scan(&w.ID, &w.TypeID, &w.Name, &configJSON, &w.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(configJSON), &w.Configuration); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
