// ABOUTME: Tests for widget type field validation rules.
// ABOUTME: Table-driven cases across required, length, range, select, and warnings.

package schema

import "testing"

func floatPtr(f float64) *float64 { return &f }

func bannerFields() []FieldSpec {
	return []FieldSpec{
		{Name: "title", Display: "Title", Type: "string", Required: true, MaxLen: 80},
		{Name: "subtitle", Display: "Subtitle", Type: "string", Recommended: true},
		{Name: "columns", Display: "Columns", Type: "number", Min: floatPtr(1), Max: floatPtr(4)},
		{Name: "visible", Display: "Visible", Type: "bool"},
		{Name: "alignment", Display: "Alignment", Type: "select", Options: []string{"left", "center", "right"}},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		config     map[string]any
		wantValid  bool
		wantErrOn  []string
		wantWarnOn []string
	}{
		{
			name:      "valid full config",
			config:    map[string]any{"title": "Hi", "subtitle": "sub", "columns": 2, "visible": true, "alignment": "left"},
			wantValid: true,
		},
		{
			name:      "missing required title",
			config:    map[string]any{"subtitle": "sub"},
			wantValid: false,
			wantErrOn: []string{"title"},
		},
		{
			name:      "empty string counts as missing",
			config:    map[string]any{"title": ""},
			wantValid: false,
			wantErrOn: []string{"title"},
		},
		{
			name:       "missing recommended yields warning only",
			config:     map[string]any{"title": "Hi"},
			wantValid:  true,
			wantWarnOn: []string{"subtitle"},
		},
		{
			name:      "title too long",
			config:    map[string]any{"title": string(make([]rune, 81)), "subtitle": "s"},
			wantValid: false,
			wantErrOn: []string{"title"},
		},
		{
			name:      "number below range",
			config:    map[string]any{"title": "Hi", "subtitle": "s", "columns": 0},
			wantValid: false,
			wantErrOn: []string{"columns"},
		},
		{
			name:      "number wrong type",
			config:    map[string]any{"title": "Hi", "subtitle": "s", "columns": "two"},
			wantValid: false,
			wantErrOn: []string{"columns"},
		},
		{
			name:      "select outside options",
			config:    map[string]any{"title": "Hi", "subtitle": "s", "alignment": "justified"},
			wantValid: false,
			wantErrOn: []string{"alignment"},
		},
		{
			name:      "bool wrong type",
			config:    map[string]any{"title": "Hi", "subtitle": "s", "visible": "yes"},
			wantValid: false,
			wantErrOn: []string{"visible"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs, warns, valid := Validate(bannerFields(), tt.config)
			if valid != tt.wantValid {
				t.Errorf("valid = %v, want %v (errors: %v)", valid, tt.wantValid, errs)
			}
			for _, field := range tt.wantErrOn {
				if len(errs[field]) == 0 {
					t.Errorf("expected error on %s, got %v", field, errs)
				}
			}
			for _, field := range tt.wantWarnOn {
				if len(warns[field]) == 0 {
					t.Errorf("expected warning on %s, got %v", field, warns)
				}
			}
		})
	}
}

func TestWarningsDoNotInvalidate(t *testing.T) {
	_, warns, valid := Validate(bannerFields(), map[string]any{"title": "Hi"})
	if !valid {
		t.Error("warnings must not flip overall validity")
	}
	if len(warns) == 0 {
		t.Error("expected at least one warning")
	}
}
