// ABOUTME: Widget type field schemas and the validation rules applied to configurations.
// ABOUTME: Types define schemas, the backend evaluates them into field errors and warnings.

package schema

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// FieldSpec describes one configurable field of a widget type.
type FieldSpec struct {
	Name        string   `json:"name"`
	Display     string   `json:"display"`
	Type        string   `json:"type"` // "string", "text", "number", "bool", "select"
	Required    bool     `json:"required"`
	Recommended bool     `json:"recommended,omitempty"` // missing value yields a warning
	MaxLen      int      `json:"maxLen,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Options     []string `json:"options,omitempty"` // for "select"
}

// WidgetType is a named set of field specs a widget configuration is
// validated against.
type WidgetType struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Fields []FieldSpec `json:"fields"`
}

// Validate evaluates config against the field specs. It returns per-field
// error and warning lists and the overall validity flag (warnings do not
// invalidate).
func Validate(fields []FieldSpec, config map[string]any) (errors, warnings map[string][]string, isValid bool) {
	errors = make(map[string][]string)
	warnings = make(map[string][]string)

	for _, f := range fields {
		value, present := config[f.Name]
		if !present || isEmpty(value) {
			if f.Required {
				errors[f.Name] = append(errors[f.Name], fmt.Sprintf("%s is required", f.Display))
			} else if f.Recommended {
				warnings[f.Name] = append(warnings[f.Name], fmt.Sprintf("%s is recommended", f.Display))
			}
			continue
		}

		switch f.Type {
		case "string", "text":
			s, ok := value.(string)
			if !ok {
				errors[f.Name] = append(errors[f.Name], fmt.Sprintf("%s must be a string", f.Display))
				continue
			}
			if f.MaxLen > 0 && utf8.RuneCountInString(s) > f.MaxLen {
				errors[f.Name] = append(errors[f.Name], fmt.Sprintf("%s must be at most %d characters", f.Display, f.MaxLen))
			}
		case "number":
			n, ok := toFloat(value)
			if !ok {
				errors[f.Name] = append(errors[f.Name], fmt.Sprintf("%s must be a number", f.Display))
				continue
			}
			if f.Min != nil && n < *f.Min {
				errors[f.Name] = append(errors[f.Name], fmt.Sprintf("%s must be at least %g", f.Display, *f.Min))
			}
			if f.Max != nil && n > *f.Max {
				errors[f.Name] = append(errors[f.Name], fmt.Sprintf("%s must be at most %g", f.Display, *f.Max))
			}
		case "bool":
			if _, ok := value.(bool); !ok {
				errors[f.Name] = append(errors[f.Name], fmt.Sprintf("%s must be true or false", f.Display))
			}
		case "select":
			s, ok := value.(string)
			if !ok || !contains(f.Options, s) {
				errors[f.Name] = append(errors[f.Name], fmt.Sprintf("%s must be one of %v", f.Display, f.Options))
			}
		}
	}

	return errors, warnings, len(errors) == 0
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
