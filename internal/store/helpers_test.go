// ABOUTME: Tests for SQL LIKE escaping helper function.
// ABOUTME: Tests SQL special character escaping with edge cases.

package store

import "testing"

func TestEscapeSQLLike(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no special characters",
			input:    "/api/widgets",
			expected: "/api/widgets",
		},
		{
			name:     "percent wildcard",
			input:    "path%with%percent",
			expected: "path\\%with\\%percent",
		},
		{
			name:     "underscore wildcard",
			input:    "pending_files",
			expected: "pending\\_files",
		},
		{
			name:     "backslash escape character",
			input:    "path\\with\\backslash",
			expected: "path\\\\with\\\\backslash",
		},
		{
			name:     "mixed special characters",
			input:    "path%_with\\all_special%",
			expected: "path\\%\\_with\\\\all\\_special\\%",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "wildcard bypass attempt",
			input:    "prefix%",
			expected: "prefix\\%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := escapeSQLLike(tt.input)
			if result != tt.expected {
				t.Errorf("escapeSQLLike(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestEscapeSQLLikeOrder(t *testing.T) {
	// Backslash must be escaped before the wildcards to avoid double-escaping.
	input := "test\\%"
	result := escapeSQLLike(input)
	expected := "test\\\\\\%"
	if result != expected {
		t.Errorf("escapeSQLLike(%q) = %q, want %q (backslash should be escaped first)", input, result, expected)
	}
}
