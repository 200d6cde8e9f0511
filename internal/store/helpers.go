// ABOUTME: SQL helper functions for query construction.
// ABOUTME: Escaping for LIKE patterns used by request-log filtering.

package store

import "strings"

// escapeSQLLike escapes the LIKE pattern metacharacters %, _, and \ so a
// user-supplied prefix matches literally. Backslash goes first to avoid
// double-escaping.
func escapeSQLLike(pattern string) string {
	pattern = strings.ReplaceAll(pattern, "\\", "\\\\")
	pattern = strings.ReplaceAll(pattern, "%", "\\%")
	pattern = strings.ReplaceAll(pattern, "_", "\\_")
	return pattern
}
