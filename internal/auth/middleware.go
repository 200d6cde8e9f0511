// ABOUTME: Authentication middleware for studio API requests.
// ABOUTME: Parses Bearer tokens and extracts the workspace namespace for request context.

package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const namespaceContextKey contextKey = "namespace"

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ns := extractNamespace(r.Header.Get("Authorization"))
		ctx := context.WithValue(r.Context(), namespaceContextKey, ns)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func NamespaceFromContext(ctx context.Context) string {
	ns, ok := ctx.Value(namespaceContextKey).(string)
	if !ok || ns == "" {
		return "default"
	}
	return ns
}

func extractNamespace(authHeader string) string {
	if authHeader == "" {
		return "default"
	}

	// Remove "Bearer " prefix
	token := strings.TrimPrefix(authHeader, "Bearer ")
	token = strings.TrimSpace(token)

	if token == "" {
		return "default"
	}

	// Check for "ns:" prefix - allows clients to pin a workspace explicitly
	if strings.HasPrefix(token, "ns:") {
		return strings.TrimPrefix(token, "ns:")
	}

	// All other tokens map to the shared workspace so data stays accessible
	// across requests regardless of the token format a client uses.
	return "studio"
}
