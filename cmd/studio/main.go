// ABOUTME: Entry point for the studio CMS backend server.
// ABOUTME: Wires together store, state store, edit sessions, and API handlers with CLI commands.

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/2389/studio/internal/api"
	"github.com/2389/studio/internal/auth"
	"github.com/2389/studio/internal/editor"
	"github.com/2389/studio/internal/logging"
	"github.com/2389/studio/internal/remote"
	"github.com/2389/studio/internal/statestore"
	"github.com/2389/studio/internal/store"
	"github.com/2389/studio/internal/suggest"
)

var (
	port   string
	dbPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "studio",
		Short: "Studio - CMS admin backend with live editing sessions",
		Long: `Studio is the backend for a CMS admin tool built around editing sessions.

Features:
  • Widget configuration editing with debounced validation
  • Live preview streaming over WebSocket
  • Media upload with duplicate detection and resolution
  • Pending-file approval workflow with AI-suggested metadata
  • SQLite persistence

Quick Start:
  studio seed           # Generate sample widget types and widgets
  studio serve          # Start server on port 9000
  studio reset          # Wipe and reseed database`,
	}

	// Calculate default database path once (not per-command)
	defaultDBPath := getDefaultDBPath()

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the studio HTTP server on the specified port.

The server provides:
  • Widget validation and edit session endpoints under /api
  • Live preview WebSocket at /api/preview/{entityID}
  • Media upload and approval endpoints under /api/media
  • Health check at http://localhost:PORT/healthz

Authentication:
  Use Bearer tokens in the format: Bearer ns:NAMESPACE
  Example: curl -H "Authorization: Bearer ns:marketing" http://localhost:9000/api/widgets

Environment Variables:
  STUDIO_PORT          Server port (default: 9000)
  STUDIO_REMOTE_URL    Validate against a remote studio instead of in-process
  STUDIO_REMOTE_TOKEN  Bearer token for the remote studio
  OPENAI_API_KEY       Enable AI-suggested media metadata`,
		RunE: runServe,
	}
	serveCmd.Flags().StringVarP(&port, "port", "p", getEnv("STUDIO_PORT", "9000"), "Port to listen on")
	serveCmd.Flags().StringVarP(&dbPath, "db", "d", defaultDBPath, "Database path")

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with sample data",
		Long: `Seed the database with sample widget types, widgets, and media assets.

Data Generated:
  • Widget types: banner, gallery, article-list (with field schemas)
  • Widgets: one configured instance per type
  • Media: sample committed assets and one pending file

Note: Seed is not idempotent. Use 'studio reset' to clear data before reseeding.`,
		RunE: runSeed,
	}
	seedCmd.Flags().StringVarP(&dbPath, "db", "d", defaultDBPath, "Database path")

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the database (wipe and reseed)",
		Long: `Delete the database file and create a fresh one with new sample data.

This command:
  1. Deletes the existing database file
  2. Creates a new empty database
  3. Seeds it with fresh sample data

Warning: This permanently deletes all data in the database!`,
		RunE: runReset,
	}
	resetCmd.Flags().StringVarP(&dbPath, "db", "d", defaultDBPath, "Database path")

	rootCmd.AddCommand(serveCmd, seedCmd, resetCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// validateAndCleanDBPath validates and cleans a database path.
// Handles Unix/Linux, macOS, and Windows paths (including UNC and drive letters).
func validateAndCleanDBPath(path string) (string, error) {
	cleanPath := strings.TrimSpace(path)
	cleanPath = filepath.Clean(cleanPath)

	// Reject empty and root-like paths
	if cleanPath == "" || cleanPath == "." || cleanPath == "/" {
		return "", fmt.Errorf("database path cannot be empty, '.', or '/'")
	}

	// Windows: reject bare drive letters (e.g., "C:", "D:")
	if runtime.GOOS == "windows" && len(cleanPath) == 2 && cleanPath[1] == ':' {
		return "", fmt.Errorf("database path cannot be a bare drive letter")
	}

	// Check for path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return "", fmt.Errorf("database path cannot contain '..'")
	}

	// Reject known problematic patterns
	badPatterns := []string{
		".git",
		".svn",
		"node_modules",
		".env",
		"credentials",
		"secret",
	}
	lowerPath := strings.ToLower(cleanPath)
	for _, pattern := range badPatterns {
		if strings.Contains(lowerPath, pattern) {
			return "", fmt.Errorf("database path cannot contain '%s' directory", pattern)
		}
	}

	return cleanPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	var err error
	dbPath, err = validateAndCleanDBPath(dbPath)
	if err != nil {
		return err
	}

	srv, err := newServer(dbPath)
	if err != nil {
		return err
	}

	addr := ":" + port
	log.Printf("Studio server listening on %s", addr)
	log.Printf("Database: %s", dbPath)
	return http.ListenAndServe(addr, srv)
}

func newServer(dbPath string) (http.Handler, error) {
	s, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	states := statestore.New()

	// Validation runs in-process against the local store unless a remote
	// studio is configured. The choice is resolved once, here.
	var validator editor.RemoteValidator = api.NewLocalValidator(s)
	if remoteURL := os.Getenv("STUDIO_REMOTE_URL"); remoteURL != "" {
		log.Printf("Validating against remote studio at %s", remoteURL)
		validator = remote.NewClient(remoteURL, os.Getenv("STUDIO_REMOTE_TOKEN"))
	}

	sessions := editor.NewManager(editor.Config{
		Validator: validator,
		Store:     states,
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware(s))
	r.Use(auth.Middleware)

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	// Favicon
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	api.NewHandlers(s, suggest.NewSuggester(), sessions, states).RegisterRoutes(r)

	return r, nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	var err error
	dbPath, err = validateAndCleanDBPath(dbPath)
	if err != nil {
		return err
	}

	s, err := store.New(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	return seedData(s)
}

func runReset(cmd *cobra.Command, args []string) error {
	var err error
	dbPath, err = validateAndCleanDBPath(dbPath)
	if err != nil {
		return err
	}

	// Remove existing database - ignore if file doesn't exist
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing database: %w", err)
	}

	s, err := store.New(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	return seedData(s)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getDefaultDBPath returns the default database path following XDG Base Directory spec
// Priority: STUDIO_DB_PATH env var > ./studio.db (backwards compat) > XDG_DATA_HOME/studio/studio.db
func getDefaultDBPath() string {
	// 1. Check environment variable first
	if envPath := os.Getenv("STUDIO_DB_PATH"); envPath != "" {
		// Trim whitespace and clean path
		envPath = strings.TrimSpace(envPath)
		envPath = filepath.Clean(envPath)
		if envPath == "" || envPath == "." {
			log.Printf("Warning: STUDIO_DB_PATH is invalid (empty or '.'), using default path")
		} else {
			return envPath
		}
	}

	// 2. Check for existing ./studio.db (backwards compatibility)
	cwdPath := "./studio.db"
	if _, err := os.Stat(cwdPath); err == nil {
		return cwdPath
	}

	// 3. Use XDG Base Directory spec (or Windows equivalent)
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil || homeDir == "" || homeDir == "/" {
			// Fallback to current directory if we can't get valid home dir
			log.Printf("Warning: Could not determine valid home directory (%q): %v, using ./studio.db", homeDir, err)
			return cwdPath
		}

		// Use platform-appropriate data directory
		// Windows: %LOCALAPPDATA% or ~/AppData/Local
		// Unix/Linux/macOS: ~/.local/share (XDG spec)
		if runtime.GOOS == "windows" {
			dataHome = os.Getenv("LOCALAPPDATA")
			if dataHome == "" {
				dataHome = filepath.Join(homeDir, "AppData", "Local")
			}
		} else {
			// Unix/Linux/macOS - XDG Base Directory spec
			dataHome = filepath.Join(homeDir, ".local", "share")
		}
	}

	studioDataDir := filepath.Join(dataHome, "studio")
	xdgDBPath := filepath.Join(studioDataDir, "studio.db")

	// Create the directory if it doesn't exist
	if err := os.MkdirAll(studioDataDir, 0755); err != nil {
		log.Printf("Warning: Could not create data directory %s: %v, using ./studio.db", studioDataDir, err)
		return cwdPath
	}

	// Verify we can write to the directory
	testFile := filepath.Join(studioDataDir, ".write-test")
	if f, err := os.Create(testFile); err != nil {
		log.Printf("Warning: Cannot write to data directory %s: %v, using ./studio.db", studioDataDir, err)
		return cwdPath
	} else {
		if err := f.Close(); err != nil {
			log.Printf("Warning: Error closing test file: %v", err)
		}
		if err := os.Remove(testFile); err != nil {
			log.Printf("Warning: Could not remove test file %s: %v", testFile, err)
		}
	}

	// Only log in debug mode to avoid polluting --help output
	if os.Getenv("STUDIO_DEBUG") != "" {
		log.Printf("Using database location: %s", xdgDBPath)
	}

	return xdgDBPath
}
