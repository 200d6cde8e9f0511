// ABOUTME: Core SQLite store for the studio backend.
// ABOUTME: Handles database initialization, migrations, and connection management.

package store

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

// Migration version constants
const (
	MigrationV1 = 1 // Initial schema: widget types, widgets, media, pending files, request logs
	MigrationV2 = 2 // Indexes for media lookup and request-log filtering
)

// CurrentSchemaVersion is the target version for the database schema
const CurrentSchemaVersion = MigrationV2

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pooling
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0) // Connections don't expire

	// Enable foreign keys and WAL mode
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// migrate runs all pending migrations
func (s *Store) migrate() error {
	if err := s.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := s.getCurrentMigrationVersion()
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	log.Printf("Database schema version: %d, target version: %d", currentVersion, CurrentSchemaVersion)

	if currentVersion < MigrationV1 {
		if err := s.migrateV1(); err != nil {
			return fmt.Errorf("migration v1 failed: %w", err)
		}
	}

	if currentVersion < MigrationV2 {
		if err := s.migrateV2(); err != nil {
			return fmt.Errorf("migration v2 failed: %w", err)
		}
	}

	return nil
}

// createMigrationsTable creates the schema_migrations tracking table
func (s *Store) createMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)
	`)
	return err
}

// getCurrentMigrationVersion retrieves the current schema version
func (s *Store) getCurrentMigrationVersion() (int, error) {
	var version int
	err := s.db.QueryRow(`
		SELECT COALESCE(MAX(version), 0) FROM schema_migrations
	`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

// recordMigration records a completed migration
func (s *Store) recordMigration(version int, description string) error {
	_, err := s.db.Exec(`
		INSERT INTO schema_migrations (version, description)
		VALUES (?, ?)
	`, version, description)
	return err
}

// migrateV1 creates the initial tables
func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS widget_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		fields TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS widgets (
		id TEXT PRIMARY KEY,
		type_id TEXT NOT NULL REFERENCES widget_types(id),
		name TEXT NOT NULL DEFAULT '',
		configuration TEXT NOT NULL DEFAULT '{}',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS media_assets (
		id TEXT PRIMARY KEY,
		namespace TEXT NOT NULL,
		filename TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		access_level TEXT NOT NULL DEFAULT '',
		media_type TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0,
		tags TEXT NOT NULL DEFAULT '[]',
		deleted INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS pending_files (
		id TEXT PRIMARY KEY,
		namespace TEXT NOT NULL,
		filename TEXT NOT NULL,
		media_type TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0,
		suggested_title TEXT NOT NULL DEFAULT '',
		suggested_tags TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS request_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		status_code INTEGER,
		duration_ms INTEGER,
		namespace TEXT,
		ip_address TEXT,
		user_agent TEXT,
		request_body TEXT,
		response_body TEXT,
		error TEXT
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	if err := s.recordMigration(MigrationV1, "Create widget, media, and request log tables"); err != nil {
		return err
	}

	log.Printf("Applied migration v%d: Create widget, media, and request log tables", MigrationV1)
	return nil
}

// migrateV2 adds indexes for the hot lookup paths
func (s *Store) migrateV2() error {
	indexes := []string{
		// Duplicate detection looks assets up by namespace+filename, deleted or not
		"CREATE INDEX IF NOT EXISTS idx_media_assets_ns_filename ON media_assets(namespace, filename)",

		// Pending duplicate detection matches by filename too
		"CREATE INDEX IF NOT EXISTS idx_pending_files_ns_filename ON pending_files(namespace, filename)",

		// Request log browsing orders by newest first
		"CREATE INDEX IF NOT EXISTS idx_request_logs_timestamp ON request_logs(timestamp DESC)",
		"CREATE INDEX IF NOT EXISTS idx_request_logs_path ON request_logs(path)",
	}

	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if err := s.recordMigration(MigrationV2, "Add media and request log indexes"); err != nil {
		return err
	}

	log.Printf("Applied migration v%d: Add media and request log indexes", MigrationV2)
	return nil
}
