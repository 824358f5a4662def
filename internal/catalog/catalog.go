// Package catalog persists shows, episodes, chapters and the feed registry
// in SQLite.
//
// Row IDs stay inside this package. Every lookup and every returned record
// is keyed by external ID (exo).
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure Go driver, no cgo

	"github.com/mpgirro/hemin/internal/errors"
	"github.com/mpgirro/hemin/internal/logging"
)

// SchemaVersion is bumped whenever schema changes are not additive.
const SchemaVersion = 1

// Catalog is the SQLite-backed record store. Safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
	logger *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger for catalog diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// Open opens the catalog at path, creating it and its schema when needed.
// An empty path or ":memory:" opens a private in-memory database.
func Open(path string, opts ...Option) (*Catalog, error) {
	c := &Catalog{path: path}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDefault(c.logger)

	dsn := ":memory:"
	if path != "" && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.IOError(errors.ErrCodeCatalog, "failed to create catalog directory", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.IOError(errors.ErrCodeCatalog, "failed to open catalog", err)
	}

	// One connection: a single writer, and :memory: stays one database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.IOError(errors.ErrCodeCatalog, "failed to set pragma", err).
				WithDetail("pragma", pragma)
		}
	}

	c.db = db
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, errors.IOError(errors.ErrCodeCatalog, "failed to initialize catalog schema", err)
	}

	c.logger.Debug("catalog_opened", slog.String("path", dsn))
	return c, nil
}

func (c *Catalog) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS shows (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		exo                TEXT NOT NULL UNIQUE,
		feed_url           TEXT,
		title              TEXT,
		link               TEXT,
		description        TEXT,
		pub_date           TEXT,
		last_build_date    TEXT,
		language           TEXT,
		generator          TEXT,
		copyright          TEXT,
		docs               TEXT,
		managing_editor    TEXT,
		image              TEXT,
		itunes_summary     TEXT,
		itunes_author      TEXT,
		itunes_keywords    TEXT,
		itunes_categories  TEXT,
		itunes_explicit    INTEGER,
		itunes_block       INTEGER,
		itunes_type        TEXT,
		itunes_owner_name  TEXT,
		itunes_owner_email TEXT,
		episode_count      INTEGER NOT NULL DEFAULT 0,
		website_data       TEXT,
		updated_at         TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_shows_feed_url ON shows(feed_url);

	CREATE TABLE IF NOT EXISTS episodes (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		exo                 TEXT NOT NULL UNIQUE,
		show_exo            TEXT NOT NULL,
		show_title          TEXT,
		title               TEXT,
		link                TEXT,
		pub_date            TEXT,
		guid                TEXT,
		guid_permalink      INTEGER NOT NULL DEFAULT 0,
		description         TEXT,
		image               TEXT,
		enclosure_url       TEXT,
		enclosure_type      TEXT,
		enclosure_length    INTEGER,
		content_encoded     TEXT,
		itunes_duration     TEXT,
		itunes_subtitle     TEXT,
		itunes_author       TEXT,
		itunes_summary      TEXT,
		itunes_season       INTEGER,
		itunes_episode      INTEGER,
		itunes_episode_type TEXT,
		updated_at          TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_episodes_show ON episodes(show_exo);
	CREATE INDEX IF NOT EXISTS idx_episodes_guid ON episodes(show_exo, guid);

	CREATE TABLE IF NOT EXISTS chapters (
		episode_id INTEGER NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
		position   INTEGER NOT NULL,
		start      TEXT,
		title      TEXT,
		href       TEXT,
		image      TEXT,
		PRIMARY KEY (episode_id, position)
	);

	CREATE TABLE IF NOT EXISTS feeds (
		url          TEXT PRIMARY KEY,
		status       TEXT NOT NULL,
		registered   TEXT NOT NULL,
		last_checked TEXT
	);
	`
	if _, err := c.db.Exec(schema); err != nil {
		return err
	}
	_, err := c.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, SchemaVersion)
	return err
}

// Close closes the database. Calling it again is a no-op.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

// readable returns an error when the catalog is closed. Callers hold mu.
func (c *Catalog) readable() error {
	if c.closed {
		return errors.IOError(errors.ErrCodeCatalog, "catalog is closed", nil)
	}
	return nil
}

// withTx runs fn in a transaction that is rolled back unless fn succeeds.
func (c *Catalog) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.readable(); err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
