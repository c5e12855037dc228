package store

import (
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	kberr "github.com/refdex/refdex/internal/errors"
)

// Store owns the embedded database: schema bootstrap, document and
// pattern persistence, and the full-text mirror tables.
//
// A Store is opened once per process invocation and passed explicitly to
// callers; Close must run on every exit path, including fatal ones.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	lock   *flock.Flock
	closed bool

	// ftsAvailable records whether the FTS5 mirror tables could be
	// created. In-process only, never persisted: the search layer still
	// probes per query so capability changes self-heal.
	ftsAvailable bool

	// generation increments on every successful write. The search layer
	// uses it to invalidate cached results.
	generation atomic.Uint64
}

// Open opens or creates the database at path and bootstraps the schema.
// Pass ":memory:" for an in-memory store (tests).
//
// An advisory lock next to the database file guards against accidental
// concurrent migration runs; a held lock is a connection error.
func Open(path string) (*Store, error) {
	var dsn string
	var fileLock *flock.Flock

	if path == ":memory:" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, kberr.ConnectionError("cannot create database directory "+dir, err)
		}

		fileLock = flock.New(path + ".lock")
		locked, err := fileLock.TryLock()
		if err != nil {
			return nil, kberr.ConnectionError("cannot acquire database lock", err)
		}
		if !locked {
			return nil, kberr.ConnectionError("database is locked by another refdex process", nil)
		}

		dsn = path + "?_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		if fileLock != nil {
			_ = fileLock.Unlock()
		}
		return nil, kberr.ConnectionError("cannot open database "+path, err)
	}

	// Single connection prevents writer lock contention with modernc.org/sqlite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL must be set via PRAGMA for modernc.org/sqlite; DSN params may
	// be ignored by the driver.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			if fileLock != nil {
				_ = fileLock.Unlock()
			}
			return nil, kberr.ConnectionError("cannot set pragma", err)
		}
	}

	s := &Store{
		db:   db,
		path: path,
		lock: fileLock,
	}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		if fileLock != nil {
			_ = fileLock.Unlock()
		}
		return nil, err
	}

	return s, nil
}

// baseSchema holds the entity tables and their indexes. Creation is
// idempotent and must succeed for the store to open.
const baseSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	path TEXT NOT NULL UNIQUE,
	document_type TEXT NOT NULL CHECK (document_type IN ('technical', 'process')),
	category TEXT NOT NULL,
	subcategory TEXT,
	role TEXT NOT NULL DEFAULT '',
	enforcement_level TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '',
	file_size INTEGER NOT NULL DEFAULT 0,
	line_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category);
CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(document_type);

CREATE TABLE IF NOT EXISTS patterns (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	domain TEXT NOT NULL,
	problem TEXT NOT NULL,
	solution TEXT NOT NULL,
	code_example TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_validated TIMESTAMP,
	is_current INTEGER NOT NULL DEFAULT 1,
	notes TEXT
);
CREATE INDEX IF NOT EXISTS idx_patterns_domain ON patterns(domain);
`

// ftsSchema holds the full-text mirror tables. Creation is best-effort:
// a runtime without the FTS5 module degrades to substring search.
const ftsSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
	path UNINDEXED,
	title,
	content,
	tags,
	tokenize='unicode61'
);
CREATE VIRTUAL TABLE IF NOT EXISTS patterns_fts USING fts5(
	name,
	domain,
	problem,
	solution,
	tokenize='unicode61'
);
`

// initSchema creates the entity tables and, best-effort, the FTS mirrors.
func (s *Store) initSchema() error {
	if _, err := s.db.Exec(baseSchema); err != nil {
		return kberr.SchemaError("cannot create base tables", err)
	}

	if _, err := s.db.Exec(ftsSchema); err != nil {
		if isMissingFTS(err) {
			s.ftsAvailable = false
			slog.Warn("fts5_unavailable",
				slog.String("path", s.path),
				slog.String("error", err.Error()),
				slog.String("effect", "search degrades to substring matching"))
			return nil
		}
		return kberr.SchemaError("cannot create full-text mirror tables", err)
	}

	s.ftsAvailable = true
	return nil
}

// isMissingFTS reports whether err indicates an absent FTS5 module
// rather than a genuine schema failure.
func isMissingFTS(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such module") || strings.Contains(msg, "fts5")
}

// FullTextAvailable reports whether the FTS mirror tables were created.
func (s *Store) FullTextAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ftsAvailable
}

// Generation returns the write generation, incremented on every
// successful mutation.
func (s *Store) Generation() uint64 {
	return s.generation.Load()
}

// Close checkpoints the WAL, closes the database, and releases the
// advisory lock. Safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		err = s.db.Close()
	}
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
	return err
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
