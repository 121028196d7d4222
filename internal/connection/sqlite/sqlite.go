// Package sqlite is a connection that stores documents in a SQLite database.
//
// Commands are staged and written in a single transaction on Commit. Delete queries
// are limited to the two forms the session emits: every type, or one type name.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hyperjump/solrdex/internal/document"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("document not found")

type opKind int

const (
	opAdd opKind = iota
	opDelete
	opDeleteAll
	opDeleteType
)

type op struct {
	kind opKind
	id   string
	doc  document.Payload
	arg  string
}

// Connection stages commands and applies them to SQLite on commit.
type Connection struct {
	db      *sql.DB
	mu      sync.Mutex
	pending []op
	logger  *zap.Logger // optional; when set, logs debug events
}

// Option configures a Connection.
type Option func(*Connection)

// WithLogger sets a logger for debug output (commit sizes).
func WithLogger(l *zap.Logger) Option {
	return func(c *Connection) { c.logger = l }
}

// Open opens or creates the database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func Open(dbPath string, opts ...Option) (*Connection, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	c := &Connection{db: db}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		fields TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS document_types (
		document_id TEXT NOT NULL,
		type TEXT NOT NULL,
		PRIMARY KEY (document_id, type)
	);

	CREATE INDEX IF NOT EXISTS idx_document_types_type ON document_types(type);
	`
	_, err := db.Exec(schema)
	return err
}

// Add stages docs.
func (c *Connection) Add(_ context.Context, docs []document.Payload) error {
	staged := make([]op, 0, len(docs))
	for _, d := range docs {
		id := d.ID()
		if id == "" {
			return fmt.Errorf("document without %q field", document.IDField)
		}
		staged = append(staged, op{kind: opAdd, id: id, doc: d})
	}
	c.mu.Lock()
	c.pending = append(c.pending, staged...)
	c.mu.Unlock()
	return nil
}

// DeleteByID stages deletes.
func (c *Connection) DeleteByID(_ context.Context, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.pending = append(c.pending, op{kind: opDelete, id: id})
	}
	return nil
}

// DeleteByQuery stages "type:[* TO *]" or "type:Name". Other queries are an error.
func (c *Connection) DeleteByQuery(_ context.Context, query string) error {
	query = strings.TrimSpace(query)
	var o op
	switch {
	case query == "type:[* TO *]":
		o = op{kind: opDeleteAll}
	case strings.HasPrefix(query, document.TypeField+":") && !strings.ContainsAny(query[len(document.TypeField)+1:], " []*:"):
		o = op{kind: opDeleteType, arg: query[len(document.TypeField)+1:]}
	default:
		return fmt.Errorf("unsupported delete query %q", query)
	}
	if o.kind == opDeleteType && o.arg == "" {
		return fmt.Errorf("unsupported delete query %q", query)
	}
	c.mu.Lock()
	c.pending = append(c.pending, o)
	c.mu.Unlock()
	return nil
}

// Commit writes staged commands in order inside one transaction. On failure nothing
// is written and the commands stay staged.
func (c *Connection) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, o := range c.pending {
		if err := apply(ctx, tx, o); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if c.logger != nil {
		c.logger.Debug("sqlite commit", zap.Int("commands", len(c.pending)))
	}
	c.pending = nil
	return nil
}

func apply(ctx context.Context, tx *sql.Tx, o op) error {
	switch o.kind {
	case opAdd:
		fields, err := json.Marshal(o.doc)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", o.id, err)
		}
		if err := deleteIDs(ctx, tx, o.id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (id, fields, updated_at) VALUES (?, ?, ?)`,
			o.id, string(fields), time.Now(),
		); err != nil {
			return fmt.Errorf("insert %s: %w", o.id, err)
		}
		for _, typ := range o.doc.Types() {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO document_types (document_id, type) VALUES (?, ?)`, o.id, typ,
			); err != nil {
				return fmt.Errorf("insert type of %s: %w", o.id, err)
			}
		}
	case opDelete:
		return deleteIDs(ctx, tx, o.id)
	case opDeleteAll:
		if _, err := tx.ExecContext(ctx, `DELETE FROM document_types`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
			return err
		}
	case opDeleteType:
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM documents WHERE id IN (SELECT document_id FROM document_types WHERE type = ?)`, o.arg,
		); err != nil {
			return fmt.Errorf("delete type %s: %w", o.arg, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM document_types WHERE document_id NOT IN (SELECT id FROM documents)`,
		); err != nil {
			return fmt.Errorf("delete type %s: %w", o.arg, err)
		}
	}
	return nil
}

func deleteIDs(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_types WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// Get returns the committed document with id.
func (c *Connection) Get(ctx context.Context, id string) (document.Payload, error) {
	var fields string
	err := c.db.QueryRowContext(ctx, `SELECT fields FROM documents WHERE id = ?`, id).Scan(&fields)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var p document.Payload
	if err := json.Unmarshal([]byte(fields), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", id, err)
	}
	return p, nil
}

// Count returns the number of committed documents, or of one type when typeName is set.
func (c *Connection) Count(ctx context.Context, typeName string) (int, error) {
	var n int
	var err error
	if typeName == "" {
		err = c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	} else {
		err = c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_types WHERE type = ?`, typeName).Scan(&n)
	}
	return n, err
}

// Pending returns the number of staged commands.
func (c *Connection) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Connection) Close() error {
	return c.db.Close()
}
