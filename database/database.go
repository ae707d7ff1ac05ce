// Package database implements the durable metadata store: one SQLite file per
// collection, one JSON document per record. A handful of indexed columns
// (id, name, deleted, created) carry the queries; everything else lives in
// the serialized document, so the record schema is owned by the models
// package rather than the table layout.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"filehost/logger"
)

var (
	// ErrNoDocument is returned when a lookup matches nothing. A soft-deleted
	// record is indistinguishable from an absent one at this layer.
	ErrNoDocument = errors.New("no document")
	// ErrDuplicate is returned when an insert violates a uniqueness rule.
	ErrDuplicate = errors.New("duplicate document")
)

// Record is one row of a collection: the indexed columns plus the document.
type Record struct {
	ID      string
	Name    string
	Deleted bool
	Created int64
	Doc     []byte
}

// Collection is a single-file document collection.
type Collection struct {
	db   *sql.DB
	name string
}

// queryColumns are the only fields FindOne accepts, which keeps column names
// out of caller hands.
var queryColumns = map[string]bool{
	"id":   true,
	"name": true,
}

// OpenCollection opens (creating if needed) the collection stored at path.
// uniqueNames additionally enforces one record per name, which the user
// collection relies on for getUserByName.
func OpenCollection(path, name string, uniqueNames bool) (*Collection, error) {
	logger.Debug("opening collection %q from '%s'", name, path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", name, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping collection %s: %w", name, err)
	}

	// The store serializes its own writes; a busy timeout covers the window
	// where two connections contend for the write lock.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout on %s: %w", name, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal mode on %s: %w", name, err)
	}

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id      TEXT PRIMARY KEY,
		name    TEXT NOT NULL,
		deleted INTEGER NOT NULL DEFAULT 0,
		created INTEGER NOT NULL,
		doc     TEXT NOT NULL
	)`, name)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}

	index := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_name ON %s (name)", name, name)
	if uniqueNames {
		index = fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_name ON %s (name)", name, name)
	}
	if _, err := db.Exec(index); err != nil {
		db.Close()
		return nil, fmt.Errorf("index collection %s: %w", name, err)
	}

	return &Collection{db: db, name: name}, nil
}

// Close releases the underlying database handle.
func (c *Collection) Close() error {
	return c.db.Close()
}

// Insert stores a new record. ErrDuplicate on id or unique-name collision.
func (c *Collection) Insert(ctx context.Context, rec Record) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (id, name, deleted, created, doc) VALUES (?, ?, ?, ?, ?)", c.name)

	_, err := c.db.ExecContext(ctx, query, rec.ID, rec.Name, boolToInt(rec.Deleted), rec.Created, string(rec.Doc))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("insert into %s: %w", c.name, ErrDuplicate)
		}
		return fmt.Errorf("insert into %s: %w", c.name, err)
	}
	return nil
}

// FindOne returns the first live record whose field equals value, or
// ErrNoDocument. includeDeleted widens the search to soft-deleted records.
func (c *Collection) FindOne(ctx context.Context, field, value string, includeDeleted bool) (*Record, error) {
	if !queryColumns[field] {
		return nil, fmt.Errorf("find in %s: unqueryable field %q", c.name, field)
	}

	query := fmt.Sprintf(
		"SELECT id, name, deleted, created, doc FROM %s WHERE %s = ?", c.name, field)
	if !includeDeleted {
		query += " AND deleted = 0"
	}
	query += " LIMIT 1"

	var (
		rec     Record
		deleted int
		doc     string
	)
	err := c.db.QueryRowContext(ctx, query, value).Scan(&rec.ID, &rec.Name, &deleted, &rec.Created, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.name, err)
	}

	rec.Deleted = deleted != 0
	rec.Doc = []byte(doc)
	return &rec, nil
}

// FindAll returns every record, oldest first.
func (c *Collection) FindAll(ctx context.Context) ([]Record, error) {
	query := fmt.Sprintf(
		"SELECT id, name, deleted, created, doc FROM %s ORDER BY created ASC", c.name)

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", c.name, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec     Record
			deleted int
			doc     string
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &deleted, &rec.Created, &doc); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", c.name, err)
		}
		rec.Deleted = deleted != 0
		rec.Doc = []byte(doc)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", c.name, err)
	}
	return out, nil
}

// MarkDeleted soft-deletes a record in place, rewriting its document so the
// flag survives rehydration. The record's bytes, if any, are untouched.
func (c *Collection) MarkDeleted(ctx context.Context, id string, when int64, doc []byte) error {
	query := fmt.Sprintf("UPDATE %s SET deleted = 1, doc = ? WHERE id = ?", c.name)

	res, err := c.db.ExecContext(ctx, query, string(doc), id)
	if err != nil {
		return fmt.Errorf("mark deleted in %s: %w", c.name, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNoDocument
	}

	logger.Debug("marked %s/%s deleted at %d", c.name, id, when)
	return nil
}

// Count returns the number of live records.
func (c *Collection) Count(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE deleted = 0", c.name)

	var n int64
	if err := c.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
