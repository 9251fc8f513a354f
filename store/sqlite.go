package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	sqliteExt = ".db"

	createBucketsTable = `
CREATE TABLE IF NOT EXISTS buckets (
	seq   INTEGER PRIMARY KEY AUTOINCREMENT,
	key   TEXT NOT NULL UNIQUE,
	value BLOB NOT NULL
);`

	createMetaTable = `
CREATE TABLE IF NOT EXISTS meta (
	name  TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`
)

// SQLiteBackend stores each map as a SQLite database "<name>.db" under the
// caller's directory, through database/sql with the modernc.org/sqlite
// driver. The buckets table keeps Put order in its rowid so iteration stays
// deterministic.
type SQLiteBackend struct{}

// NewSQLiteBackend creates a SQLite backend.
func NewSQLiteBackend() *SQLiteBackend { return &SQLiteBackend{} }

func sqlitePath(dir, name string) string {
	return filepath.Join(dir, name+sqliteExt)
}

// Create starts building a map database. Any prior database of that name is
// deleted first; the build writes into a temp database renamed on Commit.
func (b *SQLiteBackend) Create(dir, name string, meta Meta) (Builder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, NewStorageError("create", name, err)
	}
	tmp := sqlitePath(dir, name) + ".tmp"
	os.Remove(tmp)

	conn, err := sql.Open("sqlite", tmp)
	if err != nil {
		return nil, NewStorageError("create", name, err)
	}
	for _, schema := range []string{createBucketsTable, createMetaTable} {
		if _, err := conn.Exec(schema); err != nil {
			conn.Close()
			os.Remove(tmp)
			return nil, NewStorageError("create", name, err)
		}
	}
	tx, err := conn.Begin()
	if err != nil {
		conn.Close()
		os.Remove(tmp)
		return nil, NewStorageError("create", name, err)
	}
	for metaName, value := range meta {
		if _, err := tx.Exec(`INSERT INTO meta (name, value) VALUES (?, ?)`, metaName, value); err != nil {
			tx.Rollback()
			conn.Close()
			os.Remove(tmp)
			return nil, NewStorageError("create", name, err)
		}
	}
	return &sqliteBuilder{
		conn:  conn,
		tx:    tx,
		tmp:   tmp,
		final: sqlitePath(dir, name),
		name:  name,
	}, nil
}

// Open opens a committed map database.
func (b *SQLiteBackend) Open(dir, name string) (Map, error) {
	path := sqlitePath(dir, name)
	if _, err := os.Stat(path); err != nil {
		return nil, NewStorageError("open", name, err)
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, NewStorageError("open", name, err)
	}
	m := &sqliteMap{conn: conn, name: name}
	if err := m.load(); err != nil {
		conn.Close()
		return nil, err
	}
	return m, nil
}

// Remove deletes a map database and any leftover temp database.
func (b *SQLiteBackend) Remove(dir, name string) error {
	os.Remove(sqlitePath(dir, name) + ".tmp")
	if err := os.Remove(sqlitePath(dir, name)); err != nil && !os.IsNotExist(err) {
		return NewStorageError("remove", name, err)
	}
	return nil
}

type sqliteBuilder struct {
	conn      *sql.DB
	tx        *sql.Tx
	tmp       string
	final     string
	name      string
	committed bool
}

func (b *sqliteBuilder) Put(key string, value []byte) error {
	if b.committed {
		return NewStorageError("write", b.name, fmt.Errorf("put after commit"))
	}
	if _, err := b.tx.Exec(`INSERT INTO buckets (key, value) VALUES (?, ?)`, key, value); err != nil {
		return NewStorageError("write", b.name, err)
	}
	return nil
}

func (b *sqliteBuilder) Commit() error {
	if b.committed {
		return nil
	}
	b.committed = true
	if err := b.tx.Commit(); err != nil {
		b.conn.Close()
		os.Remove(b.tmp)
		return NewStorageError("commit", b.name, err)
	}
	if err := b.conn.Close(); err != nil {
		os.Remove(b.tmp)
		return NewStorageError("commit", b.name, err)
	}
	if err := os.Rename(b.tmp, b.final); err != nil {
		os.Remove(b.tmp)
		return NewStorageError("commit", b.name, err)
	}
	return nil
}

type sqliteMap struct {
	conn *sql.DB
	name string
	meta Meta
	keys []string
}

// load reads the metadata and key order up front; bucket bytes stay in the
// database until asked for.
func (m *sqliteMap) load() error {
	m.meta = make(Meta)
	rows, err := m.conn.Query(`SELECT name, value FROM meta`)
	if err != nil {
		return NewCorruptionError(m.name, "meta table unreadable", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return NewCorruptionError(m.name, "meta row unreadable", err)
		}
		m.meta[name] = value
	}
	if err := rows.Err(); err != nil {
		return NewCorruptionError(m.name, "meta table unreadable", err)
	}

	keyRows, err := m.conn.Query(`SELECT key FROM buckets ORDER BY seq`)
	if err != nil {
		return NewCorruptionError(m.name, "buckets table unreadable", err)
	}
	defer keyRows.Close()
	for keyRows.Next() {
		var key string
		if err := keyRows.Scan(&key); err != nil {
			return NewCorruptionError(m.name, "bucket row unreadable", err)
		}
		m.keys = append(m.keys, key)
	}
	if err := keyRows.Err(); err != nil {
		return NewCorruptionError(m.name, "buckets table unreadable", err)
	}
	return nil
}

func (m *sqliteMap) Get(key string) ([]byte, error) {
	var value []byte
	err := m.conn.QueryRow(`SELECT value FROM buckets WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, NewStorageError("read", m.name, err)
	}
	return value, nil
}

func (m *sqliteMap) Len() int { return len(m.keys) }

func (m *sqliteMap) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

func (m *sqliteMap) Each(fn func(key string, value []byte) error) error {
	rows, err := m.conn.Query(`SELECT key, value FROM buckets ORDER BY seq`)
	if err != nil {
		return NewStorageError("read", m.name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return NewCorruptionError(m.name, "bucket row unreadable", err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return NewStorageError("read", m.name, err)
	}
	return nil
}

func (m *sqliteMap) Meta(name string) (string, bool) {
	v, ok := m.meta[name]
	return v, ok
}

func (m *sqliteMap) Close() error { return m.conn.Close() }
