// Package storage provides per-plugin persistent key-value stores
// backed by a single SQLite database.
package storage

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// Manager owns the shared SQLite database and hands out namespaced
// stores, one per plugin that declares storage use.
type Manager struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Manager, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init storage schema: %w", err)
	}

	slog.Info("storage opened", "path", path)
	return &Manager{db: db}, nil
}

// Store returns the namespaced store for a plugin. The handle is valid
// until Release is called for it or the manager is closed.
func (m *Manager) Store(pluginID string) *Store {
	return &Store{db: m.db, plugin: pluginID}
}

// Close closes the underlying database.
func (m *Manager) Close() error {
	return m.db.Close()
}

// Store is a plugin-scoped key-value view over the shared database.
type Store struct {
	db     *sql.DB
	plugin string
	closed bool
}

// Get returns the value for key, or nil if the key is absent.
func (s *Store) Get(key string) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	var value []byte
	err := s.db.QueryRow(`
		SELECT value FROM plugin_kv WHERE plugin = ? AND key = ?
	`, s.plugin, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage get %s/%s: %w", s.plugin, key, err)
	}
	return value, nil
}

// Put stores value under key, overwriting any previous value.
func (s *Store) Put(key string, value []byte) error {
	if s.closed {
		return ErrClosed
	}
	_, err := s.db.Exec(`
		INSERT INTO plugin_kv (plugin, key, value, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(plugin, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, s.plugin, key, value)
	if err != nil {
		return fmt.Errorf("storage put %s/%s: %w", s.plugin, key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if s.closed {
		return ErrClosed
	}
	_, err := s.db.Exec(`
		DELETE FROM plugin_kv WHERE plugin = ? AND key = ?
	`, s.plugin, key)
	if err != nil {
		return fmt.Errorf("storage delete %s/%s: %w", s.plugin, key, err)
	}
	return nil
}

// Keys returns all keys in the plugin's namespace, sorted.
func (s *Store) Keys() ([]string, error) {
	if s.closed {
		return nil, ErrClosed
	}
	rows, err := s.db.Query(`
		SELECT key FROM plugin_kv WHERE plugin = ? ORDER BY key
	`, s.plugin)
	if err != nil {
		return nil, fmt.Errorf("storage keys %s: %w", s.plugin, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Release invalidates the handle. The underlying database stays open;
// the plugin's rows are retained for its next load.
func (s *Store) Release() {
	s.closed = true
}

// Plugin returns the owning plugin id.
func (s *Store) Plugin() string {
	return s.plugin
}
