package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/notebridge/internal/editor"
	"github.com/GriffinCanCode/notebridge/internal/infrastructure/logging"
)

// ErrNotFound is returned when a key or tag does not exist
var ErrNotFound = errors.New("storage: not found")

// Store is a SQLite-backed key/value store plus the tag table the editor
// resolves note tags against
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Tag is a stored tag
type Tag struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Alias string `json:"alias"`
}

// Open opens or creates the database at path
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, logger: logging.OrNop(logger)}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tags (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    alias TEXT NOT NULL DEFAULT ''
);
`
	_, err := s.db.Exec(schema)
	return err
}

// GetString returns the value stored under key or ErrNotFound
func (s *Store) GetString(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// SetString stores value under key
func (s *Store) SetString(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Store) Remove(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Keys lists every stored key in order
func (s *Store) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// PutTag creates or replaces a tag
func (s *Store) PutTag(tag Tag) error {
	if tag.ID == "" {
		return fmt.Errorf("put tag: empty id")
	}
	_, err := s.db.Exec(`
		INSERT INTO tags (id, title, alias) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, alias = excluded.alias
	`, tag.ID, tag.Title, tag.Alias)
	if err != nil {
		return fmt.Errorf("put tag %s: %w", tag.ID, err)
	}
	return nil
}

// DeleteTag removes a tag
func (s *Store) DeleteTag(id string) error {
	res, err := s.db.Exec(`DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tag %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Tag returns the tag with id or ErrNotFound
func (s *Store) Tag(id string) (Tag, error) {
	tag := Tag{ID: id}
	err := s.db.QueryRow(`SELECT title, alias FROM tags WHERE id = ?`, id).Scan(&tag.Title, &tag.Alias)
	if errors.Is(err, sql.ErrNoRows) {
		return Tag{}, ErrNotFound
	}
	if err != nil {
		return Tag{}, fmt.Errorf("get tag %s: %w", id, err)
	}
	return tag, nil
}

// Tags lists every tag ordered by title
func (s *Store) Tags() ([]Tag, error) {
	rows, err := s.db.Query(`SELECT id, title, alias FROM tags ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Title, &tag.Alias); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// ResolveTag implements editor.TagResolver. Lookup failures other than a
// missing tag are logged and treated as unresolved.
func (s *Store) ResolveTag(id string) (editor.TagRef, bool) {
	tag, err := s.Tag(id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("tag lookup failed", zap.String("id", id), zap.Error(err))
		}
		return editor.TagRef{}, false
	}
	return editor.TagRef{Title: tag.Title, Alias: tag.Alias}, true
}
