package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// AliasStore persists the alias -> calendar ID mapping as a whole.
type AliasStore interface {
	Load() (map[string]string, error)
	Save(aliases map[string]string) error
}

type aliasDocument struct {
	Calendars map[string]string `json:"calendars"`
}

// JSONAliasStore keeps aliases in a single JSON document. A missing file is
// an empty mapping.
type JSONAliasStore struct {
	path string
}

func NewJSONAliasStore(path string) *JSONAliasStore {
	return &JSONAliasStore{path: path}
}

func (s *JSONAliasStore) Load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading alias file: %w", err)
	}

	var doc aliasDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing alias file %s: %w", s.path, err)
	}
	if doc.Calendars == nil {
		doc.Calendars = map[string]string{}
	}
	return doc.Calendars, nil
}

func (s *JSONAliasStore) Save(aliases map[string]string) error {
	if aliases == nil {
		aliases = map[string]string{}
	}
	return writeJSONFile(s.path, aliasDocument{Calendars: aliases})
}

// SQLiteAliasStore keeps aliases in the calendar_aliases table of the state db.
type SQLiteAliasStore struct {
	db *sql.DB
}

func NewSQLiteAliasStore(db *sql.DB) *SQLiteAliasStore {
	return &SQLiteAliasStore{db: db}
}

func (s *SQLiteAliasStore) Load() (map[string]string, error) {
	rows, err := s.db.Query("SELECT alias, calendar_id FROM calendar_aliases")
	if err != nil {
		return nil, fmt.Errorf("querying aliases: %w", err)
	}
	defer rows.Close()

	aliases := map[string]string{}
	for rows.Next() {
		var alias, calendarID string
		if err := rows.Scan(&alias, &calendarID); err != nil {
			return nil, fmt.Errorf("scanning alias row: %w", err)
		}
		aliases[alias] = calendarID
	}
	return aliases, rows.Err()
}

func (s *SQLiteAliasStore) Save(aliases map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM calendar_aliases"); err != nil {
		return fmt.Errorf("clearing aliases: %w", err)
	}
	for alias, calendarID := range aliases {
		if _, err := tx.Exec("INSERT INTO calendar_aliases (alias, calendar_id) VALUES (?, ?)", alias, calendarID); err != nil {
			return fmt.Errorf("saving alias %s: %w", alias, err)
		}
	}
	return tx.Commit()
}

// AliasResolver maps short names to calendar IDs. Every call reads the
// store, so a mutation never works on stale state.
type AliasResolver struct {
	store AliasStore
}

func NewAliasResolver(store AliasStore) *AliasResolver {
	return &AliasResolver{store: store}
}

// Resolve returns the mapped ID for a known alias, the input itself
// otherwise, and the primary calendar for empty input.
func (r *AliasResolver) Resolve(nameOrID string) (string, error) {
	if nameOrID == "" {
		return primaryCalendarID, nil
	}
	aliases, err := r.store.Load()
	if err != nil {
		return "", err
	}
	if id, ok := aliases[nameOrID]; ok {
		return id, nil
	}
	return nameOrID, nil
}

func (r *AliasResolver) Set(alias, calendarID string) error {
	if alias == "" || calendarID == "" {
		return fmt.Errorf("%w: alias and calendar ID must not be empty", ErrUsage)
	}
	aliases, err := r.store.Load()
	if err != nil {
		return err
	}
	aliases[alias] = calendarID
	return r.store.Save(aliases)
}

// Remove reports whether the alias existed.
func (r *AliasResolver) Remove(alias string) (bool, error) {
	aliases, err := r.store.Load()
	if err != nil {
		return false, err
	}
	if _, ok := aliases[alias]; !ok {
		return false, nil
	}
	delete(aliases, alias)
	return true, r.store.Save(aliases)
}

func (r *AliasResolver) List() (map[string]string, error) {
	return r.store.Load()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// writeJSONFile writes v as indented JSON via a temp file and rename in the
// target directory.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".gcalctl-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
