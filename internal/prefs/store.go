// Package prefs provides the persistent key-value preference store.
// Preferences live in a single JSON object file, created empty when
// absent. Keys are addressed with gjson paths on read and sjson paths
// on write.
package prefs

import (
	"fmt"
	"os"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Preference keys used by the client.
const (
	KeyPrompt      = "prompt"
	KeyCommandChar = "commandchar"
	KeyBlacklist   = "blacklistedTypes"
	KeyPlugins     = "plugins"
	KeyShowJoins   = "showjoins"
	KeyAutojoins   = "autojoins"
	KeyUsername    = "username"
	KeyPassword    = "password"
)

// DefaultPath is the preference file location relative to the working
// directory, matching where the client is usually launched from.
const DefaultPath = "prefs.json"

// Store reads and writes preferences. The JSON document is cached in
// memory; Set persists immediately. Safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	path string
	doc  []byte
}

// Open loads the store at path, creating an empty document if the file
// does not exist.
func Open(path string) (*Store, error) {
	s := &Store{path: path, doc: []byte("{}")}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) > 0 {
			if !gjson.ValidBytes(data) {
				return nil, fmt.Errorf("prefs file %s: not valid JSON", path)
			}
			s.doc = data
		}
	case os.IsNotExist(err):
		if err := os.WriteFile(path, s.doc, 0o600); err != nil {
			return nil, fmt.Errorf("create prefs file: %w", err)
		}
	default:
		return nil, fmt.Errorf("read prefs file: %w", err)
	}

	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the raw result for a key. Result.Exists reports presence.
func (s *Store) Get(key string) gjson.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gjson.GetBytes(s.doc, key)
}

// GetString returns the string value for a key, or "" when unset.
func (s *Store) GetString(key string) string {
	return s.Get(key).String()
}

// GetBool returns the boolean value for a key, false when unset.
func (s *Store) GetBool(key string) bool {
	return s.Get(key).Bool()
}

// GetInt returns the integer value for a key, 0 when unset.
func (s *Store) GetInt(key string) int64 {
	return s.Get(key).Int()
}

// GetStrings returns a string-list value for a key, nil when unset.
func (s *Store) GetStrings(key string) []string {
	res := s.Get(key)
	if !res.IsArray() {
		return nil
	}
	items := res.Array()
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.String())
	}
	return out
}

// Set stores a value under a key and persists the document.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := sjson.SetBytes(s.doc, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	if err := os.WriteFile(s.path, doc, 0o600); err != nil {
		return fmt.Errorf("write prefs file: %w", err)
	}
	s.doc = doc
	return nil
}

// reload replaces the cached document from disk. Invalid or unreadable
// content is ignored so an external half-written file cannot wipe the
// working set.
func (s *Store) reload() {
	data, err := os.ReadFile(s.path)
	if err != nil || len(data) == 0 || !gjson.ValidBytes(data) {
		return
	}

	s.mu.Lock()
	s.doc = data
	s.mu.Unlock()
}
