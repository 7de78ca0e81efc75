// Package intern implements the process-wide symbol/keyword string table
// (C4). It hands out small, stable, never-reused integer ids for distinct
// strings and supports the reverse id->string lookup used by symbols and
// keywords throughout the runtime.
package intern

import "sync"

// ID is a stable, process-wide identifier for an interned string.
type ID int32

// Table is a concurrent, append-only string<->ID mapping.
type Table struct {
	mu      sync.RWMutex
	strings []string
	ids     map[string]ID
}

// New returns an empty intern table.
func New() *Table {
	return &Table{
		ids: make(map[string]ID, 256),
	}
}

// Intern returns the stable id for s, allocating a new one on first sight.
// Intern is idempotent: repeated calls with the same string return the same
// id.
func (t *Table) Intern(s string) ID {
	t.mu.RLock()
	if id, ok := t.ids[s]; ok {
		t.mu.RUnlock()
		return id
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[s]; ok {
		return id
	}
	id := ID(len(t.strings))
	t.strings = append(t.strings, s)
	t.ids[s] = id
	return id
}

// Unintern returns the string stored under id. The second return value is
// false if id was never allocated by this table.
func (t *Table) Unintern(id ID) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(t.strings) {
		return "", false
	}
	return t.strings[id], true
}

// MustUnintern is Unintern without the ok flag, for callers that hold an id
// they know came from this table (e.g. synthesizing a diagnostic).
func (t *Table) MustUnintern(id ID) string {
	s, _ := t.Unintern(id)
	return s
}

// Len reports the number of distinct strings interned so far.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.strings)
}
