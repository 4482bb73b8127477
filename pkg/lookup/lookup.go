// Package lookup holds the tag and trait dictionaries loaded from the
// VNDB dump files. Tables are built once at startup and never mutated, so
// concurrent command flows can share one instance without locking.
package lookup

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Entry is one tag or trait record from the dump.
type Entry struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases"`
	Description string   `json:"description"`
	Searchable  bool     `json:"searchable"`
}

// Table indexes dump entries two ways: canonical-name-or-alias to the full
// entry, and id to the canonical name.
type Table struct {
	byAlias  map[string]*Entry
	nameByID map[int]string
}

// Load reads a dump file (a JSON array of entries) fully into memory.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dump %s: %w", path, err)
	}

	var entries []*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode dump %s: %w", path, err)
	}

	return New(entries), nil
}

// New builds a table from already-decoded entries.
func New(entries []*Entry) *Table {
	t := &Table{
		byAlias:  make(map[string]*Entry, len(entries)*2),
		nameByID: make(map[int]string, len(entries)),
	}
	for _, e := range entries {
		t.nameByID[e.ID] = e.Name
		t.byAlias[strings.ToLower(e.Name)] = e
		for _, alias := range e.Aliases {
			t.byAlias[strings.ToLower(alias)] = e
		}
	}
	return t
}

// Find resolves a name or alias, case-insensitively. No partial matching.
func (t *Table) Find(alias string) (*Entry, bool) {
	e, ok := t.byAlias[strings.ToLower(alias)]
	return e, ok
}

// Name returns the canonical name for an id.
func (t *Table) Name(id int) (string, bool) {
	name, ok := t.nameByID[id]
	return name, ok
}

// Len reports how many distinct entries the table holds.
func (t *Table) Len() int {
	return len(t.nameByID)
}
