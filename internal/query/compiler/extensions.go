package compiler

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ExtensionTable is a table keyed by (transaction_id, output_index) that
// carries queryable custom attributes of vault states.
type ExtensionTable struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns" yaml:"columns"`
}

// ExtensionRegistry declares which extension tables and columns custom
// criteria may reference. Only registered identifiers reach SQL text.
type ExtensionRegistry struct {
	mu     sync.RWMutex
	tables map[string]map[string]struct{}
}

// NewExtensionRegistry creates an empty registry.
func NewExtensionRegistry() *ExtensionRegistry {
	return &ExtensionRegistry{tables: make(map[string]map[string]struct{})}
}

// Register declares a table and its queryable columns. Registering the same
// table again adds columns.
func (r *ExtensionRegistry) Register(table string, columns ...string) error {
	if !identifierPattern.MatchString(table) {
		return fmt.Errorf("extension table %q: invalid identifier", table)
	}
	if len(columns) == 0 {
		return fmt.Errorf("extension table %q: no columns", table)
	}
	for _, c := range columns {
		if !identifierPattern.MatchString(c) {
			return fmt.Errorf("extension table %q: invalid column %q", table, c)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cols, ok := r.tables[table]
	if !ok {
		cols = make(map[string]struct{}, len(columns))
		r.tables[table] = cols
	}
	for _, c := range columns {
		cols[c] = struct{}{}
	}
	return nil
}

// Has reports whether table.column is registered.
func (r *ExtensionRegistry) Has(table, column string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cols, ok := r.tables[table]
	if !ok {
		return false
	}
	_, ok = cols[column]
	return ok
}

// Tables returns the registered tables, sorted by name with sorted columns.
func (r *ExtensionRegistry) Tables() []ExtensionTable {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ExtensionTable, 0, len(r.tables))
	for name, cols := range r.tables {
		t := ExtensionTable{Name: name}
		for c := range cols {
			t.Columns = append(t.Columns, c)
		}
		sort.Strings(t.Columns)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
