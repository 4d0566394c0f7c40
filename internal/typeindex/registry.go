// Package typeindex maps abstract contract types to the concrete types
// stored in the vault.
package typeindex

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	vaulterrors "github.com/arkilian/vaultquery/internal/errors"
)

// DefaultRootType is the supertype of every contract state. Queries for it
// are unconstrained by type.
const DefaultRootType = "ContractState"

// ErrUnknownType is the cause of a lookup for an unregistered name.
var ErrUnknownType = errors.New("unknown contract type")

// TypeDescriptor describes a contract type and its direct supertypes.
type TypeDescriptor struct {
	Name       string   `json:"name" yaml:"name"`
	Abstract   bool     `json:"abstract" yaml:"abstract"`
	Supertypes []string `json:"supertypes,omitempty" yaml:"supertypes"`
}

// Loader resolves a type name to its descriptor.
type Loader interface {
	Lookup(name string) (TypeDescriptor, error)
}

// Registry is an in-memory Loader, safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	root  string
	types map[string]TypeDescriptor
}

// NewRegistry creates a registry holding only the abstract root type.
func NewRegistry(root string) *Registry {
	if root == "" {
		root = DefaultRootType
	}
	r := &Registry{
		root:  root,
		types: make(map[string]TypeDescriptor),
	}
	r.types[root] = TypeDescriptor{Name: root, Abstract: true}
	return r
}

// Root returns the root type name.
func (r *Registry) Root() string { return r.root }

// Register adds or replaces a descriptor.
func (r *Registry) Register(d TypeDescriptor) error {
	if d.Name == "" {
		return fmt.Errorf("type descriptor: empty name")
	}
	if d.Name == r.root {
		return fmt.Errorf("type descriptor: %q is the root type", d.Name)
	}
	for _, s := range d.Supertypes {
		if s == d.Name {
			return fmt.Errorf("type descriptor: %q lists itself as a supertype", d.Name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	d.Supertypes = append([]string(nil), d.Supertypes...)
	r.types[d.Name] = d
	return nil
}

// Lookup implements Loader.
func (r *Registry) Lookup(name string) (TypeDescriptor, error) {
	r.mu.RLock()
	d, ok := r.types[name]
	r.mu.RUnlock()
	if !ok {
		return TypeDescriptor{}, vaulterrors.NewTypeResolutionError(name, ErrUnknownType)
	}
	d.Supertypes = append([]string(nil), d.Supertypes...)
	return d, nil
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
