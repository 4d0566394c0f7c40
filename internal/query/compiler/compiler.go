// Package compiler turns criteria trees into query plans.
//
// Compilation merges the caller's criteria with the default criteria for
// the requested contract type, then lowers the tree onto vault_states
// predicates. A Compiler holds no per-query state and may be shared.
package compiler

import (
	"fmt"
	"sort"

	vaulterrors "github.com/arkilian/vaultquery/internal/errors"
	"github.com/arkilian/vaultquery/internal/query/plan"
	"github.com/arkilian/vaultquery/internal/typeindex"
	"github.com/arkilian/vaultquery/pkg/criteria"
	"github.com/arkilian/vaultquery/pkg/types"
)

// Compiler compiles criteria into plans.
type Compiler struct {
	root       string
	extensions *ExtensionRegistry
}

// New creates a compiler. root is the type whose queries are unconstrained;
// extensions may be nil when no custom criteria are used.
func New(root string, extensions *ExtensionRegistry) *Compiler {
	if root == "" {
		root = typeindex.DefaultRootType
	}
	return &Compiler{root: root, extensions: extensions}
}

// typeSet is a contract type constraint. An unconstrained set matches every
// type; a constrained empty set matches nothing.
type typeSet struct {
	names       []string
	constrained bool
}

func unconstrained() typeSet { return typeSet{} }

func constrainedTo(names []string) typeSet {
	return typeSet{names: sortedUnique(names), constrained: true}
}

func (s typeSet) union(o typeSet) typeSet {
	switch {
	case !s.constrained:
		return o
	case !o.constrained:
		return s
	}
	return constrainedTo(append(append([]string(nil), s.names...), o.names...))
}

// Compile merges expr with the defaults for requested and lowers the result.
// A nil expr is the default criteria.
func (c *Compiler) Compile(expr criteria.Expression, requested typeindex.TypeDescriptor, idx typeindex.Index) (*plan.Plan, error) {
	if expr == nil {
		expr = &criteria.VaultCriteria{}
	}
	defaults := c.defaultTypes(requested, idx)
	l := &lowerer{compiler: c, idx: idx}

	if top, ok := expr.(*criteria.VaultCriteria); ok && top != nil {
		merged := l.expand(top.Types).union(defaults)
		where, err := l.vault(top, merged)
		if err != nil {
			return nil, err
		}
		return plan.New(where, merged.planTypes()), nil
	}

	where, err := l.lower(expr, 0)
	if err != nil {
		return nil, err
	}

	status := types.StatusUnconsumed
	if hasExplicitStatus(expr) {
		status = types.StatusAll
	}
	defaultWhere, err := l.vault(&criteria.VaultCriteria{Status: status}, defaults)
	if err != nil {
		return nil, err
	}
	if always, ok := defaultWhere.(*plan.ConstExpr); ok && always.Value {
		return plan.New(where, defaults.planTypes()), nil
	}
	return plan.New(plan.And(where, defaultWhere), defaults.planTypes()), nil
}

// defaultTypes returns the concrete types a query for requested may return.
func (c *Compiler) defaultTypes(requested typeindex.TypeDescriptor, idx typeindex.Index) typeSet {
	if requested.Name == "" || requested.Name == c.root {
		return unconstrained()
	}
	names := append([]string(nil), idx.ConcretesOf(requested.Name)...)
	if !requested.Abstract {
		names = append(names, requested.Name)
	}
	return constrainedTo(names)
}

func (s typeSet) planTypes() []string {
	if !s.constrained {
		return nil
	}
	return append([]string{}, s.names...)
}

// hasExplicitStatus reports whether any vault leaf selects something other
// than unconsumed states.
func hasExplicitStatus(expr criteria.Expression) bool {
	switch e := expr.(type) {
	case *criteria.VaultCriteria:
		return e.Status != types.StatusUnconsumed
	case *criteria.AndCriteria:
		for _, child := range e.Children {
			if hasExplicitStatus(child) {
				return true
			}
		}
	case *criteria.OrCriteria:
		for _, child := range e.Children {
			if hasExplicitStatus(child) {
				return true
			}
		}
	case *criteria.NotCriteria:
		return hasExplicitStatus(e.Child)
	}
	return false
}

func sortedUnique(names []string) []string {
	if len(names) == 0 {
		return []string{}
	}
	out := append([]string(nil), names...)
	sort.Strings(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

func unsupported(format string, args ...interface{}) error {
	return vaulterrors.NewUnsupportedCriteriaError(fmt.Sprintf(format, args...))
}
