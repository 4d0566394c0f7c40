// Package criteria defines the composable predicate tree callers use to
// describe which vault states they want.
//
// Leaves filter on vault columns (status, type, notary, reference, time,
// lock owner) or on custom attributes stored in extension tables; AND, OR
// and NOT combine them. Expressions are immutable values once built.
package criteria

import (
	"fmt"
	"strings"
	"time"

	"github.com/arkilian/vaultquery/pkg/types"
	"github.com/google/uuid"
)

// Node kinds.
const (
	KindVault  = "vault"
	KindRef    = "ref"
	KindTime   = "time"
	KindLock   = "lock"
	KindCustom = "custom"
	KindAnd    = "and"
	KindOr     = "or"
	KindNot    = "not"
)

// Expression is a node of a criteria tree.
type Expression interface {
	Kind() string
	String() string
}

// VaultCriteria filters on status, contract type and notary.
// The zero value selects unconsumed states of any type.
type VaultCriteria struct {
	Status   types.StateStatus `json:"status"`
	Types    []string          `json:"types,omitempty"`
	Notaries []string          `json:"notaries,omitempty"`
}

func (c *VaultCriteria) Kind() string { return KindVault }

func (c *VaultCriteria) String() string {
	return fmt.Sprintf("vault(status=%s, types=%v, notaries=%v)", c.Status, c.Types, c.Notaries)
}

// RefCriteria selects states by reference.
type RefCriteria struct {
	Refs []types.StateRef `json:"refs"`
}

func (c *RefCriteria) Kind() string { return KindRef }

func (c *RefCriteria) String() string {
	refs := make([]string, len(c.Refs))
	for i, r := range c.Refs {
		refs[i] = r.String()
	}
	return "refs(" + strings.Join(refs, ", ") + ")"
}

// TimeInstant selects which timestamp a TimeCriteria applies to.
type TimeInstant string

const (
	RecordedTime TimeInstant = "RECORDED"
	ConsumedTime TimeInstant = "CONSUMED"
)

// TimeCriteria bounds a timestamp. Both bounds are inclusive; at least one is required.
type TimeCriteria struct {
	Instant TimeInstant `json:"instant"`
	From    *time.Time  `json:"from,omitempty"`
	Until   *time.Time  `json:"until,omitempty"`
}

func (c *TimeCriteria) Kind() string { return KindTime }

func (c *TimeCriteria) String() string {
	return fmt.Sprintf("time(%s, from=%s, until=%s)", c.Instant, fmtTime(c.From), fmtTime(c.Until))
}

// LockMode selects how soft-locked states are treated.
type LockMode string

const (
	UnlockedOnly         LockMode = "UNLOCKED_ONLY"
	LockedOnly           LockMode = "LOCKED_ONLY"
	Specified            LockMode = "SPECIFIED"
	UnlockedAndSpecified LockMode = "UNLOCKED_AND_SPECIFIED"
)

// LockCriteria filters on the soft-lock owner.
type LockCriteria struct {
	Mode    LockMode    `json:"mode"`
	LockIDs []uuid.UUID `json:"lock_ids,omitempty"`
}

func (c *LockCriteria) Kind() string { return KindLock }

func (c *LockCriteria) String() string {
	return fmt.Sprintf("lock(%s, ids=%v)", c.Mode, c.LockIDs)
}

// Operator is a comparison applied to a custom attribute.
type Operator string

const (
	Equal              Operator = "EQUAL"
	NotEqual           Operator = "NOT_EQUAL"
	GreaterThan        Operator = "GREATER_THAN"
	GreaterThanOrEqual Operator = "GREATER_THAN_OR_EQUAL"
	LessThan           Operator = "LESS_THAN"
	LessThanOrEqual    Operator = "LESS_THAN_OR_EQUAL"
	Between            Operator = "BETWEEN"
	In                 Operator = "IN"
	NotIn              Operator = "NOT_IN"
	Like               Operator = "LIKE"
	NotLike            Operator = "NOT_LIKE"
	IsNull             Operator = "IS_NULL"
	NotNull            Operator = "NOT_NULL"
)

// CustomCriteria filters on a column of a registered extension table that
// shares the (transaction_id, output_index) key with vault_states.
type CustomCriteria struct {
	Schema   string        `json:"schema"`
	Column   string        `json:"column"`
	Operator Operator      `json:"operator"`
	Values   []interface{} `json:"values,omitempty"`
}

func (c *CustomCriteria) Kind() string { return KindCustom }

func (c *CustomCriteria) String() string {
	return fmt.Sprintf("custom(%s.%s %s %v)", c.Schema, c.Column, c.Operator, c.Values)
}

// AndCriteria matches when every child matches.
type AndCriteria struct {
	Children []Expression
}

func (c *AndCriteria) Kind() string { return KindAnd }

func (c *AndCriteria) String() string { return joinChildren("and", c.Children) }

// OrCriteria matches when any child matches.
type OrCriteria struct {
	Children []Expression
}

func (c *OrCriteria) Kind() string { return KindOr }

func (c *OrCriteria) String() string { return joinChildren("or", c.Children) }

// NotCriteria negates its child.
type NotCriteria struct {
	Child Expression
}

func (c *NotCriteria) Kind() string { return KindNot }

func (c *NotCriteria) String() string {
	if c.Child == nil {
		return "not(<nil>)"
	}
	return "not(" + c.Child.String() + ")"
}

// And combines expressions; nested ANDs are flattened.
func And(exprs ...Expression) *AndCriteria {
	out := &AndCriteria{}
	for _, e := range exprs {
		if a, ok := e.(*AndCriteria); ok {
			out.Children = append(out.Children, a.Children...)
			continue
		}
		out.Children = append(out.Children, e)
	}
	return out
}

// Or combines expressions; nested ORs are flattened.
func Or(exprs ...Expression) *OrCriteria {
	out := &OrCriteria{}
	for _, e := range exprs {
		if o, ok := e.(*OrCriteria); ok {
			out.Children = append(out.Children, o.Children...)
			continue
		}
		out.Children = append(out.Children, e)
	}
	return out
}

// Not negates an expression.
func Not(expr Expression) *NotCriteria {
	return &NotCriteria{Child: expr}
}

// Status selects states with the given status and any type.
func Status(s types.StateStatus) *VaultCriteria {
	return &VaultCriteria{Status: s}
}

// Types selects unconsumed states of the given types.
func Types(names ...string) *VaultCriteria {
	return &VaultCriteria{Types: names}
}

// Refs selects states by reference.
func Refs(refs ...types.StateRef) *RefCriteria {
	return &RefCriteria{Refs: refs}
}

// Custom builds a custom attribute filter.
func Custom(schema, column string, op Operator, values ...interface{}) *CustomCriteria {
	return &CustomCriteria{Schema: schema, Column: column, Operator: op, Values: values}
}

func joinChildren(name string, children []Expression) string {
	parts := make([]string, len(children))
	for i, c := range children {
		if c == nil {
			parts[i] = "<nil>"
			continue
		}
		parts[i] = c.String()
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339Nano)
}
