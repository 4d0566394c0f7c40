package compiler

import (
	"math"
	"sort"
	"testing"
	"time"

	vaulterrors "github.com/arkilian/vaultquery/internal/errors"
	"github.com/arkilian/vaultquery/internal/typeindex"
	"github.com/arkilian/vaultquery/pkg/criteria"
	"github.com/arkilian/vaultquery/pkg/types"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

var (
	rootType      = typeindex.TypeDescriptor{Name: typeindex.DefaultRootType, Abstract: true}
	cashType      = typeindex.TypeDescriptor{Name: "Cash", Supertypes: []string{"FungibleAsset"}}
	fungibleType  = typeindex.TypeDescriptor{Name: "FungibleAsset", Abstract: true}
	emptyAbstract = typeindex.TypeDescriptor{Name: "QueryableState", Abstract: true}
)

func testIndex() typeindex.Index {
	return typeindex.Index{Concretes: map[string][]string{
		"FungibleAsset": {"Bond", "Cash"},
		"LinearState":   {"Deal"},
	}}
}

func newTestCompiler(t *testing.T) *Compiler {
	t.Helper()
	ext := NewExtensionRegistry()
	require.NoError(t, ext.Register("cash_states", "currency", "amount"))
	return New("", ext)
}

func TestCompileDefaultCriteria(t *testing.T) {
	c := newTestCompiler(t)

	p, err := c.Compile(nil, rootType, testIndex())
	require.NoError(t, err)
	require.Nil(t, p.Types)

	sql, args := p.SQL()
	require.Equal(t, "(vault_states.state_status = ?)", sql)
	require.Equal(t, []interface{}{int64(0)}, args)
}

func TestCompileDefaultTypes(t *testing.T) {
	c := newTestCompiler(t)

	tests := []struct {
		name      string
		requested typeindex.TypeDescriptor
		types     []string
		where     string
	}{
		{
			name:      "concrete",
			requested: cashType,
			types:     []string{"Cash"},
			where:     "((vault_states.state_status = 0) AND vault_states.contract_state_class_name IN ('Cash'))",
		},
		{
			name:      "abstract",
			requested: fungibleType,
			types:     []string{"Bond", "Cash"},
			where:     "((vault_states.state_status = 0) AND vault_states.contract_state_class_name IN ('Bond', 'Cash'))",
		},
		{
			name:      "abstract without stored subtypes",
			requested: emptyAbstract,
			types:     []string{},
			where:     "((vault_states.state_status = 0) AND (1 = 0))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := c.Compile(&criteria.VaultCriteria{}, tt.requested, testIndex())
			require.NoError(t, err)
			require.Equal(t, tt.types, p.Types)
			require.Equal(t, tt.where, p.String())
		})
	}
}

func TestCompileTopLevelVaultCriteriaUnionsTypes(t *testing.T) {
	c := newTestCompiler(t)

	expr := &criteria.VaultCriteria{
		Status:   types.StatusConsumed,
		Types:    []string{"LinearState", "Cash"},
		Notaries: []string{"O=Notary B", "O=Notary A"},
	}
	p, err := c.Compile(expr, fungibleType, testIndex())
	require.NoError(t, err)

	require.Equal(t, []string{"Bond", "Cash", "Deal", "LinearState"}, p.Types)
	require.Equal(t,
		"((vault_states.state_status = 1) AND vault_states.contract_state_class_name IN ('Bond', 'Cash', 'Deal', 'LinearState') "+
			"AND vault_states.notary_name IN ('O=Notary A', 'O=Notary B'))",
		p.String())
}

func TestCompileWrapsNonVaultCriteria(t *testing.T) {
	c := newTestCompiler(t)
	ref := types.StateRef{TxHash: types.SHA256([]byte("tx-1")), Index: 3}

	p, err := c.Compile(criteria.Refs(ref), rootType, testIndex())
	require.NoError(t, err)

	sql, args := p.SQL()
	require.Equal(t,
		"(((vault_states.transaction_id = ?) AND (vault_states.output_index = ?)) AND (vault_states.state_status = ?))",
		sql)
	require.Equal(t, []interface{}{ref.TxHash.String(), int64(3), int64(0)}, args)
}

func TestCompileExplicitStatusDisablesDefaultStatus(t *testing.T) {
	c := newTestCompiler(t)

	expr := criteria.Or(
		criteria.Status(types.StatusConsumed),
		&criteria.LockCriteria{Mode: criteria.LockedOnly},
	)
	p, err := c.Compile(expr, cashType, testIndex())
	require.NoError(t, err)
	require.Equal(t,
		"(((vault_states.state_status = 1) OR vault_states.lock_id IS NOT NULL) AND vault_states.contract_state_class_name IN ('Cash'))",
		p.String())

	// Explicit status ALL at the root and requested root type leaves no default predicate.
	p, err = c.Compile(criteria.And(criteria.Status(types.StatusAll), &criteria.LockCriteria{Mode: criteria.UnlockedOnly}), rootType, testIndex())
	require.NoError(t, err)
	require.Equal(t, "vault_states.lock_id IS NULL", p.String())
}

func TestCompileNestedVaultCriteriaExpandsTypes(t *testing.T) {
	c := newTestCompiler(t)

	p, err := c.Compile(criteria.Not(criteria.Types("FungibleAsset")), rootType, testIndex())
	require.NoError(t, err)
	require.Equal(t,
		"(NOT (((vault_states.state_status = 0) AND vault_states.contract_state_class_name IN ('Bond', 'Cash', 'FungibleAsset'))) "+
			"AND (vault_states.state_status = 0))",
		p.String())
}

func TestCompileTimeCriteria(t *testing.T) {
	c := newTestCompiler(t)
	from := time.Unix(100, 0)
	until := time.Unix(200, 0)

	tests := []struct {
		name string
		expr *criteria.TimeCriteria
		want string
	}{
		{"range", &criteria.TimeCriteria{Instant: criteria.RecordedTime, From: &from, Until: &until},
			"vault_states.recorded_timestamp BETWEEN 100000000000 AND 200000000000"},
		{"from", &criteria.TimeCriteria{Instant: criteria.ConsumedTime, From: &from},
			"(vault_states.consumed_timestamp >= 100000000000)"},
		{"until", &criteria.TimeCriteria{Instant: criteria.RecordedTime, Until: &until},
			"(vault_states.recorded_timestamp <= 200000000000)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := c.Compile(criteria.And(criteria.Status(types.StatusAll), tt.expr), rootType, testIndex())
			require.NoError(t, err)
			require.Equal(t, tt.want, p.String())
		})
	}
}

func TestCompileClampsOutOfRangeTimes(t *testing.T) {
	c := newTestCompiler(t)
	farPast := time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	farFuture := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		expr criteria.Expression
		want []interface{}
	}{
		{"until far future", &criteria.TimeCriteria{Instant: criteria.RecordedTime, Until: &farFuture},
			[]interface{}{int64(math.MaxInt64)}},
		{"from far past", &criteria.TimeCriteria{Instant: criteria.ConsumedTime, From: &farPast},
			[]interface{}{int64(math.MinInt64)}},
		{"both edges", &criteria.TimeCriteria{Instant: criteria.RecordedTime, From: &farPast, Until: &farFuture},
			[]interface{}{int64(math.MinInt64), int64(math.MaxInt64)}},
		{"custom time value", criteria.Custom("cash_states", "amount", criteria.LessThanOrEqual, farFuture),
			[]interface{}{int64(math.MaxInt64)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := c.Compile(criteria.And(criteria.Status(types.StatusAll), tt.expr), rootType, testIndex())
			require.NoError(t, err)
			_, args := p.SQL()
			require.Equal(t, tt.want, args)
		})
	}
}

func TestCompileLockCriteria(t *testing.T) {
	c := newTestCompiler(t)
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	p, err := c.Compile(&criteria.LockCriteria{Mode: criteria.UnlockedAndSpecified, LockIDs: []uuid.UUID{b, a}}, rootType, testIndex())
	require.NoError(t, err)
	require.Equal(t,
		"((vault_states.lock_id IS NULL OR vault_states.lock_id IN ('"+a.String()+"', '"+b.String()+"')) AND (vault_states.state_status = 0))",
		p.String())
}

func TestCompileCustomCriteria(t *testing.T) {
	c := newTestCompiler(t)

	p, err := c.Compile(criteria.Custom("cash_states", "amount", criteria.GreaterThanOrEqual, 500), rootType, testIndex())
	require.NoError(t, err)

	sql, args := p.SQL()
	require.Equal(t,
		"(EXISTS (SELECT * FROM cash_states AS ext WHERE ((ext.transaction_id = vault_states.transaction_id) "+
			"AND (ext.output_index = vault_states.output_index) AND (ext.amount >= ?))) AND (vault_states.state_status = ?))",
		sql)
	require.Equal(t, []interface{}{int64(500), int64(0)}, args)

	require.Len(t, p.Predicates, 2)
	require.Equal(t, "cash_states.amount", p.Predicates[0].Key())
}

func TestCompileRejectsUnsupportedCriteria(t *testing.T) {
	c := newTestCompiler(t)
	from := time.Unix(200, 0)
	until := time.Unix(100, 0)

	tests := map[string]criteria.Expression{
		"unknown kind":         fakeCriteria{},
		"empty refs":           criteria.Refs(),
		"time without bounds":  &criteria.TimeCriteria{Instant: criteria.RecordedTime},
		"inverted time range":  &criteria.TimeCriteria{Instant: criteria.RecordedTime, From: &from, Until: &until},
		"unknown time instant": &criteria.TimeCriteria{Instant: "SPENT", From: &from},
		"specified no ids":     &criteria.LockCriteria{Mode: criteria.Specified},
		"unknown lock mode":    &criteria.LockCriteria{Mode: "SOMETIMES"},
		"unregistered table":   criteria.Custom("bond_states", "amount", criteria.Equal, 1),
		"unregistered column":  criteria.Custom("cash_states", "issuer", criteria.Equal, "x"),
		"wrong arity":          criteria.Custom("cash_states", "amount", criteria.Between, 1),
		"like non-string":      criteria.Custom("cash_states", "currency", criteria.Like, 1),
		"unknown operator":     criteria.Custom("cash_states", "amount", "ROUGHLY", 1),
		"unsupported value":    criteria.Custom("cash_states", "amount", criteria.Equal, struct{}{}),
		"empty and":            criteria.And(),
		"nil child":            criteria.Or(criteria.Status(types.StatusAll), nil),
		"not without child":    &criteria.NotCriteria{},
		"nested unknown kind":  criteria.And(criteria.Status(types.StatusAll), criteria.Not(fakeCriteria{})),
		"bad status":           criteria.And(&criteria.VaultCriteria{Status: types.StateStatus(9)}),
	}

	for name, expr := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := c.Compile(expr, rootType, testIndex())
			require.ErrorIs(t, err, vaulterrors.ErrUnsupportedCriteria)
		})
	}
}

func TestCompileDepthLimit(t *testing.T) {
	c := newTestCompiler(t)
	var expr criteria.Expression = criteria.Status(types.StatusAll)
	for i := 0; i <= criteria.MaxDepth+1; i++ {
		expr = criteria.Not(expr)
	}
	_, err := c.Compile(expr, rootType, testIndex())
	require.ErrorIs(t, err, vaulterrors.ErrUnsupportedCriteria)
}

type fakeCriteria struct{}

func (fakeCriteria) Kind() string   { return "fuzzy" }
func (fakeCriteria) String() string { return "fuzzy()" }

func TestProperty_TypeUnion(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	concretes := []string{"A1", "A2", "B1", "B2", "C1"}
	idx := typeindex.Index{Concretes: map[string][]string{
		"A": {"A1", "A2"},
		"B": {"B1", "B2"},
	}}
	c := New("", nil)

	properties.Property("merged types are the sorted union of caller and default types", prop.ForAll(
		func(callerMask, requestedPick int) bool {
			var caller []string
			for i, name := range concretes {
				if callerMask&(1<<i) != 0 {
					caller = append(caller, name)
				}
			}
			requested := []typeindex.TypeDescriptor{
				{Name: "A", Abstract: true},
				{Name: "B", Abstract: true},
				{Name: "C1"},
			}[requestedPick]

			p, err := c.Compile(&criteria.VaultCriteria{Types: caller}, requested, idx)
			if err != nil {
				return false
			}

			want := map[string]struct{}{}
			for _, n := range caller {
				want[n] = struct{}{}
			}
			for _, n := range idx.ConcretesOf(requested.Name) {
				want[n] = struct{}{}
			}
			if !requested.Abstract {
				want[requested.Name] = struct{}{}
			}
			expected := make([]string, 0, len(want))
			for n := range want {
				expected = append(expected, n)
			}
			sort.Strings(expected)

			if len(expected) != len(p.Types) {
				return false
			}
			for i := range expected {
				if expected[i] != p.Types[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 31),
		gen.IntRange(0, 2),
	))

	properties.TestingRun(t)
}

func TestProperty_CompileDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	c := New("", nil)

	properties.Property("compiling the same criteria twice yields the same plan", prop.ForAll(
		func(status int, index int, fromSec int64) bool {
			from := time.Unix(fromSec, 0)
			expr := criteria.And(
				criteria.Status(types.StateStatus(status)),
				criteria.Or(
					criteria.Refs(types.StateRef{TxHash: types.SHA256([]byte{byte(index)}), Index: index}),
					&criteria.TimeCriteria{Instant: criteria.RecordedTime, From: &from},
				),
			)
			p1, err1 := c.Compile(expr, fungibleType, testIndex())
			p2, err2 := c.Compile(expr, fungibleType, testIndex())
			if err1 != nil || err2 != nil {
				return false
			}
			s1, _ := p1.SQL()
			s2, _ := p2.SQL()
			return p1.Fingerprint() == p2.Fingerprint() && s1 == s2
		},
		gen.IntRange(0, 2),
		gen.IntRange(0, 1000),
		gen.Int64Range(0, 4000000000),
	))

	properties.TestingRun(t)
}

func TestExtensionRegistry(t *testing.T) {
	r := NewExtensionRegistry()
	require.NoError(t, r.Register("cash_states", "currency"))
	require.NoError(t, r.Register("cash_states", "amount"))
	require.NoError(t, r.Register("bond_states", "coupon"))

	require.Error(t, r.Register("cash states", "x"))
	require.Error(t, r.Register("cash_states", "amount; DROP TABLE vault_states"))
	require.Error(t, r.Register("empty"))

	require.True(t, r.Has("cash_states", "amount"))
	require.False(t, r.Has("cash_states", "issuer"))

	require.Equal(t, []ExtensionTable{
		{Name: "bond_states", Columns: []string{"coupon"}},
		{Name: "cash_states", Columns: []string{"amount", "currency"}},
	}, r.Tables())

	var nilRegistry *ExtensionRegistry
	require.False(t, nilRegistry.Has("cash_states", "amount"))
}
