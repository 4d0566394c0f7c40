package compiler

import (
	"math"
	"time"

	"github.com/arkilian/vaultquery/internal/query/plan"
	"github.com/arkilian/vaultquery/internal/typeindex"
	"github.com/arkilian/vaultquery/pkg/criteria"
	"github.com/arkilian/vaultquery/pkg/types"
)

// extensionAlias qualifies extension table columns inside EXISTS subqueries.
const extensionAlias = "ext"

var comparisonOperators = map[criteria.Operator]string{
	criteria.Equal:              "=",
	criteria.NotEqual:           "<>",
	criteria.GreaterThan:        ">",
	criteria.GreaterThanOrEqual: ">=",
	criteria.LessThan:           "<",
	criteria.LessThanOrEqual:    "<=",
}

// lowerer holds the state of a single compilation.
type lowerer struct {
	compiler *Compiler
	idx      typeindex.Index
}

func (l *lowerer) lower(expr criteria.Expression, depth int) (plan.Expression, error) {
	if depth > criteria.MaxDepth {
		return nil, unsupported("criteria nested deeper than %d", criteria.MaxDepth)
	}

	switch e := expr.(type) {
	case *criteria.VaultCriteria:
		if e == nil {
			break
		}
		return l.vault(e, l.expand(e.Types))
	case *criteria.RefCriteria:
		if e == nil {
			break
		}
		return l.refs(e)
	case *criteria.TimeCriteria:
		if e == nil {
			break
		}
		return l.timeRange(e)
	case *criteria.LockCriteria:
		if e == nil {
			break
		}
		return l.lock(e)
	case *criteria.CustomCriteria:
		if e == nil {
			break
		}
		return l.custom(e)
	case *criteria.AndCriteria:
		if e == nil {
			break
		}
		return l.children("AND", e.Children, depth)
	case *criteria.OrCriteria:
		if e == nil {
			break
		}
		return l.children("OR", e.Children, depth)
	case *criteria.NotCriteria:
		if e == nil {
			break
		}
		if e.Child == nil {
			return nil, unsupported("not: missing child")
		}
		child, err := l.lower(e.Child, depth+1)
		if err != nil {
			return nil, err
		}
		return plan.Not(child), nil
	case nil:
		return nil, unsupported("nil criteria")
	default:
		return nil, unsupported("unknown criteria kind %q", expr.Kind())
	}
	return nil, unsupported("nil %T criteria", expr)
}

func (l *lowerer) children(op string, children []criteria.Expression, depth int) (plan.Expression, error) {
	if len(children) == 0 {
		return nil, unsupported("%s without children", op)
	}
	operands := make([]plan.Expression, 0, len(children))
	for _, child := range children {
		if child == nil {
			return nil, unsupported("%s: nil child", op)
		}
		lowered, err := l.lower(child, depth+1)
		if err != nil {
			return nil, err
		}
		operands = append(operands, lowered)
	}
	if op == "AND" {
		return plan.And(operands...), nil
	}
	return plan.Or(operands...), nil
}

// expand maps caller-supplied type names to themselves plus their stored
// concrete subtypes. No names, or the root type, means unconstrained.
func (l *lowerer) expand(names []string) typeSet {
	if len(names) == 0 {
		return unconstrained()
	}
	var out []string
	for _, name := range names {
		if name == l.compiler.root {
			return unconstrained()
		}
		out = append(out, name)
		out = append(out, l.idx.ConcretesOf(name)...)
	}
	return constrainedTo(out)
}

func (l *lowerer) vault(v *criteria.VaultCriteria, ts typeSet) (plan.Expression, error) {
	var preds []plan.Expression

	switch v.Status {
	case types.StatusUnconsumed, types.StatusConsumed:
		preds = append(preds, plan.Eq(types.ColStatus, int64(v.Status)))
	case types.StatusAll:
	default:
		return nil, unsupported("unknown state status %d", int(v.Status))
	}

	if ts.constrained {
		preds = append(preds, inStrings(types.ColContractType, ts.names))
	}
	if len(v.Notaries) > 0 {
		preds = append(preds, inStrings(types.ColNotaryName, sortedUnique(v.Notaries)))
	}
	return plan.And(preds...), nil
}

func (l *lowerer) refs(r *criteria.RefCriteria) (plan.Expression, error) {
	if len(r.Refs) == 0 {
		return nil, unsupported("ref criteria without references")
	}
	ors := make([]plan.Expression, 0, len(r.Refs))
	for _, ref := range r.Refs {
		if ref.Index < 0 {
			return nil, unsupported("ref criteria: negative output index %d", ref.Index)
		}
		ors = append(ors, plan.And(
			plan.Eq(types.ColTxID, ref.TxHash.String()),
			plan.Eq(types.ColOutputIndex, int64(ref.Index)),
		))
	}
	return plan.Or(ors...), nil
}

func (l *lowerer) timeRange(t *criteria.TimeCriteria) (plan.Expression, error) {
	var column string
	switch t.Instant {
	case criteria.RecordedTime:
		column = types.ColRecordedTime
	case criteria.ConsumedTime:
		column = types.ColConsumedTime
	default:
		return nil, unsupported("unknown time instant %q", t.Instant)
	}

	switch {
	case t.From != nil && t.Until != nil:
		if t.Until.Before(*t.From) {
			return nil, unsupported("time criteria: until %s is before from %s",
				t.Until.Format(time.RFC3339Nano), t.From.Format(time.RFC3339Nano))
		}
		return &plan.BetweenExpr{
			Expr: plan.Col(column),
			Low:  plan.Lit(types.ClampNanos(*t.From)),
			High: plan.Lit(types.ClampNanos(*t.Until)),
		}, nil
	case t.From != nil:
		return &plan.BinaryExpr{Left: plan.Col(column), Operator: ">=", Right: plan.Lit(types.ClampNanos(*t.From))}, nil
	case t.Until != nil:
		return &plan.BinaryExpr{Left: plan.Col(column), Operator: "<=", Right: plan.Lit(types.ClampNanos(*t.Until))}, nil
	}
	return nil, unsupported("time criteria without bounds")
}

func (l *lowerer) lock(c *criteria.LockCriteria) (plan.Expression, error) {
	unlocked := &plan.IsNullExpr{Expr: plan.Col(types.ColLockID)}

	ids := func() (plan.Expression, error) {
		if len(c.LockIDs) == 0 {
			return nil, unsupported("lock criteria %s without lock ids", c.Mode)
		}
		names := make([]string, len(c.LockIDs))
		for i, id := range c.LockIDs {
			names[i] = id.String()
		}
		return inStrings(types.ColLockID, sortedUnique(names)), nil
	}

	switch c.Mode {
	case criteria.UnlockedOnly:
		return unlocked, nil
	case criteria.LockedOnly:
		return &plan.IsNullExpr{Expr: plan.Col(types.ColLockID), Not: true}, nil
	case criteria.Specified:
		return ids()
	case criteria.UnlockedAndSpecified:
		in, err := ids()
		if err != nil {
			return nil, err
		}
		return plan.Or(unlocked, in), nil
	}
	return nil, unsupported("unknown lock mode %q", c.Mode)
}

// custom lowers an attribute filter to an EXISTS subquery against the
// extension table, joined on the state reference.
func (l *lowerer) custom(c *criteria.CustomCriteria) (plan.Expression, error) {
	if !l.compiler.extensions.Has(c.Schema, c.Column) {
		return nil, unsupported("custom criteria: unregistered attribute %s.%s", c.Schema, c.Column)
	}

	values := make([]plan.Expression, len(c.Values))
	for i, v := range c.Values {
		bound, ok := bindValue(v)
		if !ok {
			return nil, unsupported("custom criteria: unsupported value type %T", v)
		}
		values[i] = plan.Lit(bound)
	}

	col := &plan.ColumnRef{Table: extensionAlias, Column: c.Column}
	arity := func(want int) error {
		if len(values) != want {
			return unsupported("custom criteria: %s takes %d value(s), got %d", c.Operator, want, len(values))
		}
		return nil
	}

	var pred plan.Expression
	switch c.Operator {
	case criteria.Equal, criteria.NotEqual,
		criteria.GreaterThan, criteria.GreaterThanOrEqual,
		criteria.LessThan, criteria.LessThanOrEqual:
		if err := arity(1); err != nil {
			return nil, err
		}
		pred = &plan.BinaryExpr{Left: col, Operator: comparisonOperators[c.Operator], Right: values[0]}
	case criteria.Between:
		if err := arity(2); err != nil {
			return nil, err
		}
		pred = &plan.BetweenExpr{Expr: col, Low: values[0], High: values[1]}
	case criteria.In, criteria.NotIn:
		if len(values) == 0 {
			return nil, unsupported("custom criteria: %s needs at least one value", c.Operator)
		}
		pred = &plan.InExpr{Expr: col, Values: values, Not: c.Operator == criteria.NotIn}
	case criteria.Like, criteria.NotLike:
		if err := arity(1); err != nil {
			return nil, err
		}
		if _, ok := c.Values[0].(string); !ok {
			return nil, unsupported("custom criteria: %s pattern must be a string", c.Operator)
		}
		pred = &plan.LikeExpr{Expr: col, Pattern: values[0], Not: c.Operator == criteria.NotLike}
	case criteria.IsNull, criteria.NotNull:
		if err := arity(0); err != nil {
			return nil, err
		}
		pred = &plan.IsNullExpr{Expr: col, Not: c.Operator == criteria.NotNull}
	default:
		return nil, unsupported("custom criteria: unknown operator %q", c.Operator)
	}

	return &plan.ExistsExpr{Query: &plan.SelectStatement{
		Columns: []plan.SelectColumn{{Expr: &plan.StarExpr{}}},
		From:    &plan.TableRef{Name: c.Schema, Alias: extensionAlias},
		Where: plan.And(
			&plan.BinaryExpr{Left: &plan.ColumnRef{Table: extensionAlias, Column: types.ColTxID}, Operator: "=", Right: plan.Col(types.ColTxID)},
			&plan.BinaryExpr{Left: &plan.ColumnRef{Table: extensionAlias, Column: types.ColOutputIndex}, Operator: "=", Right: plan.Col(types.ColOutputIndex)},
			pred,
		),
	}}, nil
}

func inStrings(column string, values []string) *plan.InExpr {
	lits := make([]plan.Expression, len(values))
	for i, v := range values {
		lits[i] = plan.Lit(v)
	}
	return &plan.InExpr{Expr: plan.Col(column), Values: lits}
}

// bindValue converts a custom criteria value to a driver-friendly scalar.
func bindValue(v interface{}) (interface{}, bool) {
	switch x := v.(type) {
	case string, bool, int64, float64, []byte:
		return x, true
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, false
		}
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return nil, false
		}
		return int64(x), true
	case float32:
		return float64(x), true
	case time.Time:
		return types.ClampNanos(x), true
	}
	return nil, false
}
