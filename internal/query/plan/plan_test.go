package plan

import (
	"testing"

	"github.com/arkilian/vaultquery/pkg/types"
)

func TestRenderBindsLiterals(t *testing.T) {
	where := And(
		Eq(types.ColStatus, int64(0)),
		&InExpr{Expr: Col(types.ColContractType), Values: []Expression{Lit("a.Cash"), Lit("a.Bond")}},
	)

	sql, args := Render(where)
	expected := "((vault_states.state_status = ?) AND vault_states.contract_state_class_name IN (?, ?))"
	if sql != expected {
		t.Errorf("got %q, want %q", sql, expected)
	}
	if len(args) != 3 || args[0] != int64(0) || args[1] != "a.Cash" || args[2] != "a.Bond" {
		t.Errorf("unexpected args %v", args)
	}

	inline := "((vault_states.state_status = 0) AND vault_states.contract_state_class_name IN ('a.Cash', 'a.Bond'))"
	if where.String() != inline {
		t.Errorf("got %q, want %q", where.String(), inline)
	}
}

func TestEmptyInIsConstant(t *testing.T) {
	in := &InExpr{Expr: Col(types.ColContractType)}
	sql, args := Render(in)
	if sql != "(1 = 0)" || len(args) != 0 {
		t.Errorf("empty IN rendered %q %v", sql, args)
	}

	notIn := &InExpr{Expr: Col(types.ColContractType), Not: true}
	if sql, _ := Render(notIn); sql != "(1 = 1)" {
		t.Errorf("empty NOT IN rendered %q", sql)
	}
}

func TestLogicalCollapsesSingleOperand(t *testing.T) {
	e := Eq(types.ColOutputIndex, int64(1))
	if And(e) != Expression(e) {
		t.Error("And with one operand should return it unchanged")
	}
	if sql, _ := Render(And()); sql != "(1 = 1)" {
		t.Errorf("empty AND rendered %q", sql)
	}
	if sql, _ := Render(Or()); sql != "(1 = 0)" {
		t.Errorf("empty OR rendered %q", sql)
	}
}

func TestRecordsStatementSQL(t *testing.T) {
	stmt := RecordsStatement(
		Eq(types.ColStatus, int64(1)),
		[]OrderByClause{{Expr: Col(types.ColRecordedTime), Desc: true}, {Expr: Col(types.ColTxID)}},
		10, 20,
	)
	sql, args := stmt.SQL()
	expected := "SELECT vault_states.transaction_id, vault_states.output_index, vault_states.contract_state_class_name, " +
		"vault_states.contract_state, vault_states.recorded_timestamp, vault_states.consumed_timestamp, " +
		"vault_states.state_status, vault_states.notary_name, vault_states.notary_key, vault_states.lock_id, " +
		"vault_states.lock_timestamp FROM vault_states WHERE (vault_states.state_status = ?) " +
		"ORDER BY vault_states.recorded_timestamp DESC, vault_states.transaction_id ASC LIMIT 10 OFFSET 20"
	if sql != expected {
		t.Errorf("got\n%s\nwant\n%s", sql, expected)
	}
	if len(args) != 1 || args[0] != int64(1) {
		t.Errorf("unexpected args %v", args)
	}
}

func TestCountStatementSQL(t *testing.T) {
	sql, _ := CountStatement(&ConstExpr{Value: true}).SQL()
	if sql != "SELECT COUNT(*) FROM vault_states WHERE (1 = 1)" {
		t.Errorf("got %q", sql)
	}
}

func TestExistsSubquery(t *testing.T) {
	sub := &SelectStatement{
		Columns: []SelectColumn{{Expr: &StarExpr{}}},
		From:    &TableRef{Name: "cash_states", Alias: "ext"},
		Where: And(
			&BinaryExpr{Left: &ColumnRef{Table: "ext", Column: types.ColTxID}, Operator: "=", Right: Col(types.ColTxID)},
			&BinaryExpr{Left: &ColumnRef{Table: "ext", Column: "amount"}, Operator: ">", Right: Lit(int64(100))},
		),
	}
	sql, args := Render(&ExistsExpr{Query: sub})
	expected := "EXISTS (SELECT * FROM cash_states AS ext WHERE ((ext.transaction_id = vault_states.transaction_id) AND (ext.amount > ?)))"
	if sql != expected {
		t.Errorf("got %q, want %q", sql, expected)
	}
	if len(args) != 1 || args[0] != int64(100) {
		t.Errorf("unexpected args %v", args)
	}

	preds := ExtractPredicates(&ExistsExpr{Query: sub})
	if len(preds) != 1 {
		t.Fatalf("expected 1 predicate, got %d", len(preds))
	}
	if preds[0].Key() != "cash_states.amount" || preds[0].Operator != ">" {
		t.Errorf("unexpected predicate %+v", preds[0])
	}
}

func TestExtractPredicates(t *testing.T) {
	where := And(
		Eq(types.ColStatus, int64(0)),
		Not(&IsNullExpr{Expr: Col(types.ColLockID)}),
		&BetweenExpr{Expr: Col(types.ColRecordedTime), Low: Lit(int64(1)), High: Lit(int64(2))},
		&LikeExpr{Expr: Col(types.ColNotaryName), Pattern: Lit("O=%")},
	)
	preds := ExtractPredicates(where)
	if len(preds) != 4 {
		t.Fatalf("expected 4 predicates, got %d", len(preds))
	}
	if got := FilterPredicatesByType(preds, PredicateBetween); len(got) != 1 || got[0].Low != int64(1) {
		t.Errorf("between predicate not extracted: %+v", got)
	}
	if got := FilterPredicatesByColumn(preds, types.ColLockID); len(got) != 1 || got[0].Operator != "IS NULL" {
		t.Errorf("lock predicate not extracted: %+v", got)
	}
}

func TestFingerprint(t *testing.T) {
	a := New(Eq(types.ColStatus, int64(0)), nil)
	b := New(Eq(types.ColStatus, int64(0)), nil)
	c := New(Eq(types.ColStatus, int64(1)), nil)
	d := New(Eq(types.ColStatus, "0"), nil)

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical plans should share a fingerprint")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different arguments should change the fingerprint")
	}
	if a.Fingerprint() == d.Fingerprint() {
		t.Error("argument types should change the fingerprint")
	}
}

func TestNewDefaultsToTrue(t *testing.T) {
	p := New(nil, nil)
	if p.String() != "(1 = 1)" {
		t.Errorf("got %q", p.String())
	}
}

func TestLogicalDropsIdentityConstants(t *testing.T) {
	e := Eq(types.ColStatus, int64(0))
	if got := And(&ConstExpr{Value: true}, e); got != Expression(e) {
		t.Errorf("AND should drop TRUE operands, got %s", got)
	}
	if got := Or(&ConstExpr{Value: false}, e); got != Expression(e) {
		t.Errorf("OR should drop FALSE operands, got %s", got)
	}
	if got := And(&ConstExpr{Value: false}, e).String(); got != "((1 = 0) AND (vault_states.state_status = 0))" {
		t.Errorf("AND should keep FALSE operands, got %s", got)
	}
}

func TestDistinctAndBetweenSQL(t *testing.T) {
	sql, _ := DistinctContractTypes().SQL()
	if sql != "SELECT DISTINCT vault_states.contract_state_class_name FROM vault_states ORDER BY vault_states.contract_state_class_name ASC" {
		t.Errorf("got %q", sql)
	}

	between := &BetweenExpr{Expr: Col(types.ColRecordedTime), Low: Lit(int64(1)), High: Lit(int64(2))}
	sql, args := Render(between)
	if sql != "vault_states.recorded_timestamp BETWEEN ? AND ?" {
		t.Errorf("got %q", sql)
	}
	if len(args) != 2 || args[0] != int64(1) || args[1] != int64(2) {
		t.Errorf("unexpected args %v", args)
	}
}
