// Package plan holds the compiled, storage-agnostic form of a vault query:
// a predicate tree over vault_states columns that renders to parameterised
// SQL, plus the statement shapes the executor and type resolver run.
package plan

import (
	"fmt"
	"strings"

	"github.com/arkilian/vaultquery/pkg/types"
	"github.com/spaolacci/murmur3"
)

// Plan is the result of compiling a criteria tree. It is immutable and
// shared by the count and the row statement of one query.
type Plan struct {
	// Where is the full predicate, including the merged default criteria
	Where Expression

	// Types is the effective contract type constraint, nil when unconstrained
	Types []string

	// Predicates lists the column predicates found in Where
	Predicates []Predicate
}

// New builds a plan and extracts its predicates.
func New(where Expression, contractTypes []string) *Plan {
	if where == nil {
		where = &ConstExpr{Value: true}
	}
	return &Plan{
		Where:      where,
		Types:      contractTypes,
		Predicates: ExtractPredicates(where),
	}
}

// SQL renders the WHERE predicate with bind parameters.
func (p *Plan) SQL() (string, []interface{}) {
	return Render(p.Where)
}

// String returns the predicate with literals inlined, for logs.
func (p *Plan) String() string {
	return p.Where.String()
}

// Fingerprint identifies structurally identical plans with identical arguments.
func (p *Plan) Fingerprint() uint64 {
	sql, args := p.SQL()
	h := murmur3.New64()
	h.Write([]byte(sql))
	for _, a := range args {
		h.Write([]byte{0})
		h.Write([]byte(fmt.Sprintf("%T:%v", a, a)))
	}
	return h.Sum64()
}

// Col references a vault_states column.
func Col(name string) *ColumnRef {
	return &ColumnRef{Table: types.VaultTable, Column: name}
}

// Lit wraps a bind value.
func Lit(v interface{}) *Literal {
	return &Literal{Value: v}
}

// Eq builds column = value.
func Eq(column string, v interface{}) *BinaryExpr {
	return &BinaryExpr{Left: Col(column), Operator: "=", Right: Lit(v)}
}

// And joins operands with AND. A single operand is returned unchanged.
func And(operands ...Expression) Expression {
	return logical("AND", operands)
}

// Or joins operands with OR. A single operand is returned unchanged.
func Or(operands ...Expression) Expression {
	return logical("OR", operands)
}

// Not negates an expression.
func Not(e Expression) Expression {
	return &UnaryExpr{Operator: "NOT", Operand: &ParenExpr{Expr: e}}
}

// logical drops identity constants: TRUE under AND, FALSE under OR.
func logical(op string, operands []Expression) Expression {
	identity := op == "AND"
	kept := make([]Expression, 0, len(operands))
	for _, o := range operands {
		if c, ok := o.(*ConstExpr); ok && c.Value == identity {
			continue
		}
		kept = append(kept, o)
	}
	operands = kept

	switch len(operands) {
	case 0:
		return &ConstExpr{Value: op == "AND"}
	case 1:
		return operands[0]
	}
	return &LogicalExpr{Operator: op, Operands: operands}
}

// RecordColumns is the column order scanned into types.StoredRecord.
var RecordColumns = []string{
	types.ColTxID,
	types.ColOutputIndex,
	types.ColContractType,
	types.ColPayload,
	types.ColRecordedTime,
	types.ColConsumedTime,
	types.ColStatus,
	types.ColNotaryName,
	types.ColNotaryKey,
	types.ColLockID,
	types.ColLockUpdateTime,
}

// CountStatement counts the rows matching where.
func CountStatement(where Expression) *SelectStatement {
	return &SelectStatement{
		Columns: []SelectColumn{{Expr: &AggregateExpr{Function: "COUNT", Arg: &StarExpr{}}}},
		From:    &TableRef{Name: types.VaultTable},
		Where:   where,
	}
}

// RecordsStatement selects one page of full records.
func RecordsStatement(where Expression, orderBy []OrderByClause, limit, offset int64) *SelectStatement {
	cols := make([]SelectColumn, len(RecordColumns))
	for i, c := range RecordColumns {
		cols[i] = SelectColumn{Expr: Col(c)}
	}
	return &SelectStatement{
		Columns: cols,
		From:    &TableRef{Name: types.VaultTable},
		Where:   where,
		OrderBy: orderBy,
		Limit:   &limit,
		Offset:  &offset,
	}
}

// DistinctContractTypes lists every contract type name present in the vault.
func DistinctContractTypes() *SelectStatement {
	return &SelectStatement{
		Distinct: true,
		Columns:  []SelectColumn{{Expr: Col(types.ColContractType)}},
		From:     &TableRef{Name: types.VaultTable},
		OrderBy:  []OrderByClause{{Expr: Col(types.ColContractType)}},
	}
}

// Describe renders a statement on one line for debug logging.
func Describe(stmt *SelectStatement) string {
	return strings.Join(strings.Fields(stmt.String()), " ")
}
