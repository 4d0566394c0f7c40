package plan

import (
	"fmt"
	"strings"
)

// Expression represents a node of a compiled predicate.
type Expression interface {
	expressionNode()
	// String returns a human-readable SQL form with literals inlined.
	String() string
	// writeSQL renders the executable form, binding literals as parameters.
	writeSQL(b *sqlBuilder)
}

// sqlBuilder accumulates SQL text and bind parameters.
type sqlBuilder struct {
	sb   strings.Builder
	args []interface{}
}

func (b *sqlBuilder) write(s string) { b.sb.WriteString(s) }

func (b *sqlBuilder) bind(v interface{}) {
	b.sb.WriteString("?")
	b.args = append(b.args, v)
}

// Render returns the parameterised SQL form of an expression.
func Render(expr Expression) (string, []interface{}) {
	b := &sqlBuilder{}
	expr.writeSQL(b)
	return b.sb.String(), b.args
}

// SelectStatement represents a SELECT query against the vault.
type SelectStatement struct {
	Distinct bool
	Columns  []SelectColumn
	From     *TableRef
	Where    Expression
	OrderBy  []OrderByClause
	Limit    *int64
	Offset   *int64
}

func (s *SelectStatement) expressionNode() {}

// SQL returns the parameterised statement text and its bind arguments.
func (s *SelectStatement) SQL() (string, []interface{}) {
	b := &sqlBuilder{}
	s.writeSQL(b)
	return b.sb.String(), b.args
}

// String returns the SQL representation of the SELECT statement.
func (s *SelectStatement) String() string {
	var sb strings.Builder

	sb.WriteString("SELECT ")
	if s.Distinct {
		sb.WriteString("DISTINCT ")
	}

	cols := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		cols[i] = col.String()
	}
	sb.WriteString(strings.Join(cols, ", "))

	if s.From != nil {
		sb.WriteString(" FROM ")
		sb.WriteString(s.From.String())
	}

	if s.Where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(s.Where.String())
	}

	if len(s.OrderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		orders := make([]string, len(s.OrderBy))
		for i, o := range s.OrderBy {
			orders[i] = o.String()
		}
		sb.WriteString(strings.Join(orders, ", "))
	}

	if s.Limit != nil {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", *s.Limit))
	}

	if s.Offset != nil {
		sb.WriteString(fmt.Sprintf(" OFFSET %d", *s.Offset))
	}

	return sb.String()
}

func (s *SelectStatement) writeSQL(b *sqlBuilder) {
	b.write("SELECT ")
	if s.Distinct {
		b.write("DISTINCT ")
	}
	for i, col := range s.Columns {
		if i > 0 {
			b.write(", ")
		}
		col.Expr.writeSQL(b)
	}
	if s.From != nil {
		b.write(" FROM " + s.From.String())
	}
	if s.Where != nil {
		b.write(" WHERE ")
		s.Where.writeSQL(b)
	}
	for i, o := range s.OrderBy {
		if i == 0 {
			b.write(" ORDER BY ")
		} else {
			b.write(", ")
		}
		o.Expr.writeSQL(b)
		if o.Desc {
			b.write(" DESC")
		} else {
			b.write(" ASC")
		}
	}
	if s.Limit != nil {
		b.write(fmt.Sprintf(" LIMIT %d", *s.Limit))
	}
	if s.Offset != nil {
		b.write(fmt.Sprintf(" OFFSET %d", *s.Offset))
	}
}

// SelectColumn represents a column in the SELECT clause.
type SelectColumn struct {
	Expr Expression
}

// String returns the SQL representation of the select column.
func (c SelectColumn) String() string {
	return c.Expr.String()
}

// TableRef represents a table reference in the FROM clause.
type TableRef struct {
	Name  string
	Alias string
}

// String returns the SQL representation of the table reference.
func (t *TableRef) String() string {
	if t.Alias != "" {
		return fmt.Sprintf("%s AS %s", t.Name, t.Alias)
	}
	return t.Name
}

// OrderByClause represents an ORDER BY clause item.
type OrderByClause struct {
	Expr Expression
	Desc bool
}

// String returns the SQL representation of the ORDER BY clause.
func (o OrderByClause) String() string {
	if o.Desc {
		return fmt.Sprintf("%s DESC", o.Expr.String())
	}
	return fmt.Sprintf("%s ASC", o.Expr.String())
}

// BinaryExpr represents a comparison (e.g., a = b, a > b).
type BinaryExpr struct {
	Left     Expression
	Operator string
	Right    Expression
}

func (b *BinaryExpr) expressionNode() {}

// String returns the SQL representation of the binary expression.
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left.String(), b.Operator, b.Right.String())
}

func (b *BinaryExpr) writeSQL(w *sqlBuilder) {
	w.write("(")
	b.Left.writeSQL(w)
	w.write(" " + b.Operator + " ")
	b.Right.writeSQL(w)
	w.write(")")
}

// LogicalExpr joins two or more operands with AND or OR.
type LogicalExpr struct {
	Operator string
	Operands []Expression
}

func (l *LogicalExpr) expressionNode() {}

// String returns the SQL representation of the logical expression.
func (l *LogicalExpr) String() string {
	parts := make([]string, len(l.Operands))
	for i, op := range l.Operands {
		parts[i] = op.String()
	}
	return "(" + strings.Join(parts, " "+l.Operator+" ") + ")"
}

func (l *LogicalExpr) writeSQL(b *sqlBuilder) {
	b.write("(")
	for i, op := range l.Operands {
		if i > 0 {
			b.write(" " + l.Operator + " ")
		}
		op.writeSQL(b)
	}
	b.write(")")
}

// UnaryExpr represents a unary operation (NOT x).
type UnaryExpr struct {
	Operator string
	Operand  Expression
}

func (u *UnaryExpr) expressionNode() {}

// String returns the SQL representation of the unary expression.
func (u *UnaryExpr) String() string {
	return fmt.Sprintf("%s %s", u.Operator, u.Operand.String())
}

func (u *UnaryExpr) writeSQL(b *sqlBuilder) {
	b.write(u.Operator + " ")
	u.Operand.writeSQL(b)
}

// ColumnRef represents a column reference.
type ColumnRef struct {
	Table  string
	Column string
}

func (c *ColumnRef) expressionNode() {}

// String returns the SQL representation of the column reference.
func (c *ColumnRef) String() string {
	if c.Table != "" {
		return fmt.Sprintf("%s.%s", c.Table, c.Column)
	}
	return c.Column
}

func (c *ColumnRef) writeSQL(b *sqlBuilder) { b.write(c.String()) }

// Literal represents a literal value. It is always bound as a parameter.
type Literal struct {
	Value interface{}
}

func (l *Literal) expressionNode() {}

// String returns the SQL representation of the literal.
func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case string:
		escaped := strings.ReplaceAll(v, "'", "''")
		return fmt.Sprintf("'%s'", escaped)
	case nil:
		return "NULL"
	case int64:
		return fmt.Sprintf("%d", v)
	case int:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%g", v)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (l *Literal) writeSQL(b *sqlBuilder) {
	if l.Value == nil {
		b.write("NULL")
		return
	}
	b.bind(l.Value)
}

// ConstExpr is a predicate that is always true or always false.
type ConstExpr struct {
	Value bool
}

func (c *ConstExpr) expressionNode() {}

// String returns the SQL representation of the constant.
func (c *ConstExpr) String() string {
	if c.Value {
		return "(1 = 1)"
	}
	return "(1 = 0)"
}

func (c *ConstExpr) writeSQL(b *sqlBuilder) { b.write(c.String()) }

// AggregateExpr represents an aggregate function call.
type AggregateExpr struct {
	Function string
	Arg      Expression
}

func (a *AggregateExpr) expressionNode() {}

// String returns the SQL representation of the aggregate expression.
func (a *AggregateExpr) String() string {
	var sb strings.Builder
	sb.WriteString(a.Function)
	sb.WriteString("(")
	if a.Arg != nil {
		sb.WriteString(a.Arg.String())
	}
	sb.WriteString(")")
	return sb.String()
}

func (a *AggregateExpr) writeSQL(b *sqlBuilder) {
	b.write(a.Function + "(")
	if a.Arg != nil {
		a.Arg.writeSQL(b)
	}
	b.write(")")
}

// StarExpr represents the * wildcard.
type StarExpr struct{}

func (s *StarExpr) expressionNode() {}

// String returns the SQL representation of the star expression.
func (s *StarExpr) String() string { return "*" }

func (s *StarExpr) writeSQL(b *sqlBuilder) { b.write(s.String()) }

// InExpr represents an IN expression (e.g., x IN (1, 2, 3)).
// An empty value list renders as a constant so the statement stays valid.
type InExpr struct {
	Expr   Expression
	Values []Expression
	Not    bool
}

func (i *InExpr) expressionNode() {}

// String returns the SQL representation of the IN expression.
func (i *InExpr) String() string {
	if len(i.Values) == 0 {
		return (&ConstExpr{Value: i.Not}).String()
	}
	values := make([]string, len(i.Values))
	for j, v := range i.Values {
		values[j] = v.String()
	}
	if i.Not {
		return fmt.Sprintf("%s NOT IN (%s)", i.Expr.String(), strings.Join(values, ", "))
	}
	return fmt.Sprintf("%s IN (%s)", i.Expr.String(), strings.Join(values, ", "))
}

func (i *InExpr) writeSQL(b *sqlBuilder) {
	if len(i.Values) == 0 {
		(&ConstExpr{Value: i.Not}).writeSQL(b)
		return
	}
	i.Expr.writeSQL(b)
	if i.Not {
		b.write(" NOT IN (")
	} else {
		b.write(" IN (")
	}
	for j, v := range i.Values {
		if j > 0 {
			b.write(", ")
		}
		v.writeSQL(b)
	}
	b.write(")")
}

// BetweenExpr represents a BETWEEN expression (e.g., x BETWEEN 1 AND 10).
type BetweenExpr struct {
	Expr Expression
	Low  Expression
	High Expression
}

func (b *BetweenExpr) expressionNode() {}

// String returns the SQL representation of the BETWEEN expression.
func (b *BetweenExpr) String() string {
	return fmt.Sprintf("%s BETWEEN %s AND %s", b.Expr.String(), b.Low.String(), b.High.String())
}

func (b *BetweenExpr) writeSQL(w *sqlBuilder) {
	b.Expr.writeSQL(w)
	w.write(" BETWEEN ")
	b.Low.writeSQL(w)
	w.write(" AND ")
	b.High.writeSQL(w)
}

// IsNullExpr represents an IS NULL or IS NOT NULL expression.
type IsNullExpr struct {
	Expr Expression
	Not  bool
}

func (i *IsNullExpr) expressionNode() {}

// String returns the SQL representation of the IS NULL expression.
func (i *IsNullExpr) String() string {
	if i.Not {
		return fmt.Sprintf("%s IS NOT NULL", i.Expr.String())
	}
	return fmt.Sprintf("%s IS NULL", i.Expr.String())
}

func (i *IsNullExpr) writeSQL(b *sqlBuilder) {
	i.Expr.writeSQL(b)
	if i.Not {
		b.write(" IS NOT NULL")
	} else {
		b.write(" IS NULL")
	}
}

// LikeExpr represents a LIKE expression.
type LikeExpr struct {
	Expr    Expression
	Pattern Expression
	Not     bool
}

func (l *LikeExpr) expressionNode() {}

// String returns the SQL representation of the LIKE expression.
func (l *LikeExpr) String() string {
	if l.Not {
		return fmt.Sprintf("%s NOT LIKE %s", l.Expr.String(), l.Pattern.String())
	}
	return fmt.Sprintf("%s LIKE %s", l.Expr.String(), l.Pattern.String())
}

func (l *LikeExpr) writeSQL(b *sqlBuilder) {
	l.Expr.writeSQL(b)
	if l.Not {
		b.write(" NOT LIKE ")
	} else {
		b.write(" LIKE ")
	}
	l.Pattern.writeSQL(b)
}

// ParenExpr represents a parenthesized expression.
type ParenExpr struct {
	Expr Expression
}

func (p *ParenExpr) expressionNode() {}

// String returns the SQL representation of the parenthesized expression.
func (p *ParenExpr) String() string {
	return fmt.Sprintf("(%s)", p.Expr.String())
}

func (p *ParenExpr) writeSQL(b *sqlBuilder) {
	b.write("(")
	p.Expr.writeSQL(b)
	b.write(")")
}

// ExistsExpr represents EXISTS (subquery).
type ExistsExpr struct {
	Query *SelectStatement
}

func (e *ExistsExpr) expressionNode() {}

// String returns the SQL representation of the EXISTS expression.
func (e *ExistsExpr) String() string {
	return fmt.Sprintf("EXISTS (%s)", e.Query.String())
}

func (e *ExistsExpr) writeSQL(b *sqlBuilder) {
	b.write("EXISTS (")
	e.Query.writeSQL(b)
	b.write(")")
}
