package plan

// PredicateType represents the type of a predicate.
type PredicateType int

const (
	PredicateEquality PredicateType = iota // column = value
	PredicateRange                         // column < value, column > value, etc.
	PredicateIn                            // column IN (v1, v2, ...)
	PredicateBetween                       // column BETWEEN low AND high
	PredicateLike                          // column LIKE pattern
	PredicateIsNull                        // column IS NULL / IS NOT NULL
)

// Predicate represents a column predicate found in a compiled plan.
type Predicate struct {
	Type     PredicateType
	Column   string        // Column name
	Table    string        // Table name, resolved through subquery aliases
	Operator string        // =, <, >, <=, >=, <>, IN, BETWEEN, LIKE, IS NULL
	Value    interface{}   // Single value for equality/range
	Values   []interface{} // Multiple values for IN
	Low      interface{}   // Low bound for BETWEEN
	High     interface{}   // High bound for BETWEEN
	Not      bool          // Negation flag (NOT IN, NOT LIKE, IS NOT NULL)
}

// Key returns the qualified column name, "table.column" when a table is known.
func (p Predicate) Key() string {
	if p.Table != "" {
		return p.Table + "." + p.Column
	}
	return p.Column
}

// PredicateExtractor collects predicates from a WHERE tree.
type PredicateExtractor struct {
	predicates []Predicate
	aliases    map[string]string // alias -> table
}

// NewPredicateExtractor creates a new PredicateExtractor.
func NewPredicateExtractor() *PredicateExtractor {
	return &PredicateExtractor{
		aliases: make(map[string]string),
	}
}

// ExtractPredicates extracts all column-vs-literal predicates from an expression,
// descending into EXISTS subqueries.
func ExtractPredicates(expr Expression) []Predicate {
	if expr == nil {
		return nil
	}
	extractor := NewPredicateExtractor()
	extractor.extract(expr)
	return extractor.predicates
}

func (e *PredicateExtractor) extract(expr Expression) {
	switch ex := expr.(type) {
	case *LogicalExpr:
		for _, op := range ex.Operands {
			e.extract(op)
		}
	case *BinaryExpr:
		e.extractBinary(ex)
	case *InExpr:
		e.extractIn(ex)
	case *BetweenExpr:
		e.extractBetween(ex)
	case *LikeExpr:
		e.extractLike(ex)
	case *IsNullExpr:
		e.extractIsNull(ex)
	case *UnaryExpr:
		if ex.Operator == "NOT" {
			e.extract(ex.Operand)
		}
	case *ParenExpr:
		e.extract(ex.Expr)
	case *ExistsExpr:
		if ex.Query == nil {
			return
		}
		if from := ex.Query.From; from != nil && from.Alias != "" {
			e.aliases[from.Alias] = from.Name
		}
		if ex.Query.Where != nil {
			e.extract(ex.Query.Where)
		}
	}
}

func (e *PredicateExtractor) extractBinary(expr *BinaryExpr) {
	switch expr.Operator {
	case "=", "<>", "!=":
		e.extractComparison(expr, PredicateEquality)
	case "<", ">", "<=", ">=":
		e.extractComparison(expr, PredicateRange)
	}
}

func (e *PredicateExtractor) extractComparison(expr *BinaryExpr, predType PredicateType) {
	col, ok := expr.Left.(*ColumnRef)
	if !ok {
		return
	}
	// Join conditions compare two columns and carry no literal.
	lit, ok := expr.Right.(*Literal)
	if !ok {
		return
	}
	e.add(Predicate{
		Type:     predType,
		Column:   col.Column,
		Table:    e.table(col),
		Operator: expr.Operator,
		Value:    lit.Value,
	})
}

func (e *PredicateExtractor) extractIn(expr *InExpr) {
	col, ok := expr.Expr.(*ColumnRef)
	if !ok {
		return
	}

	values := make([]interface{}, 0, len(expr.Values))
	for _, v := range expr.Values {
		if lit, ok := v.(*Literal); ok {
			values = append(values, lit.Value)
		}
	}

	op := "IN"
	if expr.Not {
		op = "NOT IN"
	}
	e.add(Predicate{
		Type:     PredicateIn,
		Column:   col.Column,
		Table:    e.table(col),
		Operator: op,
		Values:   values,
		Not:      expr.Not,
	})
}

func (e *PredicateExtractor) extractBetween(expr *BetweenExpr) {
	col, ok := expr.Expr.(*ColumnRef)
	if !ok {
		return
	}
	low, lok := expr.Low.(*Literal)
	high, hok := expr.High.(*Literal)
	if !lok || !hok {
		return
	}
	e.add(Predicate{
		Type:     PredicateBetween,
		Column:   col.Column,
		Table:    e.table(col),
		Operator: "BETWEEN",
		Low:      low.Value,
		High:     high.Value,
	})
}

func (e *PredicateExtractor) extractLike(expr *LikeExpr) {
	col, ok := expr.Expr.(*ColumnRef)
	if !ok {
		return
	}
	pattern, ok := expr.Pattern.(*Literal)
	if !ok {
		return
	}
	e.add(Predicate{
		Type:     PredicateLike,
		Column:   col.Column,
		Table:    e.table(col),
		Operator: "LIKE",
		Value:    pattern.Value,
		Not:      expr.Not,
	})
}

func (e *PredicateExtractor) extractIsNull(expr *IsNullExpr) {
	col, ok := expr.Expr.(*ColumnRef)
	if !ok {
		return
	}
	op := "IS NULL"
	if expr.Not {
		op = "IS NOT NULL"
	}
	e.add(Predicate{
		Type:     PredicateIsNull,
		Column:   col.Column,
		Table:    e.table(col),
		Operator: op,
		Not:      expr.Not,
	})
}

func (e *PredicateExtractor) add(p Predicate) {
	e.predicates = append(e.predicates, p)
}

func (e *PredicateExtractor) table(col *ColumnRef) string {
	if name, ok := e.aliases[col.Table]; ok {
		return name
	}
	return col.Table
}

// FilterPredicatesByColumn returns predicates for a specific column.
func FilterPredicatesByColumn(predicates []Predicate, column string) []Predicate {
	var result []Predicate
	for _, p := range predicates {
		if p.Column == column {
			result = append(result, p)
		}
	}
	return result
}

// FilterPredicatesByType returns predicates of a specific type.
func FilterPredicatesByType(predicates []Predicate, predType PredicateType) []Predicate {
	var result []Predicate
	for _, p := range predicates {
		if p.Type == predType {
			result = append(result, p)
		}
	}
	return result
}
