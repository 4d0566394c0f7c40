package executor

import (
	"fmt"

	vaulterrors "github.com/arkilian/vaultquery/internal/errors"
	"github.com/arkilian/vaultquery/internal/query/plan"
	"github.com/arkilian/vaultquery/pkg/types"
)

// sortColumns maps sort attributes to vault_states columns.
var sortColumns = map[types.SortAttribute][]string{
	types.SortReference:      {types.ColTxID, types.ColOutputIndex},
	types.SortReferenceTxID:  {types.ColTxID},
	types.SortReferenceIndex: {types.ColOutputIndex},
	types.SortRecordedTime:   {types.ColRecordedTime},
	types.SortConsumedTime:   {types.ColConsumedTime},
	types.SortStatus:         {types.ColStatus},
	types.SortContractType:   {types.ColContractType},
	types.SortNotaryName:     {types.ColNotaryName},
	types.SortLockID:         {types.ColLockID},
	types.SortLockUpdateTime: {types.ColLockUpdateTime},
}

// OrderBy lowers a sort into ORDER BY clauses. Columns keep the caller's
// precedence; a column repeated later is ignored. The state reference is
// appended as a final tie-break so page boundaries are stable.
func OrderBy(sort types.Sort) ([]plan.OrderByClause, error) {
	seen := make(map[string]bool)
	var clauses []plan.OrderByClause

	add := func(column string, desc bool) {
		if seen[column] {
			return
		}
		seen[column] = true
		clauses = append(clauses, plan.OrderByClause{Expr: plan.Col(column), Desc: desc})
	}

	for _, col := range sort.Columns {
		columns, ok := sortColumns[col.Attribute]
		if !ok {
			return nil, vaulterrors.NewUnsupportedCriteriaError(fmt.Sprintf("unknown sort attribute %q", col.Attribute))
		}
		var desc bool
		switch col.Direction {
		case types.ASC, "":
		case types.DESC:
			desc = true
		default:
			return nil, vaulterrors.NewUnsupportedCriteriaError(fmt.Sprintf("unknown sort direction %q", col.Direction))
		}
		for _, c := range columns {
			add(c, desc)
		}
	}

	add(types.ColTxID, false)
	add(types.ColOutputIndex, false)
	return clauses, nil
}
