package observability

import (
	"sync"
	"testing"
	"time"

	"github.com/arkilian/vaultquery/internal/query/plan"
	"github.com/arkilian/vaultquery/pkg/types"
)

// TestRecordPredicateConcurrent tests concurrent RecordPredicate calls for race conditions.
func TestRecordPredicateConcurrent(t *testing.T) {
	qs := NewQueryStats(1 * time.Hour)
	var wg sync.WaitGroup
	numGoroutines := 10
	recordsPerGoroutine := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < recordsPerGoroutine; j++ {
				qs.RecordPredicate(types.ColStatus, "=")
				qs.RecordPredicate(types.ColContractType, "IN")
				qs.RecordPredicate(types.ColRecordedTime, ">=")
			}
		}()
	}

	wg.Wait()

	top := qs.GetTopPredicates(10)
	if len(top) != 3 {
		t.Errorf("expected 3 predicates, got %d", len(top))
	}

	expectedFreq := int64(numGoroutines * recordsPerGoroutine)
	for _, stat := range top {
		if stat.Frequency != expectedFreq {
			t.Errorf("expected frequency %d for %s, got %d", expectedFreq, stat.Column, stat.Frequency)
		}
	}
}

// TestGetTopPredicatesOrdering tests that GetTopPredicates returns results sorted by frequency.
func TestGetTopPredicatesOrdering(t *testing.T) {
	qs := NewQueryStats(1 * time.Hour)

	for i := 0; i < 10; i++ {
		qs.RecordPredicate(types.ColStatus, "=")
	}
	for i := 0; i < 5; i++ {
		qs.RecordPredicate(types.ColLockID, "IS NULL")
	}
	for i := 0; i < 20; i++ {
		qs.RecordPredicate(types.ColContractType, "IN")
	}

	top := qs.GetTopPredicates(3)
	if len(top) != 3 {
		t.Fatalf("expected 3 predicates, got %d", len(top))
	}

	if top[0].Column != types.ColContractType || top[0].Frequency != 20 {
		t.Errorf("expected %s with frequency 20, got %s with %d", types.ColContractType, top[0].Column, top[0].Frequency)
	}
	if top[1].Column != types.ColStatus || top[1].Frequency != 10 {
		t.Errorf("expected %s with frequency 10, got %s with %d", types.ColStatus, top[1].Column, top[1].Frequency)
	}
	if top[2].Column != types.ColLockID || top[2].Frequency != 5 {
		t.Errorf("expected %s with frequency 5, got %s with %d", types.ColLockID, top[2].Column, top[2].Frequency)
	}
}

// TestPruneRemovesOldEntries tests that Prune removes entries older than the window.
func TestPruneRemovesOldEntries(t *testing.T) {
	window := 100 * time.Millisecond
	qs := NewQueryStats(window)

	qs.RecordPredicate(types.ColStatus, "=")
	qs.RecordCustomAttribute("cash_states.amount", ">")

	if len(qs.GetTopPredicates(10)) != 1 || len(qs.GetTopCustomAttributes(10)) != 1 {
		t.Fatal("expected entries before prune")
	}

	time.Sleep(window + 50*time.Millisecond)
	qs.Prune()

	if top := qs.GetTopPredicates(10); len(top) != 0 {
		t.Errorf("expected 0 predicates after prune, got %d", len(top))
	}
	if top := qs.GetTopCustomAttributes(10); len(top) != 0 {
		t.Errorf("expected 0 custom attributes after prune, got %d", len(top))
	}
}

// TestRecordPredicateTrackingOperators tests that RecordPredicate tracks operator distribution.
func TestRecordPredicateTrackingOperators(t *testing.T) {
	qs := NewQueryStats(1 * time.Hour)

	for i := 0; i < 5; i++ {
		qs.RecordPredicate(types.ColLockID, "IS NULL")
	}
	for i := 0; i < 3; i++ {
		qs.RecordPredicate(types.ColLockID, "IN")
	}

	top := qs.GetTopPredicates(1)
	if len(top) != 1 {
		t.Fatalf("expected 1 predicate, got %d", len(top))
	}

	stat := top[0]
	if stat.Frequency != 8 {
		t.Errorf("expected frequency 8, got %d", stat.Frequency)
	}
	if stat.Operators["IS NULL"] != 5 {
		t.Errorf("expected 5 'IS NULL' operators, got %d", stat.Operators["IS NULL"])
	}
	if stat.Operators["IN"] != 3 {
		t.Errorf("expected 3 'IN' operators, got %d", stat.Operators["IN"])
	}
}

// TestRecordPlanSplitsCustomAttributes tests that extension table predicates
// are tracked separately from vault columns.
func TestRecordPlanSplitsCustomAttributes(t *testing.T) {
	qs := NewQueryStats(1 * time.Hour)

	exists := &plan.ExistsExpr{Query: &plan.SelectStatement{
		Columns: []plan.SelectColumn{{Expr: &plan.StarExpr{}}},
		From:    &plan.TableRef{Name: "cash_states", Alias: "ext"},
		Where:   &plan.BinaryExpr{Left: &plan.ColumnRef{Table: "ext", Column: "currency"}, Operator: "=", Right: plan.Lit("GBP")},
	}}
	p := plan.New(plan.And(plan.Eq(types.ColStatus, int64(0)), exists), nil)

	qs.RecordPlan(p)
	qs.RecordPlan(p)

	snap := qs.Snapshot(10)
	if snap.Plans != 2 {
		t.Errorf("expected 2 plans, got %d", snap.Plans)
	}
	if len(snap.Predicates) != 1 || snap.Predicates[0].Column != types.ColStatus || snap.Predicates[0].Frequency != 2 {
		t.Errorf("unexpected predicates %+v", snap.Predicates)
	}
	if len(snap.Custom) != 1 || snap.Custom[0].Column != "cash_states.currency" {
		t.Errorf("unexpected custom attributes %+v", snap.Custom)
	}
}

func TestRecordPlanNilSafe(t *testing.T) {
	var qs *QueryStats
	qs.RecordPlan(plan.New(nil, nil))
	NewQueryStats(time.Hour).RecordPlan(nil)
}
