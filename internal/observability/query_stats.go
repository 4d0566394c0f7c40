// Package observability tracks which vault attributes queries filter on and
// exports query metrics.
package observability

import (
	"sort"
	"sync"
	"time"

	"github.com/arkilian/vaultquery/internal/query/plan"
	"github.com/arkilian/vaultquery/pkg/types"
)

// QueryStats tracks predicate frequency on vault columns and on custom
// attributes of extension tables.
type QueryStats struct {
	mu            sync.RWMutex
	predicateFreq map[string]*ColumnStats
	customFreq    map[string]*ColumnStats
	plans         int64
	window        time.Duration
}

// ColumnStats holds statistics for a column or custom attribute.
type ColumnStats struct {
	Column    string         `json:"column"`
	Frequency int64          `json:"frequency"`
	LastSeen  time.Time      `json:"last_seen"`
	Operators map[string]int `json:"operators"` // operator → count (e.g., "=" → 5, "IN" → 2)
}

// Snapshot is a point-in-time copy of the tracked statistics.
type Snapshot struct {
	Plans      int64         `json:"plans"`
	Predicates []ColumnStats `json:"predicates"`
	Custom     []ColumnStats `json:"custom_attributes"`
}

// NewQueryStats creates a new query statistics tracker.
// window: time duration for pruning old entries (e.g., 1 hour)
func NewQueryStats(window time.Duration) *QueryStats {
	return &QueryStats{
		predicateFreq: make(map[string]*ColumnStats),
		customFreq:    make(map[string]*ColumnStats),
		window:        window,
	}
}

// RecordPlan records every predicate of a compiled plan. Predicates on
// vault_states count as column predicates, the rest as custom attributes.
func (q *QueryStats) RecordPlan(p *plan.Plan) {
	if q == nil || p == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	q.plans++
	now := time.Now()
	for _, pred := range p.Predicates {
		if pred.Table == "" || pred.Table == types.VaultTable {
			record(q.predicateFreq, pred.Column, pred.Operator, now)
			continue
		}
		record(q.customFreq, pred.Key(), pred.Operator, now)
	}
}

// RecordPredicate records a predicate access for a vault column.
// This method is O(1) and thread-safe.
func (q *QueryStats) RecordPredicate(column, operator string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	record(q.predicateFreq, column, operator, time.Now())
}

// RecordCustomAttribute records a predicate on an extension table column,
// keyed as "table.column".
func (q *QueryStats) RecordCustomAttribute(attribute, operator string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	record(q.customFreq, attribute, operator, time.Now())
}

func record(m map[string]*ColumnStats, key, operator string, now time.Time) {
	stats, exists := m[key]
	if !exists {
		stats = &ColumnStats{
			Column:    key,
			Operators: make(map[string]int),
		}
		m[key] = stats
	}

	stats.Frequency++
	stats.LastSeen = now
	stats.Operators[operator]++
}

// GetTopPredicates returns the top N vault columns by frequency.
// Returns a copy of the stats sorted by frequency (descending).
func (q *QueryStats) GetTopPredicates(n int) []ColumnStats {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return topN(q.predicateFreq, n)
}

// GetTopCustomAttributes returns the top N custom attributes by frequency.
func (q *QueryStats) GetTopCustomAttributes(n int) []ColumnStats {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return topN(q.customFreq, n)
}

// Snapshot returns the top N entries of both trackers.
func (q *QueryStats) Snapshot(n int) Snapshot {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return Snapshot{
		Plans:      q.plans,
		Predicates: topN(q.predicateFreq, n),
		Custom:     topN(q.customFreq, n),
	}
}

func topN(m map[string]*ColumnStats, n int) []ColumnStats {
	if n <= 0 || len(m) == 0 {
		return []ColumnStats{}
	}

	stats := make([]ColumnStats, 0, len(m))
	for _, s := range m {
		// Deep copy so callers cannot mutate tracked state
		statsCopy := ColumnStats{
			Column:    s.Column,
			Frequency: s.Frequency,
			LastSeen:  s.LastSeen,
			Operators: make(map[string]int, len(s.Operators)),
		}
		for op, count := range s.Operators {
			statsCopy.Operators[op] = count
		}
		stats = append(stats, statsCopy)
	}

	// Frequency descending, then name for a stable order
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Frequency != stats[j].Frequency {
			return stats[i].Frequency > stats[j].Frequency
		}
		return stats[i].Column < stats[j].Column
	})

	if n > len(stats) {
		n = len(stats)
	}
	return stats[:n]
}

// Prune removes entries where time.Since(LastSeen) > window.
// This should be called periodically (e.g., every 5 minutes).
func (q *QueryStats) Prune() {
	q.mu.Lock()
	defer q.mu.Unlock()

	threshold := time.Now().Add(-q.window)

	for col, stats := range q.predicateFreq {
		if stats.LastSeen.Before(threshold) {
			delete(q.predicateFreq, col)
		}
	}

	for attr, stats := range q.customFreq {
		if stats.LastSeen.Before(threshold) {
			delete(q.customFreq, attr)
		}
	}
}
