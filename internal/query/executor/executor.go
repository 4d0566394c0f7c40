// Package executor runs compiled vault plans and rebuilds typed pages from
// the stored rows.
package executor

import (
	"context"
	"fmt"
	"math"
	"time"

	vaulterrors "github.com/arkilian/vaultquery/internal/errors"
	"github.com/arkilian/vaultquery/internal/query/plan"
	"github.com/arkilian/vaultquery/pkg/types"
)

// Session is the storage surface the executor needs.
type Session interface {
	Count(ctx context.Context, stmt *plan.SelectStatement) (int64, error)
	Records(ctx context.Context, stmt *plan.SelectStatement) ([]types.StoredRecord, error)
}

// Result holds one page of stored rows and the filtered total.
type Result struct {
	Records []types.StoredRecord

	// TotalStatesAvailable counts every row matching the plan, across all pages
	TotalStatesAvailable int64

	Stats ExecutionStats
}

// ExecutionStats contains query execution timings.
type ExecutionStats struct {
	CountTimeMs int64
	FetchTimeMs int64
}

// Executor runs a plan as a filtered count followed by a sorted page fetch.
type Executor struct {
	maxPageSize int
}

// New creates an executor. maxPageSize <= 0 disables the upper bound.
func New(maxPageSize int) *Executor {
	return &Executor{maxPageSize: maxPageSize}
}

// Execute counts the rows matching p and fetches the requested page in
// sort order. The context is checked before each statement.
func (e *Executor) Execute(ctx context.Context, p *plan.Plan, sort types.Sort, page types.PageSpecification, s Session) (*Result, error) {
	if err := e.ValidatePage(page); err != nil {
		return nil, err
	}
	orderBy, err := OrderBy(sort)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	total, err := s.Count(ctx, plan.CountStatement(p.Where))
	if err != nil {
		return nil, err
	}
	countTime := time.Since(start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start = time.Now()
	records, err := s.Records(ctx, plan.RecordsStatement(p.Where, orderBy, int64(page.Size), page.Offset()))
	if err != nil {
		return nil, err
	}

	return &Result{
		Records:              records,
		TotalStatesAvailable: total,
		Stats: ExecutionStats{
			CountTimeMs: countTime.Milliseconds(),
			FetchTimeMs: time.Since(start).Milliseconds(),
		},
	}, nil
}

// ValidatePage checks that page selects a reachable, positive-size window.
func (e *Executor) ValidatePage(page types.PageSpecification) error {
	switch {
	case page.Size <= 0:
		return vaulterrors.NewInvalidPageError(fmt.Sprintf("page size must be positive, got %d", page.Size))
	case page.Number < 0:
		return vaulterrors.NewInvalidPageError(fmt.Sprintf("page number must not be negative, got %d", page.Number))
	case e.maxPageSize > 0 && page.Size > e.maxPageSize:
		return vaulterrors.NewInvalidPageError(fmt.Sprintf("page size %d exceeds maximum %d", page.Size, e.maxPageSize))
	case int64(page.Number) > math.MaxInt64/int64(page.Size):
		return vaulterrors.NewInvalidPageError(fmt.Sprintf("page number %d is out of range", page.Number))
	}
	return nil
}
