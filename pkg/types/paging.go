package types

import (
	"fmt"
	"strings"
)

const (
	// DefaultPageNumber is the first page.
	DefaultPageNumber = 0

	// DefaultPageSize is used when a caller does not choose a size.
	DefaultPageSize = 200

	// MaxPageSize bounds the page size accepted from outer surfaces.
	MaxPageSize = 10000
)

// PageSpecification selects one page of a sorted result set.
type PageSpecification struct {
	// Number is the zero-based page index
	Number int `json:"page_number" yaml:"page_number"`

	// Size is the number of states per page, must be positive
	Size int `json:"page_size" yaml:"page_size"`
}

// DefaultPageSpecification returns the first page with the default size.
func DefaultPageSpecification() PageSpecification {
	return PageSpecification{Number: DefaultPageNumber, Size: DefaultPageSize}
}

// Offset returns the number of rows skipped before this page.
func (p PageSpecification) Offset() int64 {
	return int64(p.Number) * int64(p.Size)
}

// String returns a compact description for logs.
func (p PageSpecification) String() string {
	return fmt.Sprintf("page(number=%d, size=%d)", p.Number, p.Size)
}

// Direction is a sort direction.
type Direction string

const (
	ASC  Direction = "ASC"
	DESC Direction = "DESC"
)

// ParseDirection parses ASC or DESC, case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case ASC:
		return ASC, nil
	case DESC:
		return DESC, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// SortAttribute names a sortable vault attribute.
type SortAttribute string

const (
	SortReference      SortAttribute = "reference"
	SortReferenceTxID  SortAttribute = "reference.txId"
	SortReferenceIndex SortAttribute = "reference.index"
	SortRecordedTime   SortAttribute = "recordedTime"
	SortConsumedTime   SortAttribute = "consumedTime"
	SortStatus         SortAttribute = "status"
	SortContractType   SortAttribute = "contractType"
	SortNotaryName     SortAttribute = "notaryName"
	SortLockID         SortAttribute = "lockId"
	SortLockUpdateTime SortAttribute = "lockUpdateTime"
)

// SortColumn is one ordering key.
type SortColumn struct {
	Attribute SortAttribute `json:"attribute" yaml:"attribute"`
	Direction Direction     `json:"direction" yaml:"direction"`
}

// Sort is an ordered list of sort keys; earlier columns take precedence.
type Sort struct {
	Columns []SortColumn `json:"columns" yaml:"columns"`
}

// SortBy builds a Sort from columns.
func SortBy(columns ...SortColumn) Sort {
	return Sort{Columns: columns}
}

// String returns a compact description for logs.
func (s Sort) String() string {
	parts := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		dir := c.Direction
		if dir == "" {
			dir = ASC
		}
		parts[i] = fmt.Sprintf("%s %s", c.Attribute, dir)
	}
	return "sort(" + strings.Join(parts, ", ") + ")"
}
