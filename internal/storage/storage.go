// Package storage provides scoped query sessions over the vault database and
// the sqlite-backed vault used to record, consume and soft-lock states.
package storage

import (
	"context"
	"database/sql"

	"github.com/arkilian/vaultquery/internal/query/plan"
	"github.com/arkilian/vaultquery/pkg/types"
)

// Session runs compiled statements. A session is valid only inside the
// WithSession callback that produced it.
type Session interface {
	// DistinctStrings runs a single-column statement and returns its values.
	DistinctStrings(ctx context.Context, stmt *plan.SelectStatement) ([]string, error)

	// Count runs a COUNT statement.
	Count(ctx context.Context, stmt *plan.SelectStatement) (int64, error)

	// Records runs a statement selecting plan.RecordColumns.
	Records(ctx context.Context, stmt *plan.SelectStatement) ([]types.StoredRecord, error)
}

// SessionFactory opens scoped sessions.
type SessionFactory interface {
	WithSession(ctx context.Context, fn func(Session) error) error
}

// queryer is satisfied by *sql.Conn and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

// ContextWithTx attaches an ambient transaction. Sessions opened with the
// returned context run inside tx and never commit or roll it back.
func ContextWithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the ambient transaction, if any.
func TxFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok && tx != nil
}
