package storage

import (
	"context"
	"database/sql"
	"time"

	vaulterrors "github.com/arkilian/vaultquery/internal/errors"
	"github.com/arkilian/vaultquery/internal/query/plan"
	"github.com/arkilian/vaultquery/pkg/types"
)

// sqlSession runs statements on a single connection or transaction.
type sqlSession struct {
	q queryer
}

func (s *sqlSession) DistinctStrings(ctx context.Context, stmt *plan.SelectStatement) ([]string, error) {
	query, args := stmt.SQL()
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryFailed("distinct scan", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, queryFailed("distinct scan", err)
		}
		if v.Valid {
			out = append(out, v.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed("distinct scan", err)
	}
	return out, nil
}

func (s *sqlSession) Count(ctx context.Context, stmt *plan.SelectStatement) (int64, error) {
	query, args := stmt.SQL()
	var n int64
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, queryFailed("count", err)
	}
	return n, nil
}

func (s *sqlSession) Records(ctx context.Context, stmt *plan.SelectStatement) ([]types.StoredRecord, error) {
	query, args := stmt.SQL()
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryFailed("records", err)
	}
	defer rows.Close()

	records := make([]types.StoredRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, queryFailed("records", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed("records", err)
	}
	return records, nil
}

// scanRecord scans a row laid out as plan.RecordColumns.
func scanRecord(rows *sql.Rows) (types.StoredRecord, error) {
	var (
		rec      types.StoredRecord
		recorded int64
		consumed sql.NullInt64
		status   int64
		lockID   sql.NullString
		lockTime sql.NullInt64
	)
	err := rows.Scan(
		&rec.TxID,
		&rec.OutputIndex,
		&rec.ContractType,
		&rec.Payload,
		&recorded,
		&consumed,
		&status,
		&rec.NotaryName,
		&rec.NotaryKey,
		&lockID,
		&lockTime,
	)
	if err != nil {
		return rec, err
	}

	rec.RecordedTime = fromNanos(recorded)
	rec.Status = types.StateStatus(status)
	if consumed.Valid {
		t := fromNanos(consumed.Int64)
		rec.ConsumedTime = &t
	}
	if lockID.Valid {
		id := lockID.String
		rec.LockID = &id
	}
	if lockTime.Valid {
		t := fromNanos(lockTime.Int64)
		rec.LockUpdateTime = &t
	}
	return rec, nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func queryFailed(op string, err error) error {
	return vaulterrors.NewStorageError(vaulterrors.CodeQueryFailed, op+" failed", err)
}
