package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	vaulterrors "github.com/arkilian/vaultquery/internal/errors"
	"github.com/arkilian/vaultquery/pkg/types"
)

// SQLiteOptions configures OpenSQLite.
type SQLiteOptions struct {
	// BusyTimeout is how long a writer waits for a lock (default: 5s)
	BusyTimeout time.Duration

	// MaxOpenConns bounds concurrent sessions (default: 4)
	MaxOpenConns int
}

// SQLiteVault is a vault_states table in a sqlite database opened in WAL mode.
type SQLiteVault struct {
	*Store

	db   *sql.DB
	path string
	mu   sync.Mutex // serialises writers
}

// OpenSQLite opens or creates the vault database at path and ensures the
// vault_states schema exists.
func OpenSQLite(path string, opts SQLiteOptions) (*SQLiteVault, error) {
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 4
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d", path, opts.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxOpenConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	v := &SQLiteVault{Store: NewStore(db), db: db, path: path}
	if err := v.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: failed to initialize schema: %w", err)
	}
	return v, nil
}

func (v *SQLiteVault) initSchema() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, stmt := range types.VaultSchema().DDL() {
		if _, err := v.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// DB returns the underlying database, e.g. to begin an ambient transaction.
func (v *SQLiteVault) DB() *sql.DB { return v.db }

// Path returns the database file path.
func (v *SQLiteVault) Path() string { return v.path }

// Close closes the database.
func (v *SQLiteVault) Close() error {
	v.Store.Close()
	return v.db.Close()
}

// RecordStates inserts new unconsumed or consumed states in one transaction.
func (v *SQLiteVault) RecordStates(ctx context.Context, records []types.StoredRecord) error {
	if len(records) == 0 {
		return nil
	}
	return v.write(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO vault_states (
				transaction_id, output_index, contract_state_class_name, contract_state,
				notary_name, notary_key, recorded_timestamp, consumed_timestamp,
				state_status, lock_id, lock_timestamp
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range records {
			r := &records[i]
			if r.Status != types.StatusUnconsumed && r.Status != types.StatusConsumed {
				return fmt.Errorf("record %s(%d): %w", r.TxID, r.OutputIndex, types.ErrInvalidStateStatus)
			}
			ref, err := r.Ref()
			if err != nil {
				return fmt.Errorf("record %s(%d): %w", r.TxID, r.OutputIndex, err)
			}
			if err := checkTimes(r.RecordedTime, r.ConsumedTime, r.LockUpdateTime); err != nil {
				return fmt.Errorf("record %s(%d): %w", r.TxID, r.OutputIndex, err)
			}
			payload := r.Payload
			if payload == nil {
				payload = []byte{}
			}
			_, err = stmt.ExecContext(ctx,
				ref.TxHash.String(), r.OutputIndex, r.ContractType, payload,
				r.NotaryName, r.NotaryKey, r.RecordedTime.UnixNano(), nanosOrNil(r.ConsumedTime),
				int64(r.Status), stringOrNil(r.LockID), nanosOrNil(r.LockUpdateTime),
			)
			if err != nil {
				return fmt.Errorf("record %s(%d): %w", r.TxID, r.OutputIndex, err)
			}
		}
		return nil
	})
}

// ConsumeStates marks states consumed at the given time. States already
// consumed keep their original consumption time. It returns the number of
// states changed.
func (v *SQLiteVault) ConsumeStates(ctx context.Context, refs []types.StateRef, at time.Time) (int64, error) {
	if err := checkTimes(at); err != nil {
		return 0, vaulterrors.NewStorageError(vaulterrors.CodeQueryFailed, "consume", err)
	}
	return v.updateRefs(ctx, refs, `
		UPDATE vault_states
		SET consumed_timestamp = ?, state_status = ?, lock_id = NULL, lock_timestamp = ?
		WHERE transaction_id = ? AND output_index = ? AND consumed_timestamp IS NULL`,
		func() []interface{} {
			return []interface{}{at.UnixNano(), int64(types.StatusConsumed), at.UnixNano()}
		})
}

// SoftLock reserves unconsumed states for lockID. States held by another
// lock are left untouched. It returns the number of states locked.
func (v *SQLiteVault) SoftLock(ctx context.Context, lockID uuid.UUID, refs []types.StateRef, at time.Time) (int64, error) {
	if err := checkTimes(at); err != nil {
		return 0, vaulterrors.NewStorageError(vaulterrors.CodeQueryFailed, "soft lock", err)
	}
	id := lockID.String()
	return v.updateRefs(ctx, refs, `
		UPDATE vault_states
		SET lock_id = ?, lock_timestamp = ?
		WHERE state_status = 0 AND (lock_id IS NULL OR lock_id = ?)
		AND transaction_id = ? AND output_index = ?`,
		func() []interface{} { return []interface{}{id, at.UnixNano(), id} })
}

// ReleaseSoftLock releases states held by lockID. With no refs every state
// held by lockID is released.
func (v *SQLiteVault) ReleaseSoftLock(ctx context.Context, lockID uuid.UUID, refs []types.StateRef, at time.Time) (int64, error) {
	if err := checkTimes(at); err != nil {
		return 0, vaulterrors.NewStorageError(vaulterrors.CodeQueryFailed, "release soft lock", err)
	}
	id := lockID.String()
	if len(refs) == 0 {
		var n int64
		err := v.write(ctx, func(tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx,
				`UPDATE vault_states SET lock_id = NULL, lock_timestamp = ? WHERE lock_id = ?`,
				at.UnixNano(), id)
			if err != nil {
				return err
			}
			n, err = res.RowsAffected()
			return err
		})
		return n, err
	}
	return v.updateRefs(ctx, refs, `
		UPDATE vault_states
		SET lock_id = NULL, lock_timestamp = ?
		WHERE lock_id = ? AND transaction_id = ? AND output_index = ?`,
		func() []interface{} { return []interface{}{at.UnixNano(), id} })
}

// updateRefs runs query once per ref with leading args followed by the ref key.
func (v *SQLiteVault) updateRefs(ctx context.Context, refs []types.StateRef, query string, leading func() []interface{}) (int64, error) {
	var total int64
	err := v.write(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, ref := range refs {
			args := append(leading(), ref.TxHash.String(), int64(ref.Index))
			res, err := stmt.ExecContext(ctx, args...)
			if err != nil {
				return fmt.Errorf("%s: %w", ref, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// write runs fn in a transaction on the single writer path.
func (v *SQLiteVault) write(ctx context.Context, fn func(*sql.Tx) error) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return vaulterrors.NewStorageError(vaulterrors.CodeSessionUnavailable, "begin transaction", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return vaulterrors.NewStorageError(vaulterrors.CodeQueryFailed, "write", err)
	}
	if err := tx.Commit(); err != nil {
		return vaulterrors.NewStorageError(vaulterrors.CodeQueryFailed, "commit", err)
	}
	return nil
}

// checkTimes rejects instants that cannot be stored as Unix nanoseconds.
func checkTimes(required time.Time, optional ...*time.Time) error {
	if !types.TimestampInRange(required) {
		return fmt.Errorf("%s: %w", required.Format(time.RFC3339), types.ErrTimestampOutOfRange)
	}
	for _, t := range optional {
		if t != nil && !types.TimestampInRange(*t) {
			return fmt.Errorf("%s: %w", t.Format(time.RFC3339), types.ErrTimestampOutOfRange)
		}
	}
	return nil
}

func nanosOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func stringOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
