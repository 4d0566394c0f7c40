package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arkilian/vaultquery/internal/codec"
	"github.com/arkilian/vaultquery/internal/config"
	"github.com/arkilian/vaultquery/internal/storage"
	"github.com/arkilian/vaultquery/internal/storage/storagetest"
	"github.com/arkilian/vaultquery/pkg/types"
)

func TestParseSort(t *testing.T) {
	sort, err := parseSort([]string{"recordedTime:desc", "reference"})
	require.NoError(t, err)
	require.Equal(t, types.SortBy(
		types.SortColumn{Attribute: types.SortRecordedTime, Direction: types.DESC},
		types.SortColumn{Attribute: types.SortReference, Direction: types.ASC},
	), sort)

	_, err = parseSort([]string{"status:sideways"})
	require.ErrorIs(t, err, types.ErrInvalidDirection)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = newLogger(config.LogConfig{Level: "info", Format: "xml"}, &buf)
	require.Error(t, err)
}

func seedDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vault.db")
	v, err := storage.OpenSQLite(path, storage.SQLiteOptions{})
	require.NoError(t, err)
	defer v.Close()

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var records []types.StoredRecord
	for i, typ := range []string{"Cash", "Cash", "Bond"} {
		payload, err := codec.EncodeSnappyJSON(types.TransactionState[map[string]int]{Data: map[string]int{"amount": i}})
		require.NoError(t, err)
		records = append(records, storagetest.Record(storagetest.Ref("cli", i), typ, payload, t0.Add(time.Duration(i)*time.Second)))
	}
	require.NoError(t, v.RecordStates(context.Background(), records))
	_, err = v.ConsumeStates(context.Background(), []types.StateRef{storagetest.Ref("cli", 2)}, t0.Add(time.Hour))
	require.NoError(t, err)
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		opts.ConfigFile, opts.DataDir, opts.Database, opts.LogLevel, opts.LogFormat = "", "", "", "", ""
		queryOpts.CriteriaFile, queryOpts.Status, queryOpts.Type = "", "", ""
		queryOpts.Notaries, queryOpts.Sort = nil, nil
		queryOpts.PageNumber, queryOpts.PageSize = types.DefaultPageNumber, types.DefaultPageSize
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestQueryCommand(t *testing.T) {
	db := seedDatabase(t)
	dataDir := filepath.Dir(db)

	out, err := run(t, "query", "--db", db, "--data-dir", dataDir, "--status", "ALL", "--sort", "recordedTime:DESC", "--log-level", "error")
	require.NoError(t, err)

	var page struct {
		States []struct {
			Ref types.StateRef `json:"ref"`
		} `json:"states"`
		Total int64 `json:"total_states_available"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Equal(t, int64(3), page.Total)
	require.Equal(t, storagetest.Ref("cli", 2), page.States[0].Ref)

	out, err = run(t, "query", "--db", db, "--data-dir", dataDir, "--type", "Bond", "--log-level", "error")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Zero(t, page.Total, "the only Bond is consumed")
}

func TestQueryCommandRejectsBadInput(t *testing.T) {
	db := seedDatabase(t)

	_, err := run(t, "query", "--db", db, "--status", "SPENT")
	require.ErrorIs(t, err, types.ErrInvalidStateStatus)

	_, err = run(t, "query", "--db", db, "--criteria", "x.json", "--status", "ALL")
	require.ErrorContains(t, err, "cannot be combined")

	_, err = run(t, "query", "--db", db, "--data-dir", filepath.Dir(db), "--page-size", "0", "--log-level", "error")
	require.Error(t, err)
}

func TestTypesCommand(t *testing.T) {
	db := seedDatabase(t)

	out, err := run(t, "types", "--db", db, "--data-dir", filepath.Dir(db), "--log-level", "error")
	require.NoError(t, err)

	var idx struct {
		Unresolved []string `json:"unresolved"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &idx))
	require.Equal(t, []string{"Bond", "Cash"}, idx.Unresolved)
}
