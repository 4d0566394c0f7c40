package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkilian/vaultquery/internal/config"
	"github.com/arkilian/vaultquery/internal/typeindex"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.Types = []typeindex.TypeDescriptor{{Name: "Cash"}}
	cfg.Extensions = []config.ExtensionConfig{{Table: "cash_states", Columns: []string{"amount"}}}
	return cfg
}

func TestNewOpensVaultAndServesAPI(t *testing.T) {
	a, err := New(testConfig(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	idx, err := a.Service().ResolveTypes(context.Background())
	require.NoError(t, err)
	require.Empty(t, idx.Unresolved)

	h := a.Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/vault/query", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Query.MaxPageSize = 0
	_, err := New(cfg, nil)
	require.ErrorContains(t, err, "invalid configuration")

	cfg = testConfig(t)
	cfg.Types = append(cfg.Types, typeindex.TypeDescriptor{Name: typeindex.DefaultRootType})
	_, err = New(cfg, nil)
	require.ErrorContains(t, err, "invalid type registry")
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTP.Addr = "127.0.0.1:0"
	a, err := New(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()
	cancel()

	require.NoError(t, <-done)
	require.NoError(t, a.Close())
}
