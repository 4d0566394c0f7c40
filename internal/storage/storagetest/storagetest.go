// Package storagetest provides helpers for tests that need a real vault database.
package storagetest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/arkilian/vaultquery/internal/storage"
	"github.com/arkilian/vaultquery/pkg/types"
)

// DefaultNotary is the notary name used by Record.
const DefaultNotary = "O=Notary Service, L=Zurich, C=CH"

// OpenVault opens an empty vault in a temporary directory. It is closed
// when the test ends.
func OpenVault(t testing.TB) *storage.SQLiteVault {
	t.Helper()
	v, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "vault.db"), storage.SQLiteOptions{})
	if err != nil {
		t.Fatalf("open vault: %v", err)
	}
	t.Cleanup(func() { v.Close() })
	return v
}

// Ref derives a deterministic state reference from a seed.
func Ref(seed string, index int) types.StateRef {
	return types.StateRef{TxHash: types.SHA256([]byte(seed)), Index: index}
}

// Record builds an unconsumed record for ref.
func Record(ref types.StateRef, contractType string, payload []byte, recorded time.Time) types.StoredRecord {
	return types.StoredRecord{
		TxID:         ref.TxHash.String(),
		OutputIndex:  ref.Index,
		ContractType: contractType,
		Payload:      payload,
		RecordedTime: recorded.UTC(),
		Status:       types.StatusUnconsumed,
		NotaryName:   DefaultNotary,
		NotaryKey:    "GfHq2tTVk9z4eXgyUuofmR16H6j7srXt8BCyidKdrZL5JEwFqHgDSuiinbTE",
	}
}
