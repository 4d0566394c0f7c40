package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkilian/vaultquery/internal/codec"
	vaulterrors "github.com/arkilian/vaultquery/internal/errors"
	"github.com/arkilian/vaultquery/internal/storage/storagetest"
	"github.com/arkilian/vaultquery/pkg/types"
)

type cash struct {
	Amount int64 `json:"amount"`
}

func encodeCash(t *testing.T, amount int64, notary string) []byte {
	t.Helper()
	payload, err := codec.EncodeSnappyJSON(types.TransactionState[cash]{Data: cash{Amount: amount}, Notary: notary})
	require.NoError(t, err)
	return payload
}

func TestReconstruct(t *testing.T) {
	lock := "3f1c2b8e-6a1d-4c1e-9a55-0c9b1f0e2d11"
	consumed := t0.Add(1)

	first := storagetest.Record(storagetest.Ref("a", 0), "Cash", encodeCash(t, 10, ""), t0)
	first.LockID = &lock
	second := storagetest.Record(storagetest.Ref("b", 3), "Cash", encodeCash(t, 20, "O=Other Notary"), t0)
	second.Status = types.StatusConsumed
	second.ConsumedTime = &consumed

	states, meta, err := Reconstruct[cash]([]types.StoredRecord{first, second}, codec.SnappyJSON[cash]{})
	require.NoError(t, err)
	require.Len(t, states, 2)
	require.Len(t, meta, 2)

	require.Equal(t, storagetest.Ref("a", 0), states[0].Ref)
	require.Equal(t, int64(10), states[0].State.Data.Amount)
	require.Equal(t, storagetest.DefaultNotary, states[0].State.Notary, "notary falls back to the row")
	require.Equal(t, "O=Other Notary", states[1].State.Notary)

	require.Equal(t, states[1].Ref, meta[1].Ref)
	require.Equal(t, types.StatusConsumed, meta[1].Status)
	require.Equal(t, &consumed, meta[1].ConsumedTime)
	require.Equal(t, &lock, meta[0].LockID)
	require.Equal(t, "Cash", meta[0].ContractType)
}

func TestReconstructEmpty(t *testing.T) {
	states, meta, err := Reconstruct[cash](nil, codec.SnappyJSON[cash]{})
	require.NoError(t, err)
	require.NotNil(t, states)
	require.NotNil(t, meta)
	require.Empty(t, states)
}

func TestReconstructFailsWholePage(t *testing.T) {
	good := storagetest.Record(storagetest.Ref("a", 0), "Cash", encodeCash(t, 10, ""), t0)

	corrupt := storagetest.Record(storagetest.Ref("b", 0), "Cash", []byte("garbage"), t0)
	states, meta, err := Reconstruct[cash]([]types.StoredRecord{good, corrupt}, codec.SnappyJSON[cash]{})
	require.ErrorIs(t, err, vaulterrors.ErrDeserialization)
	require.Nil(t, states)
	require.Nil(t, meta)

	badRef := good
	badRef.TxID = "XYZ"
	_, _, err = Reconstruct[cash]([]types.StoredRecord{badRef}, codec.SnappyJSON[cash]{})
	require.ErrorIs(t, err, vaulterrors.ErrDeserialization)
	require.ErrorIs(t, err, types.ErrInvalidSecureHash)
}
