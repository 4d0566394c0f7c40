package executor

import (
	"fmt"

	"github.com/arkilian/vaultquery/internal/codec"
	vaulterrors "github.com/arkilian/vaultquery/internal/errors"
	"github.com/arkilian/vaultquery/pkg/types"
)

// Reconstruct decodes stored rows into states and metadata, index aligned
// with records. Any undecodable row fails the whole page.
func Reconstruct[T any](records []types.StoredRecord, c codec.Codec[T]) ([]types.StateAndRef[T], []types.StateMetadata, error) {
	states := make([]types.StateAndRef[T], 0, len(records))
	metadata := make([]types.StateMetadata, 0, len(records))

	for i := range records {
		rec := &records[i]

		ref, err := rec.Ref()
		if err != nil {
			return nil, nil, vaulterrors.NewDeserializationError(
				fmt.Sprintf("malformed reference %s(%d)", rec.TxID, rec.OutputIndex), err)
		}

		state, err := c.Decode(rec.Payload)
		if err != nil {
			return nil, nil, vaulterrors.NewDeserializationError(
				fmt.Sprintf("decode %s state %s", rec.ContractType, ref), err)
		}
		if state.Notary == "" {
			state.Notary = rec.NotaryName
		}

		states = append(states, types.StateAndRef[T]{State: state, Ref: ref})
		metadata = append(metadata, types.StateMetadata{
			Ref:            ref,
			ContractType:   rec.ContractType,
			RecordedTime:   rec.RecordedTime,
			ConsumedTime:   rec.ConsumedTime,
			Status:         rec.Status,
			NotaryName:     rec.NotaryName,
			NotaryKey:      rec.NotaryKey,
			LockID:         rec.LockID,
			LockUpdateTime: rec.LockUpdateTime,
		})
	}
	return states, metadata, nil
}
