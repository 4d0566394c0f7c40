// Package types provides the core vault data types shared by the query engine,
// the storage layer and callers.
package types

import "time"

// StoredRecord represents a single persisted row of the vault_states table.
// Records are immutable once ConsumedTime is set, except for the lock fields.
type StoredRecord struct {
	// TxID is the hex-encoded transaction hash that produced the state
	TxID string `json:"transaction_id"`

	// OutputIndex is the position of the state in the transaction outputs
	OutputIndex int `json:"output_index"`

	// ContractType is the concrete type name of the encoded state
	ContractType string `json:"contract_state_class_name"`

	// Payload is the opaque encoded transaction state
	Payload []byte `json:"contract_state"`

	// RecordedTime is when the state was recorded in the vault
	RecordedTime time.Time `json:"recorded_timestamp"`

	// ConsumedTime is when the state was consumed, nil while unconsumed
	ConsumedTime *time.Time `json:"consumed_timestamp,omitempty"`

	// Status is the lifecycle status (never StatusAll)
	Status StateStatus `json:"state_status"`

	NotaryName string `json:"notary_name"`
	NotaryKey  string `json:"notary_key"`

	// LockID identifies the soft-lock owner, nil when unlocked
	LockID *string `json:"lock_id,omitempty"`

	// LockUpdateTime is when the lock was last taken or released
	LockUpdateTime *time.Time `json:"lock_timestamp,omitempty"`
}

// Ref parses the stable reference of the record.
func (r *StoredRecord) Ref() (StateRef, error) {
	hash, err := ParseSecureHash(r.TxID)
	if err != nil {
		return StateRef{}, err
	}
	if r.OutputIndex < 0 {
		return StateRef{}, ErrInvalidOutputIndex
	}
	return StateRef{TxHash: hash, Index: r.OutputIndex}, nil
}
