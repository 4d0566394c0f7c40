package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SecureHashSize is the size in bytes of a transaction hash.
const SecureHashSize = sha256.Size

// SecureHash is a SHA-256 transaction identifier.
type SecureHash [SecureHashSize]byte

// ParseSecureHash parses a 64 character hex string. Both cases are accepted.
func ParseSecureHash(s string) (SecureHash, error) {
	var h SecureHash
	if len(s) != SecureHashSize*2 {
		return h, fmt.Errorf("%w: %q has length %d", ErrInvalidSecureHash, s, len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, fmt.Errorf("%w: %v", ErrInvalidSecureHash, err)
	}
	return h, nil
}

// SHA256 hashes data into a SecureHash.
func SHA256(data []byte) SecureHash {
	return SecureHash(sha256.Sum256(data))
}

// String returns the upper-case hex form used in storage.
func (h SecureHash) String() string {
	return strings.ToUpper(hex.EncodeToString(h[:]))
}

// MarshalText implements encoding.TextMarshaler.
func (h SecureHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *SecureHash) UnmarshalText(text []byte) error {
	parsed, err := ParseSecureHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// StateRef identifies a state by the transaction that produced it and its output index.
type StateRef struct {
	TxHash SecureHash `json:"txhash"`
	Index  int        `json:"index"`
}

// String returns the HASH(index) form.
func (r StateRef) String() string {
	return fmt.Sprintf("%s(%d)", r.TxHash, r.Index)
}

// ParseStateRef parses the HASH(index) form produced by String.
func ParseStateRef(s string) (StateRef, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return StateRef{}, fmt.Errorf("%w: %q", ErrInvalidStateRef, s)
	}
	hash, err := ParseSecureHash(s[:open])
	if err != nil {
		return StateRef{}, err
	}
	index, err := strconv.Atoi(s[open+1 : len(s)-1])
	if err != nil {
		return StateRef{}, fmt.Errorf("%w: %q", ErrInvalidStateRef, s)
	}
	if index < 0 {
		return StateRef{}, ErrInvalidOutputIndex
	}
	return StateRef{TxHash: hash, Index: index}, nil
}

// StateStatus is the lifecycle status of a vault state.
type StateStatus int

const (
	StatusUnconsumed StateStatus = iota
	StatusConsumed
	// StatusAll matches both statuses in queries and is never stored.
	StatusAll
)

// String returns the status name.
func (s StateStatus) String() string {
	switch s {
	case StatusUnconsumed:
		return "UNCONSUMED"
	case StatusConsumed:
		return "CONSUMED"
	case StatusAll:
		return "ALL"
	default:
		return fmt.Sprintf("StateStatus(%d)", int(s))
	}
}

// ParseStateStatus parses a status name, case-insensitively.
func ParseStateStatus(s string) (StateStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UNCONSUMED":
		return StatusUnconsumed, nil
	case "CONSUMED":
		return StatusConsumed, nil
	case "ALL":
		return StatusAll, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidStateStatus, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s StateStatus) MarshalText() ([]byte, error) {
	if s < StatusUnconsumed || s > StatusAll {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStateStatus, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *StateStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseStateStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// TransactionState wraps a decoded state together with its notary.
type TransactionState[T any] struct {
	Data        T      `json:"data"`
	Notary      string `json:"notary"`
	Encumbrance *int   `json:"encumbrance,omitempty"`
}

// StateAndRef pairs a decoded state with its reference.
type StateAndRef[T any] struct {
	State TransactionState[T] `json:"state"`
	Ref   StateRef            `json:"ref"`
}

// StateMetadata carries the vault bookkeeping for one state.
type StateMetadata struct {
	Ref            StateRef    `json:"ref"`
	ContractType   string      `json:"contract_state_class_name"`
	RecordedTime   time.Time   `json:"recorded_time"`
	ConsumedTime   *time.Time  `json:"consumed_time,omitempty"`
	Status         StateStatus `json:"status"`
	NotaryName     string      `json:"notary_name"`
	NotaryKey      string      `json:"notary_key"`
	LockID         *string     `json:"lock_id,omitempty"`
	LockUpdateTime *time.Time  `json:"lock_update_time,omitempty"`
}

// Page is one page of query results. States and Metadata are index aligned.
type Page[T any] struct {
	States   []StateAndRef[T]  `json:"states"`
	Metadata []StateMetadata   `json:"states_metadata"`
	Paging   PageSpecification `json:"paging"`

	// TotalStatesAvailable counts every state matching the filter, not just this page
	TotalStatesAvailable int64 `json:"total_states_available"`
}
