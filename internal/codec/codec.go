// Package codec decodes the opaque contract_state payload of a vault row
// into a typed transaction state.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang/snappy"
	"google.golang.org/protobuf/proto"

	"github.com/arkilian/vaultquery/pkg/types"
)

// ErrCorruptPayload is returned when a payload cannot be decompressed or its
// bytes are not well-formed. Well-formed data of the wrong shape is reported
// as a plain decode error.
var ErrCorruptPayload = errors.New("corrupt payload")

// Codec decodes stored payloads into transaction states carrying T.
type Codec[T any] interface {
	Decode(payload []byte) (types.TransactionState[T], error)
}

// envelope is the JSON form of a transaction state.
type envelope[T any] struct {
	Data        T      `json:"data"`
	Notary      string `json:"notary,omitempty"`
	Encumbrance *int   `json:"encumbrance,omitempty"`
}

// SnappyJSON stores a state as snappy-compressed JSON.
type SnappyJSON[T any] struct{}

// Decode implements Codec.
func (SnappyJSON[T]) Decode(payload []byte) (types.TransactionState[T], error) {
	var state types.TransactionState[T]

	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return state, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}

	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		var syntax *json.SyntaxError
		if errors.As(err, &syntax) {
			return state, fmt.Errorf("%w: decode json state: %v", ErrCorruptPayload, err)
		}
		return state, fmt.Errorf("decode json state: %w", err)
	}
	state.Data = env.Data
	state.Notary = env.Notary
	state.Encumbrance = env.Encumbrance
	return state, nil
}

// EncodeSnappyJSON produces a payload readable by SnappyJSON.
func EncodeSnappyJSON[T any](state types.TransactionState[T]) ([]byte, error) {
	raw, err := json.Marshal(envelope[T]{
		Data:        state.Data,
		Notary:      state.Notary,
		Encumbrance: state.Encumbrance,
	})
	if err != nil {
		return nil, fmt.Errorf("encode json state: %w", err)
	}
	return snappy.Encode(nil, raw), nil
}

// Proto stores the state data as a snappy-compressed protobuf message. The
// notary is not part of the payload and is filled in from the vault row.
type Proto[M proto.Message] struct {
	newMessage func() M
}

// NewProto creates a protobuf codec. newMessage must return an empty message.
func NewProto[M proto.Message](newMessage func() M) Proto[M] {
	return Proto[M]{newMessage: newMessage}
}

// Decode implements Codec.
func (p Proto[M]) Decode(payload []byte) (types.TransactionState[M], error) {
	var state types.TransactionState[M]

	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return state, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}

	msg := p.newMessage()
	if err := proto.Unmarshal(raw, msg); err != nil {
		return state, fmt.Errorf("%w: decode proto state: %v", ErrCorruptPayload, err)
	}
	state.Data = msg
	return state, nil
}

// EncodeProto produces a payload readable by Proto.
func EncodeProto(msg proto.Message) ([]byte, error) {
	raw, err := proto.MarshalOptions{Deterministic: true}.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode proto state: %w", err)
	}
	return snappy.Encode(nil, raw), nil
}
