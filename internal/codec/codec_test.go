package codec

import (
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/arkilian/vaultquery/pkg/types"
)

type cash struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Owner    string `json:"owner"`
}

func TestSnappyJSONRoundTrip(t *testing.T) {
	enc := 1
	in := types.TransactionState[cash]{
		Data:        cash{Amount: 100, Currency: "GBP", Owner: "O=Alice"},
		Notary:      "O=Notary",
		Encumbrance: &enc,
	}
	payload, err := EncodeSnappyJSON(in)
	require.NoError(t, err)

	out, err := SnappyJSON[cash]{}.Decode(payload)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestSnappyJSONRejectsCorruptPayload(t *testing.T) {
	_, err := SnappyJSON[cash]{}.Decode([]byte("definitely not snappy"))
	require.ErrorIs(t, err, ErrCorruptPayload)

	// Valid snappy, invalid JSON for the target type.
	payload, err := EncodeSnappyJSON(types.TransactionState[string]{Data: "text"})
	require.NoError(t, err)
	_, err = SnappyJSON[cash]{}.Decode(payload)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrCorruptPayload)

	// Valid snappy around bytes that are not JSON at all.
	_, err = SnappyJSON[cash]{}.Decode(snappy.Encode(nil, []byte("{not json")))
	require.ErrorIs(t, err, ErrCorruptPayload)
}

func TestProtoRoundTrip(t *testing.T) {
	msg, err := structpb.NewStruct(map[string]interface{}{
		"amount":   float64(250),
		"currency": "USD",
	})
	require.NoError(t, err)

	payload, err := EncodeProto(msg)
	require.NoError(t, err)

	c := NewProto(func() *structpb.Struct { return &structpb.Struct{} })
	out, err := c.Decode(payload)
	require.NoError(t, err)
	require.Equal(t, "USD", out.Data.GetFields()["currency"].GetStringValue())
	require.Equal(t, float64(250), out.Data.GetFields()["amount"].GetNumberValue())
	require.Empty(t, out.Notary)

	var _ Codec[*structpb.Struct] = c
}

func TestProtoRejectsGarbage(t *testing.T) {
	c := NewProto(func() *structpb.Struct { return &structpb.Struct{} })

	_, err := c.Decode([]byte{0xff, 0xff})
	require.ErrorIs(t, err, ErrCorruptPayload)

	// Valid snappy around a truncated protobuf field.
	_, err = c.Decode(snappy.Encode(nil, []byte{0x0a, 0x10, 0x01}))
	require.ErrorIs(t, err, ErrCorruptPayload)
}
