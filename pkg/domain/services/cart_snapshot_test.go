package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/requisition/pkg/domain/entities"
)

func TestCartSnapshotCodec_RoundTrip(t *testing.T) {
	codec, err := NewCartSnapshotCodec()
	require.NoError(t, err)

	cart := entities.Cart{}.
		AddItem(entities.Variant{ID: 1, Name: "Kertas A4", UnitOfMeasure: "rim"}, 2).
		AddItem(entities.Variant{ID: 7, Name: "Pulpen", VariantName: "Biru", UnitOfMeasure: "pcs"}, 12)

	data, err := codec.Encode(cart)
	require.NoError(t, err)

	decoded, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, cart, decoded)
}

func TestCartSnapshotCodec_EncodeEmpty(t *testing.T) {
	codec, err := NewCartSnapshotCodec()
	require.NoError(t, err)

	data, err := codec.Encode(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestCartSnapshotCodec_RejectsCorruptValues(t *testing.T) {
	codec, err := NewCartSnapshotCodec()
	require.NoError(t, err)

	tests := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"object", `{"variant": {"id": 1}, "quantity": 2}`},
		{"string", `"shoppingCart"`},
		{"null", `null`},
		{"missing quantity", `[{"variant": {"id": 1}}]`},
		{"missing variant id", `[{"variant": {"name": "x"}, "quantity": 1}]`},
		{"fractional quantity", `[{"variant": {"id": 1}, "quantity": 1.5}]`},
		{"string id", `[{"variant": {"id": "1"}, "quantity": 1}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode([]byte(tt.data))
			assert.ErrorIs(t, err, ErrCorruptSnapshot)
		})
	}
}

func TestCartSnapshotCodec_AcceptsExtraFields(t *testing.T) {
	codec, err := NewCartSnapshotCodec()
	require.NoError(t, err)

	data := `[{"variant": {"id": 3, "name": "Map", "description": null, "type_name": "ATK"}, "quantity": 0, "note": "x"}]`
	lines, err := codec.Decode([]byte(data))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, entities.VariantID(3), lines[0].Variant.ID)
	assert.Equal(t, entities.Quantity(0), lines[0].Quantity)
}
