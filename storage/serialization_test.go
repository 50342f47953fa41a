package storage

import (
	"testing"

	"github.com/poiesic/docembed/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalPointID(t *testing.T) {
	tests := []struct {
		name string
		id   core.PointID
	}{
		{"zero ID", core.PointID(0)},
		{"small ID", core.PointID(42)},
		{"large ID", core.PointID(18446744073709551615)}, // max uint64
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalPointID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalPointID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalPointID_Invalid(t *testing.T) {
	_, err := UnmarshalPointID([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalCollectionParams(t *testing.T) {
	params := core.CollectionParams{VectorSize: 1536}
	decoded, err := UnmarshalCollectionParams(MarshalCollectionParams(params))
	require.NoError(t, err)
	assert.Equal(t, params, decoded)
}

func TestMarshalUnmarshalPoint(t *testing.T) {
	tests := []struct {
		name  string
		point *core.Point
	}{
		{
			name: "text only",
			point: &core.Point{
				ID:      0,
				Vector:  []float32{0.1, -0.2, 0.3},
				Payload: core.Payload{Text: "para one\n\n"},
			},
		},
		{
			name: "with extra fields",
			point: &core.Point{
				ID:     43,
				Vector: []float32{1, 0},
				Payload: core.Payload{
					Text: "```\ncode\n\n```\n",
					Extra: map[string]string{
						core.PayloadSection:     "2",
						core.PayloadContentHash: "0011223344556677",
					},
				},
			},
		},
		{
			name: "unicode text",
			point: &core.Point{
				ID:      7,
				Vector:  []float32{0.5},
				Payload: core.Payload{Text: "héllo wörld ✓\n"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalPoint(tt.point)
			decoded, err := UnmarshalPoint(data)
			require.NoError(t, err)
			assert.Equal(t, tt.point, decoded)
		})
	}
}

func TestMarshalPoint_Deterministic(t *testing.T) {
	point := &core.Point{
		ID:     1,
		Vector: []float32{0.1},
		Payload: core.Payload{
			Text:  "x",
			Extra: map[string]string{"b": "2", "a": "1", "c": "3"},
		},
	}
	assert.Equal(t, MarshalPoint(point), MarshalPoint(point))
}

func TestUnmarshalPoint_Truncated(t *testing.T) {
	point := &core.Point{
		ID:      9,
		Vector:  []float32{0.1, 0.2, 0.3, 0.4},
		Payload: core.Payload{Text: "some section text"},
	}
	data := MarshalPoint(point)

	t.Run("empty", func(t *testing.T) {
		_, err := UnmarshalPoint(nil)
		assert.Error(t, err)
	})

	t.Run("cut inside vector", func(t *testing.T) {
		_, err := UnmarshalPoint(data[:4])
		assert.ErrorIs(t, err, ErrTruncatedData)
	})

	t.Run("cut inside text", func(t *testing.T) {
		_, err := UnmarshalPoint(data[:len(data)-4])
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})
}
