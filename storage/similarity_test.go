package storage

import (
	"testing"

	"github.com/poiesic/docembed/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled", []float32{2, 0}, []float32{5, 0}, 1},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestTopScored(t *testing.T) {
	scored := func(id core.PointID, score float32) *core.ScoredPoint {
		return &core.ScoredPoint{Point: &core.Point{ID: id}, Score: score}
	}
	results := []*core.ScoredPoint{
		scored(1, 0.2),
		scored(2, 0.9),
		scored(3, 0.5),
		scored(0, 0.5),
	}

	top := TopScored(results, 3)
	require.Len(t, top, 3)
	assert.Equal(t, core.PointID(2), top[0].Point.ID)
	assert.Equal(t, core.PointID(0), top[1].Point.ID, "ties break on ascending ID")
	assert.Equal(t, core.PointID(3), top[2].Point.ID)

	assert.Len(t, TopScored(results, 10), 4)
}
