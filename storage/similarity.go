package storage

import (
	"math"
	"slices"

	"github.com/poiesic/docembed/core"
)

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length or with zero magnitude score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// TopScored sorts results by score descending, breaking ties by ascending ID,
// and truncates to limit.
func TopScored(results []*core.ScoredPoint, limit int) []*core.ScoredPoint {
	slices.SortFunc(results, func(a, b *core.ScoredPoint) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		if a.Point.ID < b.Point.ID {
			return -1
		}
		if a.Point.ID > b.Point.ID {
			return 1
		}
		return 0
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
