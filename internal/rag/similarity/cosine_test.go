package similarity

import (
	"math"
	"testing"

	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitAt returns a 2-d unit vector whose cosine with (1,0) is s.
func unitAt(s float64) []float32 {
	return []float32{float32(s), float32(math.Sqrt(1 - s*s))}
}

func chunk(content string, vector []float32) commonModels.Chunk {
	return commonModels.Chunk{
		Content:  content,
		Vector:   vector,
		Metadata: commonModels.ChunkMetadata{Source: "doc-1", Page: 1},
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 2}, 0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineExactZeroCases(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{0, 0, 0}, []float32{1, 2, 3}))
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 2}))
}

func TestCosineSymmetric(t *testing.T) {
	a := []float32{0.3, -1.2, 4.5, 0.01}
	b := []float32{2.2, 0.7, -0.4, 9.9}
	assert.Equal(t, Cosine(a, b), Cosine(b, a))
}

func TestCosineSelfSimilarity(t *testing.T) {
	a := []float32{0.123, 4.56, -7.89, 0.0001, 1e3}
	assert.InDelta(t, 1.0, Cosine(a, a), 1e-9)
}

func TestRankThresholdAndOrder(t *testing.T) {
	query := []float32{1, 0}
	candidates := []commonModels.Chunk{
		chunk("high", unitAt(0.91)),
		chunk("mid", unitAt(0.72)),
		chunk("low", unitAt(0.40)),
	}

	results, mismatched := Rank(query, candidates, 0.7, 3)

	require.Len(t, results, 2)
	assert.Zero(t, mismatched)
	assert.Equal(t, "high", results[0].Content)
	assert.Equal(t, "mid", results[1].Content)
	assert.InDelta(t, 0.91, results[0].Similarity, 1e-6)
	assert.InDelta(t, 0.72, results[1].Similarity, 1e-6)
	assert.Equal(t, "doc-1", results[0].Metadata.Source)
}

func TestRankThresholdIsStrict(t *testing.T) {
	results, _ := Rank([]float32{1, 0}, []commonModels.Chunk{chunk("same", []float32{1, 0})}, 1.0, 3)
	assert.Empty(t, results)

	results, _ = Rank([]float32{1, 0}, []commonModels.Chunk{chunk("orthogonal", []float32{0, 1})}, 0, 3)
	assert.Empty(t, results)
}

func TestRankTruncatesToTopK(t *testing.T) {
	query := []float32{1, 0}
	candidates := []commonModels.Chunk{
		chunk("a", unitAt(0.80)),
		chunk("b", unitAt(0.95)),
		chunk("c", unitAt(0.90)),
		chunk("d", unitAt(0.85)),
	}

	results, _ := Rank(query, candidates, 0.5, 2)

	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].Content)
	assert.Equal(t, "c", results[1].Content)
}

func TestRankTiesKeepCorpusOrder(t *testing.T) {
	query := []float32{1, 1}
	candidates := []commonModels.Chunk{
		chunk("first", []float32{2, 2}),
		chunk("weaker", []float32{1, 0}),
		chunk("second", []float32{4, 4}),
		chunk("third", []float32{1, 1}),
	}

	results, _ := Rank(query, candidates, 0.5, 10)

	require.Len(t, results, 4)
	assert.Equal(t, []string{"first", "second", "third", "weaker"}, contents(results))
}

func TestRankSkipsDimensionMismatch(t *testing.T) {
	query := []float32{1, 0}
	candidates := []commonModels.Chunk{
		chunk("corrupt", []float32{1, 0, 0}),
		chunk("good", []float32{1, 0}),
		chunk("empty", nil),
	}

	results, mismatched := Rank(query, candidates, 0.5, 3)

	assert.Equal(t, 2, mismatched)
	require.Len(t, results, 1)
	assert.Equal(t, "good", results[0].Content)
}

func TestRankEmptyAndZeroTopK(t *testing.T) {
	results, mismatched := Rank([]float32{1, 0}, nil, 0.7, 3)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Zero(t, mismatched)

	results, _ = Rank([]float32{1, 0}, []commonModels.Chunk{chunk("a", []float32{1, 0})}, 0.1, 0)
	assert.Empty(t, results)
}

func TestRankIsDeterministic(t *testing.T) {
	query := []float32{0.2, 0.5, -0.1}
	candidates := []commonModels.Chunk{
		chunk("a", []float32{0.1, 0.4, 0}),
		chunk("b", []float32{0.2, 0.5, -0.1}),
		chunk("c", []float32{-0.3, 0.1, 0.9}),
	}
	first, _ := Rank(query, candidates, -1, 3)
	second, _ := Rank(query, candidates, -1, 3)
	assert.Equal(t, first, second)
}

func contents(results []commonModels.SimilarityResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Content
	}
	return out
}
