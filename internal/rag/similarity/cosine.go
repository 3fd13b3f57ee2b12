package similarity

import (
	"cmp"
	"math"
	"slices"

	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
)

// Cosine returns dot(a,b)/(|a||b|) accumulated in float64 in index order.
// It is exactly 0 for empty or zero-norm vectors and for vectors of different length.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank scores candidates against query and returns at most topK results with
// similarity strictly above threshold, best first. Equal scores keep candidate order.
// Candidates whose vector length differs from the query are skipped and counted.
func Rank(query []float32, candidates []commonModels.Chunk, threshold float64, topK int) (results []commonModels.SimilarityResult, mismatched int) {
	results = []commonModels.SimilarityResult{}
	if topK <= 0 {
		return results, 0
	}
	for _, c := range candidates {
		if len(c.Vector) != len(query) {
			mismatched++
			continue
		}
		score := Cosine(query, c.Vector)
		if !(score > threshold) {
			continue
		}
		results = append(results, commonModels.SimilarityResult{
			Content:    c.Content,
			Similarity: score,
			Metadata:   c.Metadata,
		})
	}
	slices.SortStableFunc(results, func(a, b commonModels.SimilarityResult) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, mismatched
}
