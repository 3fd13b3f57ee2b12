package memoryDB

import (
	"context"
	"slices"
	"sync"

	"github.com/Kar2410/FLOW-FIX/internal/rag/similarity"
)

type cachedAnswer struct {
	id     string
	vector []float32
	answer string
}

// AnswerCache is a bounded semantic cache of previous solutions. The oldest
// entry is evicted once maxEntries is reached.
type AnswerCache struct {
	mu         sync.RWMutex
	entries    []cachedAnswer
	cutoff     float64
	maxEntries int
}

func NewAnswerCache(cutoff float64, maxEntries int) *AnswerCache {
	return &AnswerCache{cutoff: cutoff, maxEntries: max(maxEntries, 1)}
}

func (c *AnswerCache) GetCachedAnswer(ctx context.Context, queryVector []float32) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	best, bestScore := -1, 0.0
	for i, e := range c.entries {
		if score := similarity.Cosine(queryVector, e.vector); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < c.cutoff {
		return "", false, nil
	}
	return c.entries[best].answer, true, nil
}

func (c *AnswerCache) SaveToCache(ctx context.Context, id string, vector []float32, answer string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry := cachedAnswer{id: id, vector: slices.Clone(vector), answer: answer}

	c.mu.Lock()
	defer c.mu.Unlock()
	if i := slices.IndexFunc(c.entries, func(e cachedAnswer) bool { return e.id == id }); i >= 0 {
		c.entries[i] = entry
		return nil
	}
	if len(c.entries) >= c.maxEntries {
		c.entries = slices.Delete(c.entries, 0, 1)
	}
	c.entries = append(c.entries, entry)
	return nil
}
