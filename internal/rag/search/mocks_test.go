package search_test

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/internal/rag/vectorDB/memoryDB"
)

// mockEmbedder maps text to a fixed vector; unknown text gets fallback.
type mockEmbedder struct {
	vectors          map[string][]float32
	fallback         []float32
	OnGetEmbedding   func(ctx context.Context, text string) ([]float32, error)
	OnBatchEmbedding func(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error)
	calls            atomic.Int32
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, text)
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return m.fallback, nil
}

func (m *mockEmbedder) BatchEmbedding(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error) {
	m.calls.Add(1)
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, chunks, isHuge)
	}
	out := make([][]float32, len(chunks))
	for i, c := range chunks {
		out[i], _ = m.GetEmbedding(ctx, c)
	}
	return out, nil
}

// mockStore delegates to an in-memory store unless an On* hook is set.
type mockStore struct {
	inner                *memoryDB.Store
	OnFindAll            func(ctx context.Context) ([]commonModels.Chunk, error)
	OnInsertMany         func(ctx context.Context, chunks []commonModels.Chunk) (int, error)
	OnDeleteByDocumentId func(ctx context.Context, id string) (int, error)

	mu          sync.Mutex
	insertCalls int
	findCalls   int
}

func newMockStore() *mockStore {
	return &mockStore{inner: memoryDB.NewStore()}
}

func (m *mockStore) InsertMany(ctx context.Context, chunks []commonModels.Chunk) (int, error) {
	m.mu.Lock()
	m.insertCalls++
	m.mu.Unlock()
	if m.OnInsertMany != nil {
		return m.OnInsertMany(ctx, chunks)
	}
	return m.inner.InsertMany(ctx, chunks)
}

func (m *mockStore) FindAll(ctx context.Context) ([]commonModels.Chunk, error) {
	m.mu.Lock()
	m.findCalls++
	m.mu.Unlock()
	if m.OnFindAll != nil {
		return m.OnFindAll(ctx)
	}
	return m.inner.FindAll(ctx)
}

func (m *mockStore) DeleteByDocumentId(ctx context.Context, id string) (int, error) {
	if m.OnDeleteByDocumentId != nil {
		return m.OnDeleteByDocumentId(ctx, id)
	}
	return m.inner.DeleteByDocumentId(ctx, id)
}

// nativeStore adds a vector index capability on top of mockStore.
type nativeStore struct {
	*mockStore
	lastLimit int
	native    []commonModels.Chunk
}

func (n *nativeStore) SearchCandidates(_ context.Context, _ []float32, limit int) ([]commonModels.Chunk, error) {
	n.lastLimit = limit
	return n.native, nil
}

// unitAt returns a 2-d unit vector whose cosine with (1,0) is s.
func unitAt(s float64) []float32 {
	return []float32{float32(s), float32(math.Sqrt(1 - s*s))}
}
