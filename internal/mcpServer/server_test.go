package mcpServer

import (
	"context"
	"errors"
	"testing"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/internal/domain/searchErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSearcher struct {
	results       []commonModels.SimilarityResult
	err           error
	lastThreshold float64
	lastTopK      int
}

func (m *mockSearcher) Search(_ context.Context, _ string, threshold float64, topK int) ([]commonModels.SimilarityResult, error) {
	m.lastThreshold, m.lastTopK = threshold, topK
	return m.results, m.err
}

func (m *mockSearcher) Defaults() config.SearchSettings {
	return config.SearchSettings{SimilarityThreshold: 0.7, TopK: 3}
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(nil)
	assert.ErrorIs(t, err, ErrMissingSearcher)

	s, err := NewServer(&mockSearcher{})
	require.NoError(t, err)
	assert.NotNil(t, s.Handler())
}

func TestHandleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns results with defaults", func(t *testing.T) {
		m := &mockSearcher{results: []commonModels.SimilarityResult{
			{Content: "raise ulimit", Similarity: 0.91, Metadata: commonModels.ChunkMetadata{Source: "doc-1", Page: 2}},
		}}
		s, err := NewServer(m)
		require.NoError(t, err)

		_, out, err := s.handleSearch(ctx, nil, SearchInput{Query: "too many open files"})

		require.NoError(t, err)
		assert.Equal(t, 1, out.Count)
		assert.Equal(t, "doc-1", out.Results[0].Metadata.Source)
		assert.Equal(t, 0.7, m.lastThreshold)
		assert.Equal(t, 3, m.lastTopK)
	})

	t.Run("explicit threshold and top k", func(t *testing.T) {
		m := &mockSearcher{}
		s, _ := NewServer(m)
		zero := 0.0

		_, out, err := s.handleSearch(ctx, nil, SearchInput{Query: "q", TopK: 10, Threshold: &zero})

		require.NoError(t, err)
		assert.Zero(t, out.Count)
		assert.Equal(t, 0.0, m.lastThreshold)
		assert.Equal(t, 10, m.lastTopK)
	})

	t.Run("propagates failures", func(t *testing.T) {
		m := &mockSearcher{err: searchErrors.New(searchErrors.ErrStoreUnavailable, "search", "down")}
		s, _ := NewServer(m)

		_, _, err := s.handleSearch(ctx, nil, SearchInput{Query: "q"})

		assert.True(t, errors.Is(err, searchErrors.ErrStoreUnavailable))
	})
}
