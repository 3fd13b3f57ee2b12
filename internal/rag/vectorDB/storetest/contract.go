// Package storetest runs the behaviour every vectorDB.ChunkStore must share.
package storetest

import (
	"context"
	"testing"

	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/internal/rag/vectorDB"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Chunk(source string, page, order int, content string, vector ...float32) commonModels.Chunk {
	return commonModels.Chunk{
		Content:  content,
		Vector:   vector,
		Metadata: commonModels.ChunkMetadata{Source: source, Page: page},
		Order:    order,
	}
}

// RunChunkStoreContract exercises newStore with a fresh, empty store per subtest.
func RunChunkStoreContract(t *testing.T, newStore func(t *testing.T) vectorDB.ChunkStore) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		store := newStore(t)
		all, err := store.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("insert keeps order and fields", func(t *testing.T) {
		store := newStore(t)
		n, err := store.InsertMany(ctx, []commonModels.Chunk{
			Chunk("doc-a", 1, 0, "alpha", 1, 0),
			Chunk("doc-a", 2, 1, "beta", 0, 1),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = store.InsertMany(ctx, []commonModels.Chunk{Chunk("doc-b", 0, 0, "gamma", 0.5, 0.5)})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		all, err := store.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"alpha", "beta", "gamma"}, contents(all))
		assert.Equal(t, commonModels.ChunkMetadata{Source: "doc-a", Page: 2}, all[1].Metadata)
		assert.Equal(t, []float32{0, 1}, all[1].Vector)
		assert.Equal(t, 1, all[1].Order)
	})

	t.Run("insert nothing", func(t *testing.T) {
		store := newStore(t)
		n, err := store.InsertMany(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("delete by document id", func(t *testing.T) {
		store := newStore(t)
		_, err := store.InsertMany(ctx, []commonModels.Chunk{
			Chunk("doc-a", 1, 0, "alpha", 1, 0),
			Chunk("doc-b", 1, 0, "beta", 0, 1),
			Chunk("doc-a", 2, 1, "gamma", 1, 1),
		})
		require.NoError(t, err)

		removed, err := store.DeleteByDocumentId(ctx, "doc-a")
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		all, err := store.FindAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"beta"}, contents(all))

		removed, err = store.DeleteByDocumentId(ctx, "doc-a")
		require.NoError(t, err)
		assert.Zero(t, removed)

		removed, err = store.DeleteByDocumentId(ctx, "missing")
		require.NoError(t, err)
		assert.Zero(t, removed)
	})
}

func contents(chunks []commonModels.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}
