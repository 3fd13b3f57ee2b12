package bootstrap

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/data/store"
	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/internal/rag/embedding"
	"github.com/Kar2410/FLOW-FIX/internal/rag/llm"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keywordEmbedder struct{}

// GetEmbedding puts texts mentioning "timeout" on one axis and the rest on the other.
func (keywordEmbedder) GetEmbedding(_ context.Context, text string) ([]float32, error) {
	if strings.Contains(strings.ToLower(text), "timeout") {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}

func (e keywordEmbedder) BatchEmbedding(ctx context.Context, chunks []string, _ bool) ([][]float32, error) {
	out := make([][]float32, len(chunks))
	for i, c := range chunks {
		out[i], _ = e.GetEmbedding(ctx, c)
	}
	return out, nil
}

type noopLLM struct{}

func (noopLLM) Generate(context.Context, string, []string, []string) (string, error) {
	return "answer", nil
}

func testBuilders() Builders {
	return Builders{
		Embedder: func(context.Context, config.EmbeddingSettings) (embedding.Embedder, error) { return keywordEmbedder{}, nil },
		LLM:      func(context.Context, config.LLMSettings) (llm.Provider, error) { return noopLLM{}, nil },
	}
}

func testSettings(redisAddr string) config.Settings {
	s := config.Default()
	s.Redis.Addr = redisAddr
	s.Chunking = config.ChunkingSettings{ChunkSize: 100, ChunkOverlap: 0}
	s.Embedding.Dimensions = 2
	s.Search.SimilarityThreshold = 0.5
	return s
}

func TestNew_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	app, err := NewWithBuilders(ctx, testSettings(mr.Addr()), Options{WithAnalysis: true}, testBuilders())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(ctx) })

	require.NotNil(t, app.Jobs)
	assert.IsType(t, &store.RedisJobStore{}, app.Jobs.JobStore)
	assert.IsType(t, &store.RedisMessageStore{}, app.Jobs.MessageStore)

	doc, err := app.Pipeline.RegisterDocument(ctx, "runbook.txt")
	require.NoError(t, err)
	_, found, err := app.Pipeline.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestNew_FallsBackWhenRedisIsOffline(t *testing.T) {
	ctx := context.Background()

	app, err := NewWithBuilders(ctx, testSettings("127.0.0.1:1"), Options{WithAnalysis: true}, testBuilders())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(ctx) })

	assert.IsType(t, &store.InMemoryJobStore{}, app.Jobs.JobStore)
	assert.IsType(t, &store.InMemoryMessageStore{}, app.Jobs.MessageStore)

	_, err = app.Pipeline.RegisterDocument(ctx, "runbook.txt")
	assert.NoError(t, err)
}

func TestNew_SearchOnlyHasNoJobs(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	app, err := NewWithBuilders(ctx, testSettings(mr.Addr()), Options{}, testBuilders())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(ctx) })

	assert.Nil(t, app.Jobs)

	n, err := app.Engine.IngestText(ctx, "doc-1", []commonModels.Page{
		{Number: 1, Content: "Gateway timeout when calling the billing service."},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := app.Pipeline.Search(ctx, "upstream timeout", 0.5, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-1", results[0].Metadata.Source)

	results, err = app.Pipeline.Search(ctx, "disk full", 0.5, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNew_SQLiteBackendIsClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	s := testSettings(mr.Addr())
	s.Store.Backend = config.BackendSQLite
	s.Store.SQLite.Path = ":memory:"

	app, err := NewWithBuilders(ctx, s, Options{}, testBuilders())
	require.NoError(t, err)

	// sqlite and the document registry connection
	assert.Len(t, app.closers, 2)
	assert.NoError(t, app.Close(ctx))
	assert.Empty(t, app.closers)
}

func TestNew_RedisChunkStore(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	s := testSettings(mr.Addr())
	s.Store.Backend = config.BackendRedis

	app, err := NewWithBuilders(ctx, s, Options{}, testBuilders())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(ctx) })

	n, err := app.Engine.IngestText(ctx, "doc-2", []commonModels.Page{{Number: 1, Content: "request timeout"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNew_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("embedding provider", func(t *testing.T) {
		b := testBuilders()
		b.Embedder = func(context.Context, config.EmbeddingSettings) (embedding.Embedder, error) {
			return nil, errors.New("azure api key is required")
		}
		_, err := NewWithBuilders(ctx, testSettings("127.0.0.1:1"), Options{}, b)
		assert.ErrorContains(t, err, "embedding provider")
	})

	t.Run("unknown backend", func(t *testing.T) {
		s := testSettings("127.0.0.1:1")
		s.Store.Backend = "cassandra"
		_, err := NewWithBuilders(ctx, s, Options{}, testBuilders())
		assert.ErrorContains(t, err, "unknown store backend")
	})

	t.Run("llm provider", func(t *testing.T) {
		mr := miniredis.RunT(t)
		b := testBuilders()
		b.LLM = func(context.Context, config.LLMSettings) (llm.Provider, error) { return nil, errors.New("no key") }
		_, err := NewWithBuilders(ctx, testSettings(mr.Addr()), Options{WithAnalysis: true}, b)
		assert.ErrorContains(t, err, "llm provider")
	})
}

func TestProviderFactories(t *testing.T) {
	ctx := context.Background()

	_, err := NewEmbedder(ctx, config.EmbeddingSettings{Provider: "other"})
	assert.Error(t, err)
	_, err = NewLLM(ctx, config.LLMSettings{Provider: "other"})
	assert.Error(t, err)

	e, err := NewEmbedder(ctx, config.EmbeddingSettings{
		Provider: config.ProviderAzure,
		Azure:    config.ProviderConfig{APIKey: "k", Endpoint: "https://example.openai.azure.com", DeploymentName: "emb", APIVersion: "2024-02-15-preview"},
	})
	require.NoError(t, err)
	assert.NotNil(t, e)

	p, err := NewLLM(ctx, config.LLMSettings{
		Provider: config.ProviderAzure,
		Azure:    config.ProviderConfig{APIKey: "k", Endpoint: "https://example.openai.azure.com", DeploymentName: "chat"},
	})
	require.NoError(t, err)
	assert.NotNil(t, p)

	_, err = NewEmbedder(ctx, config.EmbeddingSettings{Provider: config.ProviderGoogle})
	assert.Error(t, err)
}
