package rag_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/data/store"
	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/internal/domain/jobModel"
	"github.com/Kar2410/FLOW-FIX/internal/rag"
	"github.com/Kar2410/FLOW-FIX/internal/rag/search"
	"github.com/Kar2410/FLOW-FIX/internal/rag/vectorDB/memoryDB"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	chunks    *memoryDB.Store
	documents *store.InMemoryDocumentStore
	embedder  *MockEmbedder
	cache     *MockCache
	llm       *MockLLM
	pipeline  *rag.Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		chunks:    memoryDB.NewStore(),
		documents: store.InitInMemoryDocumentStore(),
		embedder:  &MockEmbedder{},
		cache:     newMockCache(),
		llm:       &MockLLM{},
	}
	engine, err := search.NewEngine(f.chunks, f.embedder, search.DefaultOptions())
	require.NoError(t, err)
	f.pipeline = rag.NewPipeline(engine, f.cache, f.llm, f.documents, config.SearchSettings{SimilarityThreshold: 0.7, TopK: 3})
	return f
}

func (f *fixture) seed(t *testing.T, documentId string, contents ...string) {
	t.Helper()
	chunks := make([]commonModels.Chunk, len(contents))
	for i, c := range contents {
		chunks[i] = commonModels.Chunk{Content: c, Vector: []float32{1, 0}, Metadata: commonModels.ChunkMetadata{Source: documentId, Page: i + 1}, Order: i}
	}
	_, err := f.chunks.InsertMany(context.Background(), chunks)
	require.NoError(t, err)
}

func analyzeJob(message string) jobModel.Job {
	return jobModel.Job{
		Id:         "test-job",
		JobType:    jobModel.JobTypeAnalyze,
		JobPayload: jobModel.JobPayload{ErrorMessage: message},
	}
}

func traceCtx() context.Context {
	return config.WithTraceId(context.Background(), "test-trace")
}

func TestProcessRequest_FullFlowWithMatches(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "runbook", "Restart the redis container.", "Check the REDIS_ADDR variable.")
	f.llm.OnGenerate = func(_ context.Context, q string, m []string, h []string) (string, error) {
		return "final answer", nil
	}

	result := f.pipeline.ProcessRequest(traceCtx(), analyzeJob("ECONNREFUSED 127.0.0.1:6379"), []string{"Question: a\nAnswer: b"})

	assert.NotEqual(t, jobModel.JobStatusError, result.Status)
	assert.Equal(t, jobModel.Complete, result.CurrentStep)
	assert.Equal(t, "final answer", result.JobPayload.Solution)
	assert.Equal(t, []string{"Restart the redis container.", "Check the REDIS_ADDR variable."}, f.llm.lastMatch)
	assert.Equal(t, []string{"runbook#1 (1.00)", "runbook#2 (1.00)"}, result.JobPayload.Sources)
	require.Len(t, result.JobPayload.Matches, 2)

	select {
	case <-f.cache.done:
	case <-time.After(2 * time.Second):
		t.Fatal("answer was not saved to the cache")
	}
	f.cache.mu.Lock()
	defer f.cache.mu.Unlock()
	assert.Equal(t, []string{"final answer"}, f.cache.saved)
}

func TestProcessRequest_NoMatchesStillAsksLLM(t *testing.T) {
	f := newFixture(t)

	result := f.pipeline.ProcessRequest(traceCtx(), analyzeJob("segfault"), nil)

	assert.NotEqual(t, jobModel.JobStatusError, result.Status)
	assert.Equal(t, "mocked llm response", result.JobPayload.Solution)
	assert.Empty(t, f.llm.lastMatch)
	assert.Empty(t, result.JobPayload.Sources)
}

func TestProcessRequest_CacheHit(t *testing.T) {
	f := newFixture(t)
	f.cache.OnGetCachedAnswer = func(context.Context, []float32) (string, bool, error) {
		return "cached answer", true, nil
	}

	result := f.pipeline.ProcessRequest(traceCtx(), analyzeJob("segfault"), nil)

	assert.Equal(t, "cached answer", result.JobPayload.Solution)
	assert.True(t, result.JobPayload.FromCache)
	assert.Zero(t, f.llm.calls)
}

func TestProcessRequest_CacheFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.cache.OnGetCachedAnswer = func(context.Context, []float32) (string, bool, error) {
		return "", false, errors.New("qdrant down")
	}

	result := f.pipeline.ProcessRequest(traceCtx(), analyzeJob("segfault"), nil)

	assert.NotEqual(t, jobModel.JobStatusError, result.Status)
	assert.Equal(t, 1, f.llm.calls)
}

func TestProcessRequest_InternalOnly(t *testing.T) {
	f := newFixture(t)
	job := analyzeJob("segfault")
	job.JobPayload.InternalOnly = true

	result := f.pipeline.ProcessRequest(traceCtx(), job, nil)
	assert.Equal(t, config.NoKnowledgeBaseMatch, result.JobPayload.Solution)

	f.seed(t, "kb", "first fix", "second fix")
	result = f.pipeline.ProcessRequest(traceCtx(), job, nil)
	assert.Equal(t, "first fix\n\nsecond fix", result.JobPayload.Solution)
	assert.Zero(t, f.llm.calls)
}

func TestProcessRequest_Failures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *fixture)
		message   string
		wantCode  int
		wantRetry bool
		wantStep  jobModel.InternalStatus
	}{
		{
			name: "Embedding",
			setup: func(f *fixture) {
				f.embedder.OnGetEmbedding = func(context.Context, string) ([]float32, error) {
					return nil, errors.New("api limit")
				}
			},
			message:   "boom",
			wantCode:  http.StatusBadGateway,
			wantRetry: true,
			wantStep:  jobModel.EmbeddingAPICall,
		},
		{
			name:     "Empty_Message",
			setup:    func(*fixture) {},
			message:  "   ",
			wantCode: http.StatusBadRequest,
			wantStep: jobModel.EmbeddingAPICall,
		},
		{
			name: "LLM_Generation",
			setup: func(f *fixture) {
				f.llm.OnGenerate = func(context.Context, string, []string, []string) (string, error) {
					return "", errors.New("provider down")
				}
			},
			message:   "boom",
			wantCode:  http.StatusInternalServerError,
			wantRetry: true,
			wantStep:  jobModel.LLMCall,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			result := f.pipeline.ProcessRequest(traceCtx(), analyzeJob(tt.message), nil)

			assert.Equal(t, jobModel.JobStatusError, result.Status)
			assert.Equal(t, tt.wantCode, result.Error.Code)
			assert.Equal(t, tt.wantRetry, result.Error.Retry)
			assert.Equal(t, tt.wantStep, result.CurrentStep)
			assert.Empty(t, result.JobPayload.Solution)
		})
	}
}

func TestIngestDocument(t *testing.T) {
	f := newFixture(t)
	ctx := traceCtx()
	doc, err := f.pipeline.RegisterDocument(ctx, "runbook.txt")
	require.NoError(t, err)
	assert.Equal(t, commonModels.DocStatusProcessing, doc.Status)

	path := filepath.Join(t.TempDir(), "upload.txt")
	require.NoError(t, os.WriteFile(path, []byte("When the build fails with exit code 137 raise the memory limit."), 0o600))

	job := jobModel.Job{
		Id:      "ingest-job-1",
		JobType: jobModel.JobTypeIngest,
		JobPayload: jobModel.JobPayload{
			DocumentId:     doc.Id,
			IngestFileName: "runbook.txt",
			IngestPath:     path,
		},
	}
	result := f.pipeline.IngestDocument(ctx, job)

	assert.NotEqual(t, jobModel.JobStatusError, result.Status)
	assert.Equal(t, 1, result.JobPayload.ChunkCount)
	assert.Equal(t, 1, f.chunks.Len())

	stored, found, err := f.pipeline.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, commonModels.DocStatusReady, stored.Status)
	assert.Equal(t, 1, stored.ChunkCount)

	results, err := f.pipeline.Search(ctx, "exit code 137", 0.5, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, doc.Id, results[0].Metadata.Source)
}

func TestIngestDocument_EmbeddingFailureMarksDocument(t *testing.T) {
	f := newFixture(t)
	f.embedder.OnBatchEmbedding = func(context.Context, []string, bool) ([][]float32, error) {
		return nil, errors.New("quota exceeded")
	}
	ctx := traceCtx()
	doc, err := f.pipeline.RegisterDocument(ctx, "notes.txt")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("some knowledge"), 0o600))

	result := f.pipeline.IngestDocument(ctx, jobModel.Job{
		Id:         "ingest-job-2",
		JobPayload: jobModel.JobPayload{DocumentId: doc.Id, IngestFileName: "notes.txt", IngestPath: path},
	})

	assert.Equal(t, jobModel.JobStatusError, result.Status)
	assert.True(t, result.Error.Retry)
	assert.Zero(t, f.chunks.Len())
	stored, _, _ := f.pipeline.GetDocument(ctx, doc.Id)
	assert.Equal(t, commonModels.DocStatusError, stored.Status)
	assert.NotEmpty(t, stored.Error)
}

func TestRegisterDocumentRejectsUnsupportedType(t *testing.T) {
	f := newFixture(t)
	_, err := f.pipeline.RegisterDocument(traceCtx(), "photo.png")
	assert.Error(t, err)
	docs, _ := f.pipeline.ListDocuments(traceCtx())
	assert.Empty(t, docs)
}

func TestDeleteDocument(t *testing.T) {
	f := newFixture(t)
	ctx := traceCtx()
	doc, err := f.pipeline.RegisterDocument(ctx, "kb.pdf")
	require.NoError(t, err)
	f.seed(t, doc.Id, "one", "two")

	removed, found, err := f.pipeline.DeleteDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, removed)

	removed, found, err = f.pipeline.DeleteDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, removed)
}
