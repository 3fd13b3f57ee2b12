// Package search ranks stored document chunks against a query by cosine similarity.
//
// The engine is stateless between calls: the chunk store owns all state. Every
// failure carries one of the searchErrors kinds, and an empty result is never an error.
package search

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/internal/domain/searchErrors"
	"github.com/Kar2410/FLOW-FIX/internal/metrics"
	"github.com/Kar2410/FLOW-FIX/internal/rag/chunking"
	"github.com/Kar2410/FLOW-FIX/internal/rag/embedding"
	"github.com/Kar2410/FLOW-FIX/internal/rag/similarity"
	"github.com/Kar2410/FLOW-FIX/internal/rag/vectorDB"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Chunking chunking.Policy
	// Dimension, when positive, is enforced on every ingested vector.
	Dimension int
	// EmbedBatchSize and EmbedConcurrency bound IngestText's provider calls.
	EmbedBatchSize   int
	EmbedConcurrency int
	// UseNativeSearch lets a store implementing vectorDB.NativeSearcher pre-filter
	// candidates; CandidateMultiplier*topK candidates are requested.
	UseNativeSearch     bool
	CandidateMultiplier int
}

func DefaultOptions() Options {
	return Options{
		Chunking:            chunking.Policy{ChunkSize: 1000, ChunkOverlap: 200},
		EmbedBatchSize:      config.EmbeddingBatchSize,
		EmbedConcurrency:    config.EmbeddingConcurrency,
		CandidateMultiplier: 4,
	}
}

// OptionsFromSettings maps configuration onto engine options.
func OptionsFromSettings(s config.Settings) Options {
	return Options{
		Chunking:            chunking.Policy{ChunkSize: s.Chunking.ChunkSize, ChunkOverlap: s.Chunking.ChunkOverlap},
		Dimension:           s.Embedding.Dimensions,
		EmbedBatchSize:      s.Embedding.BatchSize,
		EmbedConcurrency:    s.Embedding.Concurrency,
		UseNativeSearch:     s.Search.UseNativeSearch,
		CandidateMultiplier: s.Search.CandidateMultiplier,
	}
}

// ChunkInput is one pre-embedded chunk handed to Ingest.
type ChunkInput struct {
	Content string
	Vector  []float32
	Page    int
}

// Stats describes one search call.
type Stats struct {
	Candidates int
	Mismatched int
	Native     bool
}

type Engine struct {
	store    vectorDB.ChunkStore
	embedder embedding.Embedder
	opts     Options
	logger   *logger_i.Logger
}

func NewEngine(store vectorDB.ChunkStore, embedder embedding.Embedder, opts Options) (*Engine, error) {
	if store == nil || embedder == nil {
		return nil, searchErrors.New(searchErrors.ErrInvalidParameter, "newEngine", "store and embedder are required")
	}
	if err := opts.Chunking.Validate(); err != nil {
		return nil, err
	}
	if opts.Dimension < 0 {
		return nil, searchErrors.New(searchErrors.ErrInvalidParameter, "newEngine", "dimension must not be negative, got %d", opts.Dimension)
	}
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = config.EmbeddingBatchSize
	}
	if opts.EmbedConcurrency <= 0 {
		opts.EmbedConcurrency = 1
	}
	if opts.CandidateMultiplier <= 0 {
		opts.CandidateMultiplier = 1
	}
	return &Engine{
		store:    store,
		embedder: embedder,
		opts:     opts,
		logger:   logger_i.NewLogger("search_engine"),
	}, nil
}

// Embed returns the query vector for text.
func (e *Engine) Embed(ctx context.Context, text string) ([]float32, error) {
	const op = "embed"
	if err := searchErrors.FromContext(ctx, op); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, searchErrors.New(searchErrors.ErrInvalidParameter, op, "query is empty")
	}
	start := time.Now()
	vector, err := e.embedder.GetEmbedding(ctx, text)
	metrics.CaptureExecutionMetrics("embedding", time.Since(start))
	if err != nil {
		return nil, searchErrors.Wrap(searchErrors.ErrEmbedding, op, err)
	}
	if len(vector) == 0 {
		return nil, searchErrors.New(searchErrors.ErrEmbedding, op, "provider returned an empty vector")
	}
	return vector, nil
}

// Search embeds query and returns at most topK chunks with similarity strictly
// above threshold, best first.
func (e *Engine) Search(ctx context.Context, query string, threshold float64, topK int) ([]commonModels.SimilarityResult, error) {
	results, _, err := e.SearchWithStats(ctx, query, threshold, topK)
	return results, err
}

func (e *Engine) SearchWithStats(ctx context.Context, query string, threshold float64, topK int) ([]commonModels.SimilarityResult, Stats, error) {
	if err := validateSearch(threshold, topK); err != nil {
		return nil, Stats{}, err
	}
	if topK == 0 {
		return []commonModels.SimilarityResult{}, Stats{}, nil
	}
	vector, err := e.Embed(ctx, query)
	if err != nil {
		e.recordOutcome(err, 0)
		return nil, Stats{}, err
	}
	return e.SearchVector(ctx, vector, threshold, topK)
}

// SearchVector ranks stored chunks against an already embedded query.
func (e *Engine) SearchVector(ctx context.Context, vector []float32, threshold float64, topK int) ([]commonModels.SimilarityResult, Stats, error) {
	const op = "search"
	log := e.logger.With("traceId", config.TraceId(ctx))
	if err := validateSearch(threshold, topK); err != nil {
		return nil, Stats{}, err
	}
	if len(vector) == 0 {
		return nil, Stats{}, searchErrors.New(searchErrors.ErrInvalidParameter, op, "query vector is empty")
	}
	if topK == 0 {
		return []commonModels.SimilarityResult{}, Stats{}, nil
	}

	candidates, native, err := e.candidates(ctx, vector, topK)
	if err != nil {
		err = searchErrors.Wrap(searchErrors.ErrStoreUnavailable, op, err)
		e.recordOutcome(err, 0)
		log.Error("Chunk retrieval failed", "error", err)
		return nil, Stats{}, err
	}
	if err := searchErrors.FromContext(ctx, op); err != nil {
		e.recordOutcome(err, 0)
		return nil, Stats{}, err
	}

	results, mismatched := similarity.Rank(vector, candidates, threshold, topK)
	stats := Stats{Candidates: len(candidates), Mismatched: mismatched, Native: native}
	if mismatched > 0 {
		metrics.CaptureDimensionMismatch(mismatched)
		log.Warn("Skipped chunks with mismatched dimension", "count", mismatched, "queryDimension", len(vector))
	}
	e.recordOutcome(nil, len(results))
	log.Debug("Search complete", "candidates", stats.Candidates, "results", len(results), "native", native)
	return results, stats, nil
}

func (e *Engine) candidates(ctx context.Context, vector []float32, topK int) ([]commonModels.Chunk, bool, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("chunk_store", time.Since(start)) }()

	if native, ok := e.store.(vectorDB.NativeSearcher); ok && e.opts.UseNativeSearch {
		chunks, err := native.SearchCandidates(ctx, vector, candidateLimit(topK, e.opts.CandidateMultiplier))
		return chunks, true, err
	}
	chunks, err := e.store.FindAll(ctx)
	return chunks, false, err
}

// candidateLimit is topK*multiplier, saturated at math.MaxInt.
func candidateLimit(topK, multiplier int) int {
	if topK > math.MaxInt/multiplier {
		return math.MaxInt
	}
	return topK * multiplier
}

func validateSearch(threshold float64, topK int) error {
	if math.IsNaN(threshold) {
		return searchErrors.New(searchErrors.ErrInvalidParameter, "search", "threshold is NaN")
	}
	if topK < 0 {
		return searchErrors.New(searchErrors.ErrInvalidParameter, "search", "topK must not be negative, got %d", topK)
	}
	return nil
}

func (e *Engine) recordOutcome(err error, results int) {
	switch {
	case err != nil:
		outcome := "error"
		if kind := searchErrors.KindOf(err); kind != nil {
			outcome = strings.ReplaceAll(kind.Error(), " ", "_")
		}
		metrics.CaptureSearchOutcome(outcome)
	case results == 0:
		metrics.CaptureSearchOutcome("empty")
	default:
		metrics.CaptureSearchOutcome("hit")
	}
}

// Ingest stores pre-embedded chunks tagged with documentId in one batch.
// Nothing is written when any chunk is invalid.
func (e *Engine) Ingest(ctx context.Context, documentId string, inputs []ChunkInput) (int, error) {
	const op = "ingest"
	if err := searchErrors.FromContext(ctx, op); err != nil {
		return 0, err
	}
	if strings.TrimSpace(documentId) == "" {
		return 0, searchErrors.New(searchErrors.ErrInvalidParameter, op, "documentId is empty")
	}
	if len(inputs) == 0 {
		return 0, nil
	}

	dim := e.opts.Dimension
	if dim == 0 {
		dim = len(inputs[0].Vector)
	}
	chunks := make([]commonModels.Chunk, len(inputs))
	for i, in := range inputs {
		switch {
		case strings.TrimSpace(in.Content) == "":
			return 0, searchErrors.New(searchErrors.ErrInvalidParameter, op, "chunk %d has no content", i)
		case len(in.Vector) == 0:
			return 0, searchErrors.New(searchErrors.ErrInvalidParameter, op, "chunk %d has no vector", i)
		case len(in.Vector) != dim:
			return 0, searchErrors.New(searchErrors.ErrDimensionMismatch, op, "chunk %d has %d dimensions, expected %d", i, len(in.Vector), dim)
		case in.Page < 0:
			return 0, searchErrors.New(searchErrors.ErrInvalidParameter, op, "chunk %d has negative page %d", i, in.Page)
		}
		chunks[i] = commonModels.Chunk{
			Content:  in.Content,
			Vector:   in.Vector,
			Metadata: commonModels.ChunkMetadata{Source: documentId, Page: in.Page},
			Order:    i,
		}
	}

	start := time.Now()
	n, err := e.store.InsertMany(ctx, chunks)
	metrics.CaptureExecutionMetrics("chunk_store", time.Since(start))
	if err != nil {
		return 0, searchErrors.Wrap(searchErrors.ErrStoreUnavailable, op, err)
	}
	if n != len(chunks) {
		return n, searchErrors.New(searchErrors.ErrStoreUnavailable, op, "store wrote %d of %d chunks", n, len(chunks))
	}
	metrics.CaptureIngestedChunks(n)
	e.logger.With("traceId", config.TraceId(ctx)).Info("Ingested document", "documentId", documentId, "chunks", n)
	return n, nil
}

type pendingChunk struct {
	content string
	page    int
}

// IngestText chunks every page, embeds all chunks, and only then writes them.
// An embedding failure aborts before anything reaches the store.
func (e *Engine) IngestText(ctx context.Context, documentId string, pages []commonModels.Page) (int, error) {
	const op = "ingestText"
	if strings.TrimSpace(documentId) == "" {
		return 0, searchErrors.New(searchErrors.ErrInvalidParameter, op, "documentId is empty")
	}

	var pending []pendingChunk
	for _, page := range pages {
		chunks, err := e.opts.Chunking.Split(page.Content)
		if err != nil {
			return 0, err
		}
		for c := range chunks {
			pending = append(pending, pendingChunk{content: c, page: page.Number})
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	vectors, err := e.embedAll(ctx, pending)
	if err != nil {
		return 0, err
	}

	inputs := make([]ChunkInput, len(pending))
	for i, p := range pending {
		inputs[i] = ChunkInput{Content: p.content, Vector: vectors[i], Page: p.page}
	}
	return e.Ingest(ctx, documentId, inputs)
}

func (e *Engine) embedAll(ctx context.Context, pending []pendingChunk) ([][]float32, error) {
	const op = "embedChunks"
	vectors := make([][]float32, len(pending))
	huge := len(pending) > embedding.HugeDataSetThreshold

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.EmbedConcurrency)
	for start := 0; start < len(pending); start += e.opts.EmbedBatchSize {
		end := min(start+e.opts.EmbedBatchSize, len(pending))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, p := range pending[start:end] {
				texts = append(texts, p.content)
			}
			t := time.Now()
			batch, err := e.embedder.BatchEmbedding(gctx, texts, huge)
			metrics.CaptureExecutionMetrics("embedding", time.Since(t))
			if err != nil {
				return searchErrors.Wrap(searchErrors.ErrEmbedding, op, fmt.Errorf("chunks %d-%d: %w", start, end-1, err))
			}
			if len(batch) != len(texts) {
				return searchErrors.New(searchErrors.ErrEmbedding, op, "chunks %d-%d: provider returned %d vectors", start, end-1, len(batch))
			}
			for i, v := range batch {
				if len(v) == 0 {
					return searchErrors.New(searchErrors.ErrEmbedding, op, "chunk %d: provider returned an empty vector", start+i)
				}
				vectors[start+i] = v
			}
			return nil
		})
	}
	// Wait reports the first failure; later ones are siblings seeing gctx cancelled.
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// DeleteDocument removes every chunk of documentId and returns how many were removed.
func (e *Engine) DeleteDocument(ctx context.Context, documentId string) (int, error) {
	const op = "deleteDocument"
	if err := searchErrors.FromContext(ctx, op); err != nil {
		return 0, err
	}
	if strings.TrimSpace(documentId) == "" {
		return 0, searchErrors.New(searchErrors.ErrInvalidParameter, op, "documentId is empty")
	}
	n, err := e.store.DeleteByDocumentId(ctx, documentId)
	if err != nil {
		return 0, searchErrors.Wrap(searchErrors.ErrStoreUnavailable, op, err)
	}
	e.logger.With("traceId", config.TraceId(ctx)).Info("Deleted document chunks", "documentId", documentId, "removed", n)
	return n, nil
}
