package googleEmbedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/customHttpClient"
	"github.com/Kar2410/FLOW-FIX/internal/rag/embedding"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
	"google.golang.org/genai"
)

const (
	taskTypeDocument = "RETRIEVAL_DOCUMENT"
	taskTypeQuery    = "RETRIEVAL_QUERY"
)

type client struct {
	genAi        *genai.Client
	model        string
	dimension    int32
	pollInterval time.Duration
	batchTimeout time.Duration
	logger       *logger_i.Logger
}

// NewGoogleEmbedder builds a Gemini embedder producing vectors of the given dimension.
func NewGoogleEmbedder(ctx context.Context, cfg config.GoogleConfig, dimension int) (embedding.Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("google api key is required")
	}
	if cfg.EmbeddingModel == "" {
		return nil, errors.New("google embedding model is required")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: customHttpClient.NewClient(0),
	})
	if err != nil {
		return nil, fmt.Errorf("create google embedding client: %w", err)
	}
	logger := logger_i.NewLogger("google_embedding")
	logger.Info("Google Embedding client created", "model", cfg.EmbeddingModel)
	return &client{
		genAi:        c,
		model:        cfg.EmbeddingModel,
		dimension:    int32(dimension),
		pollInterval: time.Duration(max(cfg.BatchPollSeconds, 1)) * time.Second,
		batchTimeout: time.Duration(max(cfg.BatchTimeoutHours, 1)) * time.Hour,
		logger:       logger,
	}, nil
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := c.logger.With("traceId", config.TraceId(ctx))
	result, err := c.doCall(ctx, genai.Text(query), taskTypeQuery)
	if err != nil && doRetry(err, log) {
		if err = sleepCtx(ctx, config.EmbeddingRetryDelay); err == nil {
			result, err = c.doCall(ctx, genai.Text(query), taskTypeQuery)
		}
	}
	if err != nil {
		log.Error("Error getting Embedding from Google", "error", err)
		return nil, err
	}
	if len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, errors.New("google returned no embedding")
	}
	return result.Embeddings[0].Values, nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string, isHugeDataSet bool) ([][]float32, error) {
	log := c.logger.With("traceId", config.TraceId(ctx), "chunks", len(chunks))

	if !isHugeDataSet {
		res, err := c.doCall(ctx, getContent(chunks), taskTypeDocument)
		if err != nil && doRetry(err, log) {
			log.Debug("Retrying after rate limit", "delay", config.EmbeddingRetryDelay)
			if err = sleepCtx(ctx, config.EmbeddingRetryDelay); err == nil {
				res, err = c.doCall(ctx, getContent(chunks), taskTypeDocument)
			}
		}
		if err != nil {
			log.Error("Error getting Embeddings from Google", "error", err)
			return nil, err
		}
		if len(res.Embeddings) != len(chunks) {
			return nil, fmt.Errorf("google returned %d embeddings for %d chunks", len(res.Embeddings), len(chunks))
		}
		embeddingResults := make([][]float32, 0, len(chunks))
		for i, r := range res.Embeddings {
			if r == nil || len(r.Values) == 0 {
				return nil, fmt.Errorf("google returned no embedding for chunk %d", i)
			}
			embeddingResults = append(embeddingResults, r.Values)
		}
		return embeddingResults, nil
	}

	source := genai.EmbeddingsBatchJobSource{InlinedRequests: c.getInlinedBatchRequests(chunks)}
	displayName := fmt.Sprintf("flowfix-ingest-%d", time.Now().UnixNano())
	conf := genai.CreateEmbeddingsBatchJobConfig{DisplayName: displayName}
	job, err := c.genAi.Batches.CreateEmbeddings(ctx, &c.model, &source, &conf)
	if err != nil {
		log.Error("Error creating batch embedding job", "error", err)
		return nil, err
	}
	log = log.With("batchJob", job.Name)

	pollCtx, cancel := context.WithTimeout(ctx, c.batchTimeout)
	defer cancel()
	answer, err := c.pollForAnswer(pollCtx, job.Name, log)
	if err != nil {
		return nil, err
	}
	return downloadAnswer(answer, len(chunks))
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, taskType string) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{
		OutputDimensionality: &c.dimension,
		TaskType:             taskType,
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
