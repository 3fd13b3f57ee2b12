package rag

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/internal/domain/jobModel"
	"github.com/Kar2410/FLOW-FIX/internal/domain/searchErrors"
	"github.com/Kar2410/FLOW-FIX/internal/metrics"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
)

var errNoProvider = errors.New("no llm provider configured")

func returnOutput(job jobModel.Job, ans string) jobModel.Job {
	job.JobPayload.Solution = ans
	job.CurrentStep = jobModel.Complete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessRequest", "currentStep", job.CurrentStep)
	return job
}

func (p *Pipeline) jobError(job jobModel.Job, err error, message string) jobModel.Job {
	p.logger.Error(message, "jobId", job.Id, "step", job.CurrentStep, "error", err)

	code, public := PublicError(err)
	job.Error = jobModel.JobError{
		Code:    code,
		Message: public,
		Retry:   retryable(err),
	}
	job.Status = jobModel.JobStatusError
	return job
}

// PublicError maps a failure to the status code and message reported to clients.
func PublicError(err error) (int, string) {
	switch searchErrors.KindOf(err) {
	case searchErrors.ErrInvalidParameter:
		return http.StatusBadRequest, err.Error()
	case searchErrors.ErrEmbedding:
		return http.StatusBadGateway, "Embedding provider unavailable"
	case searchErrors.ErrStoreUnavailable:
		return http.StatusServiceUnavailable, "Knowledge base unavailable"
	case searchErrors.ErrCancelled:
		return http.StatusGatewayTimeout, "Request timed out"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

// retryable treats unclassified failures (llm, registry) as transient.
func retryable(err error) bool {
	if searchErrors.KindOf(err) == nil {
		return !errors.Is(err, errNoProvider)
	}
	return searchErrors.IsRetryable(err)
}

func (p *Pipeline) executeEmbeddingStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job) ([]float32, error) {
	*job = logOutput(*job, jobModel.EmbeddingAPICall, log)
	return p.engine.Embed(ctx, job.JobPayload.ErrorMessage)
}

func (p *Pipeline) executeCacheCheckStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, emb []float32) (string, bool) {
	if p.cache == nil {
		return "", false
	}
	*job = logOutput(*job, jobModel.CacheCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	ans, found, err := p.cache.GetCachedAnswer(ctx, emb)
	if err != nil {
		log.Warn("Cache lookup failed, continuing without cache", "error", err)
		return "", false
	}
	return ans, found
}

func (p *Pipeline) executeSearchStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, emb []float32) ([]commonModels.SimilarityResult, error) {
	*job = logOutput(*job, jobModel.SearchCall, log)

	matches, stats, err := p.engine.SearchVector(ctx, emb, p.searchCfg.SimilarityThreshold, p.searchCfg.TopK)
	if err != nil {
		return nil, err
	}
	log.Debug("Knowledge base searched", "candidates", stats.Candidates, "matches", len(matches))
	return matches, nil
}

func (p *Pipeline) executeLLMStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, matches []string, history []string) (string, error) {
	*job = logOutput(*job, jobModel.LLMCall, log)
	if p.llmProvider == nil {
		return "", errNoProvider
	}

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	return p.llmProvider.Generate(ctx, job.JobPayload.ErrorMessage, matches, history)
}
