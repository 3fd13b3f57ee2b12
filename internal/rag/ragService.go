package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/adapter/utils"
	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/internal/domain/jobModel"
	"github.com/Kar2410/FLOW-FIX/internal/domain/searchErrors"
	"github.com/Kar2410/FLOW-FIX/internal/metrics"
	"github.com/Kar2410/FLOW-FIX/internal/rag/ingest"
	"github.com/Kar2410/FLOW-FIX/internal/rag/llm"
	"github.com/Kar2410/FLOW-FIX/internal/rag/search"
	"github.com/Kar2410/FLOW-FIX/internal/rag/vectorDB"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
)

// Service is what the worker pool runs. It does not expose the engine, cache or llm.
type Service interface {
	ProcessRequest(ctx context.Context, job jobModel.Job, messageHistory []string) jobModel.Job
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
}

// KnowledgeBase is the synchronous surface used by the http handlers, the MCP
// tool and the admin cli.
type KnowledgeBase interface {
	Search(ctx context.Context, query string, threshold float64, topK int) ([]commonModels.SimilarityResult, error)
	RegisterDocument(ctx context.Context, name string) (commonModels.Document, error)
	GetDocument(ctx context.Context, id string) (commonModels.Document, bool, error)
	ListDocuments(ctx context.Context) ([]commonModels.Document, error)
	DeleteDocument(ctx context.Context, id string) (removed int, found bool, err error)
	Defaults() config.SearchSettings
}

// Pipeline implements both Service and KnowledgeBase over one search engine.
type Pipeline struct {
	engine      *search.Engine
	cache       vectorDB.AnswerCache
	llmProvider llm.Provider
	documents   jobModel.DocumentStore
	searchCfg   config.SearchSettings
	logger      *logger_i.Logger
}

// NewPipeline wires the analysis pipeline. cache may be nil to disable the
// semantic answer cache.
func NewPipeline(engine *search.Engine, cache vectorDB.AnswerCache, provider llm.Provider, documents jobModel.DocumentStore, searchCfg config.SearchSettings) *Pipeline {
	return &Pipeline{
		engine:      engine,
		cache:       cache,
		llmProvider: provider,
		documents:   documents,
		searchCfg:   searchCfg,
		logger:      logger_i.NewLogger("rag_service"),
	}
}

func (p *Pipeline) Defaults() config.SearchSettings {
	return p.searchCfg
}

func (p *Pipeline) ProcessRequest(ctx context.Context, job jobModel.Job, messageHistory []string) jobModel.Job {
	log := p.logger.With("traceId", config.TraceId(ctx), "jobId", job.Id)

	processContext, cancel := context.WithTimeout(ctx, config.AnalysisTimeout)
	defer cancel()

	job.CurrentStep = jobModel.AnalyzeInit

	queryVector, err := p.executeEmbeddingStep(processContext, log, &job)
	if err != nil {
		return p.jobError(job, err, "EMBEDDING_FAILURE")
	}

	if !job.JobPayload.InternalOnly {
		if cachedAnswer, found := p.executeCacheCheckStep(processContext, log, &job, queryVector); found {
			job.JobPayload.FromCache = true
			return returnOutput(job, cachedAnswer)
		}
	}

	matches, err := p.executeSearchStep(processContext, log, &job, queryVector)
	if err != nil {
		return p.jobError(job, err, "KNOWLEDGE_BASE_FAILURE")
	}
	job.JobPayload.Matches = matches
	job.JobPayload.Sources = toSources(matches)

	if job.JobPayload.InternalOnly {
		return returnOutput(job, internalSolution(matches))
	}

	answer, err := p.executeLLMStep(processContext, log, &job, contents(matches), messageHistory)
	if err != nil {
		return p.jobError(job, err, "LLM_GENERATION_FAILURE")
	}

	if p.cache != nil {
		saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(ctx), config.CacheSaveTimeout)
		go func() {
			defer saveCancel()
			if err := p.cache.SaveToCache(saveCtx, utils.GetNewUUID(), queryVector, answer); err != nil {
				log.Warn("Failed to save answer to cache", "error", err)
			}
		}()
	}

	return returnOutput(job, answer)
}

func (p *Pipeline) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	log := p.logger.With("traceId", config.TraceId(ctx), "jobId", job.Id)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	documentId := job.JobPayload.DocumentId
	job.CurrentStep = jobModel.IngestProcessing
	log.Debug("Processing document", "documentId", documentId, "file", job.JobPayload.IngestFileName)

	n, err := ingest.IngestFile(ctx, documentId, job.JobPayload.IngestPath, p.engine)
	if err != nil {
		p.updateDocument(ctx, log, job, func(d *commonModels.Document) {
			d.Status = commonModels.DocStatusError
			d.Error = err.Error()
		})
		return p.jobError(job, err, "INGESTION_FAILURE")
	}

	p.updateDocument(ctx, log, job, func(d *commonModels.Document) {
		d.Status = commonModels.DocStatusReady
		d.ChunkCount = n
		d.Error = ""
	})
	job.JobPayload.ChunkCount = n
	job.CurrentStep = jobModel.Complete
	return job
}

func (p *Pipeline) Search(ctx context.Context, query string, threshold float64, topK int) ([]commonModels.SimilarityResult, error) {
	return p.engine.Search(ctx, query, threshold, topK)
}

// RegisterDocument records a new upload in processing state.
func (p *Pipeline) RegisterDocument(ctx context.Context, name string) (commonModels.Document, error) {
	doc := commonModels.Document{
		Id:          utils.GetNewUUID(),
		Name:        name,
		UploadDate:  time.Now().UTC(),
		Status:      commonModels.DocStatusProcessing,
		ContentType: ingest.GetDocType(name),
	}
	if doc.ContentType == commonModels.ERR {
		return commonModels.Document{}, searchErrors.New(searchErrors.ErrInvalidParameter, "registerDocument", "unsupported file type %q", name)
	}
	if err := p.documents.SaveDocument(ctx, doc); err != nil {
		return commonModels.Document{}, fmt.Errorf("save document: %w", err)
	}
	return doc, nil
}

func (p *Pipeline) GetDocument(ctx context.Context, id string) (commonModels.Document, bool, error) {
	return p.documents.GetDocument(ctx, id)
}

func (p *Pipeline) ListDocuments(ctx context.Context) ([]commonModels.Document, error) {
	return p.documents.ListDocuments(ctx)
}

// DeleteDocument removes the document's chunks and its registry entry. found
// is false when neither existed.
func (p *Pipeline) DeleteDocument(ctx context.Context, id string) (int, bool, error) {
	removed, err := p.engine.DeleteDocument(ctx, id)
	if err != nil {
		return 0, false, err
	}
	registered, err := p.documents.DeleteDocument(ctx, id)
	if err != nil {
		return removed, removed > 0, fmt.Errorf("delete document record: %w", err)
	}
	return removed, registered || removed > 0, nil
}

func (p *Pipeline) updateDocument(ctx context.Context, log *logger_i.Logger, job jobModel.Job, apply func(*commonModels.Document)) {
	id := job.JobPayload.DocumentId
	doc, found, err := p.documents.GetDocument(ctx, id)
	if err != nil {
		log.Error("Failed to read document record", "documentId", id, "error", err)
		return
	}
	if !found {
		doc = commonModels.Document{
			Id:          id,
			Name:        job.JobPayload.IngestFileName,
			UploadDate:  job.CreatedTime,
			ContentType: ingest.GetDocType(job.JobPayload.IngestFileName),
		}
	}
	apply(&doc)
	if err := p.documents.SaveDocument(ctx, doc); err != nil {
		log.Error("Failed to update document record", "documentId", id, "error", err)
	}
}

func internalSolution(matches []commonModels.SimilarityResult) string {
	if len(matches) == 0 {
		return config.NoKnowledgeBaseMatch
	}
	return strings.Join(contents(matches), "\n\n")
}

func contents(matches []commonModels.SimilarityResult) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Content
	}
	return out
}

func toSources(matches []commonModels.SimilarityResult) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = fmt.Sprintf("%s#%d (%.2f)", m.Metadata.Source, m.Metadata.Page, m.Similarity)
	}
	return out
}
