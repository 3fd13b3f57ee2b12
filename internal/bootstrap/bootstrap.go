// Package bootstrap turns Settings into the running object graph shared by the
// api server and kbctl.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/data/redisStore"
	"github.com/Kar2410/FLOW-FIX/internal/data/store"
	"github.com/Kar2410/FLOW-FIX/internal/domain/jobModel"
	"github.com/Kar2410/FLOW-FIX/internal/job"
	"github.com/Kar2410/FLOW-FIX/internal/rag"
	"github.com/Kar2410/FLOW-FIX/internal/rag/embedding"
	"github.com/Kar2410/FLOW-FIX/internal/rag/embedding/azureEmbedding"
	"github.com/Kar2410/FLOW-FIX/internal/rag/embedding/googleEmbedding"
	"github.com/Kar2410/FLOW-FIX/internal/rag/llm"
	"github.com/Kar2410/FLOW-FIX/internal/rag/llm/azureOpenAI"
	"github.com/Kar2410/FLOW-FIX/internal/rag/llm/gemini"
	"github.com/Kar2410/FLOW-FIX/internal/rag/search"
	"github.com/Kar2410/FLOW-FIX/internal/rag/vectorDB"
	"github.com/Kar2410/FLOW-FIX/internal/rag/vectorDB/memoryDB"
	"github.com/Kar2410/FLOW-FIX/internal/rag/vectorDB/mongoDB"
	"github.com/Kar2410/FLOW-FIX/internal/rag/vectorDB/qdrantDB"
	"github.com/Kar2410/FLOW-FIX/internal/rag/vectorDB/redisDB"
	"github.com/Kar2410/FLOW-FIX/internal/rag/vectorDB/sqliteDB"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
)

type Options struct {
	// WithAnalysis adds the llm, the answer cache and the job service.
	WithAnalysis bool
}

type App struct {
	Settings config.Settings
	Engine   *search.Engine
	Pipeline *rag.Pipeline
	// Jobs is nil unless Options.WithAnalysis is set.
	Jobs *job.Service

	closers []func(context.Context) error
	logger  *logger_i.Logger
}

// Builders open the external clients. Tests replace the provider ones.
type Builders struct {
	Embedder func(ctx context.Context, s config.EmbeddingSettings) (embedding.Embedder, error)
	LLM      func(ctx context.Context, s config.LLMSettings) (llm.Provider, error)
}

func DefaultBuilders() Builders {
	return Builders{Embedder: NewEmbedder, LLM: NewLLM}
}

func New(ctx context.Context, s config.Settings, opts Options) (*App, error) {
	return NewWithBuilders(ctx, s, opts, DefaultBuilders())
}

// NewWithBuilders closes whatever it opened when a later step fails.
func NewWithBuilders(ctx context.Context, s config.Settings, opts Options, b Builders) (_ *App, err error) {
	app := &App{Settings: s, logger: logger_i.NewLogger("bootstrap")}
	defer func() {
		if err != nil {
			_ = app.Close(context.WithoutCancel(ctx))
		}
	}()

	embedder, err := b.Embedder(ctx, s.Embedding)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	chunkStore, err := app.openChunkStore(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("chunk store %s: %w", s.Store.Backend, err)
	}

	app.Engine, err = search.NewEngine(chunkStore, embedder, search.OptionsFromSettings(s))
	if err != nil {
		return nil, err
	}

	documents, err := app.openDocumentStore(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("document registry: %w", err)
	}

	var (
		cache    vectorDB.AnswerCache
		provider llm.Provider
	)
	if opts.WithAnalysis {
		cache = answerCache(chunkStore)
		provider, err = b.LLM(ctx, s.LLM)
		if err != nil {
			return nil, fmt.Errorf("llm provider: %w", err)
		}
		app.Jobs, err = app.openJobService(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("job stores: %w", err)
		}
	}

	app.Pipeline = rag.NewPipeline(app.Engine, cache, provider, documents, s.Search)
	app.logger.Info("Services initialised", "store", s.Store.Backend, "embedding", s.Embedding.Provider, "analysis", opts.WithAnalysis)
	return app, nil
}

// Close releases every opened client in reverse order.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

func NewEmbedder(ctx context.Context, s config.EmbeddingSettings) (embedding.Embedder, error) {
	switch strings.ToLower(s.Provider) {
	case config.ProviderAzure:
		return azureEmbedding.NewAzureEmbedder(s.Azure)
	case config.ProviderGoogle:
		return googleEmbedding.NewGoogleEmbedder(ctx, s.Google, s.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", s.Provider)
	}
}

func NewLLM(ctx context.Context, s config.LLMSettings) (llm.Provider, error) {
	switch strings.ToLower(s.Provider) {
	case config.ProviderAzure:
		return azureOpenAI.NewChatClient(s.Azure)
	case config.ProviderGoogle:
		return gemini.NewGeminiClient(ctx, s.Google)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", s.Provider)
	}
}

func (a *App) openChunkStore(ctx context.Context, s config.Settings) (vectorDB.ChunkStore, error) {
	var (
		chunkStore vectorDB.ChunkStore
		err        error
	)
	switch strings.ToLower(s.Store.Backend) {
	case config.BackendMemory:
		return memoryDB.NewStore(), nil
	case config.BackendMongo:
		chunkStore, err = mongoDB.NewStore(ctx, s.Store.Mongo)
	case config.BackendSQLite:
		chunkStore, err = sqliteDB.NewStore(ctx, s.Store.SQLite.Path)
	case config.BackendQdrant:
		chunkStore, err = qdrantDB.NewStore(ctx, s.Store.Qdrant, s.Embedding.Dimensions)
	case config.BackendRedis:
		rs, rerr := a.openRedis(ctx, s.Redis, config.RedisChunkStore)
		if rerr != nil {
			return nil, rerr
		}
		return redisDB.NewStore(rs), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", s.Store.Backend)
	}
	if err != nil {
		return nil, err
	}
	if closer, ok := chunkStore.(vectorDB.Closer); ok {
		a.onClose(closer.Close)
	}
	return chunkStore, nil
}

// answerCache reuses the qdrant connection when there is one.
func answerCache(chunkStore vectorDB.ChunkStore) vectorDB.AnswerCache {
	if cache, ok := chunkStore.(vectorDB.AnswerCache); ok {
		return cache
	}
	return memoryDB.NewAnswerCache(config.CacheSimilarityCutoff, config.MemoryCacheEntries)
}

func (a *App) openRedis(ctx context.Context, settings config.RedisSettings, db int) (*redisStore.Store, error) {
	rs, err := redisStore.NewStore(ctx, settings, db)
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { return rs.Close() })
	return rs, nil
}

func (a *App) openDocumentStore(ctx context.Context, s config.Settings) (jobModel.DocumentStore, error) {
	rs, err := a.openRedis(ctx, s.Redis, config.RedisDocumentStore)
	if err != nil {
		if !config.FALLBACK_REDIS_TO_INTERNALSTORE {
			return nil, err
		}
		a.logger.Warn("Document registry falls back to memory", "error", err)
		return store.InitInMemoryDocumentStore(), nil
	}
	return store.NewRedisDocumentStore(rs), nil
}

func (a *App) openJobService(ctx context.Context, s config.Settings) (*job.Service, error) {
	cfg := job.ServiceConfig{}

	jobs, jobErr := a.openRedis(ctx, s.Redis, config.RedisJobStore)
	var messages *redisStore.Store
	var msgErr error
	if jobErr == nil {
		messages, msgErr = a.openRedis(ctx, s.Redis, config.RedisMessageStore)
	}
	if jobErr != nil || msgErr != nil {
		if !config.FALLBACK_REDIS_TO_INTERNALSTORE {
			return nil, errors.Join(jobErr, msgErr)
		}
		a.logger.Error("Redis stores are offline, using in-memory job and message stores", "error", errors.Join(jobErr, msgErr))
		cfg.JobStore = store.InitInMemoryJobStore()
		cfg.MessageStore = store.InitMessageStore()
	} else {
		cfg.JobStore = store.NewRedisJobStore(jobs)
		cfg.MessageStore = store.NewRedisMessageStore(messages)
	}
	return job.InitJobService(cfg), nil
}
