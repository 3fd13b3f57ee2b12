package job

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/adapter/utils"
	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/internal/domain/jobModel"
	"github.com/Kar2410/FLOW-FIX/internal/metrics"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
)

var (
	ErrUnknownChat = errors.New("unknown chat id")
	ErrQueueFull   = errors.New("job queue is full")
)

type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	MessageStore      jobModel.ConversationStore
	logger            *logger_i.Logger
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	MessageStore      jobModel.ConversationStore
}

func InitJobService(cfg ServiceConfig) *Service {
	if cfg.JobChannel == nil {
		cfg.JobChannel = make(chan jobModel.Job, config.BufferLimit)
	}
	if cfg.DispatcherChannel == nil {
		cfg.DispatcherChannel = make(chan bool, config.MaxWorkerCount)
	}
	return &Service{
		JobChannel:        cfg.JobChannel,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		MessageStore:      cfg.MessageStore,
		logger:            logger_i.NewLogger("job_service"),
	}
}

func NewAnalyzeJob(traceId, chatId, errorMessage string, internalOnly bool) jobModel.Job {
	return jobModel.Job{
		Id:          utils.GetNewUUID(),
		ChatId:      chatId,
		TraceId:     traceId,
		JobType:     jobModel.JobTypeAnalyze,
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
		CurrentStep: jobModel.AnalyzeInit,
		JobPayload: jobModel.JobPayload{
			ErrorMessage: errorMessage,
			InternalOnly: internalOnly,
		},
	}
}

func NewIngestJob(traceId string, doc commonModels.Document, path string) jobModel.Job {
	return jobModel.Job{
		Id:          utils.GetNewUUID(),
		TraceId:     traceId,
		JobType:     jobModel.JobTypeIngest,
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
		CurrentStep: jobModel.IngestInit,
		JobPayload: jobModel.JobPayload{
			DocumentId:     doc.Id,
			IngestFileName: doc.Name,
			IngestPath:     path,
		},
	}
}

// Enqueue records the job as queued and hands it to the worker pool. It never
// waits for buffer space: a full queue fails with ErrQueueFull and the job is
// recorded as a retryable error.
func (s *Service) Enqueue(ctx context.Context, job jobModel.Job) error {
	log := s.logger.With("traceId", job.TraceId, "jobId", job.Id)
	if err := s.JobStore.SaveJob(ctx, job); err != nil {
		log.Error("Failed to record queued job", "error", err)
		return err
	}

	select {
	case s.JobChannel <- job:
	default:
		log.Warn("Job queue is full", "capacity", cap(s.JobChannel))
		job.Status = jobModel.JobStatusError
		job.Error = jobModel.JobError{Code: 503, Message: "Job queue is full", Retry: true}
		_ = s.JobStore.SaveJob(context.WithoutCancel(ctx), job)
		return ErrQueueFull
	}
	metrics.IncrementJobsInQueue()
	log.Info("Created new job", "type", job.JobType)

	// a new worker every RequestsPerNewWorkerCount requests, and for every
	// ingest since those hold a worker for the whole document
	count := atomic.AddInt64(&s.RequestCount, 1)
	if count%config.RequestsPerNewWorkerCount == 0 || job.JobType == jobModel.JobTypeIngest {
		select {
		case s.DispatcherChannel <- true:
			metrics.StartDispatcherSignalCount()
		default:
		}
	}
	return nil
}

func (s *Service) GetJob(ctx context.Context, id string) (jobModel.Job, bool) {
	if id == "" {
		return jobModel.Job{}, false
	}
	return s.JobStore.GetJob(ctx, id)
}

// ResolveChat returns the chat to attach a question to, starting a new chat
// when chatId is empty.
func (s *Service) ResolveChat(ctx context.Context, chatId string) (string, error) {
	if chatId != "" {
		if !s.MessageStore.ValidateChatId(ctx, chatId) {
			return "", ErrUnknownChat
		}
		return chatId, nil
	}
	chatId = utils.GetNewUUID()
	if err := s.MessageStore.InitNewChat(ctx, chatId); err != nil {
		s.logger.With("traceId", config.TraceId(ctx)).Error("Error initiating new chat", "chatId", chatId, "error", err)
		return "", err
	}
	return chatId, nil
}
