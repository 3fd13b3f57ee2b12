package worker

import (
	"context"
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/domain/jobModel"
	"github.com/Kar2410/FLOW-FIX/internal/metrics"
)

func (p *Pool) executeJob(job jobModel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()

	timeout := config.JobTimeout
	if job.JobType == jobModel.JobTypeIngest {
		timeout = config.IngestTimeout
	}
	ctx, cancel := context.WithTimeout(config.WithTraceId(context.Background(), job.TraceId), timeout)
	defer cancel()
	log := p.logger.With("traceId", job.TraceId, "jobId", job.Id)
	log.Debug("Processing job", "type", job.JobType)

	p.saveJobState(ctx, &job, jobModel.JobStatusRunning)

	switch job.JobType {
	case jobModel.JobTypeIngest:
		job = p.ragService.IngestDocument(ctx, job)
	default:
		job = p.processQuery(ctx, job)
	}

	job.EndTime = time.Now()
	final := jobModel.JobStatusComplete
	if job.Status == jobModel.JobStatusError {
		final = jobModel.JobStatusError
		log.Warn("Job failed", "step", job.CurrentStep, "code", job.Error.Code)
	}
	// the job context may have expired; the final state must still be recorded
	p.saveJobState(context.WithoutCancel(ctx), &job, final)
}

func (p *Pool) processQuery(ctx context.Context, job jobModel.Job) jobModel.Job {
	log := p.logger.With("traceId", job.TraceId, "jobId", job.Id)
	var messageHistory []string
	if job.ChatId != "" {
		history, err := p.jobService.MessageStore.GetMessageHistory(ctx, job.ChatId)
		if err != nil {
			log.Error("Failed to get message history", "error", err)
		}
		messageHistory = history
	}

	job = p.ragService.ProcessRequest(ctx, job, messageHistory)
	if job.Status != jobModel.JobStatusError && job.ChatId != "" {
		if err := p.jobService.MessageStore.TrySaveChat(ctx, job.ChatId, job.JobPayload); err != nil {
			log.Error("Failed to save chat history", "error", err)
		}
	}
	return job
}

func (p *Pool) saveJobState(ctx context.Context, job *jobModel.Job, jobStatus jobModel.JobStatus) {
	job.Status = jobStatus
	if err := p.jobService.JobStore.SaveJob(ctx, *job); err != nil {
		p.logger.Error("Failed to update job status", "jobId", job.Id, "error", err)
	}
}
