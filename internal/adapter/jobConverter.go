package adapter

import (
	"fmt"
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/api"
	"github.com/Kar2410/FLOW-FIX/internal/domain/jobModel"
)

func statusURL(id string) string {
	return fmt.Sprintf("status/%s", id)
}

func ToInitJobResponse(job jobModel.Job) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        job.Id,
		ChatId:    job.ChatId,
		StatusURL: statusURL(job.Id),
	}
}

func ToIngestResponse(job jobModel.Job) api.IngestResponse {
	return api.IngestResponse{
		JobId:      job.Id,
		DocumentId: job.JobPayload.DocumentId,
		StatusURL:  statusURL(job.Id),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status: string(job.Status),
		Step:   string(job.CurrentStep),
	}
	switch job.JobType {
	case jobModel.JobTypeIngest:
		result.Ingest = ToIngestResult(job)
	default:
		result.Analysis = ToAnalysisResponse(job.JobPayload)
	}

	return api.JobResponse{
		Id:        job.Id,
		ChatId:    job.ChatId,
		Type:      string(job.JobType),
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

// ToAnalysisResponse is nil until the job has produced a solution.
func ToAnalysisResponse(payload jobModel.JobPayload) *api.AnalysisResponse {
	if payload.Solution == "" && len(payload.Sources) == 0 {
		return nil
	}
	return &api.AnalysisResponse{
		ErrorMessage: payload.ErrorMessage,
		Solution:     payload.Solution,
		Sources:      payload.Sources,
		FromCache:    payload.FromCache,
	}
}

func ToIngestResult(job jobModel.Job) *api.IngestResult {
	if job.JobPayload.DocumentId == "" {
		return nil
	}
	return &api.IngestResult{
		DocumentId: job.JobPayload.DocumentId,
		FileName:   job.JobPayload.IngestFileName,
		ChunkCount: job.JobPayload.ChunkCount,
	}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   code == 429 || code >= 500,
		},
	}
}
