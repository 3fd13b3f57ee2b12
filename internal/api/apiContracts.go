package api

import (
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
)

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	ChatId    string            `json:"chat_id,omitempty" example:"chat_550"`
	Type      string            `json:"type,omitempty" example:"Analyze"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type AnalysisResponse struct {
	ErrorMessage string   `json:"error_message"`
	Solution     string   `json:"solution"`
	Sources      []string `json:"sources"`
	FromCache    bool     `json:"from_cache"`
}

type IngestResult struct {
	DocumentId string `json:"document_id"`
	FileName   string `json:"file_name"`
	ChunkCount int    `json:"chunk_count"`
}

type Result struct {
	Status   string            `json:"status" example:"COMPLETE"`
	Step     string            `json:"step,omitempty" example:"LLM"`
	Analysis *AnalysisResponse `json:"analysis,omitempty"`
	Ingest   *IngestResult     `json:"ingest,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	ChatId    string `json:"chat_id,omitempty"`
	StatusURL string `json:"status_url"`
}

type IngestResponse struct {
	JobId      string `json:"job_id"`
	DocumentId string `json:"document_id"`
	StatusURL  string `json:"status_url"`
}

type SearchResponse struct {
	Query   string                          `json:"query"`
	Results []commonModels.SimilarityResult `json:"results"`
}

type DocumentListResponse struct {
	Documents []commonModels.Document `json:"documents"`
}

type DeleteResponse struct {
	DocumentId    string `json:"document_id"`
	RemovedChunks int    `json:"removed_chunks"`
}

// requests---------------------

type AnalyzeRequest struct {
	ErrorMessage string `json:"errorMessage" validate:"required" example:"TypeError: Cannot read properties of undefined"`
	ChatID       string `json:"chatID,omitempty"`
	InternalOnly bool   `json:"internalOnly,omitempty"`
}

// SearchRequest leaves Threshold and TopK nil to use the server defaults.
type SearchRequest struct {
	Query     string   `json:"query" validate:"required"`
	Threshold *float64 `json:"threshold,omitempty" example:"0.7"`
	TopK      *int     `json:"topK,omitempty" example:"3"`
}
