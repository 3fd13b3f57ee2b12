package jobModel

import (
	"context"
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	AnalyzeInit      InternalStatus = "Init"
	CacheCall        InternalStatus = "CacheCall"
	SearchCall       InternalStatus = "KnowledgeBaseSearch"
	LLMCall          InternalStatus = "LLM"
	EmbeddingAPICall InternalStatus = "EmbeddingAPI"

	IngestInit       InternalStatus = "IngestInit"
	IngestProcessing InternalStatus = "IngestProcessing"
	Error            InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeAnalyze JobType = "Analyze"
	JobTypeIngest  JobType = "Ingest"
)

type Job struct {
	Id          string         `json:"id"`
	ChatId      string         `json:"chat_id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	ErrorMessage string                          `json:"error_message,omitempty"`
	Solution     string                          `json:"solution,omitempty"`
	Sources      []string                        `json:"sources,omitempty"`
	Matches      []commonModels.SimilarityResult `json:"matches,omitempty"`
	FromCache    bool                            `json:"from_cache,omitempty"`
	// InternalOnly answers from the knowledge base alone, without the LLM.
	InternalOnly bool `json:"internal_only,omitempty"`

	DocumentId     string `json:"document_id,omitempty"`
	IngestFileName string `json:"ingest_file_name,omitempty"`
	IngestPath     string `json:"ingest_path,omitempty"`
	ChunkCount     int    `json:"chunk_count,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

// ConversationStore keeps the previous error/solution pairs of a chat.
type ConversationStore interface {
	ValidateChatId(ctx context.Context, id string) bool
	TrySaveChat(ctx context.Context, id string, payload JobPayload) error
	InitNewChat(ctx context.Context, id string) error
	GetMessageHistory(ctx context.Context, chatId string) ([]string, error)
}

type DocumentStore interface {
	SaveDocument(ctx context.Context, doc commonModels.Document) error
	GetDocument(ctx context.Context, id string) (commonModels.Document, bool, error)
	ListDocuments(ctx context.Context) ([]commonModels.Document, error)
	DeleteDocument(ctx context.Context, id string) (bool, error)
}
