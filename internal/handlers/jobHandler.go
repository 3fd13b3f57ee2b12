package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/Kar2410/FLOW-FIX/internal/adapter"
	"github.com/Kar2410/FLOW-FIX/internal/adapter/utils"
	"github.com/Kar2410/FLOW-FIX/internal/api"
	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/domain/jobModel"
	"github.com/Kar2410/FLOW-FIX/internal/job"
	"github.com/Kar2410/FLOW-FIX/internal/rag"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
)

// JobService is the part of job.Service the handlers use.
type JobService interface {
	Enqueue(ctx context.Context, job jobModel.Job) error
	GetJob(ctx context.Context, id string) (jobModel.Job, bool)
	ResolveChat(ctx context.Context, chatId string) (string, error)
}

type Handler struct {
	jobs      JobService
	kb        rag.KnowledgeBase
	uploadDir string
	logger    *logger_i.Logger
}

// NewHandler creates uploadDir if it does not exist yet.
func NewHandler(jobs JobService, kb rag.KnowledgeBase, uploadDir string) (*Handler, error) {
	if err := os.MkdirAll(uploadDir, 0750); err != nil {
		return nil, err
	}
	return &Handler{
		jobs:      jobs,
		kb:        kb,
		uploadDir: uploadDir,
		logger:    logger_i.NewLogger("request_handler"),
	}, nil
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Analyze godoc
// @Summary      Analyze an error message
// @Description  Accepts an error message, queues a background analysis job, and returns a job ID to track status.
// @Tags         Analysis
// @Accept       json
// @Produce      json
// @Param        request  body      api.AnalyzeRequest   true  "Error message, optional chat ID and internal only flag"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Invalid request data or chat ID"
// @Failure      503      {object}  api.JobResponse      "Job queue is full"
// @Router       /analyze [post]
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	log := h.logger.With("traceId", config.TraceId(r.Context()))
	defer r.Body.Close()

	var requestData api.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil || strings.TrimSpace(requestData.ErrorMessage) == "" {
		log.Warn("Bad analyze request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, "errorMessage is required")
		return
	}

	chatId, err := h.jobs.ResolveChat(r.Context(), requestData.ChatID)
	if err != nil {
		if errors.Is(err, job.ErrUnknownChat) {
			WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, "Unknown chat id")
			return
		}
		WriteErrorResponse(w, http.StatusServiceUnavailable, requestData.ChatID, "Conversation store unavailable")
		return
	}

	newJob := job.NewAnalyzeJob(config.TraceId(r.Context()), chatId, requestData.ErrorMessage, requestData.InternalOnly)
	if err := h.jobs.Enqueue(r.Context(), newJob); err != nil {
		log.Error("Could not enqueue analyze job", "jobId", newJob.Id, "error", err)
		WriteErrorResponse(w, http.StatusServiceUnavailable, newJob.Id, "Job queue is full")
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob))
}

// GetStatus godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a specific job using its ID.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse   "The current status of the job"
// @Failure      404  {object}  api.JobResponse   "Job not found"
// @Router       /status/{id} [get]
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	h.logger.Debug("Get Status Request", "traceId", config.TraceId(r.Context()), "path", r.URL.Path)

	result, isFound := h.jobs.GetJob(r.Context(), idString)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}
