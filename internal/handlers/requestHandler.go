package handlers

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Kar2410/FLOW-FIX/internal/adapter"
	"github.com/Kar2410/FLOW-FIX/internal/adapter/utils"
	"github.com/Kar2410/FLOW-FIX/internal/api"
	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/internal/job"
	"github.com/Kar2410/FLOW-FIX/internal/rag"
)

// Ingest godoc
// @Summary      Upload a document for ingestion
// @Description  Receives a file via multipart/form-data, registers it, and queues an ingestion job.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        document_name  formData  string  false  "The display name of the document"
// @Param        document       formData  file    true   "The PDF, DOCX or TXT file to upload"
// @Success      202  {object}  api.IngestResponse "Accepted"
// @Failure      400  {object}  api.JobResponse "Missing fields, unsupported type or file too large"
// @Failure      500  {object}  api.JobResponse "Storage or write error"
// @Router       /ingest [post]
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	ctx := r.Context()
	log := h.logger.With("traceId", config.TraceId(ctx))

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes)
	if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	docName := documentName(r.FormValue("document_name"), fileMetadata.Filename)
	doc, err := h.kb.RegisterDocument(ctx, docName)
	if err != nil {
		code, message := rag.PublicError(err)
		WriteErrorResponse(w, code, docName, message)
		return
	}

	path := filepath.Join(h.uploadDir, doc.Id+strings.ToLower(filepath.Ext(docName)))
	if err := saveUpload(path, fileReader); err != nil {
		log.Error("Could not store upload", "documentId", doc.Id, "error", err)
		h.discardDocument(r, doc.Id, path)
		WriteErrorResponse(w, http.StatusInternalServerError, doc.Id, "Storage error")
		return
	}

	ingestJob := job.NewIngestJob(config.TraceId(ctx), doc, path)
	if err := h.jobs.Enqueue(ctx, ingestJob); err != nil {
		log.Error("Could not enqueue ingest job", "documentId", doc.Id, "error", err)
		h.discardDocument(r, doc.Id, path)
		WriteErrorResponse(w, http.StatusServiceUnavailable, doc.Id, "Job queue is full")
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToIngestResponse(ingestJob))
}

// Search godoc
// @Summary      Search the knowledge base
// @Description  Synchronous similarity search over the knowledge base.
// @Tags         Search
// @Accept       json
// @Produce      json
// @Param        request  body      api.SearchRequest   true  "Query with optional threshold and topK"
// @Success      200      {object}  api.SearchResponse
// @Failure      400      {object}  api.JobResponse  "Invalid parameters"
// @Failure      502      {object}  api.JobResponse  "Embedding provider unavailable"
// @Failure      503      {object}  api.JobResponse  "Knowledge base unavailable"
// @Router       /search [post]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	defer r.Body.Close()

	var requestData api.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
		return
	}

	defaults := h.kb.Defaults()
	threshold, topK := defaults.SimilarityThreshold, defaults.TopK
	if requestData.Threshold != nil {
		threshold = *requestData.Threshold
	}
	if requestData.TopK != nil {
		topK = *requestData.TopK
	}

	results, err := h.kb.Search(r.Context(), requestData.Query, threshold, topK)
	if err != nil {
		h.writeKnowledgeBaseError(w, r, "", err)
		return
	}
	if results == nil {
		results = []commonModels.SimilarityResult{}
	}
	writeJsonResponse(w, http.StatusOK, api.SearchResponse{Query: requestData.Query, Results: results})
}

// ListDocuments godoc
// @Summary      List knowledge base documents
// @Description  Lists every registered document, newest first.
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  api.DocumentListResponse
// @Failure      503  {object}  api.JobResponse  "Registry unavailable"
// @Router       /documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	docs, err := h.kb.ListDocuments(r.Context())
	if err != nil {
		h.logger.With("traceId", config.TraceId(r.Context())).Error("Could not list documents", "error", err)
		WriteErrorResponse(w, http.StatusServiceUnavailable, "", "Registry unavailable")
		return
	}
	if docs == nil {
		docs = []commonModels.Document{}
	}
	writeJsonResponse(w, http.StatusOK, api.DocumentListResponse{Documents: docs})
}

// DeleteDocument godoc
// @Summary      Delete a document
// @Description  Removes every chunk of the document and its registry entry.
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DeleteResponse
// @Failure      404  {object}  api.JobResponse  "Document not found"
// @Failure      503  {object}  api.JobResponse  "Knowledge base unavailable"
// @Router       /documents/{id} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")

	removed, found, err := h.kb.DeleteDocument(r.Context(), id)
	if err != nil {
		h.writeKnowledgeBaseError(w, r, id, err)
		return
	}
	if !found {
		WriteErrorResponse(w, http.StatusNotFound, id, "Document not found")
		return
	}
	h.logger.Info("Deleted document", "traceId", config.TraceId(r.Context()), "documentId", id, "removedChunks", removed)
	writeJsonResponse(w, http.StatusOK, api.DeleteResponse{DocumentId: id, RemovedChunks: removed})
}
