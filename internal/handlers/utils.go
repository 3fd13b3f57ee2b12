package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Kar2410/FLOW-FIX/internal/adapter"
	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/internal/rag"
	"github.com/Kar2410/FLOW-FIX/internal/rag/ingest"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
)

var logRH = logger_i.NewLogger("response_writer")

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are already out
		logRH.Error("Error encoding response", "error", err)
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

func (h *Handler) writeKnowledgeBaseError(w http.ResponseWriter, r *http.Request, id string, err error) {
	code, message := rag.PublicError(err)
	h.logger.With("traceId", config.TraceId(r.Context())).Warn("Knowledge base request failed", "code", code, "error", err)
	WriteErrorResponse(w, code, id, message)
}

func (h *Handler) validateContext(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		h.logger.Warn("context error", "traceId", config.TraceId(ctx), "error", err)
		return false
	}
	return true
}

// documentName falls back to the uploaded file name and keeps its extension,
// which decides how the document is extracted.
func documentName(displayName, fileName string) string {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return filepath.Base(fileName)
	}
	if ingest.GetDocType(displayName) == commonModels.ERR {
		return displayName + filepath.Ext(fileName)
	}
	return displayName
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// discardDocument undoes a registration whose upload never reached a worker.
func (h *Handler) discardDocument(r *http.Request, id, path string) {
	_ = os.Remove(path)
	if _, _, err := h.kb.DeleteDocument(context.WithoutCancel(r.Context()), id); err != nil {
		h.logger.Warn("Could not remove document record", "traceId", config.TraceId(r.Context()), "documentId", id, "error", err)
	}
}
