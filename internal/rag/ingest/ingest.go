package ingest

import (
	"context"
	"errors"
	"os"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/internal/domain/searchErrors"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
)

// Indexer chunks, embeds and stores extracted pages under a document id.
type Indexer interface {
	IngestText(ctx context.Context, documentId string, pages []commonModels.Page) (int, error)
}

var logger = logger_i.NewLogger("document_ingestion")

// IngestFile extracts the file at path and indexes it as documentId. The file
// is removed once extraction has finished, whatever the outcome.
func IngestFile(ctx context.Context, documentId, path string, indexer Indexer) (int, error) {
	log := logger.With("traceId", config.TraceId(ctx), "documentId", documentId)

	docType := GetDocType(path)
	if docType == commonModels.ERR {
		removeUpload(path, log)
		return 0, searchErrors.New(searchErrors.ErrInvalidParameter, "ingestFile", "unsupported file type %q", path)
	}

	pages, err := ExtractPages(ctx, path, docType)
	removeUpload(path, log)
	if err != nil {
		log.Error("Error extracting document content", "error", err)
		return 0, err
	}
	log.Debug("Extracted document", "type", docType, "pages", len(pages))

	if len(pages) == 0 {
		return 0, searchErrors.New(searchErrors.ErrInvalidParameter, "ingestFile", "document has no extractable text")
	}
	return indexer.IngestText(ctx, documentId, pages)
}

func removeUpload(path string, log *logger_i.Logger) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Error removing uploaded file", "path", path, "error", err)
	}
}
