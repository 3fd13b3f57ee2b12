package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/internal/domain/searchErrors"
)

// GetDocType maps a file extension to the extractor that handles it.
func GetDocType(docPath string) commonModels.DocType {
	switch strings.ToLower(filepath.Ext(docPath)) {
	case ".pdf":
		return commonModels.PDF
	case ".docx", ".rtf", ".odt":
		return commonModels.DOCX
	case ".txt", ".md", ".log":
		return commonModels.TXT
	default:
		return commonModels.ERR
	}
}

// ExtractPages returns the non-blank pages of the document. PDF pages keep
// their 1-based number; other formats come back as a single page 1.
func ExtractPages(ctx context.Context, path string, docType commonModels.DocType) ([]commonModels.Page, error) {
	if err := searchErrors.FromContext(ctx, "extract"); err != nil {
		return nil, err
	}
	var (
		pages []commonModels.Page
		err   error
	)
	switch docType {
	case commonModels.PDF:
		pages, err = extractPDF(ctx, path)
	case commonModels.DOCX, commonModels.TXT:
		pages, err = extractWithCat(path)
	default:
		return nil, searchErrors.New(searchErrors.ErrInvalidParameter, "extract", "unsupported content type: %s", docType)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filepath.Base(path), err)
	}

	nonBlank := pages[:0]
	for _, p := range pages {
		if strings.TrimSpace(p.Content) != "" {
			nonBlank = append(nonBlank, p)
		}
	}
	return nonBlank, nil
}
