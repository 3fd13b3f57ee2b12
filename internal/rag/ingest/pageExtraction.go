package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

var errPageTimeout = errors.New("page extraction timed out")

func extractPDF(ctx context.Context, path string) ([]commonModels.Page, error) {
	f, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	numPages := f.NumPage()
	pages := make([]commonModels.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := protectExtract(ctx, page, config.PageExtractionTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// one broken page should not lose the rest of the document
			logger.Warn("Skipping unreadable pdf page", "page", i, "error", err)
			continue
		}
		pages = append(pages, commonModels.Page{Number: i, Content: content})
	}
	return pages, nil
}

// extractWithCat reads .docx, .odt, .rtf and plain text as one page.
func extractWithCat(path string) ([]commonModels.Page, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}
	return []commonModels.Page{{Number: 1, Content: text}}, nil
}

// protectExtract bounds a single page's text extraction; malformed pages can make
// the pdf reader spin or panic.
func protectExtract(ctx context.Context, page pdf.Page, timeout time.Duration) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{err: fmt.Errorf("pdf reader panic: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-timer.C:
		return "", errPageTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
