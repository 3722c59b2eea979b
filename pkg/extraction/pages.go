package extraction

import (
	"ai-consultation-be/pkg/consultation"
	"fmt"
	"strings"
)

// PageResult is the outcome of extracting one page. A failed page has Err set.
type PageResult struct {
	Page int
	Text string
	Err  error
}

// assemblePages joins page texts in order. Failed pages contribute an empty
// string; if at least one page succeeded the result carries a
// PARTIAL_EXTRACTION warning instead of an error.
func assemblePages(pages []PageResult) (string, []consultation.Warning, error) {
	if len(pages) == 0 {
		return "", nil, fmt.Errorf("%w: document has no pages", consultation.ErrExtractionFailed)
	}

	texts := make([]string, len(pages))
	var failed []int
	var lastErr error
	for i, p := range pages {
		if p.Err != nil {
			failed = append(failed, p.Page)
			lastErr = p.Err
			continue
		}
		texts[i] = strings.TrimSpace(p.Text)
	}

	if len(failed) == len(pages) {
		return "", nil, fmt.Errorf("%w: all %d pages failed: %v", consultation.ErrExtractionFailed, len(pages), lastErr)
	}

	text := strings.TrimSpace(joinNonEmpty(texts))
	if text == "" {
		return "", nil, fmt.Errorf("%w: no text found", consultation.ErrExtractionFailed)
	}

	var warnings []consultation.Warning
	if len(failed) > 0 {
		warnings = append(warnings, consultation.Warning{
			Code:    consultation.WarnPartialExtraction,
			Message: fmt.Sprintf("%d of %d pages could not be read: %v", len(failed), len(pages), failed),
		})
	}
	return text, warnings, nil
}

func joinNonEmpty(parts []string) string {
	var sb strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(p)
	}
	return sb.String()
}
