package extraction

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// MaxPDFPages limits the number of pages to process
const MaxPDFPages = 100

// PDFParser reads the embedded text layer of a PDF.
type PDFParser struct{}

func (PDFParser) Pages(ctx context.Context, data []byte) ([]PageResult, error) {
	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	totalPages := pdfReader.NumPage()
	if totalPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	if totalPages > MaxPDFPages {
		return nil, fmt.Errorf("PDF has too many pages (%d), max allowed is %d", totalPages, MaxPDFPages)
	}

	pages := make([]PageResult, 0, totalPages)
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			pages = append(pages, PageResult{Page: pageNum})
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, PageResult{Page: pageNum, Err: err})
			continue
		}
		pages = append(pages, PageResult{Page: pageNum, Text: cleanText(text)})
	}
	return pages, nil
}

// hasText reports whether any page carried a usable text layer.
func hasText(pages []PageResult) bool {
	for _, p := range pages {
		if p.Err == nil && strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

// cleanText drops null bytes and collapses runs of non-newline whitespace.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")

	var result strings.Builder
	lastWasSpace := false
	for _, r := range text {
		switch {
		case r == '\n':
			result.WriteRune('\n')
			lastWasSpace = false
		case unicode.IsSpace(r):
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		default:
			result.WriteRune(r)
			lastWasSpace = false
		}
	}
	return strings.TrimSpace(result.String())
}
