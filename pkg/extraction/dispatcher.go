package extraction

import (
	"ai-consultation-be/pkg/consultation"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const logModule = "EXTRACTION"

// DocumentParser reads the text layer of a paginated document.
type DocumentParser interface {
	Pages(ctx context.Context, data []byte) ([]PageResult, error)
}

// OfficeReader reads OOXML files.
type OfficeReader interface {
	DOCX(ctx context.Context, data []byte) (string, error)
	XLSX(ctx context.Context, data []byte) (string, error)
}

// OCR recognizes text in images and scanned documents.
type OCR interface {
	ImageText(ctx context.Context, data []byte, mimeType string) (string, error)
	DocumentPages(ctx context.Context, data []byte, mimeType string) ([]PageResult, error)
}

// Input is one uploaded artifact.
type Input struct {
	Data     []byte
	MimeType string
	Filename string
}

// Dispatcher routes an artifact to the extractor for its content type.
type Dispatcher struct {
	documents DocumentParser
	office    OfficeReader
	ocr       OCR
	logger    consultation.Logger
}

func NewDispatcher(documents DocumentParser, office OfficeReader, ocr OCR, logger consultation.Logger) *Dispatcher {
	if logger == nil {
		logger = consultation.NopLogger{}
	}
	return &Dispatcher{documents: documents, office: office, ocr: ocr, logger: logger}
}

// Extract returns the plain text of in. Unrecognized types fail with
// ErrUnsupportedFormat before any extractor runs; extractor errors and empty
// results fail with ErrExtractionFailed.
func (d *Dispatcher) Extract(ctx context.Context, in Input) (consultation.ExtractedText, error) {
	if len(in.Data) == 0 {
		return consultation.ExtractedText{}, consultation.ErrEmptyInput
	}

	mimeType, kind := ResolveType(in.MimeType, in.Filename, in.Data)
	if kind == KindUnknown {
		return consultation.ExtractedText{}, fmt.Errorf("%w: %q", consultation.ErrUnsupportedFormat, mimeType)
	}

	ctx, span := otel.Tracer("extraction").Start(ctx, "dispatcher.extract")
	defer span.End()
	span.SetAttributes(attribute.String("extraction.kind", kind.String()), attribute.String("extraction.mime", mimeType))

	start := time.Now()
	out, err := d.route(ctx, kind, mimeType, in.Data)
	if err != nil {
		span.RecordError(err)
		d.logger.Warn(logModule, "Extraction failed", map[string]interface{}{
			"kind":  kind.String(),
			"mime":  mimeType,
			"error": err.Error(),
		})
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return consultation.ExtractedText{}, err
		}
		if !errors.Is(err, consultation.ErrExtractionFailed) {
			err = fmt.Errorf("%w: %w", consultation.ErrExtractionFailed, err)
		}
		return consultation.ExtractedText{}, err
	}

	d.logger.Info(logModule, "Extraction completed", map[string]interface{}{
		"kind":       kind.String(),
		"format":     string(out.Format),
		"chars":      len(out.Text),
		"warnings":   len(out.Warnings),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return out, nil
}

func (d *Dispatcher) route(ctx context.Context, kind Kind, mimeType string, data []byte) (consultation.ExtractedText, error) {
	switch kind {
	case KindPDF:
		return d.extractPDF(ctx, data)
	case KindDOCX:
		return d.fromText(d.office.DOCX(ctx, data))
	case KindXLSX:
		return d.fromText(d.office.XLSX(ctx, data))
	case KindImage:
		if d.ocr == nil {
			return consultation.ExtractedText{}, errors.New("no OCR backend configured")
		}
		text, err := d.ocr.ImageText(ctx, data, mimeType)
		if err != nil {
			return consultation.ExtractedText{}, err
		}
		return textResult(text, consultation.FormatImage)
	case KindMultiPageImage:
		return d.ocrPages(ctx, data, mimeType, consultation.FormatImage)
	}
	return consultation.ExtractedText{}, fmt.Errorf("%w: %q", consultation.ErrUnsupportedFormat, mimeType)
}

// extractPDF uses the embedded text layer and falls back to OCR when the
// document has none.
func (d *Dispatcher) extractPDF(ctx context.Context, data []byte) (consultation.ExtractedText, error) {
	pages, err := d.documents.Pages(ctx, data)
	if err != nil {
		return consultation.ExtractedText{}, err
	}
	if hasText(pages) {
		text, warnings, err := assemblePages(pages)
		if err != nil {
			return consultation.ExtractedText{}, err
		}
		return consultation.ExtractedText{Text: text, Format: consultation.FormatDocument, Warnings: warnings}, nil
	}

	if d.ocr == nil {
		return consultation.ExtractedText{}, fmt.Errorf("%w: PDF has no text layer", consultation.ErrExtractionFailed)
	}
	d.logger.Debug(logModule, "PDF has no text layer, using OCR", map[string]interface{}{"pages": len(pages)})
	return d.ocrPages(ctx, data, MimePDF, consultation.FormatScannedDocument)
}

func (d *Dispatcher) ocrPages(ctx context.Context, data []byte, mimeType string, format consultation.Format) (consultation.ExtractedText, error) {
	if d.ocr == nil {
		return consultation.ExtractedText{}, errors.New("no OCR backend configured")
	}
	pages, err := d.ocr.DocumentPages(ctx, data, mimeType)
	if err != nil {
		return consultation.ExtractedText{}, err
	}
	text, warnings, err := assemblePages(pages)
	if err != nil {
		return consultation.ExtractedText{}, err
	}
	return consultation.ExtractedText{Text: text, Format: format, Warnings: warnings}, nil
}

func (d *Dispatcher) fromText(text string, err error) (consultation.ExtractedText, error) {
	if err != nil {
		return consultation.ExtractedText{}, err
	}
	return textResult(text, consultation.FormatDocument)
}

func textResult(text string, format consultation.Format) (consultation.ExtractedText, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return consultation.ExtractedText{}, fmt.Errorf("%w: no text found", consultation.ErrExtractionFailed)
	}
	return consultation.ExtractedText{Text: text, Format: format}, nil
}
