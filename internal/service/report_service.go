package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-consultation-be/internal/dto"
	"ai-consultation-be/internal/pkg/logger"
	"ai-consultation-be/internal/pkg/serverutils"
	"ai-consultation-be/internal/repository/contract"
	"ai-consultation-be/internal/repository/specification"
	"ai-consultation-be/pkg/consultation"
	"ai-consultation-be/pkg/extraction"
	"ai-consultation-be/pkg/reasoning"
	"ai-consultation-be/pkg/report"

	"github.com/google/uuid"
)

const maxReportChars = 12000

// Extractor is the part of *extraction.Dispatcher the service drives.
type Extractor interface {
	Extract(ctx context.Context, in extraction.Input) (consultation.ExtractedText, error)
}

// ExtractionObserver records extraction outcomes.
type ExtractionObserver interface {
	ObserveExtraction(format consultation.Format, err error)
}

type IReportService interface {
	Analyze(ctx context.Context, file extraction.Input) (*dto.AnalyzeReportResponse, error)
	GeneratePDF(ctx context.Context, req *dto.GeneratePDFRequest) (*dto.GeneratedPDF, error)
}

// ReportPrompts: Analysis receives the extracted text through one %s verb.
type ReportPrompts struct {
	System   string
	Analysis string
}

type reportService struct {
	extractor        Extractor
	gateway          *reasoning.Gateway
	renderer         report.Renderer
	archive          contract.AssessmentRepository
	publisherService IPublisherService
	observer         ExtractionObserver
	retry            RetryFunc
	prompts          ReportPrompts
	logger           logger.ILogger
	now              func() time.Time
}

func NewReportService(
	extractor Extractor,
	gateway *reasoning.Gateway,
	renderer report.Renderer,
	archive contract.AssessmentRepository,
	publisherService IPublisherService,
	observer ExtractionObserver,
	retry RetryFunc,
	prompts ReportPrompts,
	logger logger.ILogger,
) IReportService {
	if retry == nil {
		retry = func(_ context.Context, op func() error) error { return op() }
	}
	return &reportService{
		extractor:        extractor,
		gateway:          gateway,
		renderer:         renderer,
		archive:          archive,
		publisherService: publisherService,
		observer:         observer,
		retry:            retry,
		prompts:          prompts,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *reportService) Analyze(ctx context.Context, file extraction.Input) (*dto.AnalyzeReportResponse, error) {
	mimeType, _ := extraction.ResolveType(file.MimeType, file.Filename, file.Data)

	extracted, err := s.extractor.Extract(ctx, file)
	if s.observer != nil {
		s.observer.ObserveExtraction(extracted.Format, err)
	}
	if err != nil {
		s.logger.Warn("EXTRACTION", "Report extraction failed", map[string]interface{}{
			"file":      file.Filename,
			"mime_type": mimeType,
			"error":     err.Error(),
		})
		return nil, err
	}

	var summary string
	err = s.retry(ctx, func() error {
		var callErr error
		summary, callErr = s.gateway.CompleteText(ctx, reasoning.Request{
			System: s.prompts.System,
			Prompt: fmt.Sprintf(s.prompts.Analysis, consultation.Clip(extracted.Text, maxReportChars)),
		})
		return callErr
	})
	if err != nil {
		return nil, err
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return nil, fmt.Errorf("%w: empty report summary", consultation.ErrMalformedResponse)
	}

	warnings := nonNilWarnings(extracted.Warnings)
	if s.publisherService != nil {
		s.publisherService.PublishReportAnalyzed(ctx, file.Filename, extracted.Format, len(warnings))
	}

	return &dto.AnalyzeReportResponse{
		Summary:  summary,
		Format:   extracted.Format,
		Warnings: warnings,
		File:     file.Filename,
		MimeType: mimeType,
	}, nil
}

func (s *reportService) GeneratePDF(ctx context.Context, req *dto.GeneratePDFRequest) (*dto.GeneratedPDF, error) {
	markdown, err := s.resolveMarkdown(ctx, req)
	if err != nil {
		return nil, err
	}

	generatedAt := s.now()
	content, err := s.renderer.ToDocument(ctx, report.WithHeader(markdown, generatedAt))
	if err != nil {
		s.logger.Error("REPORT", "Document rendering failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	return &dto.GeneratedPDF{
		Filename: fmt.Sprintf("Consultation_Report_%s.pdf", generatedAt.Format("20060102_150405")),
		Content:  content,
	}, nil
}

// resolveMarkdown prefers caller-supplied markdown, then the archived report,
// then a fresh rendering of the assessment.
func (s *reportService) resolveMarkdown(ctx context.Context, req *dto.GeneratePDFRequest) (string, error) {
	if md := strings.TrimSpace(req.ReportMarkdown); md != "" {
		return md, nil
	}

	if req.Assessment != nil {
		return report.ToMarkdown(*req.Assessment, req.VisualDescription)
	}

	id, err := uuid.Parse(req.AssessmentId)
	if err != nil {
		return "", fmt.Errorf("%w: final_assessment or a valid assessment_id is required", serverutils.ErrBadRequest)
	}
	if s.archive == nil {
		return "", ErrArchiveDisabled
	}
	record, err := s.archive.FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", ErrAssessmentNotFound
	}
	if record.ReportMarkdown != "" {
		return record.ReportMarkdown, nil
	}
	return report.ToMarkdown(record.Assessment, record.VisualDescription)
}
