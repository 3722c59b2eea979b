package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"ai-consultation-be/internal/dto"
	"ai-consultation-be/internal/entity"
	"ai-consultation-be/internal/pkg/logger"
	"ai-consultation-be/internal/pkg/serverutils"
	"ai-consultation-be/internal/repository/contract"
	"ai-consultation-be/internal/repository/specification"
	"ai-consultation-be/pkg/assessment"
	"ai-consultation-be/pkg/consultation"
	"ai-consultation-be/pkg/intake"
	"ai-consultation-be/pkg/report"

	"github.com/google/uuid"
)

var (
	ErrAssessmentNotFound = serverutils.NewHTTPError(http.StatusNotFound, "assessment not found")
	ErrArchiveDisabled    = serverutils.NewHTTPError(http.StatusNotImplemented, "assessment archive is not configured")
)

// AssessmentPipeline is the part of *assessment.Pipeline the service drives.
type AssessmentPipeline interface {
	GenerateQuestions(ctx context.Context, in assessment.Input) (*assessment.QuestionsOutcome, error)
	Assess(ctx context.Context, in assessment.Input) (*assessment.AssessmentOutcome, error)
}

type IAssessmentService interface {
	GenerateQuestions(ctx context.Context, req *dto.QuestionsRequest) (*dto.QuestionsResponse, error)
	Assess(ctx context.Context, text string, upload *intake.Media) (*dto.AssessResponse, error)
	GetArchived(ctx context.Context, id uuid.UUID) (*dto.ArchivedAssessmentResponse, error)
	ListArchived(ctx context.Context, req *dto.ListArchivedRequest) ([]*dto.ArchivedAssessmentResponse, error)
}

type assessmentService struct {
	pipeline         AssessmentPipeline
	archive          contract.AssessmentRepository
	publisherService IPublisherService
	logger           logger.ILogger
	now              func() time.Time
}

// NewAssessmentService builds the service. archive may be nil when no
// database is configured.
func NewAssessmentService(
	pipeline AssessmentPipeline,
	archive contract.AssessmentRepository,
	publisherService IPublisherService,
	logger logger.ILogger,
) IAssessmentService {
	return &assessmentService{
		pipeline:         pipeline,
		archive:          archive,
		publisherService: publisherService,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *assessmentService) GenerateQuestions(ctx context.Context, req *dto.QuestionsRequest) (*dto.QuestionsResponse, error) {
	start := s.now()

	out, err := s.pipeline.GenerateQuestions(ctx, assessment.Input{
		Text:     req.Statement,
		Symptoms: req.Symptoms,
	})
	if err != nil {
		return nil, err
	}

	return &dto.QuestionsResponse{
		Questions:             out.Questions,
		Symptoms:              out.Concern.Symptoms,
		Warnings:              nonNilWarnings(out.Warnings),
		ProcessingTimeSeconds: s.now().Sub(start).Seconds(),
	}, nil
}

func (s *assessmentService) Assess(ctx context.Context, text string, upload *intake.Media) (*dto.AssessResponse, error) {
	start := s.now()

	out, err := s.pipeline.Assess(ctx, assessment.Input{
		Text:   strings.TrimSpace(text),
		Upload: upload,
	})
	if err != nil {
		return nil, err
	}

	markdown, err := report.ToMarkdown(out.Assessment, out.VisualDescription)
	if err != nil {
		return nil, err
	}

	res := &dto.AssessResponse{
		AssessmentId:          uuid.New(),
		Assessment:            out.Assessment,
		ReportMarkdown:        markdown,
		Candidates:            out.Candidates,
		Symptoms:              out.Concern.Symptoms,
		VisualDescription:     out.VisualDescription,
		Findings:              out.Findings,
		Warnings:              nonNilWarnings(out.Warnings),
		ProcessingTimeSeconds: s.now().Sub(start).Seconds(),
	}

	s.logger.Info("PIPELINE", "Assessment completed", map[string]interface{}{
		"assessment_id": res.AssessmentId.String(),
		"conditions":    len(res.Assessment.Conditions),
		"findings":      len(res.Findings),
		"warnings":      len(res.Warnings),
		"elapsed_s":     res.ProcessingTimeSeconds,
	})

	if s.publisherService != nil {
		s.publisherService.PublishAssessmentCompleted(ctx, dto.AssessmentCompletedMessage{
			AssessmentId:      res.AssessmentId,
			Assessment:        res.Assessment,
			Symptoms:          res.Symptoms,
			VisualDescription: res.VisualDescription,
			Warnings:          res.Warnings,
			ReportMarkdown:    res.ReportMarkdown,
		})
	}

	return res, nil
}

func (s *assessmentService) GetArchived(ctx context.Context, id uuid.UUID) (*dto.ArchivedAssessmentResponse, error) {
	record, err := s.findArchived(ctx, id)
	if err != nil {
		return nil, err
	}
	return toArchivedResponse(record), nil
}

func (s *assessmentService) ListArchived(ctx context.Context, req *dto.ListArchivedRequest) ([]*dto.ArchivedAssessmentResponse, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	specs := []specification.Specification{
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: req.Offset},
	}
	if c := strings.TrimSpace(req.Condition); c != "" {
		specs = append(specs, specification.ByMostLikely{Label: c})
	}

	records, err := s.archive.FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ArchivedAssessmentResponse, 0, len(records))
	for _, record := range records {
		res = append(res, toArchivedResponse(record))
	}
	return res, nil
}

func (s *assessmentService) findArchived(ctx context.Context, id uuid.UUID) (*entity.AssessmentRecord, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	record, err := s.archive.FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrAssessmentNotFound
	}
	return record, nil
}

func toArchivedResponse(record *entity.AssessmentRecord) *dto.ArchivedAssessmentResponse {
	return &dto.ArchivedAssessmentResponse{
		Id:                record.Id,
		Assessment:        record.Assessment,
		Symptoms:          record.Symptoms,
		VisualDescription: record.VisualDescription,
		CreatedAt:         record.CreatedAt,
	}
}

func nonNilWarnings(w []consultation.Warning) []consultation.Warning {
	if w == nil {
		return []consultation.Warning{}
	}
	return w
}
