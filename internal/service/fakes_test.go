package service

import (
	"context"
	"sync"

	"ai-consultation-be/internal/dto"
	"ai-consultation-be/internal/entity"
	"ai-consultation-be/internal/pkg/logger"
	"ai-consultation-be/internal/repository/specification"
	"ai-consultation-be/pkg/assessment"
	"ai-consultation-be/pkg/consultation"
	"ai-consultation-be/pkg/events"

	"go.uber.org/zap"
)

func nopLogger() logger.ILogger {
	return logger.NewFromZap(zap.NewNop())
}

type fakePipeline struct {
	questions *assessment.QuestionsOutcome
	outcome   *assessment.AssessmentOutcome
	err       error
	lastInput assessment.Input
}

func (f *fakePipeline) GenerateQuestions(_ context.Context, in assessment.Input) (*assessment.QuestionsOutcome, error) {
	f.lastInput = in
	return f.questions, f.err
}

func (f *fakePipeline) Assess(_ context.Context, in assessment.Input) (*assessment.AssessmentOutcome, error) {
	f.lastInput = in
	return f.outcome, f.err
}

// fakeArchive ignores specifications except ByID.
type fakeArchive struct {
	mu        sync.Mutex
	records   []*entity.AssessmentRecord
	createErr error
	lastSpecs []specification.Specification
}

func (f *fakeArchive) Create(_ context.Context, record *entity.AssessmentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeArchive) FindOne(_ context.Context, specs ...specification.Specification) (*entity.AssessmentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSpecs = specs
	for _, spec := range specs {
		byID, ok := spec.(specification.ByID)
		if !ok {
			continue
		}
		for _, r := range f.records {
			if r.Id == byID.ID {
				return r, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeArchive) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.AssessmentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSpecs = specs
	return append([]*entity.AssessmentRecord(nil), f.records...), nil
}

func (f *fakeArchive) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakePublisher struct {
	completed []dto.AssessmentCompletedMessage
	analyzed  []string
	evicted   []string
}

func (f *fakePublisher) PublishAssessmentCompleted(_ context.Context, msg dto.AssessmentCompletedMessage) {
	f.completed = append(f.completed, msg)
}

func (f *fakePublisher) PublishReportAnalyzed(_ context.Context, file string, _ consultation.Format, _ int) {
	f.analyzed = append(f.analyzed, file)
}

func (f *fakePublisher) PublishSessionEvicted(_ context.Context, s *consultation.Session) {
	f.evicted = append(f.evicted, s.ID)
}

type fakeForwarder struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (f *fakeForwarder) Publish(_ context.Context, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.err
}

func (f *fakeForwarder) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType())
	}
	return out
}

func sampleAssessment() consultation.Assessment {
	return consultation.Assessment{
		Summary:    "Likely a mild contact dermatitis.",
		MostLikely: "Contact dermatitis",
		Conditions: []consultation.Condition{
			{Label: "Contact dermatitis", Rationale: "Redness after exposure"},
			{Label: "Eczema", Rationale: "Itching and dryness"},
		},
		NextSteps:  []string{"Avoid the irritant"},
		Disclaimer: "Not a diagnosis.",
	}
}
