package assessment

import (
	"ai-consultation-be/pkg/consultation"
	"ai-consultation-be/pkg/intake"
	"ai-consultation-be/pkg/reasoning"
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const logModule = "PIPELINE"

// Stage names, in execution order.
const (
	StageIntake             = "intake"
	StageSymptomExtraction  = "symptom_extraction"
	StageQuestionGeneration = "question_generation"
	StageDeepResearch       = "deep_research"
	StageSynthesis          = "synthesis"
)

// Mode selects the branch taken after symptom extraction.
type Mode int

const (
	ModeQuestions Mode = iota
	ModeAssessment
)

// Input is the raw material for one pipeline run.
type Input struct {
	Text     string
	Upload   *intake.Media
	Media    []consultation.ExtractedText
	Symptoms []string
}

// Outcome is either *QuestionsOutcome or *AssessmentOutcome.
type Outcome interface {
	isOutcome()
}

type QuestionsOutcome struct {
	Concern   consultation.Concern
	Questions []consultation.Question
	Warnings  []consultation.Warning
	Stages    []consultation.StageResult
}

type AssessmentOutcome struct {
	Concern           consultation.Concern
	Assessment        consultation.Assessment
	Candidates        []consultation.Condition
	Findings          []consultation.ResearchFinding
	VisualDescription string
	Warnings          []consultation.Warning
	Stages            []consultation.StageResult
}

func (*QuestionsOutcome) isOutcome()  {}
func (*AssessmentOutcome) isOutcome() {}

// Researcher is the web research dependency.
type Researcher interface {
	Research(ctx context.Context, topics []string, limit int) ([]consultation.ResearchFinding, error)
}

// MediaReader converts an uploaded image or audio clip into text.
type MediaReader interface {
	Read(ctx context.Context, m intake.Media) (intake.Result, error)
}

// Observer receives per-stage timings and emitted warnings.
type Observer interface {
	ObserveStage(stage string, elapsed time.Duration, err error)
	ObserveWarning(code string)
}

// Retrier runs op, retrying transient failures as it sees fit.
type Retrier func(ctx context.Context, op func() error) error

// Prompts are fmt templates. Argument order:
//
//	Symptoms:   concern
//	Questions:  count, symptoms, concern
//	Candidates: concern, symptoms, research
//	Synthesis:  concern, symptoms, candidates, research
type Prompts struct {
	System     string
	Symptoms   string
	Questions  string
	Candidates string
	Synthesis  string
}

type Config struct {
	QuestionCount    int
	MaxTopics        int
	ResultLimit      int
	MaxResearchChars int
	QueryFormat      string // fmt template receiving one symptom
	Disclaimer       string
}

func (c Config) withDefaults() Config {
	if c.QuestionCount <= 0 {
		c.QuestionCount = 5
	}
	if c.MaxTopics <= 0 {
		c.MaxTopics = 3
	}
	if c.ResultLimit <= 0 {
		c.ResultLimit = 5
	}
	if c.MaxResearchChars <= 0 {
		c.MaxResearchChars = 20000
	}
	if c.QueryFormat == "" {
		c.QueryFormat = "%s causes symptoms treatment"
	}
	return c
}

// Pipeline is the fixed-stage assessment workflow. It holds no per-run state
// and is safe for concurrent use.
type Pipeline struct {
	gateway  *reasoning.Gateway
	research Researcher
	media    MediaReader
	prompts  Prompts
	cfg      Config
	logger   consultation.Logger
	observer Observer
	retry    Retrier
}

type Option func(*Pipeline)

func WithResearcher(r Researcher) Option  { return func(p *Pipeline) { p.research = r } }
func WithMediaReader(m MediaReader) Option { return func(p *Pipeline) { p.media = m } }
func WithLogger(l consultation.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}
func WithObserver(o Observer) Option { return func(p *Pipeline) { p.observer = o } }
func WithRetrier(r Retrier) Option   { return func(p *Pipeline) { p.retry = r } }

func New(gateway *reasoning.Gateway, prompts Prompts, cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		gateway: gateway,
		prompts: prompts,
		cfg:     cfg.withDefaults(),
		logger:  consultation.NopLogger{},
		retry:   func(_ context.Context, op func() error) error { return op() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GenerateQuestions runs intake, symptom extraction and question generation.
func (p *Pipeline) GenerateQuestions(ctx context.Context, in Input) (*QuestionsOutcome, error) {
	out, err := p.Run(ctx, in, ModeQuestions)
	if err != nil {
		return nil, err
	}
	return out.(*QuestionsOutcome), nil
}

// Assess runs intake, symptom extraction, deep research and synthesis.
func (p *Pipeline) Assess(ctx context.Context, in Input) (*AssessmentOutcome, error) {
	out, err := p.Run(ctx, in, ModeAssessment)
	if err != nil {
		return nil, err
	}
	return out.(*AssessmentOutcome), nil
}

// Run executes the stages in order. Any stage failure aborts the run with a
// *consultation.StageError; no partial outcome is returned.
func (p *Pipeline) Run(ctx context.Context, in Input, mode Mode) (Outcome, error) {
	ctx, span := otel.Tracer("assessment").Start(ctx, "pipeline.run")
	defer span.End()

	st := &runState{}
	start := time.Now()

	err := p.stage(ctx, st, StageIntake, func(ctx context.Context) error { return p.normalizeIntake(ctx, st, in) })
	if err == nil {
		err = p.stage(ctx, st, StageSymptomExtraction, func(ctx context.Context) error { return p.extractSymptoms(ctx, st, in.Symptoms) })
	}
	if err != nil {
		return nil, p.fail(span, err)
	}

	var outcome Outcome
	switch mode {
	case ModeQuestions:
		err = p.stage(ctx, st, StageQuestionGeneration, func(ctx context.Context) error { return p.generateQuestions(ctx, st) })
		outcome = &QuestionsOutcome{Concern: st.concern, Questions: st.questions, Warnings: st.warnings, Stages: st.stages}
	default:
		err = p.stage(ctx, st, StageDeepResearch, func(ctx context.Context) error { return p.deepResearch(ctx, st) })
		if err == nil {
			err = p.stage(ctx, st, StageSynthesis, func(ctx context.Context) error { return p.synthesize(ctx, st) })
		}
		outcome = &AssessmentOutcome{
			Concern:           st.concern,
			Assessment:        st.assessment,
			Candidates:        st.candidates,
			Findings:          st.findings,
			VisualDescription: st.visual,
			Warnings:          st.warnings,
			Stages:            st.stages,
		}
	}
	if err != nil {
		return nil, p.fail(span, err)
	}

	p.logger.Info(logModule, "Pipeline completed", map[string]interface{}{
		"mode":       mode.String(),
		"symptoms":   len(st.concern.Symptoms),
		"warnings":   len(st.warnings),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return outcome, nil
}

func (p *Pipeline) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// stage runs fn as one named stage: span, timing, logging and error wrapping.
func (p *Pipeline) stage(ctx context.Context, st *runState, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return consultation.StageFailed(name, err)
	}

	ctx, span := otel.Tracer("assessment").Start(ctx, "stage."+name)
	defer span.End()

	warningsBefore := len(st.warnings)
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if p.observer != nil {
		p.observer.ObserveStage(name, elapsed, err)
		for _, w := range st.warnings[warningsBefore:] {
			p.observer.ObserveWarning(w.Code)
		}
	}

	details := map[string]interface{}{
		"stage":      name,
		"elapsed_ms": elapsed.Milliseconds(),
		"warnings":   len(st.warnings) - warningsBefore,
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stage failed")
		details["error"] = err.Error()
		p.logger.Error(logModule, "Stage failed", details)
		return consultation.StageFailed(name, err)
	}
	span.SetAttributes(attribute.Int("stage.warnings", len(st.warnings)-warningsBefore))
	p.logger.Debug(logModule, "Stage completed", details)
	return nil
}

// runState threads data between stages of one run.
type runState struct {
	concern    consultation.Concern
	visual     string
	questions  []consultation.Question
	findings   []consultation.ResearchFinding
	candidates []consultation.Condition
	mostLikely string
	assessment consultation.Assessment
	warnings   []consultation.Warning
	stages     []consultation.StageResult
}

func (s *runState) warn(code, message string) {
	s.warnings = append(s.warnings, consultation.Warning{Code: code, Message: message})
}

func (s *runState) record(stage string, fields map[string]interface{}) {
	s.stages = append(s.stages, consultation.StageResult{Stage: stage, Fields: fields})
}
