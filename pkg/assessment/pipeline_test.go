package assessment

import (
	"ai-consultation-be/pkg/consultation"
	"ai-consultation-be/pkg/intake"
	"ai-consultation-be/pkg/llm"
	"ai-consultation-be/pkg/llm/llmtest"
	"ai-consultation-be/pkg/reasoning"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDisclaimer = "This is not medical advice. Consult a qualified professional."

var testPrompts = Prompts{
	System:     "persona",
	Symptoms:   "SYMPTOMS|%s",
	Questions:  "QUESTIONS|%d|%s|%s",
	Candidates: "CANDIDATES|%s|%s|%s",
	Synthesis:  "SYNTHESIS|%s|%s|%s|%s",
}

// script answers by prompt prefix.
type script map[string]func(prompt string) (string, error)

func (s script) provider() *llmtest.Provider {
	return &llmtest.Provider{Respond: func(_ context.Context, history []llm.Message, _ llm.Options) (string, error) {
		prompt := history[len(history)-1].Content
		kind := strings.SplitN(prompt, "|", 2)[0]
		fn, ok := s[kind]
		if !ok {
			return "", errors.New("unexpected prompt " + kind)
		}
		return fn(prompt)
	}}
}

func reply(text string) func(string) (string, error) {
	return func(string) (string, error) { return text, nil }
}

type fakeResearcher struct {
	mu       sync.Mutex
	findings []consultation.ResearchFinding
	err      error
	topics   []string
	limit    int
}

func (f *fakeResearcher) Research(_ context.Context, topics []string, limit int) ([]consultation.ResearchFinding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics, f.limit = topics, limit
	return f.findings, f.err
}

type fakeMedia struct {
	res intake.Result
	err error
}

func (f fakeMedia) Read(context.Context, intake.Media) (intake.Result, error) { return f.res, f.err }

type recordingObserver struct {
	mu       sync.Mutex
	stages   []string
	failed   []string
	warnings []string
}

func (r *recordingObserver) ObserveStage(stage string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
	if err != nil {
		r.failed = append(r.failed, stage)
	}
}

func (r *recordingObserver) ObserveWarning(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, code)
}

const synthesisOK = `{"summary":"Likely contact dermatitis.","most_likely":"Contact dermatitis",
"conditions":[{"label":"Contact dermatitis","rationale":"localized itchy redness"},{"label":"Eczema","rationale":"itch"}],
"next_steps":["Avoid suspected irritants","See a dermatologist if it spreads"],
"when_to_see_doctor":"If fever or pus appears."}`

func newPipeline(p llm.LLMProvider, opts ...Option) *Pipeline {
	return New(reasoning.NewGateway(p, nil), testPrompts, Config{Disclaimer: testDisclaimer}, opts...)
}

func TestAssessExample(t *testing.T) {
	provider := script{
		"SYMPTOMS":   reply(`{"symptoms":["itchy patches","redness","duration: 3 days","Redness"]}`),
		"CANDIDATES": reply(`{"most_likely":"Contact dermatitis","conditions":[{"disease":"Contact dermatitis","reasoning":"classic"}]}`),
		"SYNTHESIS":  reply("```json\n" + synthesisOK + "\n```"),
	}.provider()
	researcher := &fakeResearcher{findings: []consultation.ResearchFinding{{Title: "Dermatitis", SourceURL: "https://x", Snippet: "info", Rank: 1}}}

	out, err := newPipeline(provider, WithResearcher(researcher)).Assess(context.Background(), Input{Text: "itchy red patches on forearm, 3 days"})
	require.NoError(t, err)

	assert.Equal(t, []string{"itchy patches", "redness", "duration: 3 days"}, out.Concern.Symptoms)
	assert.NotEmpty(t, out.Assessment.Conditions)
	assert.Equal(t, testDisclaimer, out.Assessment.Disclaimer)
	assert.Equal(t, "Contact dermatitis", out.Assessment.MostLikely)
	assert.Equal(t, []consultation.Condition{{Label: "Contact dermatitis", Rationale: "classic"}}, out.Candidates)
	assert.Len(t, out.Findings, 1)
	assert.Empty(t, out.Warnings)

	var stages []string
	for _, s := range out.Stages {
		stages = append(stages, s.Stage)
	}
	assert.Equal(t, []string{StageIntake, StageSymptomExtraction, StageDeepResearch, StageSynthesis}, stages)

	assert.Equal(t, []string{
		"itchy patches causes symptoms treatment",
		"redness causes symptoms treatment",
		"duration: 3 days causes symptoms treatment",
	}, researcher.topics)
	assert.Equal(t, 5, researcher.limit)
}

func TestAssessWithZeroFindingsStillProducesAssessment(t *testing.T) {
	var candidatesPrompt string
	provider := script{
		"SYMPTOMS": reply(`{"symptoms":["rash"]}`),
		"CANDIDATES": func(prompt string) (string, error) {
			candidatesPrompt = prompt
			return `{"conditions":[]}`, nil
		},
		"SYNTHESIS": reply(synthesisOK),
	}.provider()

	out, err := newPipeline(provider, WithResearcher(&fakeResearcher{})).Assess(context.Background(), Input{Text: "rash"})
	require.NoError(t, err)

	assert.NotEmpty(t, out.Assessment.Summary)
	assert.NotEmpty(t, out.Assessment.Conditions)
	assert.Empty(t, out.Findings)
	assert.Contains(t, candidatesPrompt, noResearchText)
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, consultation.WarnNoFindings, out.Warnings[0].Code)
}

func TestAssessDegradesWhenResearchIsUnavailable(t *testing.T) {
	provider := script{
		"SYMPTOMS":   reply(`{"symptoms":["rash"]}`),
		"CANDIDATES": reply(`{"conditions":[{"label":"Eczema","rationale":"r"}]}`),
		"SYNTHESIS":  reply(`{"summary":"Probably eczema."}`),
	}.provider()
	researcher := &fakeResearcher{err: consultation.ErrUpstreamUnavailable}

	out, err := newPipeline(provider, WithResearcher(researcher)).Assess(context.Background(), Input{Text: "rash"})
	require.NoError(t, err)

	codes := []string{}
	for _, w := range out.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []string{consultation.WarnResearchDegraded, consultation.WarnNoFindings}, codes)
	assert.Equal(t, []consultation.Condition{{Label: "Eczema", Rationale: "r"}}, out.Assessment.Conditions)
	assert.Equal(t, "Eczema", out.Assessment.MostLikely)
}

func TestSymptomExtractionFallsBackOnMalformed(t *testing.T) {
	provider := script{
		"SYMPTOMS":  reply("I think the symptoms are itching"),
		"QUESTIONS": reply(`{"questions":["When did it start?"]}`),
	}.provider()

	out, err := newPipeline(provider).GenerateQuestions(context.Background(), Input{Text: "my skin itches"})
	require.NoError(t, err)

	assert.Equal(t, []string{"my skin itches"}, out.Concern.Symptoms)
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, consultation.WarnSymptomFallback, out.Warnings[0].Code)
}

func TestSynthesisMalformedIsFatal(t *testing.T) {
	provider := script{
		"SYMPTOMS":   reply(`{"symptoms":["rash"]}`),
		"CANDIDATES": reply(`{"conditions":[]}`),
		"SYNTHESIS":  reply("Sorry, I cannot provide an assessment."),
	}.provider()

	out, err := newPipeline(provider).Assess(context.Background(), Input{Text: "rash"})
	assert.Nil(t, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, consultation.ErrPipelineStageFailed)
	assert.ErrorIs(t, err, consultation.ErrMalformedResponse)

	stage, ok := consultation.FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, StageSynthesis, stage)
}

func TestSynthesisWithoutConditionsIsFatal(t *testing.T) {
	provider := script{
		"SYMPTOMS":   reply(`{"symptoms":["rash"]}`),
		"CANDIDATES": reply(`{"conditions":[]}`),
		"SYNTHESIS":  reply(`{"summary":"Something."}`),
	}.provider()

	_, err := newPipeline(provider).Assess(context.Background(), Input{Text: "rash"})
	assert.ErrorIs(t, err, consultation.ErrMalformedResponse)
}

func TestCandidatesMalformedIsFatal(t *testing.T) {
	provider := script{
		"SYMPTOMS":   reply(`{"symptoms":["rash"]}`),
		"CANDIDATES": reply("no idea"),
	}.provider()

	_, err := newPipeline(provider).Assess(context.Background(), Input{Text: "rash"})
	stage, _ := consultation.FailedStage(err)
	assert.Equal(t, StageDeepResearch, stage)
	assert.ErrorIs(t, err, consultation.ErrMalformedResponse)
}

func TestIntakeEmptyInput(t *testing.T) {
	provider := llmtest.Texts()
	_, err := newPipeline(provider).Assess(context.Background(), Input{Text: "   "})

	assert.ErrorIs(t, err, consultation.ErrEmptyInput)
	stage, _ := consultation.FailedStage(err)
	assert.Equal(t, StageIntake, stage)
	assert.Zero(t, provider.CallCount())
}

func TestIntakeNeverFailsWithEmptyInputForNonEmptyText(t *testing.T) {
	for _, text := range []string{"a", " pain ", "itchy red patches on forearm, 3 days", "頭痛"} {
		provider := script{
			"SYMPTOMS":  reply(`{"symptoms":[]}`),
			"QUESTIONS": reply(`{"questions":["How long?"]}`),
		}.provider()
		_, err := newPipeline(provider).GenerateQuestions(context.Background(), Input{Text: text})
		assert.NotErrorIs(t, err, consultation.ErrEmptyInput, text)
		assert.NoError(t, err, text)
	}
}

func TestIntakeMergesUpload(t *testing.T) {
	media := fakeMedia{res: intake.Result{
		Extracted:         consultation.ExtractedText{Text: "Image analysis summary: red rash.", Format: consultation.FormatImage},
		VisualDescription: "- Color: red",
	}}
	provider := script{
		"SYMPTOMS":   reply(`{"symptoms":["red rash"]}`),
		"CANDIDATES": reply(`{"conditions":[]}`),
		"SYNTHESIS":  reply(synthesisOK),
	}.provider()

	out, err := newPipeline(provider, WithMediaReader(media)).Assess(context.Background(), Input{
		Text:   "it burns",
		Upload: &intake.Media{Data: []byte("img"), MimeType: "image/png"},
	})
	require.NoError(t, err)
	assert.Equal(t, "it burns\n\nImage analysis summary: red rash.", out.Concern.Text)
	assert.Equal(t, "- Color: red", out.VisualDescription)
}

func TestIntakeUploadFailureIsStageError(t *testing.T) {
	media := fakeMedia{err: consultation.ErrExtractionFailed}
	_, err := newPipeline(llmtest.Texts(), WithMediaReader(media)).Assess(context.Background(), Input{
		Upload: &intake.Media{Data: []byte("audio"), MimeType: "audio/wav"},
	})
	assert.ErrorIs(t, err, consultation.ErrExtractionFailed)
	stage, _ := consultation.FailedStage(err)
	assert.Equal(t, StageIntake, stage)
}

func TestSuppliedSymptomsSkipExtraction(t *testing.T) {
	provider := script{
		"QUESTIONS": reply(`{"questions":[
			{"question":"How long has the itching lasted?","symptom":"itching"},
			"Is the redness spreading?",
			"Any fever?",
			{"question":"  "},
			"Have you tried any creams?"
		]}`),
	}.provider()

	p := New(reasoning.NewGateway(provider, nil), testPrompts, Config{QuestionCount: 3, Disclaimer: testDisclaimer})
	out, err := p.GenerateQuestions(context.Background(), Input{Text: "skin trouble", Symptoms: []string{"itching", "Redness", "itching"}})
	require.NoError(t, err)

	assert.Equal(t, 1, provider.CallCount())
	assert.Equal(t, []string{"itching", "Redness"}, out.Concern.Symptoms)
	assert.Equal(t, []consultation.Question{
		{Text: "How long has the itching lasted?", Symptom: "itching"},
		{Text: "Is the redness spreading?", Symptom: "Redness"},
		{Text: "Any fever?", Symptom: "itching"},
	}, out.Questions)
	assert.Contains(t, provider.LastCall().History[1].Content, "QUESTIONS|3|itching, Redness|skin trouble")
}

func TestQuestionGenerationMalformedIsFatal(t *testing.T) {
	provider := script{"QUESTIONS": reply("Here are some questions: how long?")}.provider()

	_, err := newPipeline(provider).GenerateQuestions(context.Background(), Input{Text: "x", Symptoms: []string{"x"}})
	assert.ErrorIs(t, err, consultation.ErrMalformedResponse)
	stage, _ := consultation.FailedStage(err)
	assert.Equal(t, StageQuestionGeneration, stage)
}

func TestUpstreamFailureIsAnnotatedWithStage(t *testing.T) {
	provider := llmtest.New(llmtest.Reply{Err: errors.New("connection reset")})

	_, err := newPipeline(provider).Assess(context.Background(), Input{Text: "rash"})
	assert.ErrorIs(t, err, consultation.ErrUpstreamUnavailable)
	stage, _ := consultation.FailedStage(err)
	assert.Equal(t, StageSymptomExtraction, stage)
}

func TestRetrierWrapsGatewayCalls(t *testing.T) {
	provider := llmtest.New(
		llmtest.Reply{Err: errors.New("503")},
		llmtest.Reply{Text: `{"symptoms":["rash"]}`},
		llmtest.Reply{Text: `{"questions":["Where?"]}`},
	)
	retries := 0
	retry := func(ctx context.Context, op func() error) error {
		err := op()
		if errors.Is(err, consultation.ErrUpstreamUnavailable) {
			retries++
			err = op()
		}
		return err
	}

	out, err := newPipeline(provider, WithRetrier(retry)).GenerateQuestions(context.Background(), Input{Text: "rash"})
	require.NoError(t, err)
	assert.Equal(t, 1, retries)
	assert.Equal(t, "Where?", out.Questions[0].Text)
}

func TestRunReturnsTaggedOutcome(t *testing.T) {
	provider := script{
		"SYMPTOMS":  reply(`{"symptoms":["rash"]}`),
		"QUESTIONS": reply(`{"questions":["Where?"]}`),
	}.provider()

	out, err := newPipeline(provider).Run(context.Background(), Input{Text: "rash"}, ModeQuestions)
	require.NoError(t, err)

	switch o := out.(type) {
	case *QuestionsOutcome:
		assert.Len(t, o.Questions, 1)
	case *AssessmentOutcome:
		t.Fatalf("unexpected assessment outcome")
	}
}

func TestObserverSeesStagesAndWarnings(t *testing.T) {
	provider := script{
		"SYMPTOMS":  reply("garbage"),
		"QUESTIONS": reply(`{"questions":["Where?"]}`),
	}.provider()
	obs := &recordingObserver{}

	_, err := newPipeline(provider, WithObserver(obs)).GenerateQuestions(context.Background(), Input{Text: "rash"})
	require.NoError(t, err)
	assert.Equal(t, []string{StageIntake, StageSymptomExtraction, StageQuestionGeneration}, obs.stages)
	assert.Equal(t, []string{consultation.WarnSymptomFallback}, obs.warnings)
	assert.Empty(t, obs.failed)
}

func TestCancelledContextAbortsBeforeFirstStage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	provider := llmtest.Texts()

	_, err := newPipeline(provider).Assess(ctx, Input{Text: "rash"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, provider.CallCount())
}
