package assessment

import (
	"ai-consultation-be/pkg/consultation"
	"ai-consultation-be/pkg/intake"
	"ai-consultation-be/pkg/reasoning"
	"ai-consultation-be/pkg/research"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const noResearchText = "No research data was available or retrieved."

func (m Mode) String() string {
	if m == ModeQuestions {
		return "questions"
	}
	return "assessment"
}

// normalizeIntake merges free text, pre-extracted media text and an optional upload
// into one Concern.
func (p *Pipeline) normalizeIntake(ctx context.Context, st *runState, in Input) error {
	var parts []string
	if text := strings.TrimSpace(in.Text); text != "" {
		parts = append(parts, text)
	}
	for _, m := range in.Media {
		if text := strings.TrimSpace(m.Text); text != "" {
			parts = append(parts, text)
		}
		st.warnings = append(st.warnings, m.Warnings...)
	}

	sources := len(parts)
	if in.Upload != nil && len(in.Upload.Data) > 0 {
		if p.media == nil {
			return fmt.Errorf("%w: media uploads are not enabled", consultation.ErrUnsupportedFormat)
		}
		var upload intake.Result
		err := p.retry(ctx, func() error {
			r, err := p.media.Read(ctx, *in.Upload)
			if err != nil {
				return err
			}
			upload = r
			return nil
		})
		if err != nil {
			return err
		}
		if text := strings.TrimSpace(upload.Extracted.Text); text != "" {
			parts = append(parts, text)
			sources++
		}
		st.visual = upload.VisualDescription
		st.warnings = append(st.warnings, upload.Extracted.Warnings...)
	}

	if len(parts) == 0 {
		return consultation.ErrEmptyInput
	}
	st.concern = consultation.Concern{Text: strings.Join(parts, "\n\n")}
	st.record(StageIntake, map[string]interface{}{
		"sources":            sources,
		"chars":              len(st.concern.Text),
		"visual_description": st.visual != "",
	})
	return nil
}

// extractSymptoms uses caller-supplied symptoms when present. Otherwise it
// asks the gateway, degrading to the raw concern text when the answer cannot
// be parsed or lists nothing.
func (p *Pipeline) extractSymptoms(ctx context.Context, st *runState, supplied []string) error {
	if symptoms := consultation.DedupeSymptoms(supplied); len(symptoms) > 0 {
		st.concern = st.concern.WithSymptoms(symptoms)
		st.record(StageSymptomExtraction, map[string]interface{}{"source": "supplied", "symptoms": st.concern.Symptoms})
		return nil
	}

	res, err := p.complete(ctx, reasoning.Request{
		System: p.prompts.System,
		Prompt: fmt.Sprintf(p.prompts.Symptoms, st.concern.Text),
		Shape:  reasoning.ShapeObject,
	})
	if err != nil {
		return err
	}

	var parsed struct {
		Symptoms []string `json:"symptoms"`
	}
	var symptoms []string
	if err := reasoning.Decode(res, &parsed); err == nil {
		symptoms = consultation.DedupeSymptoms(parsed.Symptoms)
	}

	source := "extracted"
	if len(symptoms) == 0 {
		source = "fallback"
		symptoms = []string{st.concern.Text}
		st.warn(consultation.WarnSymptomFallback, "symptoms could not be extracted; using the concern text as the only symptom")
	}
	st.concern = st.concern.WithSymptoms(symptoms)
	st.record(StageSymptomExtraction, map[string]interface{}{"source": source, "symptoms": st.concern.Symptoms})
	return nil
}

func (p *Pipeline) generateQuestions(ctx context.Context, st *runState) error {
	res, err := p.complete(ctx, reasoning.Request{
		System: p.prompts.System,
		Prompt: fmt.Sprintf(p.prompts.Questions, p.cfg.QuestionCount, strings.Join(st.concern.Symptoms, ", "), st.concern.Text),
		Shape:  reasoning.ShapeObject,
	})
	if err != nil {
		return err
	}

	var parsed struct {
		Questions []json.RawMessage `json:"questions"`
	}
	if err := reasoning.Decode(res, &parsed); err != nil {
		return err
	}

	questions := make([]consultation.Question, 0, len(parsed.Questions))
	for _, raw := range parsed.Questions {
		q, ok := parseQuestion(raw)
		if !ok {
			continue
		}
		if q.Symptom == "" {
			q.Symptom = targetSymptom(q.Text, st.concern.Symptoms)
		}
		questions = append(questions, q)
		if len(questions) == p.cfg.QuestionCount {
			break
		}
	}
	if len(questions) == 0 {
		return fmt.Errorf("%w: no questions in response", consultation.ErrMalformedResponse)
	}

	st.questions = questions
	st.record(StageQuestionGeneration, map[string]interface{}{"count": len(questions)})
	return nil
}

// parseQuestion accepts {"question": "...", "symptom": "..."} or a bare string.
func parseQuestion(raw json.RawMessage) (consultation.Question, bool) {
	var q consultation.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return q, false
		}
		q = consultation.Question{Text: text}
	}
	q.Text = strings.TrimSpace(q.Text)
	q.Symptom = strings.TrimSpace(q.Symptom)
	return q, q.Text != ""
}

// targetSymptom picks the first symptom mentioned in the question text,
// falling back to the first symptom.
func targetSymptom(question string, symptoms []string) string {
	lower := strings.ToLower(question)
	for _, s := range symptoms {
		if strings.Contains(lower, strings.ToLower(s)) {
			return s
		}
	}
	if len(symptoms) > 0 {
		return symptoms[0]
	}
	return ""
}

// deepResearch searches the leading symptoms, then asks the gateway for
// candidate conditions grounded in the findings. Search outages degrade to
// reasoning-only output.
func (p *Pipeline) deepResearch(ctx context.Context, st *runState) error {
	symptoms := st.concern.Symptoms
	if len(symptoms) > p.cfg.MaxTopics {
		symptoms = symptoms[:p.cfg.MaxTopics]
	}
	topics := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		topics = append(topics, fmt.Sprintf(p.cfg.QueryFormat, s))
	}

	findings := []consultation.ResearchFinding{}
	if p.research != nil {
		err := p.retry(ctx, func() error {
			found, err := p.research.Research(ctx, topics, p.cfg.ResultLimit)
			if err != nil {
				return err
			}
			if found != nil {
				findings = found
			}
			return nil
		})
		switch {
		case err == nil:
		case errors.Is(err, consultation.ErrUpstreamUnavailable) && ctx.Err() == nil:
			st.warn(consultation.WarnResearchDegraded, "web research is unavailable; assessment is based on reasoning only")
			p.logger.Warn(logModule, "Research degraded", map[string]interface{}{"error": err.Error()})
		default:
			return err
		}
	}
	if len(findings) == 0 {
		st.warn(consultation.WarnNoFindings, "no research findings were available")
	}
	st.findings = findings

	res, err := p.complete(ctx, reasoning.Request{
		System: p.prompts.System,
		Prompt: fmt.Sprintf(p.prompts.Candidates, st.concern.Text, strings.Join(st.concern.Symptoms, ", "), p.researchText(st)),
		Shape:  reasoning.ShapeObject,
	})
	if err != nil {
		return err
	}

	var parsed struct {
		MostLikely string             `json:"most_likely"`
		Conditions []conditionPayload `json:"conditions"`
	}
	if err := reasoning.Decode(res, &parsed); err != nil {
		return err
	}
	st.candidates = toConditions(parsed.Conditions)
	st.mostLikely = strings.TrimSpace(parsed.MostLikely)

	st.record(StageDeepResearch, map[string]interface{}{
		"topics":     topics,
		"findings":   len(findings),
		"candidates": len(st.candidates),
	})
	return nil
}

func (p *Pipeline) researchText(st *runState) string {
	if digest := research.Digest(st.findings, p.cfg.MaxResearchChars); digest != "" {
		return digest
	}
	return noResearchText
}

// synthesize produces the terminal Assessment. The response must parse and
// yield a summary and at least one condition.
func (p *Pipeline) synthesize(ctx context.Context, st *runState) error {
	res, err := p.complete(ctx, reasoning.Request{
		System: p.prompts.System,
		Prompt: fmt.Sprintf(p.prompts.Synthesis,
			st.concern.Text,
			strings.Join(st.concern.Symptoms, ", "),
			formatConditions(st.candidates),
			p.researchText(st),
		),
		Shape: reasoning.ShapeObject,
	})
	if err != nil {
		return err
	}

	var parsed synthesisPayload
	if err := reasoning.Decode(res, &parsed); err != nil {
		return err
	}

	summary := firstNonEmpty(parsed.Summary, parsed.Reasoning)
	if summary == "" {
		return fmt.Errorf("%w: assessment has no summary", consultation.ErrMalformedResponse)
	}

	mostLikely := firstNonEmpty(parsed.MostLikely, parsed.FinalDiagnosis, st.mostLikely)
	conditions := toConditions(parsed.Conditions)
	if len(conditions) == 0 {
		conditions = st.candidates
	}
	if len(conditions) == 0 && mostLikely != "" {
		conditions = []consultation.Condition{{Label: mostLikely, Rationale: summary}}
	}
	if len(conditions) == 0 {
		return fmt.Errorf("%w: assessment has no conditions", consultation.ErrMalformedResponse)
	}
	if mostLikely == "" {
		mostLikely = conditions[0].Label
	}

	nextSteps := make([]string, 0, len(parsed.NextSteps))
	for _, s := range parsed.NextSteps {
		if s = strings.TrimSpace(s); s != "" {
			nextSteps = append(nextSteps, s)
		}
	}

	st.assessment = consultation.Assessment{
		Summary:          summary,
		MostLikely:       mostLikely,
		Conditions:       conditions,
		NextSteps:        nextSteps,
		Causes:           strings.TrimSpace(parsed.Causes),
		TreatmentOptions: strings.TrimSpace(parsed.TreatmentOptions),
		WhenToSeeDoctor:  strings.TrimSpace(parsed.WhenToSeeDoctor),
		Disclaimer:       p.cfg.Disclaimer,
	}
	st.record(StageSynthesis, map[string]interface{}{
		"most_likely": mostLikely,
		"conditions":  len(conditions),
		"next_steps":  len(nextSteps),
		"repaired":    isRepaired(res),
	})
	return nil
}

// complete calls the gateway through the retrier.
func (p *Pipeline) complete(ctx context.Context, req reasoning.Request) (reasoning.Result, error) {
	var res reasoning.Result
	err := p.retry(ctx, func() error {
		r, err := p.gateway.Complete(ctx, req)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	return res, err
}

type conditionPayload struct {
	Label     string `json:"label"`
	Disease   string `json:"disease"`
	Name      string `json:"name"`
	Rationale string `json:"rationale"`
	Reasoning string `json:"reasoning"`
}

type synthesisPayload struct {
	Summary          string             `json:"summary"`
	Reasoning        string             `json:"reasoning"`
	MostLikely       string             `json:"most_likely"`
	FinalDiagnosis   string             `json:"final_diagnosis"`
	Conditions       []conditionPayload `json:"conditions"`
	NextSteps        []string           `json:"next_steps"`
	Causes           string             `json:"possible_causes_triggers"`
	TreatmentOptions string             `json:"general_treatment_options"`
	WhenToSeeDoctor  string             `json:"when_to_see_doctor"`
}

func toConditions(in []conditionPayload) []consultation.Condition {
	out := make([]consultation.Condition, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, c := range in {
		label := firstNonEmpty(c.Label, c.Disease, c.Name)
		if label == "" {
			continue
		}
		key := strings.ToLower(label)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, consultation.Condition{Label: label, Rationale: firstNonEmpty(c.Rationale, c.Reasoning)})
	}
	return out
}

func formatConditions(conditions []consultation.Condition) string {
	if len(conditions) == 0 {
		return "None proposed."
	}
	var sb strings.Builder
	for i, c := range conditions {
		fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, c.Label, c.Rationale)
	}
	return strings.TrimSpace(sb.String())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func isRepaired(r reasoning.Result) bool {
	s, ok := r.(reasoning.Structured)
	return ok && s.Repaired
}
