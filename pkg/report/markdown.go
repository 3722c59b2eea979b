package report

import (
	"ai-consultation-be/pkg/consultation"
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

const logModule = "REPORT"

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"trim": strings.TrimSpace,
	"inc":  func(i int) int { return i + 1 },
}).Parse(`# Consultation Report

## Summary

{{trim .Assessment.Summary}}
{{- if trim .VisualDescription}}

## Visual Description

{{trim .VisualDescription}}
{{- end}}
{{- if trim .Assessment.MostLikely}}

## Most Likely Condition

**{{trim .Assessment.MostLikely}}**
{{- end}}

## Possible Conditions
{{range $i, $c := .Assessment.Conditions}}
{{inc $i}}. **{{trim $c.Label}}**{{if trim $c.Rationale}}: {{trim $c.Rationale}}{{end}}
{{- end}}
{{- if trim .Assessment.Causes}}

## Possible Causes and Triggers

{{trim .Assessment.Causes}}
{{- end}}
{{- if trim .Assessment.TreatmentOptions}}

## General Treatment Options

{{trim .Assessment.TreatmentOptions}}
{{- end}}
{{- if .Assessment.NextSteps}}

## Recommended Next Steps
{{range .Assessment.NextSteps}}
- {{trim .}}
{{- end}}
{{- end}}
{{- if trim .Assessment.WhenToSeeDoctor}}

## When to See a Doctor

{{trim .Assessment.WhenToSeeDoctor}}
{{- end}}

---

_{{trim .Assessment.Disclaimer}}_
`))

// ToMarkdown renders the assessment body. Output depends only on its inputs.
func ToMarkdown(a consultation.Assessment, visualDescription string) (string, error) {
	var buf bytes.Buffer
	err := reportTemplate.Execute(&buf, struct {
		Assessment        consultation.Assessment
		VisualDescription string
	}{a, visualDescription})
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// WithHeader prefixes body with a generation header separated by a rule.
func WithHeader(body string, generatedAt time.Time) string {
	return fmt.Sprintf("_Generated %s_\n\n---\n\n%s", generatedAt.UTC().Format(time.RFC1123), body)
}
