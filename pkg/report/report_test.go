package report

import (
	"ai-consultation-be/pkg/consultation"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAssessment() consultation.Assessment {
	return consultation.Assessment{
		Summary:    "Symptoms are consistent with an irritant reaction.",
		MostLikely: "Contact Dermatitis",
		Conditions: []consultation.Condition{
			{Label: "Contact Dermatitis", Rationale: "Onset after a new detergent."},
			{Label: "Eczema"},
		},
		NextSteps:       []string{"Stop using the detergent", "Apply a fragrance-free moisturizer"},
		WhenToSeeDoctor: "If the rash spreads or blisters.",
		Disclaimer:      "This is not medical advice.",
	}
}

func TestToMarkdownIsDeterministic(t *testing.T) {
	a := sampleAssessment()

	first, err := ToMarkdown(a, "Red patches on forearm.")
	require.NoError(t, err)
	second, err := ToMarkdown(a, "Red patches on forearm.")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestToMarkdownSections(t *testing.T) {
	md, err := ToMarkdown(sampleAssessment(), "Red patches on forearm.")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(md, "# Consultation Report\n\n## Summary\n\nSymptoms are consistent"))
	assert.Contains(t, md, "## Visual Description\n\nRed patches on forearm.")
	assert.Contains(t, md, "## Most Likely Condition\n\n**Contact Dermatitis**")
	assert.Contains(t, md, "## Possible Conditions\n\n1. **Contact Dermatitis**: Onset after a new detergent.\n2. **Eczema**\n")
	assert.Contains(t, md, "## Recommended Next Steps\n\n- Stop using the detergent\n- Apply a fragrance-free moisturizer\n")
	assert.Contains(t, md, "## When to See a Doctor\n\nIf the rash spreads or blisters.")
	assert.True(t, strings.HasSuffix(md, "---\n\n_This is not medical advice._\n"))

	assert.NotContains(t, md, "Possible Causes")
	assert.NotContains(t, md, "Treatment Options")
}

func TestToMarkdownOmitsEmptyVisualDescription(t *testing.T) {
	md, err := ToMarkdown(sampleAssessment(), "  ")
	require.NoError(t, err)
	assert.NotContains(t, md, "Visual Description")
}

func TestWithHeaderKeepsBodyIntact(t *testing.T) {
	body, err := ToMarkdown(sampleAssessment(), "")
	require.NoError(t, err)

	at := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	out := WithHeader(body, at)

	assert.True(t, strings.HasPrefix(out, "_Generated Mon, 04 May 2026 10:30:00 UTC_\n\n---\n\n"))
	assert.True(t, strings.HasSuffix(out, body))
}

func TestToHTML(t *testing.T) {
	body, err := ToMarkdown(sampleAssessment(), "")
	require.NoError(t, err)

	page, err := ToHTML(body, "Report <1>")
	require.NoError(t, err)

	assert.Contains(t, page, "<title>Report &lt;1&gt;</title>")
	assert.Contains(t, page, "<h1>Consultation Report</h1>")
	assert.Contains(t, page, "<strong>Contact Dermatitis</strong>")
	assert.Contains(t, page, "<li>Stop using the detergent</li>")
}
