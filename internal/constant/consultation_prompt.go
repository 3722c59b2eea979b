package constant

const (
	// Persona sent as the system message of every pipeline call
	ConsultationPersonaV1 = `You are a careful dermatology consultation assistant. You help people understand possible explanations for their skin concerns.
You never prescribe specific drugs or dosages. You never present a possible condition as a confirmed diagnosis.
When information is missing, say so instead of guessing.`

	ConsultationDisclaimerV1 = "This assessment is generated automatically for informational purposes only and is not a medical diagnosis. Consult a qualified healthcare professional for diagnosis and treatment."

	// %s: patient statement
	SymptomExtractionPromptV1 = `Patient statement:
"""
%s
"""

Extract every specific symptom mentioned in the statement above (for example REDNESS, ITCHING, RASH, PAIN, BLISTERS, LESION, SCALY PATCH).
Return ONLY a JSON object: {"symptoms": ["RASH", "ITCHING"]}
If no clear symptom is mentioned return {"symptoms": []}. No text outside the JSON.`

	// %d: number of questions, %s: symptoms, %s: patient statement
	QuestionGenerationPromptV1 = `Generate exactly %d concise follow-up questions a dermatologist would ask to clarify the condition.

Symptoms mentioned: %s
Patient statement: "%s"

Cover severity, duration, triggers, location and spread, associated factors (fever, pain) and previous treatments.
Phrase each question directly to the patient.
Return ONLY a JSON object: {"questions": [{"question": "...", "symptom": "the symptom it clarifies, or empty"}]}`

	// %s: patient statement, %s: symptoms, %s: research findings
	CandidateConditionsPromptV1 = `Patient statement: "%s"
Symptoms: %s

--- Research Findings Start ---
%s
--- Research Findings End ---

Using the statement, the symptoms and the research findings, list the plausible skin conditions ordered from most to least likely.
Return ONLY a JSON object:
{"most_likely": "condition name", "conditions": [{"label": "condition name", "rationale": "why it fits or does not fit"}]}`

	// %s: patient statement, %s: symptoms, %s: candidate conditions, %s: research findings
	SynthesisPromptV1 = `Patient statement: "%s"
Symptoms: %s

Candidate conditions:
%s

--- Research Findings Start ---
%s
--- Research Findings End ---

Synthesize everything above into a refined final assessment.
Return ONLY a JSON object with these keys:
{
  "summary": "plain-language overview integrating the symptoms and the research",
  "most_likely": "the single best-fitting condition",
  "conditions": [{"label": "condition", "rationale": "supporting reasoning"}],
  "next_steps": ["concrete recommended step"],
  "possible_causes_triggers": "likely causes or triggers",
  "general_treatment_options": "common general approaches, no specific drugs or dosages",
  "when_to_see_doctor": "signs that call for professional care"
}`

	ResearchQueryFormatV1 = "%s skin condition causes symptoms treatment"
)

const (
	ImageDescriptionPromptV1 = `Describe the visible skin features in this image as a bullet list under these headings: Color, Morphology, Surface Changes, Texture, Distribution, Hair/Nails, Secondary Signs.
Only describe what is visible. Do not suggest a diagnosis.`

	// %s: visual description
	ImageSummaryPromptV1 = `Summarize this description of a skin image in one sentence, without suggesting a diagnosis:

%s`

	// %s: extracted report text
	ReportAnalysisPromptV1 = `The following text was extracted from a medical report uploaded by a patient:

"""
%s
"""

Explain what the report says in simple language a non-specialist can follow. Point out values or findings that look outside normal ranges and what they usually mean.
End with a short reminder that this explanation does not replace a conversation with their doctor.`
)
