package consultation

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Format tags the origin of an ExtractedText.
type Format string

const (
	FormatDocument        Format = "document"
	FormatScannedDocument Format = "scanned-document"
	FormatImage           Format = "image"
	FormatAudio           Format = "audio-transcript"
)

// ExtractedText is the plain text recovered from one uploaded artifact.
type ExtractedText struct {
	Text     string    `json:"text"`
	Format   Format    `json:"format"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Warning annotates a non-fatal degradation in an output.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	WarnPartialExtraction    = "PARTIAL_EXTRACTION"
	WarnSymptomFallback      = "SYMPTOM_FALLBACK"
	WarnNoFindings           = "NO_RESEARCH_FINDINGS"
	WarnImageSummaryFallback = "IMAGE_SUMMARY_FALLBACK"
	WarnResearchDegraded     = "RESEARCH_DEGRADED"
)

// Concern is the normalized presenting complaint.
type Concern struct {
	Text     string   `json:"text"`
	Symptoms []string `json:"symptoms,omitempty"`
}

// WithSymptoms returns a copy of c carrying the de-duplicated symptom list.
func (c Concern) WithSymptoms(symptoms []string) Concern {
	c.Symptoms = DedupeSymptoms(symptoms)
	return c
}

// DedupeSymptoms trims entries, drops blanks and case-insensitive duplicates,
// and keeps first-seen order.
func DedupeSymptoms(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ResearchFinding is one ranked search result. Rank starts at 1.
type ResearchFinding struct {
	Title     string `json:"title"`
	SourceURL string `json:"source_url"`
	Snippet   string `json:"snippet"`
	Rank      int    `json:"rank"`
}

// StageResult is the structured output of a single pipeline stage.
type StageResult struct {
	Stage  string                 `json:"stage"`
	Fields map[string]interface{} `json:"fields"`
}

// Question is a clarifying question aimed at one symptom.
type Question struct {
	Text    string `json:"question"`
	Symptom string `json:"symptom"`
}

// Condition is a candidate condition with the reasoning behind it.
type Condition struct {
	Label     string `json:"label"`
	Rationale string `json:"rationale"`
}

// Assessment is the terminal diagnostic summary. Treat it as immutable.
type Assessment struct {
	Summary          string      `json:"summary"`
	MostLikely       string      `json:"most_likely,omitempty"`
	Conditions       []Condition `json:"conditions"`
	NextSteps        []string    `json:"next_steps"`
	Causes           string      `json:"possible_causes_triggers,omitempty"`
	TreatmentOptions string      `json:"general_treatment_options,omitempty"`
	WhenToSeeDoctor  string      `json:"when_to_see_doctor,omitempty"`
	Disclaimer       string      `json:"disclaimer"`
}

// Role tags a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a session transcript.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the server-held conversational state for one id.
type Session struct {
	ID         string    `json:"id"`
	Turns      []Turn    `json:"turns"`
	CreatedAt  time.Time `json:"created_at"`
	LastAccess time.Time `json:"last_access"`
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Turns = append([]Turn(nil), s.Turns...)
	return &cp
}

// Expired reports whether the session has been idle for at least ttl.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.LastAccess) >= ttl
}

// Clip shortens s to at most max bytes without splitting a UTF-8 sequence.
func Clip(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
