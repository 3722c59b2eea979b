package dto

import (
	"ai-consultation-be/pkg/consultation"
	"time"

	"github.com/google/uuid"
)

type QuestionsRequest struct {
	Statement string   `json:"statement" validate:"required,max=5000"`
	Symptoms  []string `json:"symptoms" validate:"omitempty,max=20,dive,max=100"`
}

type QuestionsResponse struct {
	Questions             []consultation.Question `json:"questions"`
	Symptoms              []string                `json:"symptoms"`
	Warnings              []consultation.Warning  `json:"warnings"`
	ProcessingTimeSeconds float64                 `json:"processing_time_seconds"`
}

type AssessResponse struct {
	AssessmentId          uuid.UUID                      `json:"assessment_id"`
	Assessment            consultation.Assessment        `json:"final_assessment"`
	ReportMarkdown        string                         `json:"report_markdown"`
	Candidates            []consultation.Condition       `json:"candidate_conditions"`
	Symptoms              []string                       `json:"symptoms"`
	VisualDescription     string                         `json:"visual_description,omitempty"`
	Findings              []consultation.ResearchFinding `json:"research_findings"`
	Warnings              []consultation.Warning         `json:"warnings"`
	ProcessingTimeSeconds float64                        `json:"processing_time_seconds"`
}

type ArchivedAssessmentResponse struct {
	Id                uuid.UUID               `json:"id"`
	Assessment        consultation.Assessment `json:"assessment"`
	Symptoms          []string                `json:"symptoms"`
	VisualDescription string                  `json:"visual_description,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
}

type ListArchivedRequest struct {
	Condition string `query:"condition" validate:"omitempty,max=200"`
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset    int    `query:"offset" validate:"omitempty,min=0"`
}

// AssessmentCompletedMessage is the payload of ASSESSMENT_COMPLETED events.
type AssessmentCompletedMessage struct {
	AssessmentId      uuid.UUID               `json:"assessment_id"`
	Assessment        consultation.Assessment `json:"assessment"`
	Symptoms          []string                `json:"symptoms"`
	VisualDescription string                  `json:"visual_description"`
	Warnings          []consultation.Warning  `json:"warnings"`
	ReportMarkdown    string                  `json:"report_markdown"`
}
