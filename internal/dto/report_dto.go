package dto

import (
	"ai-consultation-be/pkg/consultation"
)

type AnalyzeReportResponse struct {
	Summary  string                 `json:"summary"`
	Format   consultation.Format    `json:"format"`
	Warnings []consultation.Warning `json:"warnings"`
	File     string                 `json:"file"`
	MimeType string                 `json:"mime_type"`
}

type GeneratePDFRequest struct {
	Assessment        *consultation.Assessment `json:"final_assessment" validate:"required_without=AssessmentId"`
	AssessmentId      string                   `json:"assessment_id" validate:"omitempty,uuid"`
	VisualDescription string                   `json:"visual_description"`
	ReportMarkdown    string                   `json:"report_markdown" validate:"omitempty,max=200000"`
}

type GeneratedPDF struct {
	Filename string
	Content  []byte
}
