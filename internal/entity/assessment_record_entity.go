package entity

import (
	"ai-consultation-be/pkg/consultation"
	"time"

	"github.com/google/uuid"
)

// AssessmentRecord is an archived assessment, kept so a report can be
// regenerated later by id.
type AssessmentRecord struct {
	Id                uuid.UUID
	Assessment        consultation.Assessment
	Symptoms          []string
	VisualDescription string
	Warnings          []consultation.Warning
	ReportMarkdown    string
	CreatedAt         time.Time
}
