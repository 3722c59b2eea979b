package model

import (
	"ai-consultation-be/pkg/consultation"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AssessmentRecord struct {
	Id                uuid.UUID                                  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MostLikely        string                                     `gorm:"type:text;index"`
	Assessment        datatypes.JSONType[consultation.Assessment] `gorm:"type:jsonb;not null"`
	Symptoms          datatypes.JSONSlice[string]                `gorm:"type:jsonb"`
	VisualDescription string                                     `gorm:"type:text"`
	Warnings          datatypes.JSONSlice[consultation.Warning]  `gorm:"type:jsonb"`
	ReportMarkdown    string                                     `gorm:"type:text"`
	CreatedAt         time.Time                                  `gorm:"autoCreateTime;index"`
}

func (AssessmentRecord) TableName() string {
	return "assessment_records"
}
