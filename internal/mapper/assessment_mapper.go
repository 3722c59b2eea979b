package mapper

import (
	"ai-consultation-be/internal/entity"
	"ai-consultation-be/internal/model"
	"ai-consultation-be/pkg/consultation"

	"gorm.io/datatypes"
)

type AssessmentMapper struct{}

func NewAssessmentMapper() *AssessmentMapper {
	return &AssessmentMapper{}
}

func (m *AssessmentMapper) ToModel(e *entity.AssessmentRecord) *model.AssessmentRecord {
	if e == nil {
		return nil
	}
	return &model.AssessmentRecord{
		Id:                e.Id,
		MostLikely:        e.Assessment.MostLikely,
		Assessment:        datatypes.NewJSONType(e.Assessment),
		Symptoms:          datatypes.JSONSlice[string](e.Symptoms),
		VisualDescription: e.VisualDescription,
		Warnings:          datatypes.JSONSlice[consultation.Warning](e.Warnings),
		ReportMarkdown:    e.ReportMarkdown,
		CreatedAt:         e.CreatedAt,
	}
}

func (m *AssessmentMapper) ToEntity(r *model.AssessmentRecord) *entity.AssessmentRecord {
	if r == nil {
		return nil
	}
	return &entity.AssessmentRecord{
		Id:                r.Id,
		Assessment:        r.Assessment.Data(),
		Symptoms:          []string(r.Symptoms),
		VisualDescription: r.VisualDescription,
		Warnings:          []consultation.Warning(r.Warnings),
		ReportMarkdown:    r.ReportMarkdown,
		CreatedAt:         r.CreatedAt,
	}
}
