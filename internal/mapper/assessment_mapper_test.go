package mapper

import (
	"ai-consultation-be/internal/entity"
	"ai-consultation-be/pkg/consultation"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAssessmentMapperRoundTrip(t *testing.T) {
	m := NewAssessmentMapper()
	in := &entity.AssessmentRecord{
		Id: uuid.New(),
		Assessment: consultation.Assessment{
			Summary:    "Irritant reaction likely.",
			MostLikely: "Contact Dermatitis",
			Conditions: []consultation.Condition{{Label: "Contact Dermatitis", Rationale: "new detergent"}},
			Disclaimer: "Not medical advice.",
		},
		Symptoms:  []string{"redness", "itching"},
		Warnings:  []consultation.Warning{{Code: consultation.WarnNoFindings, Message: "no research"}},
		CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	rec := m.ToModel(in)
	assert.Equal(t, "Contact Dermatitis", rec.MostLikely)

	out := m.ToEntity(rec)
	assert.Equal(t, in, out)

	assert.Nil(t, m.ToModel(nil))
	assert.Nil(t, m.ToEntity(nil))
}
