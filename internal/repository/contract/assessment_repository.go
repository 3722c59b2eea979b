package contract

import (
	"context"

	"ai-consultation-be/internal/entity"
	"ai-consultation-be/internal/repository/specification"
)

type AssessmentRepository interface {
	Create(ctx context.Context, record *entity.AssessmentRecord) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.AssessmentRecord, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AssessmentRecord, error)
}
