package implementation

import (
	"context"
	"errors"

	"ai-consultation-be/internal/entity"
	"ai-consultation-be/internal/mapper"
	"ai-consultation-be/internal/model"
	"ai-consultation-be/internal/repository/contract"
	"ai-consultation-be/internal/repository/specification"

	"gorm.io/gorm"
)

type AssessmentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AssessmentMapper
}

func NewAssessmentRepository(db *gorm.DB) contract.AssessmentRepository {
	return &AssessmentRepositoryImpl{
		db:     db,
		mapper: mapper.NewAssessmentMapper(),
	}
}

func (r *AssessmentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *AssessmentRepositoryImpl) Create(ctx context.Context, record *entity.AssessmentRecord) error {
	m := r.mapper.ToModel(record)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*record = *r.mapper.ToEntity(m)
	return nil
}

// FindOne returns nil, nil when nothing matches.
func (r *AssessmentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.AssessmentRecord, error) {
	var m model.AssessmentRecord
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *AssessmentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AssessmentRecord, error) {
	var models []*model.AssessmentRecord
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	records := make([]*entity.AssessmentRecord, 0, len(models))
	for _, m := range models {
		records = append(records, r.mapper.ToEntity(m))
	}
	return records, nil
}
