package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"academy-backend/internal/models"
)

type AccessRepository interface {
	Upsert(ctx context.Context, access *models.CourseAccess) error
	GetByLearnerAndCourse(ctx context.Context, learnerID, courseID string) (*models.CourseAccess, error)
	Delete(ctx context.Context, learnerID, courseID string) error
	ListActiveByLearner(ctx context.Context, learnerID string) ([]models.CourseAccess, error)
}

type accessRepository struct {
	db *gorm.DB
}

func NewAccessRepository(db *gorm.DB) AccessRepository {
	return &accessRepository{db: db}
}

func (r *accessRepository) Upsert(ctx context.Context, access *models.CourseAccess) error {
	if r == nil || r.db == nil {
		return errors.New("course access repository is not initialised")
	}
	if access == nil {
		return errors.New("access is required")
	}

	assignments := clause.Assignments(map[string]interface{}{
		"granted_by": access.GrantedBy,
		"expires_at": access.ExpiresAt,
		"updated_at": gorm.Expr("NOW()"),
	})

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "learner_id"}, {Name: "course_id"}},
		DoUpdates: assignments,
	}).Create(access).Error
}

func (r *accessRepository) GetByLearnerAndCourse(ctx context.Context, learnerID, courseID string) (*models.CourseAccess, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("course access repository is not initialised")
	}
	var access models.CourseAccess
	if err := r.db.WithContext(ctx).Where("learner_id = ? AND course_id = ?", learnerID, courseID).First(&access).Error; err != nil {
		return nil, err
	}
	return &access, nil
}

func (r *accessRepository) Delete(ctx context.Context, learnerID, courseID string) error {
	if r == nil || r.db == nil {
		return errors.New("course access repository is not initialised")
	}
	result := r.db.WithContext(ctx).Where("learner_id = ? AND course_id = ?", learnerID, courseID).Delete(&models.CourseAccess{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *accessRepository) ListActiveByLearner(ctx context.Context, learnerID string) ([]models.CourseAccess, error) {
	accesses := make([]models.CourseAccess, 0)
	if r == nil || r.db == nil {
		return accesses, errors.New("course access repository is not initialised")
	}
	if learnerID == "" {
		return accesses, nil
	}

	now := time.Now()
	err := r.db.WithContext(ctx).
		Where("learner_id = ? AND (expires_at IS NULL OR expires_at > ?)", learnerID, now).
		Order("created_at DESC").
		Find(&accesses).Error

	return accesses, err
}
