package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"academy-backend/internal/models"
)

// Partition is the stored state of one (course, learner) pair. It is handed to
// the WithPartition callback and written back when the callback succeeds.
type Partition struct {
	State   models.CourseProgress
	Records []models.LessonProgress
}

type ProgressRepository interface {
	// WithPartition runs fn while holding the partition row lock. Writes to
	// the same partition are serialized; different partitions proceed in
	// parallel.
	WithPartition(ctx context.Context, courseID, learnerID string, fn func(p *Partition) error) error
	Get(ctx context.Context, courseID, learnerID string) (*Partition, error)
	ListLearners(ctx context.Context, courseID string) ([]string, error)
}

type progressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) WithPartition(ctx context.Context, courseID, learnerID string, fn func(p *Partition) error) error {
	if r == nil || r.db == nil {
		return errors.New("progress repository is not initialised")
	}
	if fn == nil {
		return errors.New("partition callback is required")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.CourseProgress{CourseID: courseID, LearnerID: learnerID}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}, {Name: "learner_id"}},
			DoNothing: true,
		}).Create(&seed).Error; err != nil {
			return err
		}

		var partition Partition
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("course_id = ? AND learner_id = ?", courseID, learnerID).
			First(&partition.State).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ? AND learner_id = ?", courseID, learnerID).
			Order("lesson_id ASC").
			Find(&partition.Records).Error; err != nil {
			return err
		}

		if err := fn(&partition); err != nil {
			return err
		}

		for i := range partition.Records {
			record := partition.Records[i]
			record.CourseID = courseID
			record.LearnerID = learnerID
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "course_id"}, {Name: "learner_id"}, {Name: "lesson_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"completed":       record.Completed,
					"watched_percent": record.WatchedPercent,
					"updated_at":      gorm.Expr("NOW()"),
				}),
			}).Create(&record).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.CourseProgress{}).
			Where("id = ?", partition.State.ID).
			Updates(map[string]interface{}{
				"current_chapter_id": partition.State.CurrentChapterID,
				"current_lesson_id":  partition.State.CurrentLessonID,
				"completed_lessons":  partition.State.CompletedLessons,
				"overall_progress":   partition.State.OverallProgress,
				"updated_at":         gorm.Expr("NOW()"),
			}).Error
	})
}

// Get returns the partition without locking. A learner with no stored state
// yields an empty partition.
func (r *progressRepository) Get(ctx context.Context, courseID, learnerID string) (*Partition, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("progress repository is not initialised")
	}

	partition := &Partition{State: models.CourseProgress{CourseID: courseID, LearnerID: learnerID}}
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND learner_id = ?", courseID, learnerID).
		First(&partition.State).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Where("course_id = ? AND learner_id = ?", courseID, learnerID).
		Order("lesson_id ASC").
		Find(&partition.Records).Error; err != nil {
		return nil, err
	}
	return partition, nil
}

func (r *progressRepository) ListLearners(ctx context.Context, courseID string) ([]string, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("progress repository is not initialised")
	}
	var learners []string
	if err := r.db.WithContext(ctx).
		Model(&models.CourseProgress{}).
		Where("course_id = ?", courseID).
		Order("learner_id ASC").
		Pluck("learner_id", &learners).Error; err != nil {
		return nil, err
	}
	return learners, nil
}
