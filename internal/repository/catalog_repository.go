package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"academy-backend/internal/models"
)

type CatalogRepository interface {
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context) ([]models.Course, error)
	ListIDs(ctx context.Context) ([]string, error)
	Exists(ctx context.Context, id string) (bool, error)
	Replace(ctx context.Context, course *models.Course) error

	CreateChapter(ctx context.Context, chapter *models.Chapter) error
	UpdateChapter(ctx context.Context, chapter *models.Chapter) error
	DeleteChapter(ctx context.Context, courseID, chapterID string) error
	GetChapter(ctx context.Context, courseID, chapterID string) (*models.Chapter, error)
	ReorderChapters(ctx context.Context, courseID string, chapterIDs []string) error

	CreateLesson(ctx context.Context, lesson *models.Lesson) error
	UpdateLesson(ctx context.Context, lesson *models.Lesson) error
	DeleteLesson(ctx context.Context, courseID, lessonID string) error
	GetLesson(ctx context.Context, courseID, lessonID string) (*models.Lesson, error)
	ReorderLessons(ctx context.Context, courseID, chapterID string, lessonIDs []string) error
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

var errCatalogRepositoryNotInitialised = errors.New("catalog repository is not initialised")

func (r *catalogRepository) ready() error {
	if r == nil || r.db == nil {
		return errCatalogRepositoryNotInitialised
	}
	return nil
}

func (r *catalogRepository) Create(ctx context.Context, course *models.Course) error {
	if err := r.ready(); err != nil {
		return err
	}
	if course == nil {
		return errors.New("course is required")
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(course).Error
}

func (r *catalogRepository) Update(ctx context.Context, course *models.Course) error {
	if err := r.ready(); err != nil {
		return err
	}
	if course == nil {
		return errors.New("course is required")
	}
	return r.db.WithContext(ctx).Model(&models.Course{ID: course.ID}).Updates(map[string]interface{}{
		"title":       course.Title,
		"description": course.Description,
		"updated_at":  gorm.Expr("NOW()"),
	}).Error
}

func (r *catalogRepository) Delete(ctx context.Context, id string) error {
	if err := r.ready(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", id).Delete(&models.Lesson{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&models.Chapter{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&models.CourseAccess{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Course{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *catalogRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	var course models.Course
	err := r.db.WithContext(ctx).
		Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Chapters.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Where("id = ?", id).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *catalogRepository) List(ctx context.Context) ([]models.Course, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	var courses []models.Course
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *catalogRepository) ListIDs(ctx context.Context) ([]string, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.Course{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *catalogRepository) Exists(ctx context.Context, id string) (bool, error) {
	if err := r.ready(); err != nil {
		return false, err
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Course{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Replace writes the whole course tree, discarding any chapters and lessons
// previously stored under the same course id. An empty description keeps the
// stored one.
func (r *catalogRepository) Replace(ctx context.Context, course *models.Course) error {
	if err := r.ready(); err != nil {
		return err
	}
	if course == nil {
		return errors.New("course is required")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", course.ID).Delete(&models.Lesson{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", course.ID).Delete(&models.Chapter{}).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"title":          course.Title,
			"total_lessons":  course.TotalLessons,
			"total_duration": course.TotalDuration,
			"updated_at":     gorm.Expr("NOW()"),
		}
		if strings.TrimSpace(course.Description) != "" {
			updates["description"] = course.Description
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(updates),
		}).Omit(clause.Associations).Create(course).Error; err != nil {
			return err
		}

		for i := range course.Chapters {
			chapter := course.Chapters[i]
			chapter.CourseID = course.ID
			lessons := chapter.Lessons
			chapter.Lessons = nil
			if err := tx.Omit(clause.Associations).Create(&chapter).Error; err != nil {
				return err
			}
			for j := range lessons {
				lesson := lessons[j]
				lesson.CourseID = course.ID
				lesson.ChapterID = chapter.ID
				if err := tx.Create(&lesson).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (r *catalogRepository) CreateChapter(ctx context.Context, chapter *models.Chapter) error {
	if err := r.ready(); err != nil {
		return err
	}
	if chapter == nil {
		return errors.New("chapter is required")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if chapter.Order <= 0 {
			next, err := nextPosition(tx.Model(&models.Chapter{}).Where("course_id = ?", chapter.CourseID))
			if err != nil {
				return err
			}
			chapter.Order = next
		}
		if err := tx.Omit(clause.Associations).Create(chapter).Error; err != nil {
			return err
		}
		return touchCourse(tx, chapter.CourseID)
	})
}

func (r *catalogRepository) UpdateChapter(ctx context.Context, chapter *models.Chapter) error {
	if err := r.ready(); err != nil {
		return err
	}
	if chapter == nil {
		return errors.New("chapter is required")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Chapter{}).
			Where("course_id = ? AND id = ?", chapter.CourseID, chapter.ID).
			Updates(map[string]interface{}{
				"title":      chapter.Title,
				"position":   chapter.Order,
				"updated_at": gorm.Expr("NOW()"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return touchCourse(tx, chapter.CourseID)
	})
}

func (r *catalogRepository) DeleteChapter(ctx context.Context, courseID, chapterID string) error {
	if err := r.ready(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ? AND chapter_id = ?", courseID, chapterID).Delete(&models.Lesson{}).Error; err != nil {
			return err
		}
		result := tx.Where("course_id = ? AND id = ?", courseID, chapterID).Delete(&models.Chapter{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return refreshTotals(tx, courseID)
	})
}

func (r *catalogRepository) GetChapter(ctx context.Context, courseID, chapterID string) (*models.Chapter, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	var chapter models.Chapter
	err := r.db.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Where("course_id = ? AND id = ?", courseID, chapterID).
		First(&chapter).Error
	if err != nil {
		return nil, err
	}
	return &chapter, nil
}

// ReorderChapters assigns positions 1..n following chapterIDs. The ids must be
// exactly the chapters of the course.
func (r *catalogRepository) ReorderChapters(ctx context.Context, courseID string, chapterIDs []string) error {
	if err := r.ready(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for idx, id := range chapterIDs {
			result := tx.Model(&models.Chapter{}).
				Where("course_id = ? AND id = ?", courseID, id).
				Update("position", idx+1)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return touchCourse(tx, courseID)
	})
}

func (r *catalogRepository) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	if err := r.ready(); err != nil {
		return err
	}
	if lesson == nil {
		return errors.New("lesson is required")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if lesson.Order <= 0 {
			next, err := nextPosition(tx.Model(&models.Lesson{}).
				Where("course_id = ? AND chapter_id = ?", lesson.CourseID, lesson.ChapterID))
			if err != nil {
				return err
			}
			lesson.Order = next
		}
		if err := tx.Create(lesson).Error; err != nil {
			return err
		}
		return refreshTotals(tx, lesson.CourseID)
	})
}

func (r *catalogRepository) UpdateLesson(ctx context.Context, lesson *models.Lesson) error {
	if err := r.ready(); err != nil {
		return err
	}
	if lesson == nil {
		return errors.New("lesson is required")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Lesson{}).
			Where("course_id = ? AND id = ?", lesson.CourseID, lesson.ID).
			Updates(map[string]interface{}{
				"title":      lesson.Title,
				"position":   lesson.Order,
				"duration":   lesson.Duration,
				"is_free":    lesson.IsFree,
				"resources":  lesson.Resources,
				"updated_at": gorm.Expr("NOW()"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return refreshTotals(tx, lesson.CourseID)
	})
}

func (r *catalogRepository) DeleteLesson(ctx context.Context, courseID, lessonID string) error {
	if err := r.ready(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("course_id = ? AND id = ?", courseID, lessonID).Delete(&models.Lesson{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return refreshTotals(tx, courseID)
	})
}

func (r *catalogRepository) GetLesson(ctx context.Context, courseID, lessonID string) (*models.Lesson, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	var lesson models.Lesson
	if err := r.db.WithContext(ctx).Where("course_id = ? AND id = ?", courseID, lessonID).First(&lesson).Error; err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *catalogRepository) ReorderLessons(ctx context.Context, courseID, chapterID string, lessonIDs []string) error {
	if err := r.ready(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for idx, id := range lessonIDs {
			result := tx.Model(&models.Lesson{}).
				Where("course_id = ? AND chapter_id = ? AND id = ?", courseID, chapterID, id).
				Update("position", idx+1)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return touchCourse(tx, courseID)
	})
}

func nextPosition(scope *gorm.DB) (int, error) {
	var highest *int
	if err := scope.Select("MAX(position)").Scan(&highest).Error; err != nil {
		return 0, err
	}
	if highest == nil {
		return 1, nil
	}
	return *highest + 1, nil
}

func touchCourse(tx *gorm.DB, courseID string) error {
	return tx.Model(&models.Course{}).Where("id = ?", courseID).Update("updated_at", gorm.Expr("NOW()")).Error
}

// refreshTotals recomputes the denormalized lesson count and duration.
func refreshTotals(tx *gorm.DB, courseID string) error {
	var totals struct {
		Lessons  int
		Duration int
	}
	if err := tx.Model(&models.Lesson{}).
		Select("COUNT(*) AS lessons, COALESCE(SUM(duration), 0) AS duration").
		Where("course_id = ?", courseID).
		Scan(&totals).Error; err != nil {
		return err
	}
	return tx.Model(&models.Course{}).Where("id = ?", courseID).Updates(map[string]interface{}{
		"total_lessons":  totals.Lessons,
		"total_duration": totals.Duration,
		"updated_at":     gorm.Expr("NOW()"),
	}).Error
}
