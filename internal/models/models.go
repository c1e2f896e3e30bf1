package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"academy-backend/internal/course"
)

type Course struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Title         string    `gorm:"not null" json:"title"`
	Description   string    `json:"description"`
	TotalLessons  int       `gorm:"not null;default:0" json:"totalLessons"`
	TotalDuration int       `gorm:"not null;default:0" json:"totalDuration"`
	Chapters      []Chapter `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"chapters,omitempty"`
}

type Chapter struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	CourseID string   `gorm:"primaryKey;type:varchar(64);index" json:"courseId"`
	Title    string   `gorm:"not null" json:"title"`
	Order    int      `gorm:"column:position;not null" json:"order"`
	Lessons  []Lesson `gorm:"foreignKey:CourseID,ChapterID;references:CourseID,ID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
}

type Lesson struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	CourseID  string    `gorm:"primaryKey;type:varchar(64);index" json:"courseId"`
	ChapterID string    `gorm:"type:varchar(64);not null;index" json:"chapterId"`
	Title     string    `gorm:"not null" json:"title"`
	Order     int       `gorm:"column:position;not null" json:"order"`
	Duration  int       `gorm:"not null;default:0" json:"duration"`
	IsFree    bool      `gorm:"not null;default:false" json:"isFree"`
	Resources Resources `gorm:"type:jsonb" json:"resources"`
}

type Resources []course.Resource

func (r Resources) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "[]", nil
	}
	return json.Marshal(r)
}

func (r *Resources) Scan(value interface{}) error {
	if value == nil {
		*r = Resources{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan Resources")
	}

	return json.Unmarshal(bytes, r)
}

// LessonProgress is one learner's record for one lesson of one course.
type LessonProgress struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	CourseID       string  `gorm:"type:varchar(64);not null;uniqueIndex:idx_lesson_progress_partition,priority:1" json:"courseId"`
	LearnerID      string  `gorm:"type:varchar(64);not null;uniqueIndex:idx_lesson_progress_partition,priority:2" json:"learnerId"`
	LessonID       string  `gorm:"type:varchar(64);not null;uniqueIndex:idx_lesson_progress_partition,priority:3" json:"lessonId"`
	Completed      bool    `gorm:"not null;default:false" json:"completed"`
	WatchedPercent float64 `gorm:"not null;default:0" json:"watchedPercent"`
}

// CourseProgress is the per (course, learner) partition row. It carries the
// current selection and the materialized aggregate.
type CourseProgress struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	CourseID         string `gorm:"type:varchar(64);not null;uniqueIndex:idx_course_progress_partition,priority:1" json:"courseId"`
	LearnerID        string `gorm:"type:varchar(64);not null;uniqueIndex:idx_course_progress_partition,priority:2" json:"learnerId"`
	CurrentChapterID string `gorm:"type:varchar(64)" json:"currentChapterId"`
	CurrentLessonID  string `gorm:"type:varchar(64)" json:"currentLessonId"`
	CompletedLessons int    `gorm:"not null;default:0" json:"completedLessons"`
	OverallProgress  int    `gorm:"not null;default:0" json:"overallProgress"`
}

type CourseAccess struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	LearnerID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_course_access_learner_course,priority:1" json:"learnerId"`
	CourseID  string `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_course_access_learner_course,priority:2" json:"courseId"`

	GrantedBy string     `gorm:"type:varchar(64)" json:"grantedBy,omitempty"`
	ExpiresAt *time.Time `gorm:"index" json:"expiresAt,omitempty"`
}

func (a CourseAccess) ActiveAt(now time.Time) bool {
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}
