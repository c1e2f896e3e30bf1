package models

import "time"

type ResourceRequest struct {
	Title string `json:"title" binding:"required,max=200" yaml:"title"`
	Type  string `json:"type" binding:"required,resource_type" yaml:"type"`
	URL   string `json:"url" binding:"required,http_url" yaml:"url"`
}

type CreateCourseRequest struct {
	ID          string `json:"id" binding:"required,identifier"`
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=2000"`
}

type UpdateCourseRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

type CreateChapterRequest struct {
	ID    string `json:"chapterId" binding:"required,identifier"`
	Title string `json:"title" binding:"required,max=200"`
	// Order of zero appends after the last chapter.
	Order int `json:"order" binding:"min=0"`
}

type UpdateChapterRequest struct {
	Title *string `json:"title" binding:"omitempty,max=200"`
	Order *int    `json:"order" binding:"omitempty,min=1"`
}

type CreateLessonRequest struct {
	ID        string            `json:"lessonId" binding:"required,identifier"`
	Title     string            `json:"title" binding:"required,max=200"`
	Order     int               `json:"order" binding:"min=0"`
	Duration  int               `json:"duration" binding:"min=0"`
	IsFree    bool              `json:"isFree"`
	Resources []ResourceRequest `json:"resources" binding:"omitempty,dive"`
}

type UpdateLessonRequest struct {
	Title     *string           `json:"title" binding:"omitempty,max=200"`
	Order     *int              `json:"order" binding:"omitempty,min=1"`
	Duration  *int              `json:"duration" binding:"omitempty,min=0"`
	IsFree    *bool             `json:"isFree"`
	Resources []ResourceRequest `json:"resources" binding:"omitempty,dive"`
}

type ReorderRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,dive,identifier"`
}

type GrantAccessRequest struct {
	LearnerID string     `json:"learnerId" binding:"required,max=64"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

type RevokeAccessRequest struct {
	LearnerID string `json:"learnerId" binding:"required,max=64"`
}

type SelectLessonRequest struct {
	ChapterID string `json:"chapterId" binding:"required"`
	LessonID  string `json:"lessonId" binding:"required"`
}

type RecordProgressRequest struct {
	LessonID       string   `json:"lessonId" binding:"required"`
	WatchedPercent *float64 `json:"watchedPercent" binding:"required"`
}
