package service

import (
	"context"

	"academy-backend/internal/course"
	"academy-backend/internal/models"
)

// CourseLoader resolves a validated catalog course by id.
type CourseLoader interface {
	Load(ctx context.Context, courseID string) (*course.Course, error)
}

// AccessChecker answers whether a learner holds paid access to a course.
type AccessChecker interface {
	HasPaidAccess(ctx context.Context, learnerID, courseID string) (bool, error)
}

type CatalogUseCase interface {
	CourseLoader
	List(ctx context.Context) ([]models.Course, error)
	Import(ctx context.Context, c *course.Course) (bool, error)

	CreateCourse(ctx context.Context, req models.CreateCourseRequest) (*course.Course, error)
	UpdateCourse(ctx context.Context, courseID string, req models.UpdateCourseRequest) (*course.Course, error)
	DeleteCourse(ctx context.Context, courseID string) error

	CreateChapter(ctx context.Context, courseID string, req models.CreateChapterRequest) (*course.Course, error)
	UpdateChapter(ctx context.Context, courseID, chapterID string, req models.UpdateChapterRequest) (*course.Course, error)
	DeleteChapter(ctx context.Context, courseID, chapterID string) (*course.Course, error)
	ReorderChapters(ctx context.Context, courseID string, chapterIDs []string) (*course.Course, error)

	CreateLesson(ctx context.Context, courseID, chapterID string, req models.CreateLessonRequest) (*course.Course, error)
	UpdateLesson(ctx context.Context, courseID, lessonID string, req models.UpdateLessonRequest) (*course.Course, error)
	DeleteLesson(ctx context.Context, courseID, lessonID string) (*course.Course, error)
	ReorderLessons(ctx context.Context, courseID, chapterID string, lessonIDs []string) (*course.Course, error)

	FlushCache(ctx context.Context) error
}

type AccessUseCase interface {
	AccessChecker
	Grant(ctx context.Context, courseID string, req models.GrantAccessRequest, grantedBy string) (*models.CourseAccess, error)
	Revoke(ctx context.Context, courseID, learnerID string) error
}

type ProgressUseCase interface {
	CourseView(ctx context.Context, courseID, learnerID string) (*CourseView, error)
	SelectLesson(ctx context.Context, courseID, learnerID string, pos course.Position) (*course.Document, error)
	RecordProgress(ctx context.Context, courseID, learnerID, lessonID string, watchedPercent float64) (*course.Document, error)
	MarkComplete(ctx context.Context, courseID, learnerID, lessonID string) (*course.Document, error)
	GetProgress(ctx context.Context, courseID, learnerID string) (*course.Document, error)
	NextLesson(ctx context.Context, courseID string, pos course.Position) (*NavigationResult, error)
	PreviousLesson(ctx context.Context, courseID string, pos course.Position) (*NavigationResult, error)
}
