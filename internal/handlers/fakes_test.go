package handlers

import (
	"context"
	"errors"

	"academy-backend/internal/course"
	"academy-backend/internal/models"
	"academy-backend/internal/service"
)

var errNotImplemented = errors.New("not implemented")

type fakeProgress struct {
	doc  *course.Document
	view *service.CourseView
	nav  *service.NavigationResult
	err  error

	lastLearner string
	lastLesson  string
	lastPercent float64
	lastPos     course.Position
}

func (f *fakeProgress) CourseView(ctx context.Context, courseID, learnerID string) (*service.CourseView, error) {
	f.lastLearner = learnerID
	return f.view, f.err
}

func (f *fakeProgress) SelectLesson(ctx context.Context, courseID, learnerID string, pos course.Position) (*course.Document, error) {
	f.lastLearner = learnerID
	f.lastPos = pos
	return f.doc, f.err
}

func (f *fakeProgress) RecordProgress(ctx context.Context, courseID, learnerID, lessonID string, watchedPercent float64) (*course.Document, error) {
	f.lastLearner = learnerID
	f.lastLesson = lessonID
	f.lastPercent = watchedPercent
	return f.doc, f.err
}

func (f *fakeProgress) MarkComplete(ctx context.Context, courseID, learnerID, lessonID string) (*course.Document, error) {
	f.lastLearner = learnerID
	f.lastLesson = lessonID
	return f.doc, f.err
}

func (f *fakeProgress) GetProgress(ctx context.Context, courseID, learnerID string) (*course.Document, error) {
	f.lastLearner = learnerID
	return f.doc, f.err
}

func (f *fakeProgress) NextLesson(ctx context.Context, courseID string, pos course.Position) (*service.NavigationResult, error) {
	f.lastPos = pos
	return f.nav, f.err
}

func (f *fakeProgress) PreviousLesson(ctx context.Context, courseID string, pos course.Position) (*service.NavigationResult, error) {
	f.lastPos = pos
	return f.nav, f.err
}

type fakeCatalog struct {
	course  *course.Course
	courses []models.Course
	err     error

	createReq  models.CreateCourseRequest
	reordered  []string
	flushed    bool
	deletedIDs []string
}

func (f *fakeCatalog) Load(ctx context.Context, courseID string) (*course.Course, error) {
	return f.course, f.err
}

func (f *fakeCatalog) List(ctx context.Context) ([]models.Course, error) {
	return f.courses, f.err
}

func (f *fakeCatalog) Import(ctx context.Context, c *course.Course) (bool, error) {
	return false, errNotImplemented
}

func (f *fakeCatalog) CreateCourse(ctx context.Context, req models.CreateCourseRequest) (*course.Course, error) {
	f.createReq = req
	return f.course, f.err
}

func (f *fakeCatalog) UpdateCourse(ctx context.Context, courseID string, req models.UpdateCourseRequest) (*course.Course, error) {
	return f.course, f.err
}

func (f *fakeCatalog) DeleteCourse(ctx context.Context, courseID string) error {
	f.deletedIDs = append(f.deletedIDs, courseID)
	return f.err
}

func (f *fakeCatalog) CreateChapter(ctx context.Context, courseID string, req models.CreateChapterRequest) (*course.Course, error) {
	return f.course, f.err
}

func (f *fakeCatalog) UpdateChapter(ctx context.Context, courseID, chapterID string, req models.UpdateChapterRequest) (*course.Course, error) {
	return f.course, f.err
}

func (f *fakeCatalog) DeleteChapter(ctx context.Context, courseID, chapterID string) (*course.Course, error) {
	return f.course, f.err
}

func (f *fakeCatalog) ReorderChapters(ctx context.Context, courseID string, chapterIDs []string) (*course.Course, error) {
	f.reordered = chapterIDs
	return f.course, f.err
}

func (f *fakeCatalog) CreateLesson(ctx context.Context, courseID, chapterID string, req models.CreateLessonRequest) (*course.Course, error) {
	return f.course, f.err
}

func (f *fakeCatalog) UpdateLesson(ctx context.Context, courseID, lessonID string, req models.UpdateLessonRequest) (*course.Course, error) {
	return f.course, f.err
}

func (f *fakeCatalog) DeleteLesson(ctx context.Context, courseID, lessonID string) (*course.Course, error) {
	return f.course, f.err
}

func (f *fakeCatalog) ReorderLessons(ctx context.Context, courseID, chapterID string, lessonIDs []string) (*course.Course, error) {
	f.reordered = lessonIDs
	return f.course, f.err
}

func (f *fakeCatalog) FlushCache(ctx context.Context) error {
	f.flushed = true
	return f.err
}

type fakeAccess struct {
	access    *models.CourseAccess
	err       error
	grantedBy string
	revoked   string
}

func (f *fakeAccess) HasPaidAccess(ctx context.Context, learnerID, courseID string) (bool, error) {
	return false, f.err
}

func (f *fakeAccess) Grant(ctx context.Context, courseID string, req models.GrantAccessRequest, grantedBy string) (*models.CourseAccess, error) {
	f.grantedBy = grantedBy
	return f.access, f.err
}

func (f *fakeAccess) Revoke(ctx context.Context, courseID, learnerID string) error {
	f.revoked = learnerID
	return f.err
}

func sampleCourse() *course.Course {
	return course.New("robotics-101", "Robotics 101", []course.Chapter{
		{ID: "A", Title: "Basics", Order: 1, Lessons: []course.Lesson{
			{ID: "A1", Title: "Meet the robot", Order: 1, Duration: 10, IsFree: true},
			{ID: "A2", Title: "Motors", Order: 2, Duration: 15},
		}},
		{ID: "B", Title: "Sensors", Order: 2, Lessons: []course.Lesson{
			{ID: "B1", Title: "Distance", Order: 1, Duration: 20},
		}},
	})
}
