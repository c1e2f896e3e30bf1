package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"academy-backend/internal/course"
	"academy-backend/internal/middleware"
	"academy-backend/internal/models"
	"academy-backend/internal/service"
)

const testLearner = "guest:4f9c"

func newTestRouter(progress service.ProgressUseCase, catalog service.CatalogUseCase, access service.AccessUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if learner := c.GetHeader("X-Test-Learner"); learner != "-" {
			if learner == "" {
				learner = testLearner
			}
			c.Set(middleware.LearnerIDKey, learner)
		}
		c.Next()
	})

	courses := NewCourseHandler(catalog, progress)
	progressHandler := NewProgressHandler(progress)
	catalogHandler := NewCatalogHandler(catalog)
	accessHandler := NewAccessHandler(access)

	api := router.Group("/api/v1")
	api.GET("/courses", courses.List)
	api.GET("/courses/:courseId", courses.Get)
	api.GET("/courses/:courseId/next", courses.Next)
	api.GET("/courses/:courseId/previous", courses.Previous)
	api.GET("/courses/:courseId/progress", progressHandler.Get)
	api.POST("/courses/:courseId/select", progressHandler.Select)
	api.POST("/courses/:courseId/progress", progressHandler.Record)
	api.POST("/courses/:courseId/lessons/:lessonId/complete", progressHandler.Complete)

	admin := api.Group("/admin")
	admin.POST("/courses", catalogHandler.CreateCourse)
	admin.DELETE("/courses/:courseId", catalogHandler.DeleteCourse)
	admin.PUT("/courses/:courseId/chapters/order", catalogHandler.ReorderChapters)
	admin.POST("/courses/:courseId/chapters/:chapterId/lessons", catalogHandler.CreateLesson)
	admin.POST("/courses/:courseId/access", accessHandler.Grant)
	admin.DELETE("/courses/:courseId/access", accessHandler.Revoke)
	admin.DELETE("/cache", catalogHandler.FlushCache)

	return router
}

func perform(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var payload bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&payload).Encode(body)
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func TestRecordProgress(t *testing.T) {
	progress := &fakeProgress{doc: &course.Document{CourseID: "robotics-101", CompletedLessons: 1, OverallProgress: 33}}
	router := newTestRouter(progress, &fakeCatalog{}, &fakeAccess{})

	w := perform(router, http.MethodPost, "/api/v1/courses/robotics-101/progress", gin.H{"lessonId": "A1", "watchedPercent": 95})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, testLearner, progress.lastLearner)
	assert.Equal(t, "A1", progress.lastLesson)
	assert.Equal(t, 95.0, progress.lastPercent)

	result := decode(t, w)
	doc := result["progress"].(map[string]interface{})
	assert.Equal(t, float64(33), doc["overallProgress"])
	assert.Equal(t, float64(1), doc["completedLessons"])
}

func TestRecordProgressRequiresPercent(t *testing.T) {
	router := newTestRouter(&fakeProgress{}, &fakeCatalog{}, &fakeAccess{})

	w := perform(router, http.MethodPost, "/api/v1/courses/robotics-101/progress", gin.H{"lessonId": "A1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordProgressErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"locked", &course.AccessDeniedError{LessonID: "A2"}, http.StatusForbidden},
		{"unknown lesson", &course.UnknownLessonError{CourseID: "robotics-101", LessonID: "Z9"}, http.StatusNotFound},
		{"unknown course", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), http.StatusNotFound},
		{"malformed", &course.MalformedCourseError{CourseID: "robotics-101", Reason: "no lessons"}, http.StatusUnprocessableEntity},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&fakeProgress{err: tc.err}, &fakeCatalog{}, &fakeAccess{})
			w := perform(router, http.MethodPost, "/api/v1/courses/robotics-101/progress", gin.H{"lessonId": "A2", "watchedPercent": 10})
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	router := newTestRouter(&fakeProgress{err: errors.New("pq: password authentication failed")}, &fakeCatalog{}, &fakeAccess{})

	w := perform(router, http.MethodGet, "/api/v1/courses/robotics-101/progress", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestSelectLesson(t *testing.T) {
	progress := &fakeProgress{doc: &course.Document{CurrentChapterID: "A", CurrentLessonID: "A1"}}
	router := newTestRouter(progress, &fakeCatalog{}, &fakeAccess{})

	w := perform(router, http.MethodPost, "/api/v1/courses/robotics-101/select", gin.H{"chapterId": "A", "lessonId": "A1"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, course.Position{ChapterID: "A", LessonID: "A1"}, progress.lastPos)
}

func TestMarkComplete(t *testing.T) {
	progress := &fakeProgress{doc: &course.Document{CompletedLessons: 1}}
	router := newTestRouter(progress, &fakeCatalog{}, &fakeAccess{})

	w := perform(router, http.MethodPost, "/api/v1/courses/robotics-101/lessons/B1/complete", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "B1", progress.lastLesson)
}

func TestProgressRequiresLearner(t *testing.T) {
	router := newTestRouter(&fakeProgress{}, &fakeCatalog{}, &fakeAccess{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses/robotics-101/progress", nil)
	req.Header.Set("X-Test-Learner", "-")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInvalidCourseIDIsRejected(t *testing.T) {
	router := newTestRouter(&fakeProgress{}, &fakeCatalog{}, &fakeAccess{})

	w := perform(router, http.MethodGet, "/api/v1/courses/-robotics/progress", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNextLesson(t *testing.T) {
	progress := &fakeProgress{nav: &service.NavigationResult{
		From:   course.Position{ChapterID: "A", LessonID: "A2"},
		Lesson: &course.Position{ChapterID: "B", LessonID: "B1"},
	}}
	router := newTestRouter(progress, &fakeCatalog{}, &fakeAccess{})

	w := perform(router, http.MethodGet, "/api/v1/courses/robotics-101/next?chapterId=A&lessonId=A2", nil)

	require.Equal(t, http.StatusOK, w.Code)
	result := decode(t, w)
	assert.Equal(t, false, result["atEnd"])
	assert.Equal(t, "B1", result["lesson"].(map[string]interface{})["lessonId"])
	assert.Equal(t, course.Position{ChapterID: "A", LessonID: "A2"}, progress.lastPos)
}

func TestPreviousLessonAtStart(t *testing.T) {
	progress := &fakeProgress{nav: &service.NavigationResult{From: course.Position{ChapterID: "A", LessonID: "A1"}, AtEnd: true}}
	router := newTestRouter(progress, &fakeCatalog{}, &fakeAccess{})

	w := perform(router, http.MethodGet, "/api/v1/courses/robotics-101/previous?chapterId=A&lessonId=A1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	result := decode(t, w)
	assert.Equal(t, true, result["atEnd"])
	assert.NotContains(t, result, "lesson")
}

func TestNavigationRequiresPosition(t *testing.T) {
	router := newTestRouter(&fakeProgress{}, &fakeCatalog{}, &fakeAccess{})

	w := perform(router, http.MethodGet, "/api/v1/courses/robotics-101/next?chapterId=A", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCourseView(t *testing.T) {
	c := sampleCourse()
	progress := &fakeProgress{view: &service.CourseView{
		Course:        c,
		LockedLessons: course.LockedLessons(c, false),
		FirstLesson:   &course.Position{ChapterID: "A", LessonID: "A1"},
	}}
	router := newTestRouter(progress, &fakeCatalog{}, &fakeAccess{})

	w := perform(router, http.MethodGet, "/api/v1/courses/robotics-101", nil)

	require.Equal(t, http.StatusOK, w.Code)
	result := decode(t, w)
	locked := result["lockedLessons"].(map[string]interface{})
	assert.Equal(t, true, locked["A2"])
	assert.Equal(t, "A1", result["firstLesson"].(map[string]interface{})["lessonId"])
}

func TestListCourses(t *testing.T) {
	catalog := &fakeCatalog{courses: []models.Course{{ID: "robotics-101", Title: "Robotics 101", TotalLessons: 3}}}
	router := newTestRouter(&fakeProgress{}, catalog, &fakeAccess{})

	w := perform(router, http.MethodGet, "/api/v1/courses", nil)

	require.Equal(t, http.StatusOK, w.Code)
	courses := decode(t, w)["courses"].([]interface{})
	require.Len(t, courses, 1)
	listed := courses[0].(map[string]interface{})
	assert.Equal(t, float64(3), listed["totalLessons"])
	assert.Contains(t, listed, "totalDuration")
	assert.NotContains(t, listed, "total_lessons")
}

func TestUnavailableServices(t *testing.T) {
	router := newTestRouter(nil, nil, nil)

	for _, path := range []string{"/api/v1/courses", "/api/v1/courses/robotics-101/progress"} {
		w := perform(router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
	w := perform(router, http.MethodDelete, "/api/v1/admin/cache", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCreateCourse(t *testing.T) {
	catalog := &fakeCatalog{course: course.New("drones", "Drones", nil)}
	router := newTestRouter(&fakeProgress{}, catalog, &fakeAccess{})

	w := perform(router, http.MethodPost, "/api/v1/admin/courses", gin.H{"id": "drones", "title": "Drones"})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "drones", catalog.createReq.ID)
	assert.Equal(t, "drones", decode(t, w)["course"].(map[string]interface{})["id"])
}

func TestCreateCourseRejectsBadIdentifier(t *testing.T) {
	router := newTestRouter(&fakeProgress{}, &fakeCatalog{}, &fakeAccess{})

	w := perform(router, http.MethodPost, "/api/v1/admin/courses", gin.H{"id": "has spaces", "title": "Drones"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateLessonRejectsUnknownResourceType(t *testing.T) {
	router := newTestRouter(&fakeProgress{}, &fakeCatalog{course: sampleCourse()}, &fakeAccess{})

	w := perform(router, http.MethodPost, "/api/v1/admin/courses/robotics-101/chapters/B/lessons", gin.H{
		"lessonId": "B2",
		"title":    "Line follower",
		"resources": []gin.H{
			{"title": "Sheet", "type": "spreadsheet", "url": "https://cdn.example.com/sheet"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReorderChapters(t *testing.T) {
	catalog := &fakeCatalog{course: sampleCourse()}
	router := newTestRouter(&fakeProgress{}, catalog, &fakeAccess{})

	w := perform(router, http.MethodPut, "/api/v1/admin/courses/robotics-101/chapters/order", gin.H{"ids": []string{"B", "A"}})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"B", "A"}, catalog.reordered)
}

func TestDeleteCourseNotFound(t *testing.T) {
	catalog := &fakeCatalog{err: gorm.ErrRecordNotFound}
	router := newTestRouter(&fakeProgress{}, catalog, &fakeAccess{})

	w := perform(router, http.MethodDelete, "/api/v1/admin/courses/ghost", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, []string{"ghost"}, catalog.deletedIDs)
}

func TestFlushCache(t *testing.T) {
	catalog := &fakeCatalog{}
	router := newTestRouter(&fakeProgress{}, catalog, &fakeAccess{})

	w := perform(router, http.MethodDelete, "/api/v1/admin/cache", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, catalog.flushed)
}

func TestGrantAccess(t *testing.T) {
	access := &fakeAccess{access: &models.CourseAccess{LearnerID: "ana", CourseID: "robotics-101", GrantedBy: "admin-1"}}
	router := newTestRouter(&fakeProgress{}, &fakeCatalog{}, access)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/courses/robotics-101/access", bytes.NewBufferString(`{"learnerId":"ana"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Learner", "admin-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "admin-1", access.grantedBy)
	assert.Equal(t, "ana", decode(t, w)["access"].(map[string]interface{})["learnerId"])
}

func TestRevokeAccess(t *testing.T) {
	access := &fakeAccess{}
	router := newTestRouter(&fakeProgress{}, &fakeCatalog{}, access)

	w := perform(router, http.MethodDelete, "/api/v1/admin/courses/robotics-101/access", gin.H{"learnerId": "ana"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana", access.revoked)

	access.err = gorm.ErrRecordNotFound
	w = perform(router, http.MethodDelete, "/api/v1/admin/courses/robotics-101/access", gin.H{"learnerId": "ana"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
