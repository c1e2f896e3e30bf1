package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"academy-backend/internal/course"
	"academy-backend/internal/models"
	"academy-backend/internal/service"
)

type ProgressHandler struct {
	service service.ProgressUseCase
}

func NewProgressHandler(progress service.ProgressUseCase) *ProgressHandler {
	return &ProgressHandler{service: progress}
}

func (h *ProgressHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "progress service unavailable"})
		return false
	}
	return true
}

// params resolves the course id and learner shared by every progress route.
func (h *ProgressHandler) params(c *gin.Context) (string, string, bool) {
	if !h.ensureService(c) {
		return "", "", false
	}
	courseID, ok := idParam(c, "courseId")
	if !ok {
		return "", "", false
	}
	learner, ok := learnerID(c)
	if !ok {
		return "", "", false
	}
	return courseID, learner, true
}

func (h *ProgressHandler) Get(c *gin.Context) {
	courseID, learner, ok := h.params(c)
	if !ok {
		return
	}

	doc, err := h.service.GetProgress(c.Request.Context(), courseID, learner)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": doc})
}

func (h *ProgressHandler) Select(c *gin.Context) {
	courseID, learner, ok := h.params(c)
	if !ok {
		return
	}

	var req models.SelectLessonRequest
	if !bindJSON(c, &req) {
		return
	}

	pos := course.Position{ChapterID: req.ChapterID, LessonID: req.LessonID}
	doc, err := h.service.SelectLesson(c.Request.Context(), courseID, learner, pos)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": doc})
}

func (h *ProgressHandler) Record(c *gin.Context) {
	courseID, learner, ok := h.params(c)
	if !ok {
		return
	}

	var req models.RecordProgressRequest
	if !bindJSON(c, &req) {
		return
	}

	doc, err := h.service.RecordProgress(c.Request.Context(), courseID, learner, req.LessonID, *req.WatchedPercent)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": doc})
}

func (h *ProgressHandler) Complete(c *gin.Context) {
	courseID, learner, ok := h.params(c)
	if !ok {
		return
	}
	lessonID, ok := idParam(c, "lessonId")
	if !ok {
		return
	}

	doc, err := h.service.MarkComplete(c.Request.Context(), courseID, learner, lessonID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": doc})
}
