package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"academy-backend/internal/service"
)

// CourseHandler serves the learner-facing catalog and navigation routes.
type CourseHandler struct {
	catalog  service.CatalogUseCase
	progress service.ProgressUseCase
}

func NewCourseHandler(catalog service.CatalogUseCase, progress service.ProgressUseCase) *CourseHandler {
	return &CourseHandler{catalog: catalog, progress: progress}
}

func (h *CourseHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.catalog == nil || h.progress == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "course service unavailable"})
		return false
	}
	return true
}

func (h *CourseHandler) List(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courses, err := h.catalog.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

// Get returns the course tree with per-learner lock flags and progress.
func (h *CourseHandler) Get(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}
	learner, ok := learnerID(c)
	if !ok {
		return
	}

	view, err := h.progress.CourseView(c.Request.Context(), courseID, learner)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *CourseHandler) Next(c *gin.Context) {
	h.navigate(c, true)
}

func (h *CourseHandler) Previous(c *gin.Context) {
	h.navigate(c, false)
}

func (h *CourseHandler) navigate(c *gin.Context, forward bool) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}
	pos, ok := positionQuery(c)
	if !ok {
		return
	}

	var (
		result *service.NavigationResult
		err    error
	)
	if forward {
		result, err = h.progress.NextLesson(c.Request.Context(), courseID, pos)
	} else {
		result, err = h.progress.PreviousLesson(c.Request.Context(), courseID, pos)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
