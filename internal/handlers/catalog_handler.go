package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"academy-backend/internal/models"
	"academy-backend/internal/service"
)

// CatalogHandler exposes catalog editing to administrators.
type CatalogHandler struct {
	service service.CatalogUseCase
}

func NewCatalogHandler(catalog service.CatalogUseCase) *CatalogHandler {
	return &CatalogHandler{service: catalog}
}

func (h *CatalogHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog service unavailable"})
		return false
	}
	return true
}

func (h *CatalogHandler) CreateCourse(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	var req models.CreateCourseRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.service.CreateCourse(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"course": created})
}

func (h *CatalogHandler) UpdateCourse(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}

	var req models.UpdateCourseRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.service.UpdateCourse(c.Request.Context(), courseID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": updated})
}

func (h *CatalogHandler) DeleteCourse(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}

	if err := h.service.DeleteCourse(c.Request.Context(), courseID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "course deleted"})
}

func (h *CatalogHandler) CreateChapter(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}

	var req models.CreateChapterRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.service.CreateChapter(c.Request.Context(), courseID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"course": updated})
}

func (h *CatalogHandler) UpdateChapter(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}
	chapterID, ok := idParam(c, "chapterId")
	if !ok {
		return
	}

	var req models.UpdateChapterRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.service.UpdateChapter(c.Request.Context(), courseID, chapterID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": updated})
}

func (h *CatalogHandler) DeleteChapter(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}
	chapterID, ok := idParam(c, "chapterId")
	if !ok {
		return
	}

	updated, err := h.service.DeleteChapter(c.Request.Context(), courseID, chapterID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": updated})
}

func (h *CatalogHandler) ReorderChapters(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}

	var req models.ReorderRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.service.ReorderChapters(c.Request.Context(), courseID, req.IDs)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": updated})
}

func (h *CatalogHandler) CreateLesson(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}
	chapterID, ok := idParam(c, "chapterId")
	if !ok {
		return
	}

	var req models.CreateLessonRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.service.CreateLesson(c.Request.Context(), courseID, chapterID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"course": updated})
}

func (h *CatalogHandler) UpdateLesson(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}
	lessonID, ok := idParam(c, "lessonId")
	if !ok {
		return
	}

	var req models.UpdateLessonRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.service.UpdateLesson(c.Request.Context(), courseID, lessonID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": updated})
}

func (h *CatalogHandler) DeleteLesson(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}
	lessonID, ok := idParam(c, "lessonId")
	if !ok {
		return
	}

	updated, err := h.service.DeleteLesson(c.Request.Context(), courseID, lessonID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": updated})
}

func (h *CatalogHandler) ReorderLessons(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}
	chapterID, ok := idParam(c, "chapterId")
	if !ok {
		return
	}

	var req models.ReorderRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.service.ReorderLessons(c.Request.Context(), courseID, chapterID, req.IDs)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": updated})
}

func (h *CatalogHandler) FlushCache(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	if err := h.service.FlushCache(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "catalog cache flushed"})
}
