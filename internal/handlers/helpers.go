package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"academy-backend/internal/course"
	"academy-backend/internal/middleware"
	"academy-backend/internal/service"
	"academy-backend/pkg/logger"
	"academy-backend/pkg/validator"
)

// writeError maps service and domain errors to HTTP responses.
func writeError(c *gin.Context, err error) {
	switch {
	case service.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case course.IsAccessDenied(err):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case course.IsUnknownLesson(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case service.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case course.IsMalformedCourse(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		logger.FromContext(c.Request.Context()).WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func idParam(c *gin.Context, name string) (string, bool) {
	value := strings.TrimSpace(c.Param(name))
	if !validator.ValidateIdentifier(value) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return "", false
	}
	return value, true
}

func learnerID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.GetString(middleware.LearnerIDKey))
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "learner identity required"})
		return "", false
	}
	return id, true
}

func positionQuery(c *gin.Context) (course.Position, bool) {
	pos := course.Position{
		ChapterID: strings.TrimSpace(c.Query("chapterId")),
		LessonID:  strings.TrimSpace(c.Query("lessonId")),
	}
	if pos.ChapterID == "" || pos.LessonID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chapterId and lessonId are required"})
		return course.Position{}, false
	}
	return pos, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
