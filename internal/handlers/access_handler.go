package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"academy-backend/internal/models"
	"academy-backend/internal/service"
)

// AccessHandler records purchases reported by the payment collaborator.
type AccessHandler struct {
	service service.AccessUseCase
}

func NewAccessHandler(access service.AccessUseCase) *AccessHandler {
	return &AccessHandler{service: access}
}

func (h *AccessHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "access service unavailable"})
		return false
	}
	return true
}

func (h *AccessHandler) Grant(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}
	grantedBy, ok := learnerID(c)
	if !ok {
		return
	}

	var req models.GrantAccessRequest
	if !bindJSON(c, &req) {
		return
	}

	access, err := h.service.Grant(c.Request.Context(), courseID, req, grantedBy)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access": access})
}

func (h *AccessHandler) Revoke(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}

	var req models.RevokeAccessRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.service.Revoke(c.Request.Context(), courseID, req.LearnerID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "access revoked"})
}
