package controllers

import (
	"LearnForge/internal/app_errors"
	"LearnForge/pkg/logger"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var statusByErr = map[error]int{
	app_errors.ErrNotFound:              http.StatusNotFound,
	app_errors.ErrInvalidState:          http.StatusConflict,
	app_errors.ErrAlreadyPending:        http.StatusConflict,
	app_errors.ErrFeedbackRequired:      http.StatusBadRequest,
	app_errors.ErrDurationExceeded:      http.StatusUnprocessableEntity,
	app_errors.ErrFormationNotPublished: http.StatusConflict,
	app_errors.ErrEnrollmentNotActive:   http.StatusConflict,
	app_errors.ErrLessonLocked:          http.StatusConflict,
	app_errors.ErrModuleLocked:          http.StatusConflict,
	app_errors.ErrMaxAttemptsExceeded:   http.StatusConflict,
	app_errors.ErrAttemptInProgress:     http.StatusConflict,
	app_errors.ErrAlreadySubmitted:      http.StatusConflict,
	app_errors.ErrAnswerCountMismatch:   http.StatusBadRequest,
	app_errors.ErrNotEligible:           http.StatusConflict,
	app_errors.ErrAlreadyIssued:         http.StatusConflict,
	app_errors.ErrAlreadyReviewed:       http.StatusConflict,
}

// respondError maps domain sentinels to HTTP status codes; anything else is
// logged and reported as a 500.
func respondError(c *gin.Context, log logger.Log, err error) {
	for sentinel, status := range statusByErr {
		if errors.Is(err, sentinel) {
			c.JSON(status, gin.H{"error": sentinel.Error()})
			return
		}
	}
	log.ErrorErr("unhandled request error", err, "path", c.Request.URL.Path)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	raw, ok := c.Params.Get(name)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " is required"})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return uuid.Nil, false
	}
	return id, true
}

func clientID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ClientIDCtx)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, false
	}
	return id, true
}
