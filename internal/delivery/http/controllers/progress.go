package controllers

import (
	"LearnForge/internal/models"
	"LearnForge/pkg/logger"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProgressService interface {
	Enroll(ctx context.Context, learnerID, formationID uuid.UUID) (*models.Enrollment, error)
	Drop(ctx context.Context, learnerID, enrollmentID uuid.UUID) error
	CompleteLesson(ctx context.Context, learnerID, enrollmentID, lessonID uuid.UUID) (*models.ModuleProgress, error)
	Summary(ctx context.Context, learnerID, enrollmentID uuid.UUID) (*models.ProgressSummary, error)
}

type ProgressHandler struct {
	log     logger.Log
	service ProgressService
}

func NewProgressHandler(l logger.Log, s ProgressService) *ProgressHandler {
	return &ProgressHandler{
		log:     l,
		service: s,
	}
}

type enrollRequest struct {
	FormationID string `json:"formation_id" binding:"required,uuid"`
}

func (h *ProgressHandler) Enroll(c *gin.Context) {
	learnerID, ok := clientID(c)
	if !ok {
		return
	}
	var input enrollRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	formationID, err := uuid.Parse(input.FormationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enrollment, err := h.service.Enroll(c.Request.Context(), learnerID, formationID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, enrollment)
}

func (h *ProgressHandler) Drop(c *gin.Context) {
	learnerID, ok := clientID(c)
	if !ok {
		return
	}
	enrollmentID, ok := uuidParam(c, "enrollment_id")
	if !ok {
		return
	}
	if err := h.service.Drop(c.Request.Context(), learnerID, enrollmentID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *ProgressHandler) CompleteLesson(c *gin.Context) {
	learnerID, ok := clientID(c)
	if !ok {
		return
	}
	enrollmentID, ok := uuidParam(c, "enrollment_id")
	if !ok {
		return
	}
	lessonID, ok := uuidParam(c, "lesson_id")
	if !ok {
		return
	}

	progress, err := h.service.CompleteLesson(c.Request.Context(), learnerID, enrollmentID, lessonID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (h *ProgressHandler) Summary(c *gin.Context) {
	learnerID, ok := clientID(c)
	if !ok {
		return
	}
	enrollmentID, ok := uuidParam(c, "enrollment_id")
	if !ok {
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), learnerID, enrollmentID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
