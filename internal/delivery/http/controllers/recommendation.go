package controllers

import (
	"LearnForge/internal/models"
	"LearnForge/pkg/logger"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RecommendationService interface {
	Ingest(ctx context.Context, learnerID, courseID uuid.UUID, confidence float64) (*models.Recommendation, error)
	Pending(ctx context.Context) ([]models.Recommendation, error)
	Review(ctx context.Context, id, reviewerID uuid.UUID, accept bool, notes string) (*models.Recommendation, error)
}

type RecommendationHandler struct {
	log     logger.Log
	service RecommendationService
}

func NewRecommendationHandler(l logger.Log, s RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{
		log:     l,
		service: s,
	}
}

type ingestRecommendationRequest struct {
	LearnerID       string  `json:"learner_id" binding:"required,uuid"`
	CourseID        string  `json:"course_id" binding:"required,uuid"`
	ConfidenceScore float64 `json:"confidence_score" binding:"gte=0,lte=1"`
}

func (h *RecommendationHandler) Ingest(c *gin.Context) {
	var input ingestRecommendationRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	learnerID, err := uuid.Parse(input.LearnerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	courseID, err := uuid.Parse(input.CourseID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.service.Ingest(c.Request.Context(), learnerID, courseID, input.ConfidenceScore)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *RecommendationHandler) Pending(c *gin.Context) {
	recs, err := h.service.Pending(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}

type reviewRecommendationRequest struct {
	Accept bool   `json:"accept"`
	Notes  string `json:"notes"`
}

func (h *RecommendationHandler) Review(c *gin.Context) {
	recommendationID, ok := uuidParam(c, "recommendation_id")
	if !ok {
		return
	}
	reviewerID, ok := clientID(c)
	if !ok {
		return
	}
	var input reviewRecommendationRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.service.Review(c.Request.Context(), recommendationID, reviewerID, input.Accept, input.Notes)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
