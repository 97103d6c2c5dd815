package controllers

import (
	"LearnForge/internal/models"
	"LearnForge/pkg/logger"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AchievementService interface {
	LearnerAchievements(ctx context.Context, learnerID uuid.UUID) ([]models.Achievement, error)
	LearnerStreak(ctx context.Context, learnerID uuid.UUID) (models.StreakCounter, error)
}

type AchievementHandler struct {
	log     logger.Log
	service AchievementService
}

func NewAchievementHandler(l logger.Log, s AchievementService) *AchievementHandler {
	return &AchievementHandler{
		log:     l,
		service: s,
	}
}

func (h *AchievementHandler) MyAchievements(c *gin.Context) {
	learnerID, ok := clientID(c)
	if !ok {
		return
	}
	achievements, err := h.service.LearnerAchievements(c.Request.Context(), learnerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"achievements": achievements})
}

func (h *AchievementHandler) MyStreak(c *gin.Context) {
	learnerID, ok := clientID(c)
	if !ok {
		return
	}
	streak, err := h.service.LearnerStreak(c.Request.Context(), learnerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, streak)
}
