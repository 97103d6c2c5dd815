package controllers

import (
	"LearnForge/internal/models"
	"LearnForge/pkg/logger"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type QuizService interface {
	QuizForLearner(ctx context.Context, learnerID, quizID uuid.UUID) (*models.Quiz, error)
	StartAttempt(ctx context.Context, learnerID, quizID uuid.UUID) (*models.QuizAttempt, error)
	SubmitAttempt(ctx context.Context, learnerID, attemptID uuid.UUID, answers []models.QuizAnswer) (*models.QuizAttempt, error)
	BestAttempt(ctx context.Context, learnerID, quizID uuid.UUID) (*models.QuizAttempt, error)
}

type QuizHandler struct {
	log     logger.Log
	service QuizService
}

func NewQuizHandler(l logger.Log, s QuizService) *QuizHandler {
	return &QuizHandler{
		log:     l,
		service: s,
	}
}

func (h *QuizHandler) Quiz(c *gin.Context) {
	learnerID, ok := clientID(c)
	if !ok {
		return
	}
	quizID, ok := uuidParam(c, "quiz_id")
	if !ok {
		return
	}

	quiz, err := h.service.QuizForLearner(c.Request.Context(), learnerID, quizID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) StartAttempt(c *gin.Context) {
	learnerID, ok := clientID(c)
	if !ok {
		return
	}
	quizID, ok := uuidParam(c, "quiz_id")
	if !ok {
		return
	}

	attempt, err := h.service.StartAttempt(c.Request.Context(), learnerID, quizID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, attempt)
}

type submitAttemptRequest struct {
	Answers []answerInput `json:"answers" binding:"required,dive"`
}

type answerInput struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	Answer     string `json:"answer"`
}

func (h *QuizHandler) SubmitAttempt(c *gin.Context) {
	learnerID, ok := clientID(c)
	if !ok {
		return
	}
	attemptID, ok := uuidParam(c, "attempt_id")
	if !ok {
		return
	}
	var input submitAttemptRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answers := make([]models.QuizAnswer, 0, len(input.Answers))
	for _, a := range input.Answers {
		questionID, err := uuid.Parse(a.QuestionID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		answers = append(answers, models.QuizAnswer{QuestionID: questionID, Answer: a.Answer})
	}

	attempt, err := h.service.SubmitAttempt(c.Request.Context(), learnerID, attemptID, answers)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

func (h *QuizHandler) BestAttempt(c *gin.Context) {
	learnerID, ok := clientID(c)
	if !ok {
		return
	}
	quizID, ok := uuidParam(c, "quiz_id")
	if !ok {
		return
	}

	attempt, err := h.service.BestAttempt(c.Request.Context(), learnerID, quizID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}
