package controllers

import (
	"LearnForge/internal/models"
	"LearnForge/pkg/logger"
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ValidationService interface {
	CreateNode(ctx context.Context, n models.ContentNode) (*models.ContentNode, error)
	Node(ctx context.Context, id uuid.UUID) (*models.ContentNode, error)
	Tree(ctx context.Context, formationID uuid.UUID) (*models.FormationTree, error)
	Submit(ctx context.Context, nodeID uuid.UUID) (*models.ValidationRequest, error)
	Pending(ctx context.Context) ([]models.ValidationRequest, error)
	Decide(ctx context.Context, requestID, reviewerID uuid.UUID, approve bool, feedback string) (*models.ContentNode, error)
	Archive(ctx context.Context, id uuid.UUID) (*models.ContentNode, error)
	SearchFormations(ctx context.Context, query string, size int) ([]models.ContentNode, error)
}

type ValidationHandler struct {
	log     logger.Log
	service ValidationService
}

func NewValidationHandler(l logger.Log, s ValidationService) *ValidationHandler {
	return &ValidationHandler{
		log:     l,
		service: s,
	}
}

type createNodeRequest struct {
	Type            string  `json:"type" binding:"required,nodetype"`
	ParentID        *string `json:"parent_id" binding:"omitempty,uuid"`
	Title           string  `json:"title" binding:"required"`
	Order           int     `json:"order" binding:"gte=0"`
	DurationMinutes int     `json:"duration_minutes" binding:"gte=0"`
}

func (h *ValidationHandler) CreateNode(c *gin.Context) {
	var input createNodeRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	node := models.ContentNode{
		Type:            input.Type,
		Title:           input.Title,
		Order:           input.Order,
		DurationMinutes: input.DurationMinutes,
	}
	if input.ParentID != nil {
		parentID, err := uuid.Parse(*input.ParentID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		node.ParentID = &parentID
	}

	created, err := h.service.CreateNode(c.Request.Context(), node)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *ValidationHandler) Node(c *gin.Context) {
	nodeID, ok := uuidParam(c, "node_id")
	if !ok {
		return
	}
	node, err := h.service.Node(c.Request.Context(), nodeID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

func (h *ValidationHandler) FormationTree(c *gin.Context) {
	formationID, ok := uuidParam(c, "formation_id")
	if !ok {
		return
	}
	tree, err := h.service.Tree(c.Request.Context(), formationID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

func (h *ValidationHandler) SubmitNode(c *gin.Context) {
	nodeID, ok := uuidParam(c, "node_id")
	if !ok {
		return
	}
	request, err := h.service.Submit(c.Request.Context(), nodeID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

func (h *ValidationHandler) PendingRequests(c *gin.Context) {
	requests, err := h.service.Pending(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

type decisionRequest struct {
	Approve  bool   `json:"approve"`
	Feedback string `json:"feedback"`
}

func (h *ValidationHandler) Decide(c *gin.Context) {
	requestID, ok := uuidParam(c, "request_id")
	if !ok {
		return
	}
	reviewerID, ok := clientID(c)
	if !ok {
		return
	}
	var input decisionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	node, err := h.service.Decide(c.Request.Context(), requestID, reviewerID, input.Approve, input.Feedback)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

func (h *ValidationHandler) ArchiveNode(c *gin.Context) {
	nodeID, ok := uuidParam(c, "node_id")
	if !ok {
		return
	}
	node, err := h.service.Archive(c.Request.Context(), nodeID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

func (h *ValidationHandler) SearchFormations(c *gin.Context) {
	query := c.Query("q")
	size := 20
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must be between 1 and 100"})
			return
		}
		size = parsed
	}

	formations, err := h.service.SearchFormations(c.Request.Context(), query, size)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"formations": formations})
}
