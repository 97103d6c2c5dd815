package controllers

import (
	"LearnForge/internal/models"
	"LearnForge/pkg/logger"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CertificateService interface {
	Claim(ctx context.Context, learnerID, enrollmentID uuid.UUID) (*models.Certificate, error)
	Verify(ctx context.Context, code string) (*models.Certificate, error)
	LearnerCertificates(ctx context.Context, learnerID uuid.UUID) ([]models.Certificate, error)
}

type CertificateHandler struct {
	log     logger.Log
	service CertificateService
}

func NewCertificateHandler(l logger.Log, s CertificateService) *CertificateHandler {
	return &CertificateHandler{
		log:     l,
		service: s,
	}
}

// Issue lets a learner claim the certificate for a completed enrollment,
// covering the case where the automatic issue on completion failed.
func (h *CertificateHandler) Issue(c *gin.Context) {
	learnerID, ok := clientID(c)
	if !ok {
		return
	}
	enrollmentID, ok := uuidParam(c, "enrollment_id")
	if !ok {
		return
	}
	cert, err := h.service.Claim(c.Request.Context(), learnerID, enrollmentID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, cert)
}

// Verify is the public lookup by verification code; no authentication.
func (h *CertificateHandler) Verify(c *gin.Context) {
	code, ok := c.Params.Get("code")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}
	cert, err := h.service.Verify(c.Request.Context(), code)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, cert)
}

func (h *CertificateHandler) MyCertificates(c *gin.Context) {
	learnerID, ok := clientID(c)
	if !ok {
		return
	}
	certs, err := h.service.LearnerCertificates(c.Request.Context(), learnerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"certificates": certs})
}
