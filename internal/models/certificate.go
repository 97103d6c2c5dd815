package models

import (
	"time"

	"github.com/google/uuid"
)

// Certificate is issued at most once per learner and formation, after every
// required module is completed and the closing quiz, when one exists, is
// passed.
type Certificate struct {
	ID                uuid.UUID `json:"id"`
	EnrollmentID      uuid.UUID `json:"enrollment_id"`
	LearnerID         uuid.UUID `json:"learner_id"`
	FormationID       uuid.UUID `json:"formation_id"`
	CertificateNumber string    `json:"certificate_number"`
	VerificationCode  string    `json:"verification_code"`
	FinalScore        float64   `json:"final_score"`
	IssuedAt          time.Time `json:"issued_at"`
}
