package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RecommendationPending  = "pending"
	RecommendationAccepted = "accepted"
	RecommendationRejected = "rejected"
)

// Recommendation is a course suggestion produced by the external ML service.
// ConfidenceScore is in [0,1]. The review decision is terminal; accepting
// injects the course's module into the learner's effective path.
type Recommendation struct {
	ID              uuid.UUID  `json:"id"`
	LearnerID       uuid.UUID  `json:"learner_id"`
	CourseID        uuid.UUID  `json:"course_id"`
	ConfidenceScore float64    `json:"confidence_score"`
	Status          string     `json:"status"`
	ReviewedBy      *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	ReviewNotes     *string    `json:"review_notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
