package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventLessonCompleted    = "lesson_completed"
	EventModuleCompleted    = "module_completed"
	EventQuizSubmitted      = "quiz_submitted"
	EventFormationCompleted = "formation_completed"
	EventAchievementEarned  = "achievement_earned"
	EventCertificateIssued  = "certificate_issued"
)

// ProgressEvent is emitted on every progression transition and consumed by
// the achievement evaluator and, outside the core, by the notification
// system. The core never formats or delivers notifications.
type ProgressEvent struct {
	Type           string     `json:"type"`
	LearnerID      uuid.UUID  `json:"learner_id"`
	EnrollmentID   uuid.UUID  `json:"enrollment_id,omitempty"`
	FormationID    uuid.UUID  `json:"formation_id,omitempty"`
	ModuleID       uuid.UUID  `json:"module_id,omitempty"`
	LessonID       uuid.UUID  `json:"lesson_id,omitempty"`
	QuizID         uuid.UUID  `json:"quiz_id,omitempty"`
	AchievementKey string     `json:"achievement_key,omitempty"`
	Percentage     float64    `json:"percentage,omitempty"`
	Passed         bool       `json:"passed,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
