package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	UnlockLocked     = "locked"
	UnlockAvailable  = "available"
	UnlockInProgress = "in_progress"
	UnlockCompleted  = "completed"
)

// ModuleProgress is the per-enrollment unlock state of one module. Position
// is the module's place in the learner's effective path: it follows the
// authored module order, with accepted recommendations appended after the
// furthest-unlocked module (Injected = true).
type ModuleProgress struct {
	ID                 uuid.UUID   `json:"id"`
	EnrollmentID       uuid.UUID   `json:"enrollment_id"`
	ModuleID           uuid.UUID   `json:"module_id"`
	Position           int         `json:"position"`
	UnlockState        string      `json:"unlock_state"`
	Injected           bool        `json:"injected"`
	CompletedLessonIDs []uuid.UUID `json:"completed_lesson_ids"`
	CompletedAt        *time.Time  `json:"completed_at,omitempty"`
}

// LessonProgress records a single lesson completion. Availability of a
// lesson is computed from the module's path order, not stored.
type LessonProgress struct {
	EnrollmentID uuid.UUID `json:"enrollment_id"`
	LessonID     uuid.UUID `json:"lesson_id"`
	CompletedAt  time.Time `json:"completed_at"`
}

// ProgressSummary is the single aggregate read served per enrollment.
type ProgressSummary struct {
	Enrollment       Enrollment       `json:"enrollment"`
	Modules          []ModuleProgress `json:"modules"`
	CompletedLessons int              `json:"completed_lessons"`
	TotalLessons     int              `json:"total_lessons"`
	CompletedModules int              `json:"completed_modules"`
	TotalModules     int              `json:"total_modules"`
	OverallPercent   float64          `json:"overall_percent"`
}
