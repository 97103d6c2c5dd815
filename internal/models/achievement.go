package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AchievementFirstLesson       = "first_lesson"
	AchievementFirstModule       = "first_module"
	AchievementPerfectQuiz       = "perfect_quiz"
	AchievementWeekStreak        = "week_streak"
	AchievementFormationFinisher = "formation_finisher"
)

// Achievement is earned at most once per key per learner.
type Achievement struct {
	LearnerID uuid.UUID `json:"learner_id"`
	Key       string    `json:"key"`
	EarnedAt  time.Time `json:"earned_at"`
}

// StreakCounter tracks consecutive calendar days with at least one recorded
// learning activity.
type StreakCounter struct {
	LearnerID        uuid.UUID `json:"learner_id"`
	CurrentStreak    int       `json:"current_streak"`
	LongestStreak    int       `json:"longest_streak"`
	LastActivityDate time.Time `json:"last_activity_date"`
}
