package service

import (
	"LearnForge/internal/service/achievement"
	"LearnForge/internal/service/certificate"
	"LearnForge/internal/service/progress"
	"LearnForge/internal/service/quiz"
	"LearnForge/internal/service/recommendation"
	"LearnForge/internal/service/validation"
)

type Collection struct {
	Validation      *validation.ValidationService
	Progress        *progress.ProgressService
	Quiz            *quiz.QuizService
	Achievements    *achievement.AchievementService
	Certificates    *certificate.CertificateService
	Recommendations *recommendation.RecommendationService
}
