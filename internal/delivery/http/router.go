package http

import (
	"LearnForge/internal/delivery/http/controllers"
	"LearnForge/internal/models"
	"LearnForge/internal/service"
	"LearnForge/internal/service/auth"
	"LearnForge/pkg/logger"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func InitRoutes(l logger.Log, jwt *auth.JWTManager, s service.Collection) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	config := cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	r.Use(cors.New(config))

	statusController := controllers.NewStatusHandler()
	validationController := controllers.NewValidationHandler(l, s.Validation)
	progressController := controllers.NewProgressHandler(l, s.Progress)
	quizController := controllers.NewQuizHandler(l, s.Quiz)
	achievementController := controllers.NewAchievementHandler(l, s.Achievements)
	certificateController := controllers.NewCertificateHandler(l, s.Certificates)
	recommendationController := controllers.NewRecommendationHandler(l, s.Recommendations)

	authRequired := controllers.AuthMiddleware(l, jwt)

	v1 := r.Group("/v1", controllers.LoggingMiddleware(l))
	{
		v1.GET("/status", statusController.Status)

		v1.GET("/formations/search", validationController.SearchFormations)
		v1.GET("/certificates/verify/:code", certificateController.Verify)

		nodes := v1.Group("/nodes", authRequired)
		{
			nodes.GET("/:node_id", validationController.Node)

			trainer := nodes.Group("", controllers.RequireRoles(models.TrainerRole, models.AdminRole))
			{
				trainer.POST("", validationController.CreateNode)
				trainer.POST("/:node_id/submit", validationController.SubmitNode)
				trainer.POST("/:node_id/archive", validationController.ArchiveNode)
			}
		}
		v1.GET("/formations/:formation_id/tree", authRequired, validationController.FormationTree)

		validation := v1.Group("/validation", authRequired, controllers.RequireRoles(models.AdminRole))
		{
			validation.GET("/pending", validationController.PendingRequests)
			validation.POST("/:request_id/decision", validationController.Decide)
		}

		learner := v1.Group("", authRequired, controllers.RequireRoles(models.LearnerRole))
		{
			learner.POST("/enrollments", progressController.Enroll)
			learner.DELETE("/enrollments/:enrollment_id", progressController.Drop)
			learner.GET("/enrollments/:enrollment_id/progress", progressController.Summary)
			learner.POST("/enrollments/:enrollment_id/lessons/:lesson_id/complete", progressController.CompleteLesson)
			learner.POST("/enrollments/:enrollment_id/certificate", certificateController.Issue)

			learner.GET("/quizzes/:quiz_id", quizController.Quiz)
			learner.POST("/quizzes/:quiz_id/attempts", quizController.StartAttempt)
			learner.GET("/quizzes/:quiz_id/best-attempt", quizController.BestAttempt)
			learner.POST("/attempts/:attempt_id/submit", quizController.SubmitAttempt)

			learner.GET("/me/achievements", achievementController.MyAchievements)
			learner.GET("/me/streak", achievementController.MyStreak)
			learner.GET("/me/certificates", certificateController.MyCertificates)
		}

		recommendations := v1.Group("/recommendations", authRequired)
		{
			recommendations.POST("", controllers.RequireRoles(models.AdminRole), recommendationController.Ingest)

			trainer := recommendations.Group("", controllers.RequireRoles(models.TrainerRole, models.AdminRole))
			{
				trainer.GET("/pending", recommendationController.Pending)
				trainer.POST("/:recommendation_id/review", recommendationController.Review)
			}
		}
	}
	return r
}
