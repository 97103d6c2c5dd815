package app

import (
	"LearnForge/internal/app/server"
	"LearnForge/internal/config"
	"LearnForge/internal/delivery/http"
	"LearnForge/internal/service"
	"LearnForge/internal/service/achievement"
	"LearnForge/internal/service/auth"
	"LearnForge/internal/service/certificate"
	"LearnForge/internal/service/progress"
	"LearnForge/internal/service/quiz"
	"LearnForge/internal/service/recommendation"
	"LearnForge/internal/service/validation"
	"LearnForge/internal/storage/elastic"
	"LearnForge/internal/storage/postgres"
	"LearnForge/internal/storage/redisbus"
	"LearnForge/pkg/logger"
	"context"
	"os"
	"os/signal"
	"syscall"
)

func Run(cfg *config.Config) {

	log := logger.New(cfg.Env)
	log.Info("Starting with Env: " + cfg.Env)

	pg, err := postgres.NewPostgresPool(cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.DBName)
	if err != nil {
		log.FatalErr("error connecting to database", err)
	}
	defer pg.Close()

	esClient, err := elastic.NewElasticClient(cfg.ES.Password, cfg.ES.Hosts)
	if err != nil {
		log.FatalErr("error connecting to elasticsearch", err)
	}
	searchRepo := elastic.NewFormationSearchRepository(esClient, cfg.ES.Index)
	if err := searchRepo.CreateIndexIfNotExist(context.Background()); err != nil {
		log.FatalErr("error creating search index", err)
	}

	publisher, err := redisbus.NewPublisher(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Channel)
	if err != nil {
		log.FatalErr("error connecting to redis", err)
	}
	defer publisher.Close()

	contentRepo := postgres.NewContentPostgres(pg.Pool)
	validationRepo := postgres.NewValidationPostgres(pg.Pool)
	enrollmentRepo := postgres.NewEnrollmentPostgres(pg.Pool)
	progressRepo := postgres.NewProgressPostgres(pg.Pool)
	quizRepo := postgres.NewQuizPostgres(pg.Pool)
	achievementRepo := postgres.NewAchievementPostgres(pg.Pool)
	certificateRepo := postgres.NewCertificatePostgres(pg.Pool)
	recommendationRepo := postgres.NewRecommendationPostgres(pg.Pool)

	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Issuer, cfg.JWT.AccessTTL)

	achievementService := achievement.NewAchievementService(log, achievementRepo, publisher)
	validationService := validation.NewValidationService(log, contentRepo, validationRepo, searchRepo)
	progressService := progress.NewProgressService(log, enrollmentRepo, progressRepo, contentRepo, quizRepo, achievementService, publisher)
	certificateService := certificate.NewCertificateService(log, certificateRepo, enrollmentRepo, contentRepo, quizRepo, publisher)
	progressService.SetCertificateIssuer(certificateService)
	quizService := quiz.NewQuizService(log, quizRepo, progressService, publisher)
	recommendationService := recommendation.NewRecommendationService(log, recommendationRepo, contentRepo, enrollmentRepo, progressService)

	u := service.Collection{
		Validation:      validationService,
		Progress:        progressService,
		Quiz:            quizService,
		Achievements:    achievementService,
		Certificates:    certificateService,
		Recommendations: recommendationService,
	}

	r := http.InitRoutes(log, jwtManager, u)

	srv := server.New(cfg.HTTPServer.Address, cfg.HTTPServer.Timeout, cfg.HTTPServer.IdleTimeout, r)
	srv.Start()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		log.Info("app signal: " + s.String())
	case err := <-srv.Notify():
		log.ErrorErr("server error", err)
	}
	err = srv.Shutdown()
	if err != nil {
		log.ErrorErr("shutdown error", err)
	}
}
