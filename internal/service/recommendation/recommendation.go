package recommendation

import (
	"LearnForge/internal/app_errors"
	"LearnForge/internal/models"
	"LearnForge/pkg/logger"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type recommendationRepo interface {
	Create(ctx context.Context, rec models.Recommendation) (*models.Recommendation, error)
	ByID(ctx context.Context, id uuid.UUID) (*models.Recommendation, error)
	Pending(ctx context.Context) ([]models.Recommendation, error)
	Review(ctx context.Context, id, reviewerID uuid.UUID, status string, notes string) (*models.Recommendation, error)
}

type contentRepo interface {
	NodeByID(ctx context.Context, id uuid.UUID) (*models.ContentNode, error)
	Ancestors(ctx context.Context, id uuid.UUID) ([]models.ContentNode, error)
}

type enrollmentRepo interface {
	ByLearnerAndFormation(ctx context.Context, learnerID, formationID uuid.UUID) (*models.Enrollment, error)
}

// pathInjector appends an accepted recommendation's module to the learner's
// effective path. Implemented by the progress service.
type pathInjector interface {
	InjectRecommendedModule(ctx context.Context, enrollmentID, moduleID uuid.UUID) (*models.ModuleProgress, error)
}

type RecommendationService struct {
	log             logger.Log
	recommendations recommendationRepo
	content         contentRepo
	enrollments     enrollmentRepo
	injector        pathInjector
}

func NewRecommendationService(log logger.Log, recommendations recommendationRepo,
	content contentRepo, enrollments enrollmentRepo, injector pathInjector,
) *RecommendationService {
	return &RecommendationService{
		log:             log,
		recommendations: recommendations,
		content:         content,
		enrollments:     enrollments,
		injector:        injector,
	}
}

// Ingest stores a pending suggestion coming from the recommender. The
// course must exist, have cleared validation and carry a confidence score
// in [0,1].
func (s *RecommendationService) Ingest(ctx context.Context, learnerID, courseID uuid.UUID, confidence float64) (*models.Recommendation, error) {
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("confidence score %v out of range: %w", confidence, app_errors.ErrInvalidState)
	}
	course, err := s.content.NodeByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.Type != models.NodeCourse || !course.Visible() {
		return nil, app_errors.ErrInvalidState
	}

	return s.recommendations.Create(ctx, models.Recommendation{
		ID:              uuid.New(),
		LearnerID:       learnerID,
		CourseID:        courseID,
		ConfidenceScore: confidence,
		Status:          models.RecommendationPending,
	})
}

func (s *RecommendationService) Pending(ctx context.Context) ([]models.Recommendation, error) {
	return s.recommendations.Pending(ctx)
}

func (s *RecommendationService) ByID(ctx context.Context, id uuid.UUID) (*models.Recommendation, error) {
	return s.recommendations.ByID(ctx, id)
}

// Review settles a pending recommendation. The decision is terminal;
// acceptance resolves the course to its module and formation, requires an
// active enrollment there, and injects the module into the learner's path.
// All resolution happens before the status flip so a failed acceptance
// leaves the recommendation pending.
func (s *RecommendationService) Review(ctx context.Context, id, reviewerID uuid.UUID, accept bool, notes string) (*models.Recommendation, error) {
	rec, err := s.recommendations.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var enrollmentID, moduleID uuid.UUID
	if accept {
		enrollmentID, moduleID, err = s.resolveTarget(ctx, rec)
		if err != nil {
			return nil, err
		}
	}

	status := models.RecommendationRejected
	if accept {
		status = models.RecommendationAccepted
	}
	reviewed, err := s.recommendations.Review(ctx, id, reviewerID, status, strings.TrimSpace(notes))
	if err != nil {
		return nil, err
	}
	s.log.Info("recommendation reviewed",
		"recommendation_id", id, "learner_id", reviewed.LearnerID, "status", status)

	if accept {
		if _, err := s.injector.InjectRecommendedModule(ctx, enrollmentID, moduleID); err != nil {
			return nil, fmt.Errorf("inject recommended module: %w", err)
		}
	}
	return reviewed, nil
}

// resolveTarget maps the recommended course to the module that will be
// injected and the enrollment that will receive it.
func (s *RecommendationService) resolveTarget(ctx context.Context, rec *models.Recommendation) (enrollmentID, moduleID uuid.UUID, err error) {
	ancestors, err := s.content.Ancestors(ctx, rec.CourseID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	var formationID uuid.UUID
	for _, a := range ancestors {
		switch a.Type {
		case models.NodeModule:
			moduleID = a.ID
		case models.NodeFormation:
			formationID = a.ID
		}
	}
	if moduleID == uuid.Nil || formationID == uuid.Nil {
		return uuid.Nil, uuid.Nil, app_errors.ErrNotFound
	}

	enrollment, err := s.enrollments.ByLearnerAndFormation(ctx, rec.LearnerID, formationID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if enrollment.Status != models.EnrollmentActive {
		return uuid.Nil, uuid.Nil, app_errors.ErrEnrollmentNotActive
	}
	return enrollment.ID, moduleID, nil
}
