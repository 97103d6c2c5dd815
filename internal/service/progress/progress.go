package progress

import (
	"LearnForge/internal/app_errors"
	"LearnForge/internal/models"
	"LearnForge/pkg/logger"
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

type enrollmentRepo interface {
	Upsert(ctx context.Context, learnerID, formationID uuid.UUID) (*models.Enrollment, error)
	ByID(ctx context.Context, id uuid.UUID) (*models.Enrollment, error)
	ByLearnerAndFormation(ctx context.Context, learnerID, formationID uuid.UUID) (*models.Enrollment, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

type progressRepo interface {
	Seed(ctx context.Context, enrollmentID uuid.UUID, moduleIDs []uuid.UUID) error
	ByEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]models.ModuleProgress, error)
	ForModule(ctx context.Context, enrollmentID, moduleID uuid.UUID) (*models.ModuleProgress, error)
	CompleteLesson(ctx context.Context, enrollmentID, lessonID uuid.UUID) (bool, error)
	CompletedLessonIDs(ctx context.Context, enrollmentID uuid.UUID) (map[uuid.UUID]struct{}, error)
	SetState(ctx context.Context, enrollmentID, moduleID uuid.UUID, from, to string) error
	MarkCompleted(ctx context.Context, enrollmentID, moduleID uuid.UUID) (bool, error)
	UnlockNext(ctx context.Context, enrollmentID uuid.UUID, position int) error
	InjectModule(ctx context.Context, enrollmentID, moduleID uuid.UUID) (*models.ModuleProgress, error)
}

type contentRepo interface {
	NodeByID(ctx context.Context, id uuid.UUID) (*models.ContentNode, error)
	Ancestors(ctx context.Context, id uuid.UUID) ([]models.ContentNode, error)
	FormationTree(ctx context.Context, formationID uuid.UUID) (*models.FormationTree, error)
}

type quizResults interface {
	HasPassed(ctx context.Context, learnerID, quizID uuid.UUID) (bool, error)
}

type achievementSink interface {
	HandleEvent(ctx context.Context, ev models.ProgressEvent) error
}

type certificateIssuer interface {
	TryIssue(ctx context.Context, enrollmentID uuid.UUID) (*models.Certificate, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, event models.ProgressEvent) error
}

type ProgressService struct {
	log          logger.Log
	enrollments  enrollmentRepo
	progress     progressRepo
	content      contentRepo
	quizzes      quizResults
	achievements achievementSink
	certificates certificateIssuer
	publisher    eventPublisher
}

func NewProgressService(log logger.Log, enrollments enrollmentRepo, progress progressRepo,
	content contentRepo, quizzes quizResults, achievements achievementSink,
	publisher eventPublisher,
) *ProgressService {
	return &ProgressService{
		log:          log,
		enrollments:  enrollments,
		progress:     progress,
		content:      content,
		quizzes:      quizzes,
		achievements: achievements,
		publisher:    publisher,
	}
}

// SetCertificateIssuer wires the certificate hook after construction; the
// issuer itself reads progress state, so the two are built in two steps.
func (s *ProgressService) SetCertificateIssuer(issuer certificateIssuer) {
	s.certificates = issuer
}

// Enroll registers the learner in a published formation. Re-enrolling is
// idempotent for active enrollments and reactivates dropped ones; module
// progress is seeded with the first module available and the rest locked.
func (s *ProgressService) Enroll(ctx context.Context, learnerID, formationID uuid.UUID) (*models.Enrollment, error) {
	node, err := s.content.NodeByID(ctx, formationID)
	if err != nil {
		return nil, err
	}
	if node.Type != models.NodeFormation || node.Status != models.StatusPublished {
		return nil, app_errors.ErrFormationNotPublished
	}

	enrollment, err := s.enrollments.Upsert(ctx, learnerID, formationID)
	if err != nil {
		return nil, err
	}

	tree, err := s.content.FormationTree(ctx, formationID)
	if err != nil {
		return nil, err
	}
	moduleIDs := make([]uuid.UUID, 0, len(tree.Modules))
	for _, m := range tree.Modules {
		moduleIDs = append(moduleIDs, m.Module.ID)
	}
	if err := s.progress.Seed(ctx, enrollment.ID, moduleIDs); err != nil {
		return nil, fmt.Errorf("seed module progress: %w", err)
	}

	s.log.Info("learner enrolled", "learner_id", learnerID, "formation_id", formationID)
	return enrollment, nil
}

// Drop marks the enrollment dropped. Progress rows are kept; re-enrolling
// resumes from them.
func (s *ProgressService) Drop(ctx context.Context, learnerID, enrollmentID uuid.UUID) error {
	enrollment, err := s.ownedEnrollment(ctx, learnerID, enrollmentID)
	if err != nil {
		return err
	}
	if enrollment.Status != models.EnrollmentActive {
		return app_errors.ErrEnrollmentNotActive
	}
	return s.enrollments.SetStatus(ctx, enrollment.ID, models.EnrollmentDropped)
}

// CompleteLesson records a lesson completion inside an unlocked module.
// Repeated completions are no-ops and fire no events; the first completion
// may cascade into module, unlock and formation transitions.
func (s *ProgressService) CompleteLesson(ctx context.Context, learnerID, enrollmentID, lessonID uuid.UUID) (*models.ModuleProgress, error) {
	enrollment, err := s.ownedEnrollment(ctx, learnerID, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != models.EnrollmentActive {
		return nil, app_errors.ErrEnrollmentNotActive
	}

	tree, err := s.content.FormationTree(ctx, enrollment.FormationID)
	if err != nil {
		return nil, err
	}
	lesson, moduleTree := tree.FindLesson(lessonID)
	if lesson == nil {
		return nil, app_errors.ErrNotFound
	}

	mp, err := s.progress.ForModule(ctx, enrollmentID, moduleTree.Module.ID)
	if err != nil {
		return nil, err
	}
	if mp.UnlockState == models.UnlockLocked {
		return nil, app_errors.ErrLessonLocked
	}

	completed, err := s.progress.CompletedLessonIDs(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	for _, l := range moduleTree.Lessons() {
		if l.ID == lessonID {
			break
		}
		if _, done := completed[l.ID]; !done {
			return nil, app_errors.ErrLessonLocked
		}
	}

	inserted, err := s.progress.CompleteLesson(ctx, enrollmentID, lessonID)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return mp, nil
	}

	if mp.UnlockState == models.UnlockAvailable {
		if err := s.progress.SetState(ctx, enrollmentID, mp.ModuleID, models.UnlockAvailable, models.UnlockInProgress); err != nil {
			s.log.ErrorErr("mark module in progress", err, "module_id", mp.ModuleID)
		}
	}

	s.emit(ctx, models.ProgressEvent{
		Type:         models.EventLessonCompleted,
		LearnerID:    learnerID,
		EnrollmentID: enrollmentID,
		FormationID:  enrollment.FormationID,
		ModuleID:     moduleTree.Module.ID,
		LessonID:     lessonID,
		OccurredAt:   time.Now().UTC(),
	})

	if err := s.completeModuleIfDone(ctx, enrollment, tree, moduleTree, mp); err != nil {
		s.log.ErrorErr("module completion check", err, "module_id", mp.ModuleID)
	}

	return s.progress.ForModule(ctx, enrollmentID, moduleTree.Module.ID)
}

// Summary aggregates the learner's progress across one enrollment.
func (s *ProgressService) Summary(ctx context.Context, learnerID, enrollmentID uuid.UUID) (*models.ProgressSummary, error) {
	enrollment, err := s.ownedEnrollment(ctx, learnerID, enrollmentID)
	if err != nil {
		return nil, err
	}
	tree, err := s.content.FormationTree(ctx, enrollment.FormationID)
	if err != nil {
		return nil, err
	}
	modules, err := s.progress.ByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}

	summary := models.ProgressSummary{
		Enrollment: *enrollment,
		Modules:    modules,
	}
	for _, mp := range modules {
		summary.TotalModules++
		if mp.UnlockState == models.UnlockCompleted {
			summary.CompletedModules++
		}
		summary.CompletedLessons += len(mp.CompletedLessonIDs)
		if mt := tree.FindModule(mp.ModuleID); mt != nil {
			summary.TotalLessons += len(mt.Lessons())
		}
	}
	if summary.TotalLessons > 0 {
		ratio := float64(summary.CompletedLessons) / float64(summary.TotalLessons)
		summary.OverallPercent = math.Round(ratio*1000) / 10
	}
	return &summary, nil
}

// EnsureQuizAccessible checks that the learner holds an active enrollment
// covering the quiz's module and that the module is unlocked.
func (s *ProgressService) EnsureQuizAccessible(ctx context.Context, learnerID uuid.UUID, quiz *models.Quiz) error {
	enrollment, err := s.enrollmentForModule(ctx, learnerID, quiz.ModuleID)
	if err != nil {
		return err
	}
	if enrollment.Status != models.EnrollmentActive {
		return app_errors.ErrEnrollmentNotActive
	}

	mp, err := s.progress.ForModule(ctx, enrollment.ID, quiz.ModuleID)
	if err != nil {
		return err
	}
	if mp.UnlockState == models.UnlockLocked {
		return app_errors.ErrModuleLocked
	}
	return nil
}

// HandleQuizPassed re-runs the module completion check after a passed
// attempt; a module with all lessons done may complete on the quiz result.
func (s *ProgressService) HandleQuizPassed(ctx context.Context, learnerID uuid.UUID, quiz *models.Quiz) error {
	enrollment, err := s.enrollmentForModule(ctx, learnerID, quiz.ModuleID)
	if err != nil {
		return err
	}

	tree, err := s.content.FormationTree(ctx, enrollment.FormationID)
	if err != nil {
		return err
	}
	moduleTree := tree.FindModule(quiz.ModuleID)
	if moduleTree == nil {
		return app_errors.ErrNotFound
	}
	mp, err := s.progress.ForModule(ctx, enrollment.ID, quiz.ModuleID)
	if err != nil {
		return err
	}
	return s.completeModuleIfDone(ctx, enrollment, tree, moduleTree, mp)
}

// InjectRecommendedModule appends a module to the learner's path, used by
// the recommendation workflow after a trainer accepts a suggestion.
func (s *ProgressService) InjectRecommendedModule(ctx context.Context, enrollmentID, moduleID uuid.UUID) (*models.ModuleProgress, error) {
	enrollment, err := s.enrollments.ByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != models.EnrollmentActive {
		return nil, app_errors.ErrEnrollmentNotActive
	}
	return s.progress.InjectModule(ctx, enrollmentID, moduleID)
}

func (s *ProgressService) EnrollmentProgress(ctx context.Context, enrollmentID uuid.UUID) ([]models.ModuleProgress, error) {
	return s.progress.ByEnrollment(ctx, enrollmentID)
}

// completeModuleIfDone flips the module to completed once every lesson is
// done and the module quiz, when present, has been passed. The CAS on the
// progress row guarantees the cascade runs once even under racing callers.
func (s *ProgressService) completeModuleIfDone(ctx context.Context, enrollment *models.Enrollment,
	tree *models.FormationTree, moduleTree *models.ModuleTree, mp *models.ModuleProgress,
) error {
	completed, err := s.progress.CompletedLessonIDs(ctx, enrollment.ID)
	if err != nil {
		return err
	}
	for _, l := range moduleTree.Lessons() {
		if _, done := completed[l.ID]; !done {
			return nil
		}
	}
	if moduleTree.Quiz != nil {
		passed, err := s.quizzes.HasPassed(ctx, enrollment.LearnerID, moduleTree.Quiz.ID)
		if err != nil {
			return err
		}
		if !passed {
			return nil
		}
	}

	first, err := s.progress.MarkCompleted(ctx, enrollment.ID, moduleTree.Module.ID)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	s.log.Info("module completed",
		"learner_id", enrollment.LearnerID, "module_id", moduleTree.Module.ID)
	s.emit(ctx, models.ProgressEvent{
		Type:         models.EventModuleCompleted,
		LearnerID:    enrollment.LearnerID,
		EnrollmentID: enrollment.ID,
		FormationID:  enrollment.FormationID,
		ModuleID:     moduleTree.Module.ID,
		OccurredAt:   time.Now().UTC(),
	})

	if err := s.progress.UnlockNext(ctx, enrollment.ID, mp.Position+1); err != nil {
		s.log.ErrorErr("unlock next module", err, "enrollment_id", enrollment.ID)
	}

	return s.completeFormationIfDone(ctx, enrollment, tree)
}

// completeFormationIfDone closes the enrollment once every module on the
// path is completed and the final quiz, when present, has been passed.
// Injected modules count: an accepted recommendation extends the path the
// learner has to finish.
func (s *ProgressService) completeFormationIfDone(ctx context.Context, enrollment *models.Enrollment, tree *models.FormationTree) error {
	modules, err := s.progress.ByEnrollment(ctx, enrollment.ID)
	if err != nil {
		return err
	}
	for _, mp := range modules {
		if mp.UnlockState != models.UnlockCompleted {
			return nil
		}
	}
	if final := tree.FinalQuiz(); final != nil {
		passed, err := s.quizzes.HasPassed(ctx, enrollment.LearnerID, final.ID)
		if err != nil {
			return err
		}
		if !passed {
			return nil
		}
	}

	if err := s.enrollments.SetStatus(ctx, enrollment.ID, models.EnrollmentCompleted); err != nil {
		return err
	}

	s.log.Info("formation completed",
		"learner_id", enrollment.LearnerID, "formation_id", enrollment.FormationID)
	s.emit(ctx, models.ProgressEvent{
		Type:         models.EventFormationCompleted,
		LearnerID:    enrollment.LearnerID,
		EnrollmentID: enrollment.ID,
		FormationID:  enrollment.FormationID,
		OccurredAt:   time.Now().UTC(),
	})

	if s.certificates != nil {
		if _, err := s.certificates.TryIssue(ctx, enrollment.ID); err != nil {
			s.log.ErrorErr("issue certificate", err, "enrollment_id", enrollment.ID)
		}
	}
	return nil
}

func (s *ProgressService) ownedEnrollment(ctx context.Context, learnerID, enrollmentID uuid.UUID) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.ByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.LearnerID != learnerID {
		return nil, app_errors.ErrNotFound
	}
	return enrollment, nil
}

func (s *ProgressService) enrollmentForModule(ctx context.Context, learnerID, moduleID uuid.UUID) (*models.Enrollment, error) {
	ancestors, err := s.content.Ancestors(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	var formationID uuid.UUID
	for _, a := range ancestors {
		if a.Type == models.NodeFormation {
			formationID = a.ID
			break
		}
	}
	if formationID == uuid.Nil {
		return nil, app_errors.ErrNotFound
	}
	return s.enrollments.ByLearnerAndFormation(ctx, learnerID, formationID)
}

// emit forwards the event to the achievement evaluator and publishes it on
// the event channel. Neither failure aborts the progression that caused it.
func (s *ProgressService) emit(ctx context.Context, ev models.ProgressEvent) {
	if s.achievements != nil {
		if err := s.achievements.HandleEvent(ctx, ev); err != nil {
			s.log.ErrorErr("evaluate achievements", err, "type", ev.Type)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.log.ErrorErr("publish progress event", err, "type", ev.Type)
		}
	}
}
