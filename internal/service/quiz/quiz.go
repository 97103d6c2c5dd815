package quiz

import (
	"LearnForge/internal/app_errors"
	"LearnForge/internal/models"
	"LearnForge/pkg/logger"
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

type quizRepo interface {
	QuizByID(ctx context.Context, id uuid.UUID) (*models.Quiz, error)
	CreateAttempt(ctx context.Context, quizID, learnerID uuid.UUID, maxAttempts int) (*models.QuizAttempt, error)
	AttemptByID(ctx context.Context, id uuid.UUID) (*models.QuizAttempt, error)
	CloseAttempt(ctx context.Context, a models.QuizAttempt) (*models.QuizAttempt, error)
	BestAttempt(ctx context.Context, learnerID, quizID uuid.UUID) (*models.QuizAttempt, error)
}

// progressTracker gates attempts on module unlock state and reacts to
// passed quizzes. Implemented by the progress service.
type progressTracker interface {
	EnsureQuizAccessible(ctx context.Context, learnerID uuid.UUID, quiz *models.Quiz) error
	HandleQuizPassed(ctx context.Context, learnerID uuid.UUID, quiz *models.Quiz) error
}

type eventPublisher interface {
	Publish(ctx context.Context, event models.ProgressEvent) error
}

type QuizService struct {
	log       logger.Log
	quizRepo  quizRepo
	progress  progressTracker
	publisher eventPublisher
}

func NewQuizService(log logger.Log, quizRepo quizRepo, progress progressTracker, publisher eventPublisher) *QuizService {
	return &QuizService{
		log:       log,
		quizRepo:  quizRepo,
		progress:  progress,
		publisher: publisher,
	}
}

// StartAttempt opens a new attempt for the learner. The quiz's module must
// be unlocked, the attempt limit not reached, and no other attempt open.
func (s *QuizService) StartAttempt(ctx context.Context, learnerID, quizID uuid.UUID) (*models.QuizAttempt, error) {
	quiz, err := s.quizRepo.QuizByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := s.progress.EnsureQuizAccessible(ctx, learnerID, quiz); err != nil {
		return nil, err
	}

	attempt, err := s.quizRepo.CreateAttempt(ctx, quizID, learnerID, quiz.MaxAttempts)
	if err != nil {
		return nil, err
	}
	s.log.Info("quiz attempt started",
		"learner_id", learnerID, "quiz_id", quizID, "attempt", attempt.AttemptNumber)
	return attempt, nil
}

// SubmitAttempt scores the open attempt against the full question set and
// closes it. Submitting an already-closed attempt fails; a passed quiz is
// reported to the progress tracker for module completion.
func (s *QuizService) SubmitAttempt(ctx context.Context, learnerID, attemptID uuid.UUID, answers []models.QuizAnswer) (*models.QuizAttempt, error) {
	attempt, err := s.quizRepo.AttemptByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.LearnerID != learnerID {
		return nil, app_errors.ErrNotFound
	}
	if !attempt.Open() {
		return nil, app_errors.ErrAlreadySubmitted
	}

	quiz, err := s.quizRepo.QuizByID(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}

	raw, err := score(quiz.Questions, answers)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	attempt.SubmittedAt = &now
	attempt.RawScore = raw
	attempt.Percentage = percentage(raw, quiz.MaxPossibleScore())
	attempt.Passed = attempt.Percentage >= quiz.PassingScore
	attempt.Answers = answers

	closed, err := s.quizRepo.CloseAttempt(ctx, *attempt)
	if err != nil {
		return nil, err
	}
	s.log.Info("quiz attempt submitted", "learner_id", learnerID, "quiz_id", quiz.ID,
		"percentage", closed.Percentage, "passed", closed.Passed)

	s.publish(ctx, models.ProgressEvent{
		Type:       models.EventQuizSubmitted,
		LearnerID:  learnerID,
		ModuleID:   quiz.ModuleID,
		QuizID:     quiz.ID,
		Percentage: closed.Percentage,
		Passed:     closed.Passed,
		OccurredAt: now,
	})

	if closed.Passed {
		if err := s.progress.HandleQuizPassed(ctx, learnerID, quiz); err != nil {
			s.log.ErrorErr("handle passed quiz", err, "quiz_id", quiz.ID)
		}
	}
	return closed, nil
}

// BestAttempt returns the learner's highest-percentage submitted attempt.
func (s *QuizService) BestAttempt(ctx context.Context, learnerID, quizID uuid.UUID) (*models.QuizAttempt, error) {
	return s.quizRepo.BestAttempt(ctx, learnerID, quizID)
}

func (s *QuizService) QuizForLearner(ctx context.Context, learnerID, quizID uuid.UUID) (*models.Quiz, error) {
	quiz, err := s.quizRepo.QuizByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := s.progress.EnsureQuizAccessible(ctx, learnerID, quiz); err != nil {
		return nil, err
	}
	// correct answers never leave the service
	stripped := *quiz
	stripped.Questions = make([]models.QuizQuestion, len(quiz.Questions))
	for i, q := range quiz.Questions {
		q.CorrectAnswer = ""
		stripped.Questions[i] = q
	}
	return &stripped, nil
}

// score requires exactly one answer per question and sums the points of the
// correct ones.
func score(questions []models.QuizQuestion, answers []models.QuizAnswer) (int, error) {
	if len(answers) != len(questions) {
		return 0, app_errors.ErrAnswerCountMismatch
	}
	byQuestion := make(map[uuid.UUID]string, len(answers))
	for _, a := range answers {
		if _, dup := byQuestion[a.QuestionID]; dup {
			return 0, app_errors.ErrAnswerCountMismatch
		}
		byQuestion[a.QuestionID] = a.Answer
	}

	raw := 0
	for _, q := range questions {
		answer, ok := byQuestion[q.ID]
		if !ok {
			return 0, app_errors.ErrAnswerCountMismatch
		}
		if answerCorrect(q, answer) {
			raw += q.Points
		}
	}
	return raw, nil
}

func answerCorrect(q models.QuizQuestion, answer string) bool {
	switch q.Type {
	case models.QuestionTrueFalse:
		return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer))
	case models.QuestionShortAnswer:
		return normalizeText(answer) == normalizeText(q.CorrectAnswer)
	default:
		return strings.TrimSpace(answer) == strings.TrimSpace(q.CorrectAnswer)
	}
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// percentage rounds to one decimal place.
func percentage(raw, max int) float64 {
	if max <= 0 {
		return 0
	}
	return math.Round(float64(raw)/float64(max)*1000) / 10
}

func (s *QuizService) publish(ctx context.Context, ev models.ProgressEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.ErrorErr("publish progress event", err, "type", ev.Type)
	}
}
