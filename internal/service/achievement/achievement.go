package achievement

import (
	"LearnForge/internal/models"
	"LearnForge/pkg/logger"
	"LearnForge/pkg/timeutil"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type achievementRepo interface {
	Award(ctx context.Context, learnerID uuid.UUID, key string, earnedAt time.Time) (bool, error)
	ByLearner(ctx context.Context, learnerID uuid.UUID) ([]models.Achievement, error)
	Streak(ctx context.Context, learnerID uuid.UUID) (models.StreakCounter, error)
	SaveStreak(ctx context.Context, counter models.StreakCounter) error
}

type eventPublisher interface {
	Publish(ctx context.Context, event models.ProgressEvent) error
}

// rule maps a progress event to an achievement key. A rule fires at most
// once per learner; the repository deduplicates repeated awards.
type rule struct {
	key     string
	matches func(ev models.ProgressEvent, streak models.StreakCounter) bool
}

var rules = []rule{
	{
		key: models.AchievementFirstLesson,
		matches: func(ev models.ProgressEvent, _ models.StreakCounter) bool {
			return ev.Type == models.EventLessonCompleted
		},
	},
	{
		key: models.AchievementFirstModule,
		matches: func(ev models.ProgressEvent, _ models.StreakCounter) bool {
			return ev.Type == models.EventModuleCompleted
		},
	},
	{
		key: models.AchievementPerfectQuiz,
		matches: func(ev models.ProgressEvent, _ models.StreakCounter) bool {
			return ev.Type == models.EventQuizSubmitted && ev.Percentage == 100
		},
	},
	{
		key: models.AchievementWeekStreak,
		matches: func(_ models.ProgressEvent, streak models.StreakCounter) bool {
			return streak.CurrentStreak >= 7
		},
	},
	{
		key: models.AchievementFormationFinisher,
		matches: func(ev models.ProgressEvent, _ models.StreakCounter) bool {
			return ev.Type == models.EventFormationCompleted
		},
	},
}

type AchievementService struct {
	log       logger.Log
	repo      achievementRepo
	publisher eventPublisher
}

func NewAchievementService(log logger.Log, repo achievementRepo, publisher eventPublisher) *AchievementService {
	return &AchievementService{
		log:       log,
		repo:      repo,
		publisher: publisher,
	}
}

// NextStreak advances a streak counter for activity on the given day.
// Same-day activity leaves the counter unchanged, the next calendar day
// extends it, and any gap resets it to one.
func NextStreak(prev models.StreakCounter, day time.Time) models.StreakCounter {
	day = timeutil.StartOfDay(day)

	next := prev
	switch {
	case prev.LastActivityDate.IsZero():
		next.CurrentStreak = 1
	case timeutil.IsSameDay(prev.LastActivityDate, day):
		return prev
	case timeutil.IsConsecutiveDay(prev.LastActivityDate, day):
		next.CurrentStreak = prev.CurrentStreak + 1
	default:
		next.CurrentStreak = 1
	}
	next.LastActivityDate = day
	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	return next
}

// RecordActivity updates the learner's daily streak and persists the result.
func (s *AchievementService) RecordActivity(ctx context.Context, learnerID uuid.UUID, at time.Time) (models.StreakCounter, error) {
	prev, err := s.repo.Streak(ctx, learnerID)
	if err != nil {
		return models.StreakCounter{}, fmt.Errorf("load streak: %w", err)
	}

	next := NextStreak(prev, at)
	if next == prev {
		return prev, nil
	}
	next.LearnerID = learnerID
	if err := s.repo.SaveStreak(ctx, next); err != nil {
		return models.StreakCounter{}, fmt.Errorf("save streak: %w", err)
	}
	return next, nil
}

// HandleEvent records daily activity for the learner and evaluates every
// award rule against the event. Newly earned achievements are published;
// repeated matches are silently absorbed by the repository.
func (s *AchievementService) HandleEvent(ctx context.Context, ev models.ProgressEvent) error {
	streak, err := s.RecordActivity(ctx, ev.LearnerID, ev.OccurredAt)
	if err != nil {
		return err
	}

	for _, r := range rules {
		if !r.matches(ev, streak) {
			continue
		}
		awarded, err := s.repo.Award(ctx, ev.LearnerID, r.key, ev.OccurredAt)
		if err != nil {
			return fmt.Errorf("award %s: %w", r.key, err)
		}
		if !awarded {
			continue
		}
		s.log.Info("achievement earned", "learner_id", ev.LearnerID, "key", r.key)
		s.publish(ctx, models.ProgressEvent{
			Type:           models.EventAchievementEarned,
			LearnerID:      ev.LearnerID,
			AchievementKey: r.key,
			OccurredAt:     ev.OccurredAt,
		})
	}
	return nil
}

func (s *AchievementService) LearnerAchievements(ctx context.Context, learnerID uuid.UUID) ([]models.Achievement, error) {
	return s.repo.ByLearner(ctx, learnerID)
}

func (s *AchievementService) LearnerStreak(ctx context.Context, learnerID uuid.UUID) (models.StreakCounter, error) {
	return s.repo.Streak(ctx, learnerID)
}

func (s *AchievementService) publish(ctx context.Context, ev models.ProgressEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.ErrorErr("publish progress event", err, "type", ev.Type)
	}
}
