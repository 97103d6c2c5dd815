package achievement

import (
	"LearnForge/internal/models"
	"LearnForge/pkg/logger"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAchievementRepo struct {
	awarded  map[string]bool
	earnedAt map[string]time.Time
	streaks  map[uuid.UUID]models.StreakCounter
}

func newFakeAchievementRepo() *fakeAchievementRepo {
	return &fakeAchievementRepo{
		awarded:  make(map[string]bool),
		earnedAt: make(map[string]time.Time),
		streaks:  make(map[uuid.UUID]models.StreakCounter),
	}
}

func (f *fakeAchievementRepo) Award(_ context.Context, learnerID uuid.UUID, key string, earnedAt time.Time) (bool, error) {
	k := learnerID.String() + "/" + key
	if f.awarded[k] {
		return false, nil
	}
	f.awarded[k] = true
	f.earnedAt[k] = earnedAt
	return true, nil
}

func (f *fakeAchievementRepo) ByLearner(_ context.Context, learnerID uuid.UUID) ([]models.Achievement, error) {
	var out []models.Achievement
	for k := range f.awarded {
		if len(k) > 37 && k[:36] == learnerID.String() {
			out = append(out, models.Achievement{LearnerID: learnerID, Key: k[37:]})
		}
	}
	return out, nil
}

func (f *fakeAchievementRepo) Streak(_ context.Context, learnerID uuid.UUID) (models.StreakCounter, error) {
	return f.streaks[learnerID], nil
}

func (f *fakeAchievementRepo) SaveStreak(_ context.Context, c models.StreakCounter) error {
	f.streaks[c.LearnerID] = c
	return nil
}

type fakePublisher struct {
	events []models.ProgressEvent
}

func (f *fakePublisher) Publish(_ context.Context, ev models.ProgressEvent) error {
	f.events = append(f.events, ev)
	return nil
}

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 10, 0, 0, 0, time.UTC)
}

func TestNextStreak(t *testing.T) {
	tests := []struct {
		name        string
		prev        models.StreakCounter
		at          time.Time
		wantCurrent int
		wantLongest int
	}{
		{"first activity", models.StreakCounter{}, day(1), 1, 1},
		{"same day keeps streak", models.StreakCounter{CurrentStreak: 3, LongestStreak: 3, LastActivityDate: day(5)}, day(5).Add(8 * time.Hour), 3, 3},
		{"next day extends", models.StreakCounter{CurrentStreak: 3, LongestStreak: 3, LastActivityDate: day(5)}, day(6), 4, 4},
		{"gap resets", models.StreakCounter{CurrentStreak: 6, LongestStreak: 6, LastActivityDate: day(5)}, day(8), 1, 6},
		{"longest preserved on reset", models.StreakCounter{CurrentStreak: 2, LongestStreak: 9, LastActivityDate: day(5)}, day(9), 1, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextStreak(tt.prev, tt.at)
			assert.Equal(t, tt.wantCurrent, got.CurrentStreak)
			assert.Equal(t, tt.wantLongest, got.LongestStreak)
		})
	}
}

func TestHandleEvent_WeekStreakAward(t *testing.T) {
	repo := newFakeAchievementRepo()
	pub := &fakePublisher{}
	svc := NewAchievementService(logger.Nop(), repo, pub)
	learnerID := uuid.New()

	for d := 1; d <= 7; d++ {
		err := svc.HandleEvent(context.Background(), models.ProgressEvent{
			Type:       models.EventLessonCompleted,
			LearnerID:  learnerID,
			OccurredAt: day(d),
		})
		require.NoError(t, err)
	}

	streak, err := svc.LearnerStreak(context.Background(), learnerID)
	require.NoError(t, err)
	assert.Equal(t, 7, streak.CurrentStreak)
	assert.True(t, repo.awarded[learnerID.String()+"/"+models.AchievementWeekStreak])
}

func TestHandleEvent_FirstLessonOnce(t *testing.T) {
	repo := newFakeAchievementRepo()
	pub := &fakePublisher{}
	svc := NewAchievementService(logger.Nop(), repo, pub)
	learnerID := uuid.New()

	ev := models.ProgressEvent{
		Type:       models.EventLessonCompleted,
		LearnerID:  learnerID,
		LessonID:   uuid.New(),
		OccurredAt: day(1),
	}
	require.NoError(t, svc.HandleEvent(context.Background(), ev))
	require.NoError(t, svc.HandleEvent(context.Background(), ev))

	earned := 0
	for _, published := range pub.events {
		if published.Type == models.EventAchievementEarned && published.AchievementKey == models.AchievementFirstLesson {
			earned++
		}
	}
	assert.Equal(t, 1, earned)
}

func TestHandleEvent_PerfectQuiz(t *testing.T) {
	repo := newFakeAchievementRepo()
	svc := NewAchievementService(logger.Nop(), repo, &fakePublisher{})
	learnerID := uuid.New()

	err := svc.HandleEvent(context.Background(), models.ProgressEvent{
		Type:       models.EventQuizSubmitted,
		LearnerID:  learnerID,
		Percentage: 80,
		Passed:     true,
		OccurredAt: day(1),
	})
	require.NoError(t, err)
	assert.False(t, repo.awarded[learnerID.String()+"/"+models.AchievementPerfectQuiz])

	err = svc.HandleEvent(context.Background(), models.ProgressEvent{
		Type:       models.EventQuizSubmitted,
		LearnerID:  learnerID,
		Percentage: 100,
		Passed:     true,
		OccurredAt: day(1),
	})
	require.NoError(t, err)
	assert.True(t, repo.awarded[learnerID.String()+"/"+models.AchievementPerfectQuiz])
}

func TestHandleEvent_FormationFinisher(t *testing.T) {
	repo := newFakeAchievementRepo()
	svc := NewAchievementService(logger.Nop(), repo, &fakePublisher{})
	learnerID := uuid.New()

	err := svc.HandleEvent(context.Background(), models.ProgressEvent{
		Type:        models.EventFormationCompleted,
		LearnerID:   learnerID,
		FormationID: uuid.New(),
		OccurredAt:  day(1),
	})
	require.NoError(t, err)
	assert.True(t, repo.awarded[learnerID.String()+"/"+models.AchievementFormationFinisher])
}

func TestHandleEvent_AwardStampedWithEventTime(t *testing.T) {
	repo := newFakeAchievementRepo()
	svc := NewAchievementService(logger.Nop(), repo, &fakePublisher{})
	learnerID := uuid.New()

	err := svc.HandleEvent(context.Background(), models.ProgressEvent{
		Type:       models.EventLessonCompleted,
		LearnerID:  learnerID,
		LessonID:   uuid.New(),
		OccurredAt: day(3),
	})
	require.NoError(t, err)
	assert.Equal(t, day(3), repo.earnedAt[learnerID.String()+"/"+models.AchievementFirstLesson])
}
