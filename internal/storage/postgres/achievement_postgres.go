package postgres

import (
	"LearnForge/internal/models"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AchievementPostgres struct {
	db *pgxpool.Pool
}

func NewAchievementPostgres(db *pgxpool.Pool) *AchievementPostgres {
	return &AchievementPostgres{db: db}
}

// Award inserts idempotently on (learner_id, achievement_key); the boolean
// result is true only for the call that actually earned the badge. The badge
// is stamped with the time of the triggering event, not the insert.
func (r *AchievementPostgres) Award(ctx context.Context, learnerID uuid.UUID, key string, earnedAt time.Time) (bool, error) {
	query := `
    INSERT INTO achievements (learner_id, achievement_key, earned_at)
    VALUES ($1, $2, $3)
    ON CONFLICT (learner_id, achievement_key) DO NOTHING
    `
	tag, err := r.db.Exec(ctx, query, learnerID, key, earnedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to insert achievement: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *AchievementPostgres) ByLearner(ctx context.Context, learnerID uuid.UUID) ([]models.Achievement, error) {
	query := `
    SELECT learner_id, achievement_key, earned_at FROM achievements
     WHERE learner_id = $1 ORDER BY earned_at
    `
	rows, err := r.db.Query(ctx, query, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements: %w", err)
	}
	defer rows.Close()

	var achievements []models.Achievement
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.LearnerID, &a.Key, &a.EarnedAt); err != nil {
			return nil, err
		}
		achievements = append(achievements, a)
	}
	return achievements, rows.Err()
}

// Streak returns the learner's counter, or a zero counter when none exists.
func (r *AchievementPostgres) Streak(ctx context.Context, learnerID uuid.UUID) (models.StreakCounter, error) {
	query := `
    SELECT learner_id, current_streak, longest_streak, last_activity_date
      FROM streak_counters WHERE learner_id = $1
    `
	var s models.StreakCounter
	err := r.db.QueryRow(ctx, query, learnerID).Scan(&s.LearnerID, &s.CurrentStreak, &s.LongestStreak, &s.LastActivityDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.StreakCounter{LearnerID: learnerID}, nil
		}
		return models.StreakCounter{}, fmt.Errorf("failed to query streak: %w", err)
	}
	return s, nil
}

func (r *AchievementPostgres) SaveStreak(ctx context.Context, s models.StreakCounter) error {
	query := `
    INSERT INTO streak_counters (learner_id, current_streak, longest_streak, last_activity_date)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (learner_id) DO UPDATE
       SET current_streak = $2, longest_streak = $3, last_activity_date = $4
    `
	if _, err := r.db.Exec(ctx, query, s.LearnerID, s.CurrentStreak, s.LongestStreak, s.LastActivityDate); err != nil {
		return fmt.Errorf("failed to save streak: %w", err)
	}
	return nil
}
