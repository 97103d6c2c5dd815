package postgres

import (
	"LearnForge/internal/app_errors"
	"LearnForge/internal/models"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RecommendationPostgres struct {
	db *pgxpool.Pool
}

func NewRecommendationPostgres(db *pgxpool.Pool) *RecommendationPostgres {
	return &RecommendationPostgres{db: db}
}

const recommendationColumns = `id, learner_id, course_id, confidence_score, status, reviewed_by, reviewed_at, review_notes, created_at`

func scanRecommendation(row pgx.Row) (models.Recommendation, error) {
	var rec models.Recommendation
	err := row.Scan(&rec.ID, &rec.LearnerID, &rec.CourseID, &rec.ConfidenceScore,
		&rec.Status, &rec.ReviewedBy, &rec.ReviewedAt, &rec.ReviewNotes, &rec.CreatedAt)
	return rec, err
}

// Create records a suggestion produced by the external recommendation
// service.
func (r *RecommendationPostgres) Create(ctx context.Context, rec models.Recommendation) (*models.Recommendation, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.Status = models.RecommendationPending
	rec.CreatedAt = time.Now().UTC()

	query := `
    INSERT INTO recommendations (id, learner_id, course_id, confidence_score, status, created_at)
    VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := r.db.Exec(ctx, query, rec.ID, rec.LearnerID, rec.CourseID, rec.ConfidenceScore, rec.Status, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert recommendation: %w", err)
	}
	return &rec, nil
}

func (r *RecommendationPostgres) ByID(ctx context.Context, id uuid.UUID) (*models.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations WHERE id = $1`
	rec, err := scanRecommendation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query recommendation: %w", err)
	}
	return &rec, nil
}

func (r *RecommendationPostgres) Pending(ctx context.Context) ([]models.Recommendation, error) {
	query := `
    SELECT ` + recommendationColumns + ` FROM recommendations
     WHERE status = $1 ORDER BY created_at
    `
	rows, err := r.db.Query(ctx, query, models.RecommendationPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending recommendations: %w", err)
	}
	defer rows.Close()

	var recommendations []models.Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		recommendations = append(recommendations, rec)
	}
	return recommendations, rows.Err()
}

// Review applies the terminal accept/reject transition. The WHERE status =
// 'pending' guard makes the transition fire exactly once; a second review
// fails with ErrAlreadyReviewed.
func (r *RecommendationPostgres) Review(ctx context.Context, id, reviewerID uuid.UUID, status string, notes string) (*models.Recommendation, error) {
	var reviewNotes *string
	if notes != "" {
		reviewNotes = &notes
	}
	query := `
    UPDATE recommendations
       SET status = $2, reviewed_by = $3, reviewed_at = $4, review_notes = $5
     WHERE id = $1 AND status = $6
 RETURNING ` + recommendationColumns
	rec, err := scanRecommendation(r.db.QueryRow(ctx, query,
		id, status, reviewerID, time.Now().UTC(), reviewNotes, models.RecommendationPending,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, lookupErr := r.ByID(ctx, id); lookupErr != nil {
				return nil, lookupErr
			}
			return nil, app_errors.ErrAlreadyReviewed
		}
		return nil, fmt.Errorf("failed to review recommendation: %w", err)
	}
	return &rec, nil
}
