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

type EnrollmentPostgres struct {
	db *pgxpool.Pool
}

func NewEnrollmentPostgres(db *pgxpool.Pool) *EnrollmentPostgres {
	return &EnrollmentPostgres{db: db}
}

const enrollmentColumns = `id, learner_id, formation_id, status, enrolled_at, completed_at`

func scanEnrollment(row pgx.Row) (models.Enrollment, error) {
	var e models.Enrollment
	err := row.Scan(&e.ID, &e.LearnerID, &e.FormationID, &e.Status, &e.EnrolledAt, &e.CompletedAt)
	return e, err
}

// Upsert enrolls idempotently: re-enrolling an active enrollment returns the
// existing row, re-enrolling a dropped one reactivates it without touching
// prior progress. A completed enrollment stays completed.
func (r *EnrollmentPostgres) Upsert(ctx context.Context, learnerID, formationID uuid.UUID) (*models.Enrollment, error) {
	query := `
    INSERT INTO enrollments (id, learner_id, formation_id, status, enrolled_at)
    VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT (learner_id, formation_id) DO UPDATE
       SET status = CASE WHEN enrollments.status = $6 THEN $4 ELSE enrollments.status END
 RETURNING ` + enrollmentColumns
	e, err := scanEnrollment(r.db.QueryRow(ctx, query,
		uuid.New(), learnerID, formationID, models.EnrollmentActive,
		time.Now().UTC(), models.EnrollmentDropped,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert enrollment: %w", err)
	}
	return &e, nil
}

func (r *EnrollmentPostgres) ByID(ctx context.Context, id uuid.UUID) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	e, err := scanEnrollment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query enrollment: %w", err)
	}
	return &e, nil
}

func (r *EnrollmentPostgres) ByLearnerAndFormation(ctx context.Context, learnerID, formationID uuid.UUID) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE learner_id = $1 AND formation_id = $2`
	e, err := scanEnrollment(r.db.QueryRow(ctx, query, learnerID, formationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query enrollment: %w", err)
	}
	return &e, nil
}

func (r *EnrollmentPostgres) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	var completedAt *time.Time
	if status == models.EnrollmentCompleted {
		now := time.Now().UTC()
		completedAt = &now
	}
	query := `UPDATE enrollments SET status = $2, completed_at = COALESCE($3, completed_at) WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, status, completedAt)
	if err != nil {
		return fmt.Errorf("failed to update enrollment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return app_errors.ErrNotFound
	}
	return nil
}
