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

type ProgressPostgres struct {
	db *pgxpool.Pool
}

func NewProgressPostgres(db *pgxpool.Pool) *ProgressPostgres {
	return &ProgressPostgres{db: db}
}

const moduleProgressColumns = `id, enrollment_id, module_id, position, unlock_state, injected, completed_at`

func scanModuleProgress(row pgx.Row) (models.ModuleProgress, error) {
	var mp models.ModuleProgress
	err := row.Scan(&mp.ID, &mp.EnrollmentID, &mp.ModuleID, &mp.Position, &mp.UnlockState, &mp.Injected, &mp.CompletedAt)
	return mp, err
}

// Seed creates the per-module progress rows for a fresh enrollment: the
// first module available, the rest locked. Existing rows are left alone so
// reactivation never resets progress.
func (r *ProgressPostgres) Seed(ctx context.Context, enrollmentID uuid.UUID, moduleIDs []uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
    INSERT INTO module_progress (id, enrollment_id, module_id, position, unlock_state)
    VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT (enrollment_id, module_id) DO NOTHING
    `
	for i, moduleID := range moduleIDs {
		state := models.UnlockLocked
		if i == 0 {
			state = models.UnlockAvailable
		}
		if _, err := tx.Exec(ctx, query, uuid.New(), enrollmentID, moduleID, i+1, state); err != nil {
			return fmt.Errorf("failed to seed module progress: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *ProgressPostgres) ByEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]models.ModuleProgress, error) {
	query := `
    SELECT ` + moduleProgressColumns + ` FROM module_progress
     WHERE enrollment_id = $1 ORDER BY position
    `
	rows, err := r.db.Query(ctx, query, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query module progress: %w", err)
	}
	defer rows.Close()

	var progresses []models.ModuleProgress
	for rows.Next() {
		mp, err := scanModuleProgress(rows)
		if err != nil {
			return nil, err
		}
		progresses = append(progresses, mp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	completed, err := r.completedByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	for i := range progresses {
		progresses[i].CompletedLessonIDs = completed[progresses[i].ModuleID]
	}
	return progresses, nil
}

func (r *ProgressPostgres) ForModule(ctx context.Context, enrollmentID, moduleID uuid.UUID) (*models.ModuleProgress, error) {
	query := `
    SELECT ` + moduleProgressColumns + ` FROM module_progress
     WHERE enrollment_id = $1 AND module_id = $2
    `
	mp, err := scanModuleProgress(r.db.QueryRow(ctx, query, enrollmentID, moduleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query module progress: %w", err)
	}

	completed, err := r.CompletedLessonIDs(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	lessons, err := r.moduleLessonIDs(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	for _, id := range lessons {
		if _, ok := completed[id]; ok {
			mp.CompletedLessonIDs = append(mp.CompletedLessonIDs, id)
		}
	}
	return &mp, nil
}

// CompleteLesson records one lesson completion. Returns false when the
// lesson was already completed, making repeats a no-op at the storage
// boundary even under concurrent calls.
func (r *ProgressPostgres) CompleteLesson(ctx context.Context, enrollmentID, lessonID uuid.UUID) (bool, error) {
	query := `
    INSERT INTO lesson_progress (enrollment_id, lesson_id, completed_at)
    VALUES ($1, $2, $3)
    ON CONFLICT (enrollment_id, lesson_id) DO NOTHING
    `
	tag, err := r.db.Exec(ctx, query, enrollmentID, lessonID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to insert lesson completion: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CompletedLessonIDs returns the set of lessons the enrollment has finished.
func (r *ProgressPostgres) CompletedLessonIDs(ctx context.Context, enrollmentID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	query := `SELECT lesson_id FROM lesson_progress WHERE enrollment_id = $1`
	rows, err := r.db.Query(ctx, query, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lesson progress: %w", err)
	}
	defer rows.Close()

	completed := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		completed[id] = struct{}{}
	}
	return completed, rows.Err()
}

// SetState transitions a module progress row between non-terminal unlock
// states (available -> in_progress and locked -> available).
func (r *ProgressPostgres) SetState(ctx context.Context, enrollmentID, moduleID uuid.UUID, from, to string) error {
	query := `
    UPDATE module_progress SET unlock_state = $4
     WHERE enrollment_id = $1 AND module_id = $2 AND unlock_state = $3
    `
	if _, err := r.db.Exec(ctx, query, enrollmentID, moduleID, from, to); err != nil {
		return fmt.Errorf("failed to update unlock state: %w", err)
	}
	return nil
}

// MarkCompleted flips a module to completed with compare-and-set semantics:
// the boolean result is true for exactly one caller, so completion side
// effects fire at most once.
func (r *ProgressPostgres) MarkCompleted(ctx context.Context, enrollmentID, moduleID uuid.UUID) (bool, error) {
	query := `
    UPDATE module_progress SET unlock_state = $3, completed_at = $4
     WHERE enrollment_id = $1 AND module_id = $2 AND unlock_state <> $3
    `
	tag, err := r.db.Exec(ctx, query, enrollmentID, moduleID, models.UnlockCompleted, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to mark module completed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UnlockNext makes the module at the given position available if it is
// still locked.
func (r *ProgressPostgres) UnlockNext(ctx context.Context, enrollmentID uuid.UUID, position int) error {
	query := `
    UPDATE module_progress SET unlock_state = $3
     WHERE enrollment_id = $1 AND position = $2 AND unlock_state = $4
    `
	if _, err := r.db.Exec(ctx, query, enrollmentID, position, models.UnlockAvailable, models.UnlockLocked); err != nil {
		return fmt.Errorf("failed to unlock next module: %w", err)
	}
	return nil
}

// InjectModule appends an extra module to the learner's effective path,
// immediately available. Used by the recommendation review workflow.
func (r *ProgressPostgres) InjectModule(ctx context.Context, enrollmentID, moduleID uuid.UUID) (*models.ModuleProgress, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var maxPosition int
	posQuery := `SELECT COALESCE(MAX(position), 0) FROM module_progress WHERE enrollment_id = $1`
	if err := tx.QueryRow(ctx, posQuery, enrollmentID).Scan(&maxPosition); err != nil {
		return nil, fmt.Errorf("failed to query max position: %w", err)
	}

	query := `
    INSERT INTO module_progress (id, enrollment_id, module_id, position, unlock_state, injected)
    VALUES ($1, $2, $3, $4, $5, TRUE)
    ON CONFLICT (enrollment_id, module_id) DO UPDATE
       SET unlock_state = CASE WHEN module_progress.unlock_state = $6 THEN $5 ELSE module_progress.unlock_state END
 RETURNING ` + moduleProgressColumns
	mp, err := scanModuleProgress(tx.QueryRow(ctx, query,
		uuid.New(), enrollmentID, moduleID, maxPosition+1,
		models.UnlockAvailable, models.UnlockLocked,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to inject module progress: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &mp, nil
}

func (r *ProgressPostgres) completedByEnrollment(ctx context.Context, enrollmentID uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	query := `
    SELECT course.parent_id, lp.lesson_id
      FROM lesson_progress lp
      JOIN content_nodes lesson ON lesson.id = lp.lesson_id
      JOIN content_nodes course ON course.id = lesson.parent_id
     WHERE lp.enrollment_id = $1
    `
	rows, err := r.db.Query(ctx, query, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed lessons: %w", err)
	}
	defer rows.Close()

	byModule := make(map[uuid.UUID][]uuid.UUID)
	for rows.Next() {
		var moduleID, lessonID uuid.UUID
		if err := rows.Scan(&moduleID, &lessonID); err != nil {
			return nil, err
		}
		byModule[moduleID] = append(byModule[moduleID], lessonID)
	}
	return byModule, rows.Err()
}

func (r *ProgressPostgres) moduleLessonIDs(ctx context.Context, moduleID uuid.UUID) ([]uuid.UUID, error) {
	query := `
    SELECT lesson.id
      FROM content_nodes lesson
      JOIN content_nodes course ON course.id = lesson.parent_id
     WHERE course.parent_id = $1 AND lesson.node_type = $2
     ORDER BY course.order_num, lesson.order_num
    `
	rows, err := r.db.Query(ctx, query, moduleID, models.NodeLesson)
	if err != nil {
		return nil, fmt.Errorf("failed to query module lessons: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
