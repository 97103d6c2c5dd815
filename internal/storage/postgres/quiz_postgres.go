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

type QuizPostgres struct {
	db *pgxpool.Pool
}

func NewQuizPostgres(db *pgxpool.Pool) *QuizPostgres {
	return &QuizPostgres{db: db}
}

const attemptColumns = `id, quiz_id, learner_id, attempt_number, started_at, submitted_at, raw_score, percentage, passed`

func scanAttempt(row pgx.Row) (models.QuizAttempt, error) {
	var a models.QuizAttempt
	err := row.Scan(&a.ID, &a.QuizID, &a.LearnerID, &a.AttemptNumber, &a.StartedAt, &a.SubmittedAt, &a.RawScore, &a.Percentage, &a.Passed)
	return a, err
}

func (r *QuizPostgres) QuizByID(ctx context.Context, id uuid.UUID) (*models.Quiz, error) {
	query := `SELECT id, module_id, passing_score, max_attempts, is_final FROM quizzes WHERE id = $1`
	var q models.Quiz
	err := r.db.QueryRow(ctx, query, id).Scan(&q.ID, &q.ModuleID, &q.PassingScore, &q.MaxAttempts, &q.IsFinal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query quiz: %w", err)
	}

	qq := `
    SELECT id, quiz_id, question_type, text, options, correct_answer, points, order_num
      FROM quiz_questions WHERE quiz_id = $1 ORDER BY order_num
    `
	rows, err := r.db.Query(ctx, qq, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query quiz questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var question models.QuizQuestion
		if err := rows.Scan(&question.ID, &question.QuizID, &question.Type, &question.Text,
			&question.Options, &question.CorrectAnswer, &question.Points, &question.Order); err != nil {
			return nil, err
		}
		q.Questions = append(q.Questions, question)
	}
	return &q, rows.Err()
}

// CreateAttempt atomically allocates the next attempt number. The quiz row
// is locked so two racing starts serialize; the partial unique index on
// (quiz_id, learner_id) WHERE submitted_at IS NULL turns the loser of an
// open-attempt race into ErrAttemptInProgress.
func (r *QuizPostgres) CreateAttempt(ctx context.Context, quizID, learnerID uuid.UUID, maxAttempts int) (*models.QuizAttempt, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM quizzes WHERE id = $1 FOR UPDATE`, quizID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock quiz: %w", err)
	}

	var attemptCount int
	countQuery := `SELECT COUNT(*) FROM quiz_attempts WHERE quiz_id = $1 AND learner_id = $2`
	if err := tx.QueryRow(ctx, countQuery, quizID, learnerID).Scan(&attemptCount); err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	if attemptCount >= maxAttempts {
		return nil, app_errors.ErrMaxAttemptsExceeded
	}

	a := models.QuizAttempt{
		ID:            uuid.New(),
		QuizID:        quizID,
		LearnerID:     learnerID,
		AttemptNumber: attemptCount + 1,
		StartedAt:     time.Now().UTC(),
	}
	insertQuery := `
    INSERT INTO quiz_attempts (id, quiz_id, learner_id, attempt_number, started_at)
    VALUES ($1, $2, $3, $4, $5)
    `
	if _, err := tx.Exec(ctx, insertQuery, a.ID, a.QuizID, a.LearnerID, a.AttemptNumber, a.StartedAt); err != nil {
		if pgErr := UnwrapPgError(err); pgErr != nil && pgErr.Code == uniqueViolation {
			return nil, app_errors.ErrAttemptInProgress
		}
		return nil, fmt.Errorf("failed to insert attempt: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *QuizPostgres) AttemptByID(ctx context.Context, id uuid.UUID) (*models.QuizAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM quiz_attempts WHERE id = $1`
	a, err := scanAttempt(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query attempt: %w", err)
	}
	return &a, nil
}

// CloseAttempt stores the score and answers of an open attempt. The WHERE
// submitted_at IS NULL guard makes a double submit fail with
// ErrAlreadySubmitted instead of overwriting the recorded score.
func (r *QuizPostgres) CloseAttempt(ctx context.Context, a models.QuizAttempt) (*models.QuizAttempt, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	updateQuery := `
    UPDATE quiz_attempts
       SET submitted_at = $2, raw_score = $3, percentage = $4, passed = $5
     WHERE id = $1 AND submitted_at IS NULL
 RETURNING ` + attemptColumns
	updated, err := scanAttempt(tx.QueryRow(ctx, updateQuery, a.ID, now, a.RawScore, a.Percentage, a.Passed))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("failed to close attempt: %w", err)
	}

	answerQuery := `
    INSERT INTO quiz_attempt_answers (attempt_id, question_id, answer)
    VALUES ($1, $2, $3)
    `
	for _, answer := range a.Answers {
		if _, err := tx.Exec(ctx, answerQuery, a.ID, answer.QuestionID, answer.Answer); err != nil {
			return nil, fmt.Errorf("failed to insert answer: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	updated.Answers = a.Answers
	return &updated, nil
}

func (r *QuizPostgres) BestAttempt(ctx context.Context, learnerID, quizID uuid.UUID) (*models.QuizAttempt, error) {
	query := `
    SELECT ` + attemptColumns + ` FROM quiz_attempts
     WHERE learner_id = $1 AND quiz_id = $2 AND submitted_at IS NOT NULL
     ORDER BY percentage DESC, submitted_at
     LIMIT 1
    `
	a, err := scanAttempt(r.db.QueryRow(ctx, query, learnerID, quizID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query best attempt: %w", err)
	}
	return &a, nil
}

// HasPassed reports whether any submitted attempt passed the quiz.
func (r *QuizPostgres) HasPassed(ctx context.Context, learnerID, quizID uuid.UUID) (bool, error) {
	query := `
    SELECT EXISTS(
        SELECT 1 FROM quiz_attempts
         WHERE learner_id = $1 AND quiz_id = $2 AND passed AND submitted_at IS NOT NULL
    )
    `
	var passed bool
	if err := r.db.QueryRow(ctx, query, learnerID, quizID).Scan(&passed); err != nil {
		return false, fmt.Errorf("failed to query pass state: %w", err)
	}
	return passed, nil
}

// BestPercentages returns the best submitted percentage per quiz, used for
// the certificate final score.
func (r *QuizPostgres) BestPercentages(ctx context.Context, learnerID uuid.UUID, quizIDs []uuid.UUID) (map[uuid.UUID]float64, error) {
	best := make(map[uuid.UUID]float64, len(quizIDs))
	if len(quizIDs) == 0 {
		return best, nil
	}
	query := `
    SELECT quiz_id, MAX(percentage) FROM quiz_attempts
     WHERE learner_id = $1 AND quiz_id = ANY($2) AND submitted_at IS NOT NULL
     GROUP BY quiz_id
    `
	rows, err := r.db.Query(ctx, query, learnerID, quizIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query best percentages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var pct float64
		if err := rows.Scan(&id, &pct); err != nil {
			return nil, err
		}
		best[id] = pct
	}
	return best, rows.Err()
}
