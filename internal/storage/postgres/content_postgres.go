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

type ContentPostgres struct {
	db *pgxpool.Pool
}

func NewContentPostgres(db *pgxpool.Pool) *ContentPostgres {
	return &ContentPostgres{db: db}
}

const nodeColumns = `id, node_type, parent_id, title, status, order_num, duration_minutes, feedback, created_at, updated_at`

func scanNode(row pgx.Row) (models.ContentNode, error) {
	var n models.ContentNode
	err := row.Scan(
		&n.ID, &n.Type, &n.ParentID, &n.Title, &n.Status,
		&n.Order, &n.DurationMinutes, &n.Feedback, &n.CreatedAt, &n.UpdatedAt,
	)
	return n, err
}

func (r *ContentPostgres) CreateNode(ctx context.Context, n models.ContentNode) (*models.ContentNode, error) {
	now := time.Now().UTC()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Status == "" {
		n.Status = models.StatusDraft
	}
	n.CreatedAt = now
	n.UpdatedAt = now

	query := `
    INSERT INTO content_nodes (
        id, node_type, parent_id, title, status,
        order_num, duration_minutes, created_at, updated_at
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `
	_, err := r.db.Exec(ctx, query,
		n.ID, n.Type, n.ParentID, n.Title, n.Status,
		n.Order, n.DurationMinutes, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert content node: %w", err)
	}
	return &n, nil
}

func (r *ContentPostgres) NodeByID(ctx context.Context, id uuid.UUID) (*models.ContentNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM content_nodes WHERE id = $1`
	n, err := scanNode(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query content node: %w", err)
	}
	return &n, nil
}

// Ancestors returns the node's parent chain, nearest first.
func (r *ContentPostgres) Ancestors(ctx context.Context, id uuid.UUID) ([]models.ContentNode, error) {
	query := `
    WITH RECURSIVE chain AS (
        SELECT ` + nodeColumns + `, 0 AS depth
          FROM content_nodes WHERE id = (SELECT parent_id FROM content_nodes WHERE id = $1)
         UNION ALL
        SELECT n.id, n.node_type, n.parent_id, n.title, n.status, n.order_num,
               n.duration_minutes, n.feedback, n.created_at, n.updated_at, c.depth + 1
          FROM content_nodes n
          JOIN chain c ON n.id = c.parent_id
    )
    SELECT id, node_type, parent_id, title, status, order_num, duration_minutes, feedback, created_at, updated_at
      FROM chain ORDER BY depth
    `
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query ancestors: %w", err)
	}
	defer rows.Close()

	var nodes []models.ContentNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// FormationTree loads a formation with its modules, courses, lessons and
// module quizzes in three queries instead of a per-node fetch chain.
func (r *ContentPostgres) FormationTree(ctx context.Context, formationID uuid.UUID) (*models.FormationTree, error) {
	formation, err := r.NodeByID(ctx, formationID)
	if err != nil {
		return nil, err
	}
	if formation.Type != models.NodeFormation {
		return nil, app_errors.ErrNotFound
	}

	query := `
    WITH RECURSIVE subtree AS (
        SELECT ` + nodeColumns + ` FROM content_nodes WHERE parent_id = $1
         UNION ALL
        SELECT n.id, n.node_type, n.parent_id, n.title, n.status, n.order_num,
               n.duration_minutes, n.feedback, n.created_at, n.updated_at
          FROM content_nodes n
          JOIN subtree s ON n.parent_id = s.id
    )
    SELECT id, node_type, parent_id, title, status, order_num, duration_minutes, feedback, created_at, updated_at
      FROM subtree ORDER BY order_num
    `
	rows, err := r.db.Query(ctx, query, formationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query formation subtree: %w", err)
	}
	defer rows.Close()

	byParent := make(map[uuid.UUID][]models.ContentNode)
	var quizIDs []uuid.UUID
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		if n.ParentID != nil {
			byParent[*n.ParentID] = append(byParent[*n.ParentID], n)
		}
		if n.Type == models.NodeQuiz {
			quizIDs = append(quizIDs, n.ID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	quizzes, err := r.quizzesByIDs(ctx, quizIDs)
	if err != nil {
		return nil, err
	}

	tree := &models.FormationTree{Formation: *formation}
	for _, moduleNode := range byParent[formationID] {
		if moduleNode.Type != models.NodeModule {
			continue
		}
		mt := models.ModuleTree{Module: moduleNode}
		for _, child := range byParent[moduleNode.ID] {
			switch child.Type {
			case models.NodeCourse:
				ct := models.CourseTree{Course: child}
				for _, lesson := range byParent[child.ID] {
					if lesson.Type == models.NodeLesson {
						ct.Lessons = append(ct.Lessons, lesson)
					}
				}
				mt.Courses = append(mt.Courses, ct)
			case models.NodeQuiz:
				if q, ok := quizzes[child.ID]; ok {
					mt.Quiz = &q
				}
			}
		}
		tree.Modules = append(tree.Modules, mt)
	}
	return tree, nil
}

func (r *ContentPostgres) quizzesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Quiz, error) {
	quizzes := make(map[uuid.UUID]models.Quiz, len(ids))
	if len(ids) == 0 {
		return quizzes, nil
	}

	query := `
    SELECT id, module_id, passing_score, max_attempts, is_final
      FROM quizzes WHERE id = ANY($1)
    `
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query quizzes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q models.Quiz
		if err := rows.Scan(&q.ID, &q.ModuleID, &q.PassingScore, &q.MaxAttempts, &q.IsFinal); err != nil {
			return nil, err
		}
		quizzes[q.ID] = q
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	qq := `
    SELECT id, quiz_id, question_type, text, options, correct_answer, points, order_num
      FROM quiz_questions WHERE quiz_id = ANY($1) ORDER BY order_num
    `
	qrows, err := r.db.Query(ctx, qq, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query quiz questions: %w", err)
	}
	defer qrows.Close()

	for qrows.Next() {
		var q models.QuizQuestion
		if err := qrows.Scan(&q.ID, &q.QuizID, &q.Type, &q.Text, &q.Options, &q.CorrectAnswer, &q.Points, &q.Order); err != nil {
			return nil, err
		}
		quiz := quizzes[q.QuizID]
		quiz.Questions = append(quiz.Questions, q)
		quizzes[q.QuizID] = quiz
	}
	return quizzes, qrows.Err()
}

// Archive marks a non-pending node archived. Archived is terminal.
func (r *ContentPostgres) Archive(ctx context.Context, id uuid.UUID) (*models.ContentNode, error) {
	query := `
    UPDATE content_nodes
       SET status = $2, updated_at = $3
     WHERE id = $1 AND status NOT IN ($4, $2)
 RETURNING ` + nodeColumns
	n, err := scanNode(r.db.QueryRow(ctx, query, id, models.StatusArchived, time.Now().UTC(), models.StatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, lookupErr := r.NodeByID(ctx, id); lookupErr != nil {
				return nil, lookupErr
			}
			return nil, app_errors.ErrInvalidState
		}
		return nil, fmt.Errorf("failed to archive node: %w", err)
	}
	return &n, nil
}
