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

type ValidationPostgres struct {
	db *pgxpool.Pool
}

func NewValidationPostgres(db *pgxpool.Pool) *ValidationPostgres {
	return &ValidationPostgres{db: db}
}

const requestColumns = `id, node_id, submitted_at, reviewer_id, decision, feedback, decided_at`

func scanRequest(row pgx.Row) (models.ValidationRequest, error) {
	var vr models.ValidationRequest
	err := row.Scan(&vr.ID, &vr.NodeID, &vr.SubmittedAt, &vr.ReviewerID, &vr.Decision, &vr.Feedback, &vr.DecidedAt)
	return vr, err
}

// CreatePending opens a validation request and flips the node to pending in
// one transaction. A partial unique index on (node_id) WHERE decision =
// 'pending' guarantees at most one open request per node.
func (r *ValidationPostgres) CreatePending(ctx context.Context, nodeID uuid.UUID) (*models.ValidationRequest, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	vr := models.ValidationRequest{
		ID:          uuid.New(),
		NodeID:      nodeID,
		SubmittedAt: now,
		Decision:    models.DecisionPending,
	}

	insertQuery := `
    INSERT INTO validation_requests (id, node_id, submitted_at, decision)
    VALUES ($1, $2, $3, $4)
    `
	_, err = tx.Exec(ctx, insertQuery, vr.ID, vr.NodeID, vr.SubmittedAt, vr.Decision)
	if err != nil {
		if pgErr := UnwrapPgError(err); pgErr != nil && pgErr.Code == uniqueViolation {
			return nil, app_errors.ErrAlreadyPending
		}
		return nil, fmt.Errorf("failed to insert validation request: %w", err)
	}

	updateQuery := `
    UPDATE content_nodes SET status = $2, updated_at = $3
     WHERE id = $1 AND status IN ($4, $5)
    `
	tag, err := tx.Exec(ctx, updateQuery, nodeID, models.StatusPending, now, models.StatusDraft, models.StatusRejected)
	if err != nil {
		return nil, fmt.Errorf("failed to update node status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, app_errors.ErrInvalidState
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &vr, nil
}

func (r *ValidationPostgres) RequestByID(ctx context.Context, id uuid.UUID) (*models.ValidationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM validation_requests WHERE id = $1`
	vr, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query validation request: %w", err)
	}
	return &vr, nil
}

func (r *ValidationPostgres) PendingRequests(ctx context.Context) ([]models.ValidationRequest, error) {
	query := `
    SELECT ` + requestColumns + ` FROM validation_requests
     WHERE decision = $1 ORDER BY submitted_at
    `
	rows, err := r.db.Query(ctx, query, models.DecisionPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending requests: %w", err)
	}
	defer rows.Close()

	var requests []models.ValidationRequest
	for rows.Next() {
		vr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, vr)
	}
	return requests, rows.Err()
}

// ApplyDecision closes a pending request and applies the node transition as
// one atomic unit. On approval the ancestor status and duration invariants
// are checked inside the transaction; a violation rolls everything back.
func (r *ValidationPostgres) ApplyDecision(ctx context.Context, requestID, reviewerID uuid.UUID, approve bool, feedback string, approvedStatus string) (*models.ContentNode, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	lockQuery := `SELECT ` + requestColumns + ` FROM validation_requests WHERE id = $1 FOR UPDATE`
	vr, err := scanRequest(tx.QueryRow(ctx, lockQuery, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock validation request: %w", err)
	}
	if vr.Decision != models.DecisionPending {
		return nil, app_errors.ErrInvalidState
	}

	nodeQuery := `SELECT ` + nodeColumns + ` FROM content_nodes WHERE id = $1 FOR UPDATE`
	node, err := scanNode(tx.QueryRow(ctx, nodeQuery, vr.NodeID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock content node: %w", err)
	}

	now := time.Now().UTC()
	decision := models.DecisionRejected
	nodeStatus := models.StatusRejected
	if approve {
		if err := r.checkAncestorsVisible(ctx, tx, node); err != nil {
			return nil, err
		}
		if err := r.checkAncestorDurations(ctx, tx, node); err != nil {
			return nil, err
		}
		decision = models.DecisionApproved
		nodeStatus = approvedStatus
	}

	var nodeFeedback *string
	if !approve {
		nodeFeedback = &feedback
	}
	nodeUpdate := `
    UPDATE content_nodes SET status = $2, feedback = $3, updated_at = $4
     WHERE id = $1
 RETURNING ` + nodeColumns
	node, err = scanNode(tx.QueryRow(ctx, nodeUpdate, node.ID, nodeStatus, nodeFeedback, now))
	if err != nil {
		return nil, fmt.Errorf("failed to update node: %w", err)
	}

	var requestFeedback *string
	if feedback != "" {
		requestFeedback = &feedback
	}
	requestUpdate := `
    UPDATE validation_requests
       SET decision = $2, reviewer_id = $3, feedback = $4, decided_at = $5
     WHERE id = $1
    `
	if _, err := tx.Exec(ctx, requestUpdate, requestID, decision, reviewerID, requestFeedback, now); err != nil {
		return nil, fmt.Errorf("failed to close validation request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &node, nil
}

// checkAncestorsVisible verifies that every ancestor has itself cleared
// validation: a node may only become approved or published under ancestors
// that already are.
func (r *ValidationPostgres) checkAncestorsVisible(ctx context.Context, tx pgx.Tx, node models.ContentNode) error {
	parentID := node.ParentID
	for parentID != nil {
		var status string
		var nextParent *uuid.UUID
		parentQuery := `SELECT status, parent_id FROM content_nodes WHERE id = $1`
		if err := tx.QueryRow(ctx, parentQuery, *parentID).Scan(&status, &nextParent); err != nil {
			return fmt.Errorf("failed to query ancestor: %w", err)
		}
		if status != models.StatusApproved && status != models.StatusPublished {
			return app_errors.ErrInvalidState
		}
		parentID = nextParent
	}
	return nil
}

// checkAncestorDurations walks the parent chain and verifies that at each
// level the aggregate of non-archived children durations stays within the
// parent's declared duration.
func (r *ValidationPostgres) checkAncestorDurations(ctx context.Context, tx pgx.Tx, node models.ContentNode) error {
	parentID := node.ParentID
	for parentID != nil {
		var parentDuration int
		var nextParent *uuid.UUID
		parentQuery := `SELECT duration_minutes, parent_id FROM content_nodes WHERE id = $1`
		if err := tx.QueryRow(ctx, parentQuery, *parentID).Scan(&parentDuration, &nextParent); err != nil {
			return fmt.Errorf("failed to query parent: %w", err)
		}

		var childrenSum int
		sumQuery := `
        SELECT COALESCE(SUM(duration_minutes), 0) FROM content_nodes
         WHERE parent_id = $1 AND status <> $2
        `
		if err := tx.QueryRow(ctx, sumQuery, *parentID, models.StatusArchived).Scan(&childrenSum); err != nil {
			return fmt.Errorf("failed to sum children durations: %w", err)
		}
		if parentDuration > 0 && childrenSum > parentDuration {
			return app_errors.ErrDurationExceeded
		}
		parentID = nextParent
	}
	return nil
}
