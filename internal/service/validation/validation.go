package validation

import (
	"LearnForge/internal/app_errors"
	"LearnForge/internal/models"
	"LearnForge/pkg/logger"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// allowedChildren pins the authoring hierarchy: formations contain modules,
// modules contain courses and at most one quiz, courses contain lessons.
var allowedChildren = map[string][]string{
	models.NodeFormation: {models.NodeModule},
	models.NodeModule:    {models.NodeCourse, models.NodeQuiz},
	models.NodeCourse:    {models.NodeLesson},
}

type contentRepo interface {
	CreateNode(ctx context.Context, n models.ContentNode) (*models.ContentNode, error)
	NodeByID(ctx context.Context, id uuid.UUID) (*models.ContentNode, error)
	Ancestors(ctx context.Context, id uuid.UUID) ([]models.ContentNode, error)
	FormationTree(ctx context.Context, formationID uuid.UUID) (*models.FormationTree, error)
	Archive(ctx context.Context, id uuid.UUID) (*models.ContentNode, error)
}

type validationRepo interface {
	CreatePending(ctx context.Context, nodeID uuid.UUID) (*models.ValidationRequest, error)
	RequestByID(ctx context.Context, id uuid.UUID) (*models.ValidationRequest, error)
	PendingRequests(ctx context.Context) ([]models.ValidationRequest, error)
	ApplyDecision(ctx context.Context, requestID, reviewerID uuid.UUID, approve bool, feedback string, approvedStatus string) (*models.ContentNode, error)
}

type searchRepo interface {
	Index(ctx context.Context, node models.ContentNode, moduleCount int) error
	DeleteFormation(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, size int) ([]uuid.UUID, error)
}

type ValidationService struct {
	log        logger.Log
	content    contentRepo
	validation validationRepo
	search     searchRepo
}

func NewValidationService(log logger.Log, content contentRepo, validation validationRepo, search searchRepo) *ValidationService {
	return &ValidationService{
		log:        log,
		content:    content,
		validation: validation,
		search:     search,
	}
}

// CreateNode registers a new draft node under its parent. The parent's type
// must admit the child's type; formations are the only parentless nodes.
func (s *ValidationService) CreateNode(ctx context.Context, n models.ContentNode) (*models.ContentNode, error) {
	if n.ParentID == nil {
		if n.Type != models.NodeFormation {
			return nil, fmt.Errorf("%s node requires a parent: %w", n.Type, app_errors.ErrInvalidState)
		}
		return s.content.CreateNode(ctx, n)
	}

	parent, err := s.content.NodeByID(ctx, *n.ParentID)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, t := range allowedChildren[parent.Type] {
		if t == n.Type {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%s cannot contain %s: %w", parent.Type, n.Type, app_errors.ErrInvalidState)
	}
	if parent.Status == models.StatusArchived {
		return nil, app_errors.ErrInvalidState
	}
	return s.content.CreateNode(ctx, n)
}

func (s *ValidationService) Node(ctx context.Context, id uuid.UUID) (*models.ContentNode, error) {
	return s.content.NodeByID(ctx, id)
}

func (s *ValidationService) Tree(ctx context.Context, formationID uuid.UUID) (*models.FormationTree, error) {
	return s.content.FormationTree(ctx, formationID)
}

// Submit opens a validation request for a draft or rejected node and moves
// it to pending. A node carries at most one open request at a time.
func (s *ValidationService) Submit(ctx context.Context, nodeID uuid.UUID) (*models.ValidationRequest, error) {
	node, err := s.content.NodeByID(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if node.Status == models.StatusPending {
		return nil, app_errors.ErrAlreadyPending
	}
	if !node.Submittable() {
		return nil, fmt.Errorf("%s node is %s: %w", node.Type, node.Status, app_errors.ErrInvalidState)
	}

	ancestors, err := s.content.Ancestors(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	for _, a := range ancestors {
		if a.Status == models.StatusArchived {
			return nil, app_errors.ErrInvalidState
		}
	}

	request, err := s.validation.CreatePending(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	s.log.Info("node submitted for validation", "node_id", nodeID, "request_id", request.ID)
	return request, nil
}

func (s *ValidationService) Pending(ctx context.Context) ([]models.ValidationRequest, error) {
	return s.validation.PendingRequests(ctx)
}

// Decide settles a pending request. Rejection requires non-empty feedback
// and sends the node back to rejected for revision; approval moves the node
// to approved, or straight to published for auto-publishing types. Approval
// demands that every ancestor already cleared validation and that the
// duration budget of every ancestor still holds. Published formations enter
// the search catalog.
func (s *ValidationService) Decide(ctx context.Context, requestID, reviewerID uuid.UUID, approve bool, feedback string) (*models.ContentNode, error) {
	feedback = strings.TrimSpace(feedback)
	if !approve && feedback == "" {
		return nil, app_errors.ErrFeedbackRequired
	}

	request, err := s.validation.RequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	node, err := s.content.NodeByID(ctx, request.NodeID)
	if err != nil {
		return nil, err
	}

	if approve {
		ancestors, err := s.content.Ancestors(ctx, node.ID)
		if err != nil {
			return nil, err
		}
		for _, a := range ancestors {
			if !a.Visible() {
				return nil, fmt.Errorf("ancestor %s is %s: %w", a.Type, a.Status, app_errors.ErrInvalidState)
			}
		}
	}

	approvedStatus := models.StatusApproved
	if models.AutoPublishes(node.Type) {
		approvedStatus = models.StatusPublished
	}

	decided, err := s.validation.ApplyDecision(ctx, requestID, reviewerID, approve, feedback, approvedStatus)
	if err != nil {
		return nil, err
	}
	s.log.Info("validation decided",
		"request_id", requestID, "node_id", decided.ID, "approved", approve, "status", decided.Status)

	if approve && decided.Type == models.NodeFormation && decided.Status == models.StatusPublished {
		s.indexFormation(ctx, *decided)
	}
	return decided, nil
}

// Archive retires a node. Archived is terminal: the node can no longer be
// submitted, decided on, or returned to authoring. Archived formations
// leave the search catalog.
func (s *ValidationService) Archive(ctx context.Context, id uuid.UUID) (*models.ContentNode, error) {
	node, err := s.content.Archive(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("node archived", "node_id", id, "type", node.Type)

	if node.Type == models.NodeFormation && s.search != nil {
		if err := s.search.DeleteFormation(ctx, id); err != nil {
			s.log.ErrorErr("remove formation from catalog", err, "formation_id", id)
		}
	}
	return node, nil
}

// SearchFormations queries the catalog and resolves hits back to nodes.
// Only formations still published make the result list.
func (s *ValidationService) SearchFormations(ctx context.Context, query string, size int) ([]models.ContentNode, error) {
	if s.search == nil {
		return nil, nil
	}
	ids, err := s.search.Search(ctx, query, size)
	if err != nil {
		return nil, fmt.Errorf("search formations: %w", err)
	}

	formations := make([]models.ContentNode, 0, len(ids))
	for _, id := range ids {
		node, err := s.content.NodeByID(ctx, id)
		if err != nil {
			s.log.ErrorErr("resolve search hit", err, "formation_id", id)
			continue
		}
		if node.Status == models.StatusPublished {
			formations = append(formations, *node)
		}
	}
	return formations, nil
}

func (s *ValidationService) indexFormation(ctx context.Context, node models.ContentNode) {
	if s.search == nil {
		return
	}
	moduleCount := 0
	if tree, err := s.content.FormationTree(ctx, node.ID); err == nil {
		moduleCount = len(tree.Modules)
	} else {
		s.log.ErrorErr("count formation modules", err, "formation_id", node.ID)
	}
	if err := s.search.Index(ctx, node, moduleCount); err != nil {
		s.log.ErrorErr("index formation", err, "formation_id", node.ID)
	}
}
