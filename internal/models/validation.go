package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DecisionPending  = "pending"
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// ValidationRequest tracks one review cycle of a ContentNode. A node has at
// most one open (pending) request at a time; the request is terminal once
// decided.
type ValidationRequest struct {
	ID          uuid.UUID  `json:"id"`
	NodeID      uuid.UUID  `json:"node_id"`
	SubmittedAt time.Time  `json:"submitted_at"`
	ReviewerID  *uuid.UUID `json:"reviewer_id,omitempty"`
	Decision    string     `json:"decision"`
	Feedback    *string    `json:"feedback,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
}
