package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionTrueFalse      = "true_false"
	QuestionShortAnswer    = "short_answer"
)

// Quiz carries the gradable definition attached to a quiz ContentNode.
// The node and the quiz share the same id.
type Quiz struct {
	ID           uuid.UUID      `json:"id"`
	ModuleID     uuid.UUID      `json:"module_id"`
	PassingScore float64        `json:"passing_score"`
	MaxAttempts  int            `json:"max_attempts"`
	IsFinal      bool           `json:"is_final"`
	Questions    []QuizQuestion `json:"questions"`
}

// MaxPossibleScore is the sum of all question points.
func (q Quiz) MaxPossibleScore() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

type QuizQuestion struct {
	ID            uuid.UUID `json:"id"`
	QuizID        uuid.UUID `json:"quiz_id"`
	Type          string    `json:"type"`
	Text          string    `json:"text"`
	Options       []string  `json:"options,omitempty"`
	CorrectAnswer string    `json:"correct_answer"`
	Points        int       `json:"points"`
	Order         int       `json:"order"`
}

// QuizAttempt is one scored run through a quiz's questions. SubmittedAt is
// nil while the attempt is open; at most one open attempt exists per
// learner and quiz.
type QuizAttempt struct {
	ID            uuid.UUID    `json:"id"`
	QuizID        uuid.UUID    `json:"quiz_id"`
	LearnerID     uuid.UUID    `json:"learner_id"`
	AttemptNumber int          `json:"attempt_number"`
	StartedAt     time.Time    `json:"started_at"`
	SubmittedAt   *time.Time   `json:"submitted_at,omitempty"`
	RawScore      int          `json:"raw_score"`
	Percentage    float64      `json:"percentage"`
	Passed        bool         `json:"passed"`
	Answers       []QuizAnswer `json:"answers,omitempty"`
}

// Open reports whether the attempt has not been submitted yet.
func (a QuizAttempt) Open() bool {
	return a.SubmittedAt == nil
}

type QuizAnswer struct {
	QuestionID uuid.UUID `json:"question_id"`
	Answer     string    `json:"answer"`
}
