package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NodeFormation = "formation"
	NodeModule    = "module"
	NodeCourse    = "course"
	NodeLesson    = "lesson"
	NodeQuiz      = "quiz"
)

const (
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusArchived  = "archived"
	StatusPublished = "published"
)

// ContentNode is any authored unit (formation, module, course, lesson, quiz)
// that moves through the validation workflow. Parent owns child lifecycle;
// Order is unique among siblings.
type ContentNode struct {
	ID              uuid.UUID  `json:"id"`
	Type            string     `json:"type"`
	ParentID        *uuid.UUID `json:"parent_id,omitempty"`
	Title           string     `json:"title"`
	Status          string     `json:"status"`
	Order           int        `json:"order"`
	DurationMinutes int        `json:"duration_minutes"`
	Feedback        *string    `json:"feedback,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// AutoPublishes reports whether approval moves the node straight to
// published. Formations must be published to be enrollable and lessons and
// quizzes become learner-visible with no extra step; modules and courses are
// structural containers and stay approved.
func AutoPublishes(nodeType string) bool {
	return nodeType == NodeFormation || nodeType == NodeLesson || nodeType == NodeQuiz
}

// Visible reports whether a node has cleared validation.
func (n ContentNode) Visible() bool {
	return n.Status == StatusApproved || n.Status == StatusPublished
}

// Submittable reports whether the node may be sent for review.
func (n ContentNode) Submittable() bool {
	return n.Status == StatusDraft || n.Status == StatusRejected
}

// FormationTree is the aggregate read used by the progression engine:
// one formation with its modules, courses and lessons ordered by Order,
// plus each module's gating quiz when it has one.
type FormationTree struct {
	Formation ContentNode  `json:"formation"`
	Modules   []ModuleTree `json:"modules"`
}

type ModuleTree struct {
	Module  ContentNode  `json:"module"`
	Courses []CourseTree `json:"courses"`
	Quiz    *Quiz        `json:"quiz,omitempty"`
}

type CourseTree struct {
	Course  ContentNode   `json:"course"`
	Lessons []ContentNode `json:"lessons"`
}

// Lessons returns the module's lessons in path order: courses by Order,
// lessons by Order within each course.
func (m ModuleTree) Lessons() []ContentNode {
	var lessons []ContentNode
	for _, c := range m.Courses {
		lessons = append(lessons, c.Lessons...)
	}
	return lessons
}

// FindLesson locates a lesson and its owning module within the tree.
func (t FormationTree) FindLesson(lessonID uuid.UUID) (*ContentNode, *ModuleTree) {
	for i := range t.Modules {
		for _, c := range t.Modules[i].Courses {
			for j := range c.Lessons {
				if c.Lessons[j].ID == lessonID {
					return &c.Lessons[j], &t.Modules[i]
				}
			}
		}
	}
	return nil, nil
}

// FindModule locates a module by id.
func (t FormationTree) FindModule(moduleID uuid.UUID) *ModuleTree {
	for i := range t.Modules {
		if t.Modules[i].Module.ID == moduleID {
			return &t.Modules[i]
		}
	}
	return nil
}

// FinalQuiz returns the formation's closing quiz, if any.
func (t FormationTree) FinalQuiz() *Quiz {
	for i := range t.Modules {
		if q := t.Modules[i].Quiz; q != nil && q.IsFinal {
			return q
		}
	}
	return nil
}
