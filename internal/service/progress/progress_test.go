package progress

import (
	"LearnForge/internal/app_errors"
	"LearnForge/internal/models"
	"LearnForge/pkg/logger"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnrollments struct {
	byID map[uuid.UUID]*models.Enrollment
}

func (f *fakeEnrollments) Upsert(_ context.Context, learnerID, formationID uuid.UUID) (*models.Enrollment, error) {
	for _, e := range f.byID {
		if e.LearnerID == learnerID && e.FormationID == formationID {
			return e, nil
		}
	}
	e := &models.Enrollment{
		ID:          uuid.New(),
		LearnerID:   learnerID,
		FormationID: formationID,
		Status:      models.EnrollmentActive,
		EnrolledAt:  time.Now().UTC(),
	}
	f.byID[e.ID] = e
	return e, nil
}

func (f *fakeEnrollments) ByID(_ context.Context, id uuid.UUID) (*models.Enrollment, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, app_errors.ErrNotFound
	}
	return e, nil
}

func (f *fakeEnrollments) ByLearnerAndFormation(_ context.Context, learnerID, formationID uuid.UUID) (*models.Enrollment, error) {
	for _, e := range f.byID {
		if e.LearnerID == learnerID && e.FormationID == formationID {
			return e, nil
		}
	}
	return nil, app_errors.ErrNotFound
}

func (f *fakeEnrollments) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	e, ok := f.byID[id]
	if !ok {
		return app_errors.ErrNotFound
	}
	e.Status = status
	return nil
}

type fakeProgress struct {
	modules      map[uuid.UUID][]*models.ModuleProgress // by enrollment
	lessons      map[uuid.UUID]map[uuid.UUID]struct{}   // enrollment -> lesson set
	lessonModule map[uuid.UUID]uuid.UUID                // lesson -> module
}

func newFakeProgress() *fakeProgress {
	return &fakeProgress{
		modules:      make(map[uuid.UUID][]*models.ModuleProgress),
		lessons:      make(map[uuid.UUID]map[uuid.UUID]struct{}),
		lessonModule: make(map[uuid.UUID]uuid.UUID),
	}
}

func (f *fakeProgress) Seed(_ context.Context, enrollmentID uuid.UUID, moduleIDs []uuid.UUID) error {
	if len(f.modules[enrollmentID]) > 0 {
		return nil
	}
	for i, id := range moduleIDs {
		state := models.UnlockLocked
		if i == 0 {
			state = models.UnlockAvailable
		}
		f.modules[enrollmentID] = append(f.modules[enrollmentID], &models.ModuleProgress{
			ID: uuid.New(), EnrollmentID: enrollmentID, ModuleID: id,
			Position: i + 1, UnlockState: state,
		})
	}
	return nil
}

func (f *fakeProgress) ByEnrollment(_ context.Context, enrollmentID uuid.UUID) ([]models.ModuleProgress, error) {
	var out []models.ModuleProgress
	for _, mp := range f.modules[enrollmentID] {
		cp := *mp
		for lessonID := range f.lessons[enrollmentID] {
			if f.lessonModule[lessonID] == mp.ModuleID {
				cp.CompletedLessonIDs = append(cp.CompletedLessonIDs, lessonID)
			}
		}
		out = append(out, cp)
	}
	return out, nil
}

func (f *fakeProgress) ForModule(_ context.Context, enrollmentID, moduleID uuid.UUID) (*models.ModuleProgress, error) {
	for _, mp := range f.modules[enrollmentID] {
		if mp.ModuleID == moduleID {
			cp := *mp
			return &cp, nil
		}
	}
	return nil, app_errors.ErrNotFound
}

func (f *fakeProgress) CompleteLesson(_ context.Context, enrollmentID, lessonID uuid.UUID) (bool, error) {
	set, ok := f.lessons[enrollmentID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		f.lessons[enrollmentID] = set
	}
	if _, done := set[lessonID]; done {
		return false, nil
	}
	set[lessonID] = struct{}{}
	return true, nil
}

func (f *fakeProgress) CompletedLessonIDs(_ context.Context, enrollmentID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	out := make(map[uuid.UUID]struct{})
	for id := range f.lessons[enrollmentID] {
		out[id] = struct{}{}
	}
	return out, nil
}

func (f *fakeProgress) SetState(_ context.Context, enrollmentID, moduleID uuid.UUID, from, to string) error {
	for _, mp := range f.modules[enrollmentID] {
		if mp.ModuleID == moduleID && mp.UnlockState == from {
			mp.UnlockState = to
		}
	}
	return nil
}

func (f *fakeProgress) MarkCompleted(_ context.Context, enrollmentID, moduleID uuid.UUID) (bool, error) {
	for _, mp := range f.modules[enrollmentID] {
		if mp.ModuleID == moduleID && mp.UnlockState != models.UnlockCompleted {
			now := time.Now().UTC()
			mp.UnlockState = models.UnlockCompleted
			mp.CompletedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProgress) UnlockNext(_ context.Context, enrollmentID uuid.UUID, position int) error {
	for _, mp := range f.modules[enrollmentID] {
		if mp.Position == position && mp.UnlockState == models.UnlockLocked {
			mp.UnlockState = models.UnlockAvailable
		}
	}
	return nil
}

func (f *fakeProgress) InjectModule(_ context.Context, enrollmentID, moduleID uuid.UUID) (*models.ModuleProgress, error) {
	maxPos := 0
	for _, mp := range f.modules[enrollmentID] {
		if mp.ModuleID == moduleID {
			if mp.UnlockState == models.UnlockLocked {
				mp.UnlockState = models.UnlockAvailable
			}
			cp := *mp
			return &cp, nil
		}
		if mp.Position > maxPos {
			maxPos = mp.Position
		}
	}
	mp := &models.ModuleProgress{
		ID: uuid.New(), EnrollmentID: enrollmentID, ModuleID: moduleID,
		Position: maxPos + 1, UnlockState: models.UnlockAvailable, Injected: true,
	}
	f.modules[enrollmentID] = append(f.modules[enrollmentID], mp)
	return mp, nil
}

type fakeContent struct {
	tree  *models.FormationTree
	nodes map[uuid.UUID]*models.ContentNode
}

func (f *fakeContent) NodeByID(_ context.Context, id uuid.UUID) (*models.ContentNode, error) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, app_errors.ErrNotFound
	}
	return n, nil
}

func (f *fakeContent) Ancestors(_ context.Context, id uuid.UUID) ([]models.ContentNode, error) {
	for _, m := range f.tree.Modules {
		if m.Module.ID == id {
			return []models.ContentNode{f.tree.Formation}, nil
		}
	}
	return nil, app_errors.ErrNotFound
}

func (f *fakeContent) FormationTree(_ context.Context, formationID uuid.UUID) (*models.FormationTree, error) {
	if f.tree.Formation.ID != formationID {
		return nil, app_errors.ErrNotFound
	}
	return f.tree, nil
}

type fakeQuizResults struct {
	passed map[uuid.UUID]bool
}

func (f *fakeQuizResults) HasPassed(_ context.Context, _ uuid.UUID, quizID uuid.UUID) (bool, error) {
	return f.passed[quizID], nil
}

type fakeSink struct {
	events []models.ProgressEvent
}

func (f *fakeSink) HandleEvent(_ context.Context, ev models.ProgressEvent) error {
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeSink) countByType(eventType string) int {
	n := 0
	for _, ev := range f.events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

type fakeIssuer struct {
	issued []uuid.UUID
}

func (f *fakeIssuer) TryIssue(_ context.Context, enrollmentID uuid.UUID) (*models.Certificate, error) {
	f.issued = append(f.issued, enrollmentID)
	return &models.Certificate{EnrollmentID: enrollmentID}, nil
}

// fixture is a published formation with two modules: the first holds one
// course with two lessons and a gating quiz, the second one lesson and the
// final quiz.
type fixture struct {
	svc     *ProgressService
	sink    *fakeSink
	issuer  *fakeIssuer
	quizzes *fakeQuizResults

	formationID uuid.UUID
	module1     uuid.UUID
	module2     uuid.UUID
	lesson1     uuid.UUID
	lesson2     uuid.UUID
	lesson3     uuid.UUID
	quiz1       uuid.UUID
	finalQuiz   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		formationID: uuid.New(),
		module1:     uuid.New(),
		module2:     uuid.New(),
		lesson1:     uuid.New(),
		lesson2:     uuid.New(),
		lesson3:     uuid.New(),
		quiz1:       uuid.New(),
		finalQuiz:   uuid.New(),
	}

	formation := models.ContentNode{ID: f.formationID, Type: models.NodeFormation, Status: models.StatusPublished, Title: "Go from zero"}
	course1 := models.CourseTree{
		Course: models.ContentNode{ID: uuid.New(), Type: models.NodeCourse, Status: models.StatusApproved},
		Lessons: []models.ContentNode{
			{ID: f.lesson1, Type: models.NodeLesson, Status: models.StatusPublished, Order: 1},
			{ID: f.lesson2, Type: models.NodeLesson, Status: models.StatusPublished, Order: 2},
		},
	}
	course2 := models.CourseTree{
		Course: models.ContentNode{ID: uuid.New(), Type: models.NodeCourse, Status: models.StatusApproved},
		Lessons: []models.ContentNode{
			{ID: f.lesson3, Type: models.NodeLesson, Status: models.StatusPublished, Order: 1},
		},
	}
	tree := &models.FormationTree{
		Formation: formation,
		Modules: []models.ModuleTree{
			{
				Module:  models.ContentNode{ID: f.module1, Type: models.NodeModule, Status: models.StatusApproved, Order: 1},
				Courses: []models.CourseTree{course1},
				Quiz:    &models.Quiz{ID: f.quiz1, ModuleID: f.module1, PassingScore: 60, MaxAttempts: 3},
			},
			{
				Module:  models.ContentNode{ID: f.module2, Type: models.NodeModule, Status: models.StatusApproved, Order: 2},
				Courses: []models.CourseTree{course2},
				Quiz:    &models.Quiz{ID: f.finalQuiz, ModuleID: f.module2, PassingScore: 60, MaxAttempts: 3, IsFinal: true},
			},
		},
	}

	content := &fakeContent{
		tree:  tree,
		nodes: map[uuid.UUID]*models.ContentNode{f.formationID: &formation},
	}
	f.quizzes = &fakeQuizResults{passed: make(map[uuid.UUID]bool)}
	f.sink = &fakeSink{}
	f.issuer = &fakeIssuer{}

	progressRepo := newFakeProgress()
	progressRepo.lessonModule[f.lesson1] = f.module1
	progressRepo.lessonModule[f.lesson2] = f.module1
	progressRepo.lessonModule[f.lesson3] = f.module2

	f.svc = NewProgressService(logger.Nop(), &fakeEnrollments{byID: make(map[uuid.UUID]*models.Enrollment)},
		progressRepo, content, f.quizzes, f.sink, nil)
	f.svc.SetCertificateIssuer(f.issuer)
	return f
}

func TestEnroll_SeedsPath(t *testing.T) {
	f := newFixture(t)
	learnerID := uuid.New()

	enrollment, err := f.svc.Enroll(context.Background(), learnerID, f.formationID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentActive, enrollment.Status)

	summary, err := f.svc.Summary(context.Background(), learnerID, enrollment.ID)
	require.NoError(t, err)
	require.Len(t, summary.Modules, 2)
	assert.Equal(t, models.UnlockAvailable, summary.Modules[0].UnlockState)
	assert.Equal(t, models.UnlockLocked, summary.Modules[1].UnlockState)
	assert.Equal(t, 3, summary.TotalLessons)
	assert.Equal(t, 0.0, summary.OverallPercent)
}

func TestEnroll_UnpublishedFormation(t *testing.T) {
	f := newFixture(t)

	draft := &models.ContentNode{ID: uuid.New(), Type: models.NodeFormation, Status: models.StatusDraft}
	content := f.svc.content.(*fakeContent)
	content.nodes[draft.ID] = draft

	_, err := f.svc.Enroll(context.Background(), uuid.New(), draft.ID)
	assert.ErrorIs(t, err, app_errors.ErrFormationNotPublished)
}

func TestCompleteLesson_UnlockCascade(t *testing.T) {
	f := newFixture(t)
	learnerID := uuid.New()
	enrollment, err := f.svc.Enroll(context.Background(), learnerID, f.formationID)
	require.NoError(t, err)

	mp, err := f.svc.CompleteLesson(context.Background(), learnerID, enrollment.ID, f.lesson1)
	require.NoError(t, err)
	assert.Equal(t, models.UnlockInProgress, mp.UnlockState)
	assert.Equal(t, 1, f.sink.countByType(models.EventLessonCompleted))

	// all lessons done but quiz not passed: module stays open
	mp, err = f.svc.CompleteLesson(context.Background(), learnerID, enrollment.ID, f.lesson2)
	require.NoError(t, err)
	assert.Equal(t, models.UnlockInProgress, mp.UnlockState)
	assert.Equal(t, 0, f.sink.countByType(models.EventModuleCompleted))

	f.quizzes.passed[f.quiz1] = true
	err = f.svc.HandleQuizPassed(context.Background(), learnerID, &models.Quiz{ID: f.quiz1, ModuleID: f.module1})
	require.NoError(t, err)

	summary, err := f.svc.Summary(context.Background(), learnerID, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UnlockCompleted, summary.Modules[0].UnlockState)
	assert.Equal(t, models.UnlockAvailable, summary.Modules[1].UnlockState)
	assert.Equal(t, 1, f.sink.countByType(models.EventModuleCompleted))
}

func TestCompleteLesson_Idempotent(t *testing.T) {
	f := newFixture(t)
	learnerID := uuid.New()
	enrollment, err := f.svc.Enroll(context.Background(), learnerID, f.formationID)
	require.NoError(t, err)

	_, err = f.svc.CompleteLesson(context.Background(), learnerID, enrollment.ID, f.lesson1)
	require.NoError(t, err)
	_, err = f.svc.CompleteLesson(context.Background(), learnerID, enrollment.ID, f.lesson1)
	require.NoError(t, err)

	assert.Equal(t, 1, f.sink.countByType(models.EventLessonCompleted))
}

func TestCompleteLesson_LockedModule(t *testing.T) {
	f := newFixture(t)
	learnerID := uuid.New()
	enrollment, err := f.svc.Enroll(context.Background(), learnerID, f.formationID)
	require.NoError(t, err)

	_, err = f.svc.CompleteLesson(context.Background(), learnerID, enrollment.ID, f.lesson3)
	assert.ErrorIs(t, err, app_errors.ErrLessonLocked)
}

func TestCompleteLesson_SequentialOrder(t *testing.T) {
	f := newFixture(t)
	learnerID := uuid.New()
	enrollment, err := f.svc.Enroll(context.Background(), learnerID, f.formationID)
	require.NoError(t, err)

	_, err = f.svc.CompleteLesson(context.Background(), learnerID, enrollment.ID, f.lesson2)
	assert.ErrorIs(t, err, app_errors.ErrLessonLocked)
}

func TestCompleteLesson_DroppedEnrollment(t *testing.T) {
	f := newFixture(t)
	learnerID := uuid.New()
	enrollment, err := f.svc.Enroll(context.Background(), learnerID, f.formationID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Drop(context.Background(), learnerID, enrollment.ID))

	_, err = f.svc.CompleteLesson(context.Background(), learnerID, enrollment.ID, f.lesson1)
	assert.ErrorIs(t, err, app_errors.ErrEnrollmentNotActive)
}

func TestFormationCompletion_IssuesCertificate(t *testing.T) {
	f := newFixture(t)
	learnerID := uuid.New()
	enrollment, err := f.svc.Enroll(context.Background(), learnerID, f.formationID)
	require.NoError(t, err)

	_, err = f.svc.CompleteLesson(context.Background(), learnerID, enrollment.ID, f.lesson1)
	require.NoError(t, err)
	_, err = f.svc.CompleteLesson(context.Background(), learnerID, enrollment.ID, f.lesson2)
	require.NoError(t, err)
	f.quizzes.passed[f.quiz1] = true
	require.NoError(t, f.svc.HandleQuizPassed(context.Background(), learnerID, &models.Quiz{ID: f.quiz1, ModuleID: f.module1}))

	_, err = f.svc.CompleteLesson(context.Background(), learnerID, enrollment.ID, f.lesson3)
	require.NoError(t, err)
	f.quizzes.passed[f.finalQuiz] = true
	require.NoError(t, f.svc.HandleQuizPassed(context.Background(), learnerID, &models.Quiz{ID: f.finalQuiz, ModuleID: f.module2, IsFinal: true}))

	summary, err := f.svc.Summary(context.Background(), learnerID, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentCompleted, summary.Enrollment.Status)
	assert.Equal(t, 100.0, summary.OverallPercent)
	assert.Equal(t, 1, f.sink.countByType(models.EventFormationCompleted))

	require.Len(t, f.issuer.issued, 1)
	assert.Equal(t, enrollment.ID, f.issuer.issued[0])
}

func TestEnsureQuizAccessible(t *testing.T) {
	f := newFixture(t)
	learnerID := uuid.New()
	_, err := f.svc.Enroll(context.Background(), learnerID, f.formationID)
	require.NoError(t, err)

	err = f.svc.EnsureQuizAccessible(context.Background(), learnerID, &models.Quiz{ID: f.quiz1, ModuleID: f.module1})
	assert.NoError(t, err)

	err = f.svc.EnsureQuizAccessible(context.Background(), learnerID, &models.Quiz{ID: f.finalQuiz, ModuleID: f.module2})
	assert.ErrorIs(t, err, app_errors.ErrModuleLocked)
}

func TestInjectRecommendedModule(t *testing.T) {
	f := newFixture(t)
	learnerID := uuid.New()
	enrollment, err := f.svc.Enroll(context.Background(), learnerID, f.formationID)
	require.NoError(t, err)

	extra := uuid.New()
	mp, err := f.svc.InjectRecommendedModule(context.Background(), enrollment.ID, extra)
	require.NoError(t, err)
	assert.Equal(t, models.UnlockAvailable, mp.UnlockState)
	assert.True(t, mp.Injected)
	assert.Equal(t, 3, mp.Position)
}

func TestInjectedModule_GatesFormationCompletion(t *testing.T) {
	f := newFixture(t)
	learnerID := uuid.New()
	enrollment, err := f.svc.Enroll(context.Background(), learnerID, f.formationID)
	require.NoError(t, err)

	_, err = f.svc.InjectRecommendedModule(context.Background(), enrollment.ID, uuid.New())
	require.NoError(t, err)

	_, err = f.svc.CompleteLesson(context.Background(), learnerID, enrollment.ID, f.lesson1)
	require.NoError(t, err)
	_, err = f.svc.CompleteLesson(context.Background(), learnerID, enrollment.ID, f.lesson2)
	require.NoError(t, err)
	f.quizzes.passed[f.quiz1] = true
	require.NoError(t, f.svc.HandleQuizPassed(context.Background(), learnerID, &models.Quiz{ID: f.quiz1, ModuleID: f.module1}))
	_, err = f.svc.CompleteLesson(context.Background(), learnerID, enrollment.ID, f.lesson3)
	require.NoError(t, err)
	f.quizzes.passed[f.finalQuiz] = true
	require.NoError(t, f.svc.HandleQuizPassed(context.Background(), learnerID, &models.Quiz{ID: f.finalQuiz, ModuleID: f.module2, IsFinal: true}))

	// the accepted recommendation is part of the path now and still open
	summary, err := f.svc.Summary(context.Background(), learnerID, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentActive, summary.Enrollment.Status)
	assert.Equal(t, 0, f.sink.countByType(models.EventFormationCompleted))
	assert.Empty(t, f.issuer.issued)
}
