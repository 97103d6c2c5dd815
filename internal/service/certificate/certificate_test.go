package certificate

import (
	"LearnForge/internal/app_errors"
	"LearnForge/internal/models"
	"LearnForge/pkg/logger"
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCertificates struct {
	seq    int64
	byCode map[string]*models.Certificate
	byEnr  map[uuid.UUID]*models.Certificate
}

func newFakeCertificates() *fakeCertificates {
	return &fakeCertificates{
		byCode: make(map[string]*models.Certificate),
		byEnr:  make(map[uuid.UUID]*models.Certificate),
	}
}

func (f *fakeCertificates) NextSequence(_ context.Context) (int64, error) {
	f.seq++
	return f.seq, nil
}

func (f *fakeCertificates) Insert(_ context.Context, c models.Certificate) (*models.Certificate, error) {
	if _, dup := f.byEnr[c.EnrollmentID]; dup {
		return nil, app_errors.ErrAlreadyIssued
	}
	f.byEnr[c.EnrollmentID] = &c
	f.byCode[c.VerificationCode] = &c
	return &c, nil
}

func (f *fakeCertificates) ByVerificationCode(_ context.Context, code string) (*models.Certificate, error) {
	c, ok := f.byCode[code]
	if !ok {
		return nil, app_errors.ErrNotFound
	}
	return c, nil
}

func (f *fakeCertificates) ByEnrollment(_ context.Context, enrollmentID uuid.UUID) (*models.Certificate, error) {
	c, ok := f.byEnr[enrollmentID]
	if !ok {
		return nil, app_errors.ErrNotFound
	}
	return c, nil
}

func (f *fakeCertificates) ByLearner(_ context.Context, learnerID uuid.UUID) ([]models.Certificate, error) {
	var out []models.Certificate
	for _, c := range f.byEnr {
		if c.LearnerID == learnerID {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeEnrollments struct {
	byID map[uuid.UUID]*models.Enrollment
}

func (f *fakeEnrollments) ByID(_ context.Context, id uuid.UUID) (*models.Enrollment, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, app_errors.ErrNotFound
	}
	return e, nil
}

type fakeContent struct {
	tree *models.FormationTree
}

func (f *fakeContent) FormationTree(_ context.Context, _ uuid.UUID) (*models.FormationTree, error) {
	return f.tree, nil
}

type fakeQuizResults struct {
	best map[uuid.UUID]float64
}

func (f *fakeQuizResults) BestPercentages(_ context.Context, _ uuid.UUID, quizIDs []uuid.UUID) (map[uuid.UUID]float64, error) {
	out := make(map[uuid.UUID]float64)
	for _, id := range quizIDs {
		if v, ok := f.best[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

type testEnv struct {
	svc     *CertificateService
	certs   *fakeCertificates
	quizzes *fakeQuizResults

	enrollment *models.Enrollment
	quiz1      uuid.UUID
	finalQuiz  uuid.UUID
}

func newTestEnv(t *testing.T, withFinal bool) *testEnv {
	t.Helper()

	env := &testEnv{
		certs:     newFakeCertificates(),
		quizzes:   &fakeQuizResults{best: make(map[uuid.UUID]float64)},
		quiz1:     uuid.New(),
		finalQuiz: uuid.New(),
	}
	env.enrollment = &models.Enrollment{
		ID:          uuid.New(),
		LearnerID:   uuid.New(),
		FormationID: uuid.New(),
		Status:      models.EnrollmentCompleted,
		EnrolledAt:  time.Now().UTC(),
	}

	tree := &models.FormationTree{
		Formation: models.ContentNode{ID: env.enrollment.FormationID, Type: models.NodeFormation, Status: models.StatusPublished},
		Modules: []models.ModuleTree{
			{Module: models.ContentNode{ID: uuid.New(), Type: models.NodeModule}, Quiz: &models.Quiz{ID: env.quiz1}},
		},
	}
	if withFinal {
		tree.Modules = append(tree.Modules, models.ModuleTree{
			Module: models.ContentNode{ID: uuid.New(), Type: models.NodeModule},
			Quiz:   &models.Quiz{ID: env.finalQuiz, IsFinal: true},
		})
	}

	enrollments := &fakeEnrollments{byID: map[uuid.UUID]*models.Enrollment{env.enrollment.ID: env.enrollment}}
	env.svc = NewCertificateService(logger.Nop(), env.certs, enrollments, &fakeContent{tree: tree}, env.quizzes, nil)
	return env
}

func TestTryIssue_Formats(t *testing.T) {
	env := newTestEnv(t, true)
	env.quizzes.best[env.quiz1] = 80
	env.quizzes.best[env.finalQuiz] = 92.5

	cert, err := env.svc.TryIssue(context.Background(), env.enrollment.ID)
	require.NoError(t, err)

	wantPrefix := fmt.Sprintf("CERT-%s-%s-",
		strings.ToUpper(env.enrollment.FormationID.String()[:8]),
		strings.ToUpper(env.enrollment.LearnerID.String()[:8]))
	assert.True(t, strings.HasPrefix(cert.CertificateNumber, wantPrefix), cert.CertificateNumber)
	assert.Regexp(t, regexp.MustCompile(`^CERT-[A-Z0-9]{8}$`), cert.VerificationCode)
	assert.Equal(t, 92.5, cert.FinalScore)
}

func TestTryIssue_AverageWithoutFinalQuiz(t *testing.T) {
	env := newTestEnv(t, false)
	env.quizzes.best[env.quiz1] = 75

	cert, err := env.svc.TryIssue(context.Background(), env.enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, 75.0, cert.FinalScore)
}

func TestTryIssue_NotEligible(t *testing.T) {
	env := newTestEnv(t, true)
	env.enrollment.Status = models.EnrollmentActive

	_, err := env.svc.TryIssue(context.Background(), env.enrollment.ID)
	assert.ErrorIs(t, err, app_errors.ErrNotEligible)
}

func TestTryIssue_Once(t *testing.T) {
	env := newTestEnv(t, true)

	_, err := env.svc.TryIssue(context.Background(), env.enrollment.ID)
	require.NoError(t, err)

	_, err = env.svc.TryIssue(context.Background(), env.enrollment.ID)
	assert.ErrorIs(t, err, app_errors.ErrAlreadyIssued)
}

func TestVerify_RoundTrip(t *testing.T) {
	env := newTestEnv(t, true)

	issued, err := env.svc.TryIssue(context.Background(), env.enrollment.ID)
	require.NoError(t, err)

	got, err := env.svc.Verify(context.Background(), " "+strings.ToLower(issued.VerificationCode)+" ")
	require.NoError(t, err)
	assert.Equal(t, issued.CertificateNumber, got.CertificateNumber)

	_, err = env.svc.Verify(context.Background(), "CERT-NOPENOPE")
	assert.ErrorIs(t, err, app_errors.ErrNotFound)

	_, err = env.svc.Verify(context.Background(), "  ")
	assert.ErrorIs(t, err, app_errors.ErrNotFound)
}

func TestClaim_OwnEnrollmentOnly(t *testing.T) {
	env := newTestEnv(t, true)

	_, err := env.svc.Claim(context.Background(), uuid.New(), env.enrollment.ID)
	assert.ErrorIs(t, err, app_errors.ErrNotFound)

	cert, err := env.svc.Claim(context.Background(), env.enrollment.LearnerID, env.enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, env.enrollment.ID, cert.EnrollmentID)
}
