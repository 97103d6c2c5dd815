package certificate

import (
	"LearnForge/internal/app_errors"
	"LearnForge/internal/models"
	"LearnForge/pkg/logger"
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const verificationCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type certificateRepo interface {
	NextSequence(ctx context.Context) (int64, error)
	Insert(ctx context.Context, c models.Certificate) (*models.Certificate, error)
	ByVerificationCode(ctx context.Context, code string) (*models.Certificate, error)
	ByEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*models.Certificate, error)
	ByLearner(ctx context.Context, learnerID uuid.UUID) ([]models.Certificate, error)
}

type enrollmentRepo interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.Enrollment, error)
}

type contentRepo interface {
	FormationTree(ctx context.Context, formationID uuid.UUID) (*models.FormationTree, error)
}

type quizResults interface {
	BestPercentages(ctx context.Context, learnerID uuid.UUID, quizIDs []uuid.UUID) (map[uuid.UUID]float64, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, event models.ProgressEvent) error
}

type CertificateService struct {
	log          logger.Log
	certificates certificateRepo
	enrollments  enrollmentRepo
	content      contentRepo
	quizzes      quizResults
	publisher    eventPublisher
}

func NewCertificateService(log logger.Log, certificates certificateRepo, enrollments enrollmentRepo,
	content contentRepo, quizzes quizResults, publisher eventPublisher,
) *CertificateService {
	return &CertificateService{
		log:          log,
		certificates: certificates,
		enrollments:  enrollments,
		content:      content,
		quizzes:      quizzes,
		publisher:    publisher,
	}
}

// TryIssue issues the certificate for a completed enrollment. The unique
// index on the enrollment makes concurrent calls settle on one certificate;
// losers get ErrAlreadyIssued.
func (s *CertificateService) TryIssue(ctx context.Context, enrollmentID uuid.UUID) (*models.Certificate, error) {
	enrollment, err := s.enrollments.ByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != models.EnrollmentCompleted {
		return nil, app_errors.ErrNotEligible
	}

	score, err := s.finalScore(ctx, enrollment)
	if err != nil {
		return nil, err
	}
	seq, err := s.certificates.NextSequence(ctx)
	if err != nil {
		return nil, err
	}
	code, err := verificationCode()
	if err != nil {
		return nil, err
	}

	cert := models.Certificate{
		ID:                uuid.New(),
		EnrollmentID:      enrollment.ID,
		LearnerID:         enrollment.LearnerID,
		FormationID:       enrollment.FormationID,
		CertificateNumber: certificateNumber(enrollment.FormationID, enrollment.LearnerID, seq),
		VerificationCode:  code,
		FinalScore:        score,
		IssuedAt:          time.Now().UTC(),
	}
	issued, err := s.certificates.Insert(ctx, cert)
	if err != nil {
		return nil, err
	}

	s.log.Info("certificate issued",
		"learner_id", issued.LearnerID, "formation_id", issued.FormationID, "number", issued.CertificateNumber)
	if s.publisher != nil {
		ev := models.ProgressEvent{
			Type:         models.EventCertificateIssued,
			LearnerID:    issued.LearnerID,
			EnrollmentID: issued.EnrollmentID,
			FormationID:  issued.FormationID,
			OccurredAt:   issued.IssuedAt,
		}
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.log.ErrorErr("publish progress event", err, "type", ev.Type)
		}
	}
	return issued, nil
}

// Claim is the learner-facing issue path. It hides enrollments that belong
// to someone else before delegating to TryIssue.
func (s *CertificateService) Claim(ctx context.Context, learnerID, enrollmentID uuid.UUID) (*models.Certificate, error) {
	enrollment, err := s.enrollments.ByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.LearnerID != learnerID {
		return nil, app_errors.ErrNotFound
	}
	return s.TryIssue(ctx, enrollmentID)
}

// Verify resolves a verification code to its certificate.
func (s *CertificateService) Verify(ctx context.Context, code string) (*models.Certificate, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, app_errors.ErrNotFound
	}
	return s.certificates.ByVerificationCode(ctx, code)
}

func (s *CertificateService) ByEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*models.Certificate, error) {
	return s.certificates.ByEnrollment(ctx, enrollmentID)
}

func (s *CertificateService) LearnerCertificates(ctx context.Context, learnerID uuid.UUID) ([]models.Certificate, error) {
	return s.certificates.ByLearner(ctx, learnerID)
}

// finalScore is the learner's best percentage on the formation's final quiz.
// Formations without one use the average of the module quiz bests, and a
// formation with no quizzes at all scores 100.
func (s *CertificateService) finalScore(ctx context.Context, enrollment *models.Enrollment) (float64, error) {
	tree, err := s.content.FormationTree(ctx, enrollment.FormationID)
	if err != nil {
		return 0, err
	}

	quizIDs := make([]uuid.UUID, 0, len(tree.Modules))
	for _, m := range tree.Modules {
		if m.Quiz != nil {
			quizIDs = append(quizIDs, m.Quiz.ID)
		}
	}
	if len(quizIDs) == 0 {
		return 100, nil
	}

	best, err := s.quizzes.BestPercentages(ctx, enrollment.LearnerID, quizIDs)
	if err != nil {
		return 0, err
	}
	if final := tree.FinalQuiz(); final != nil {
		return best[final.ID], nil
	}

	var sum float64
	for _, id := range quizIDs {
		sum += best[id]
	}
	return sum / float64(len(quizIDs)), nil
}

// certificateNumber is CERT-<formation prefix>-<learner prefix>-<sequence>,
// with the first UUID group of each id uppercased.
func certificateNumber(formationID, learnerID uuid.UUID, seq int64) string {
	return fmt.Sprintf("CERT-%s-%s-%d",
		strings.ToUpper(formationID.String()[:8]),
		strings.ToUpper(learnerID.String()[:8]),
		seq)
}

func verificationCode() (string, error) {
	max := big.NewInt(int64(len(verificationCharset)))
	b := make([]byte, 8)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate verification code: %w", err)
		}
		b[i] = verificationCharset[n.Int64()]
	}
	return "CERT-" + string(b), nil
}
