package postgres

import (
	"LearnForge/internal/app_errors"
	"LearnForge/internal/models"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CertificatePostgres struct {
	db *pgxpool.Pool
}

func NewCertificatePostgres(db *pgxpool.Pool) *CertificatePostgres {
	return &CertificatePostgres{db: db}
}

const certificateColumns = `id, enrollment_id, learner_id, formation_id, certificate_number, verification_code, final_score, issued_at`

func scanCertificate(row pgx.Row) (models.Certificate, error) {
	var c models.Certificate
	err := row.Scan(&c.ID, &c.EnrollmentID, &c.LearnerID, &c.FormationID,
		&c.CertificateNumber, &c.VerificationCode, &c.FinalScore, &c.IssuedAt)
	return c, err
}

// NextSequence allocates the next certificate serial. Backed by a database
// sequence so concurrent issuers never collide.
func (r *CertificatePostgres) NextSequence(ctx context.Context) (int64, error) {
	var seq int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('certificate_number_seq')`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to allocate certificate sequence: %w", err)
	}
	return seq, nil
}

// Insert persists the certificate. The unique index on (learner_id,
// formation_id) serializes racing issuers: the loser gets ErrAlreadyIssued.
func (r *CertificatePostgres) Insert(ctx context.Context, c models.Certificate) (*models.Certificate, error) {
	query := `
    INSERT INTO certificates (
        id, enrollment_id, learner_id, formation_id,
        certificate_number, verification_code, final_score, issued_at
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    `
	_, err := r.db.Exec(ctx, query,
		c.ID, c.EnrollmentID, c.LearnerID, c.FormationID,
		c.CertificateNumber, c.VerificationCode, c.FinalScore, c.IssuedAt,
	)
	if err != nil {
		if pgErr := UnwrapPgError(err); pgErr != nil && pgErr.Code == uniqueViolation {
			return nil, app_errors.ErrAlreadyIssued
		}
		return nil, fmt.Errorf("failed to insert certificate: %w", err)
	}
	return &c, nil
}

func (r *CertificatePostgres) ByVerificationCode(ctx context.Context, code string) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE verification_code = $1`
	c, err := scanCertificate(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query certificate: %w", err)
	}
	return &c, nil
}

func (r *CertificatePostgres) ByEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE enrollment_id = $1`
	c, err := scanCertificate(r.db.QueryRow(ctx, query, enrollmentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query certificate: %w", err)
	}
	return &c, nil
}

func (r *CertificatePostgres) ByLearner(ctx context.Context, learnerID uuid.UUID) ([]models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE learner_id = $1 ORDER BY issued_at DESC`
	rows, err := r.db.Query(ctx, query, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query certificates: %w", err)
	}
	defer rows.Close()

	var certificates []models.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		certificates = append(certificates, c)
	}
	return certificates, rows.Err()
}
