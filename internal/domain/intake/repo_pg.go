package intake

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mindwell/mindwell/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns the Postgres-backed intake repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const patientCols = `id, user_id, full_legal_name, date_of_birth, email, phone,
	state, city, zip_code, insurance_provider, session_preference,
	availability, availability_other, created_at, updated_at`

func scanPatient(row pgx.Row) (*PatientDetails, error) {
	var p PatientDetails
	err := row.Scan(&p.ID, &p.UserID, &p.FullLegalName, &p.DateOfBirth, &p.Email, &p.Phone,
		&p.State, &p.City, &p.ZipCode, &p.InsuranceProvider, &p.SessionPreference,
		&p.Availability, &p.AvailabilityOther, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) UpsertPatient(ctx context.Context, p *PatientDetails) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_details (id, user_id, full_legal_name, date_of_birth, email, phone,
			state, city, zip_code, insurance_provider, session_preference,
			availability, availability_other)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (user_id) DO UPDATE SET
			full_legal_name = EXCLUDED.full_legal_name,
			date_of_birth = EXCLUDED.date_of_birth,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			state = EXCLUDED.state,
			city = EXCLUDED.city,
			zip_code = EXCLUDED.zip_code,
			insurance_provider = EXCLUDED.insurance_provider,
			session_preference = EXCLUDED.session_preference,
			availability = EXCLUDED.availability,
			availability_other = EXCLUDED.availability_other,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		p.ID, p.UserID, p.FullLegalName, p.DateOfBirth, p.Email, p.Phone,
		p.State, p.City, p.ZipCode, p.InsuranceProvider, p.SessionPreference,
		p.Availability, p.AvailabilityOther)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("upserting patient: %w", err)
	}
	return nil
}

func (r *repoPG) GetPatientByUserID(ctx context.Context, userID string) (*PatientDetails, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient_details WHERE user_id = $1`, userID))
}

const sessionCols = `id, user_id, patient_id, access_code, conversation_id, status, created_at, updated_at`

func scanSession(row pgx.Row) (*IntakeSession, error) {
	var s IntakeSession
	err := row.Scan(&s.ID, &s.UserID, &s.PatientID, &s.AccessCode,
		&s.ConversationID, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &s, err
}

func (r *repoPG) FindUnlinkedSession(ctx context.Context, userID string) (*IntakeSession, error) {
	return scanSession(r.conn(ctx).QueryRow(ctx, `
		SELECT `+sessionCols+` FROM intake_sessions
		WHERE user_id = $1 AND patient_id IS NULL
		ORDER BY created_at DESC
		LIMIT 1`, userID))
}

func (r *repoPG) LinkSession(ctx context.Context, sessionID, patientID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE intake_sessions SET patient_id = $2, updated_at = NOW()
		WHERE id = $1 AND patient_id IS NULL`,
		sessionID, patientID)
	if err != nil {
		return fmt.Errorf("linking session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) CreateSession(ctx context.Context, s *IntakeSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = "pending"
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO intake_sessions (id, user_id, patient_id, access_code, conversation_id, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		s.ID, s.UserID, s.PatientID, s.AccessCode, s.ConversationID, s.Status)
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrCodeCollision
		}
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

func (r *repoPG) GetSessionByID(ctx context.Context, id uuid.UUID) (*IntakeSession, error) {
	return scanSession(r.conn(ctx).QueryRow(ctx,
		`SELECT `+sessionCols+` FROM intake_sessions WHERE id = $1`, id))
}

func (r *repoPG) GetSessionByAccessCode(ctx context.Context, code string) (*IntakeSession, error) {
	return scanSession(r.conn(ctx).QueryRow(ctx,
		`SELECT `+sessionCols+` FROM intake_sessions WHERE access_code = $1`, code))
}

func (r *repoPG) RecordProviderView(ctx context.Context, v *ProviderIntakeView) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO provider_intake_views (id, intake_id, provider_user_id, unverified)
		VALUES ($1,$2,$3,$4)`,
		v.ID, v.IntakeID, v.ProviderUserID, v.Unverified)
	if err != nil {
		return fmt.Errorf("recording provider view: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
