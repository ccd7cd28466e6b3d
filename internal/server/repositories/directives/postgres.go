package directives

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/willtrail/willtrail/internal/common"
	"github.com/willtrail/willtrail/internal/dbx"
	"github.com/willtrail/willtrail/internal/server/models"
)

// PostgresRepository stores directive sections as jsonb columns so partial
// section replacement stays a single-row write and the wire shape survives
// round trips unchanged.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const directiveColumns = `id, user_id, personal_info, emergency_contacts, medical_info,
	care_preferences, healthcare_agent, public_fields, completion_steps,
	is_complete, last_edited_at, created_at`

type sectionBlobs struct {
	personalInfo      []byte
	emergencyContacts []byte
	medicalInfo       []byte
	carePreferences   []byte
	healthcareAgent   []byte
	publicFields      []byte
	completionSteps   []byte
}

func marshalSections(d *models.Directive) (*sectionBlobs, error) {
	b := &sectionBlobs{}
	var err error
	if b.personalInfo, err = json.Marshal(d.PersonalInfo); err != nil {
		return nil, err
	}
	contacts := d.EmergencyContacts
	if contacts == nil {
		contacts = []models.EmergencyContact{}
	}
	if b.emergencyContacts, err = json.Marshal(contacts); err != nil {
		return nil, err
	}
	if b.medicalInfo, err = json.Marshal(d.MedicalInfo); err != nil {
		return nil, err
	}
	if b.carePreferences, err = json.Marshal(d.CarePreferences); err != nil {
		return nil, err
	}
	if b.healthcareAgent, err = json.Marshal(d.HealthcareAgent); err != nil {
		return nil, err
	}
	if b.publicFields, err = json.Marshal(d.PublicFields); err != nil {
		return nil, err
	}
	if b.completionSteps, err = json.Marshal(d.CompletionSteps); err != nil {
		return nil, err
	}
	return b, nil
}

func scanDirective(row *sql.Row) (*models.Directive, error) {
	d := &models.Directive{}
	b := &sectionBlobs{}

	err := row.Scan(&d.ID, &d.UserID, &b.personalInfo, &b.emergencyContacts, &b.medicalInfo,
		&b.carePreferences, &b.healthcareAgent, &b.publicFields, &b.completionSteps,
		&d.IsComplete, &d.LastEditedAt, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	for blob, target := range map[*[]byte]any{
		&b.personalInfo:      &d.PersonalInfo,
		&b.emergencyContacts: &d.EmergencyContacts,
		&b.medicalInfo:       &d.MedicalInfo,
		&b.carePreferences:   &d.CarePreferences,
		&b.healthcareAgent:   &d.HealthcareAgent,
		&b.publicFields:      &d.PublicFields,
		&b.completionSteps:   &d.CompletionSteps,
	} {
		if err := json.Unmarshal(*blob, target); err != nil {
			return nil, fmt.Errorf("directive decode error: %w", err)
		}
	}
	return d, nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.Directive, error) {
	query := `SELECT ` + directiveColumns + ` FROM directives WHERE user_id = $1`
	return scanDirective(r.db.QueryRowContext(ctx, query, userID))
}

func (r *PostgresRepository) Create(ctx context.Context, d *models.Directive) (*models.Directive, error) {
	b, err := marshalSections(d)
	if err != nil {
		return nil, fmt.Errorf("directive encode error: %w", err)
	}

	query :=
		`INSERT INTO directives (user_id, personal_info, emergency_contacts, medical_info,
		     care_preferences, healthcare_agent, public_fields, completion_steps, is_complete)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, last_edited_at, created_at
		 `

	err = r.db.QueryRowContext(ctx, query, d.UserID,
		b.personalInfo, b.emergencyContacts, b.medicalInfo, b.carePreferences,
		b.healthcareAgent, b.publicFields, b.completionSteps, d.IsComplete).
		Scan(&d.ID, &d.LastEditedAt, &d.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) Update(ctx context.Context, d *models.Directive) (*models.Directive, error) {
	b, err := marshalSections(d)
	if err != nil {
		return nil, fmt.Errorf("directive encode error: %w", err)
	}

	query :=
		`UPDATE directives
		 SET personal_info = $2, emergency_contacts = $3, medical_info = $4,
		     care_preferences = $5, healthcare_agent = $6, public_fields = $7,
		     completion_steps = $8, is_complete = $9, last_edited_at = now()
		 WHERE user_id = $1
		 RETURNING id, last_edited_at
		 `

	err = r.db.QueryRowContext(ctx, query, d.UserID,
		b.personalInfo, b.emergencyContacts, b.medicalInfo, b.carePreferences,
		b.healthcareAgent, b.publicFields, b.completionSteps, d.IsComplete).
		Scan(&d.ID, &d.LastEditedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}
