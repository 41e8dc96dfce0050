package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

const subjectColumns = `id, account_id, name, code, coefficient, description, teacher_id, active`

// SubjectRepository provides CRUD access to subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository instantiates the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns the account's subjects ordered by name.
func (r *SubjectRepository) List(ctx context.Context, accountID string, filter models.SubjectFilter) ([]models.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE account_id = $1`
	args := []interface{}{accountID}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		query += fmt.Sprintf(" AND active = $%d", len(args))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		query += fmt.Sprintf(" AND teacher_id = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		query += fmt.Sprintf(" AND (LOWER(name) LIKE $%d OR LOWER(code) LIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY name ASC"

	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID fetches a subject of the account.
func (r *SubjectRepository) FindByID(ctx context.Context, accountID, id string) (*models.Subject, error) {
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, `SELECT `+subjectColumns+` FROM subjects WHERE account_id = $1 AND id = $2`, accountID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find subject: %w", err)
	}
	return &subject, nil
}

// FindByCode fetches a subject by its code, case-insensitively.
func (r *SubjectRepository) FindByCode(ctx context.Context, accountID, code string) (*models.Subject, error) {
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, `SELECT `+subjectColumns+` FROM subjects WHERE account_id = $1 AND UPPER(code) = UPPER($2)`, accountID, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find subject by code: %w", err)
	}
	return &subject, nil
}

// Create stores a new subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	const query = `INSERT INTO subjects (id, account_id, name, code, coefficient, description, teacher_id, active) VALUES (:id, :account_id, :name, :code, :coefficient, :description, :teacher_id, :active)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", translate(err))
	}
	return nil
}

// Update modifies an existing subject.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	const query = `UPDATE subjects SET name = :name, code = :code, coefficient = :coefficient, description = :description, teacher_id = :teacher_id, active = :active WHERE id = :id AND account_id = :account_id`
	res, err := r.db.NamedExecContext(ctx, query, subject)
	if err != nil {
		return fmt.Errorf("update subject: %w", translate(err))
	}
	return expectAffected(res)
}

// Deactivate hides a subject from entry forms while keeping its grades.
func (r *SubjectRepository) Deactivate(ctx context.Context, accountID, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE subjects SET active = FALSE WHERE account_id = $1 AND id = $2`, accountID, id)
	if err != nil {
		return fmt.Errorf("deactivate subject: %w", err)
	}
	return expectAffected(res)
}
