package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

const classColumns = `id, account_id, name, level, academic_year, created_at`

// ClassRepository manages persistence for classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns the account's classes ordered by level then name.
func (r *ClassRepository) List(ctx context.Context, accountID string, filter models.ClassFilter) ([]models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE account_id = $1`
	args := []interface{}{accountID}
	if filter.AcademicYear != "" {
		args = append(args, filter.AcademicYear)
		query += fmt.Sprintf(" AND academic_year = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		query += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args))
	}
	query += " ORDER BY level ASC, name ASC"

	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindByID returns a class of the account.
func (r *ClassRepository) FindByID(ctx context.Context, accountID, id string) (*models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE account_id = $1 AND id = $2`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, accountID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// FindByName looks a class up by its name within an academic year, case-insensitively.
// An empty level matches any level.
func (r *ClassRepository) FindByName(ctx context.Context, accountID, name, level, academicYear string) (*models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE account_id = $1 AND LOWER(name) = LOWER($2) AND academic_year = $3 AND ($4 = '' OR level = $4) ORDER BY created_at ASC LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, accountID, name, academicYear, level); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find class by name: %w", err)
	}
	return &class, nil
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.CreatedAt.IsZero() {
		class.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO classes (id, account_id, name, level, academic_year, created_at) VALUES (:id, :account_id, :name, :level, :academic_year, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", translate(err))
	}
	return nil
}

// Update changes the class labels.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	const query = `UPDATE classes SET name = :name, level = :level, academic_year = :academic_year WHERE id = :id AND account_id = :account_id`
	res, err := r.db.NamedExecContext(ctx, query, class)
	if err != nil {
		return fmt.Errorf("update class: %w", translate(err))
	}
	return expectAffected(res)
}

// Delete removes a class. Classes that still hold students are refused with ErrInUse.
func (r *ClassRepository) Delete(ctx context.Context, accountID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE account_id = $1 AND id = $2`, accountID, id)
	if err != nil {
		return fmt.Errorf("delete class: %w", translate(err))
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
