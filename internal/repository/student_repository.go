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

const studentColumns = `s.id, s.account_id, s.class_id, s.student_number, s.last_name, s.first_name, s.birth_date, s.gender, s.address, s.phone, s.email, s.active, s.enrolled_at`

// StudentRepository handles persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a new repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students of the account with their class name.
func (r *StudentRepository) List(ctx context.Context, accountID string, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM students s JOIN classes c ON c.id = s.class_id WHERE s.account_id = $1`
	args := []interface{}{accountID}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		base += fmt.Sprintf(" AND s.class_id = $%d", len(args))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		base += fmt.Sprintf(" AND s.active = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		base += fmt.Sprintf(" AND (LOWER(s.last_name) LIKE $%d OR LOWER(s.first_name) LIKE $%d OR LOWER(s.student_number) LIKE $%d)", len(args), len(args), len(args))
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s, c.name AS class_name %s ORDER BY s.last_name ASC, s.first_name ASC LIMIT %d OFFSET %d", studentColumns, base, pageSize, (page-1)*pageSize)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student of the account.
func (r *StudentRepository) FindByID(ctx context.Context, accountID, id string) (*models.StudentDetail, error) {
	query := `SELECT ` + studentColumns + `, c.name AS class_name FROM students s JOIN classes c ON c.id = s.class_id WHERE s.account_id = $1 AND s.id = $2`
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, accountID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// ExistsByNumber reports whether a student number is already taken. Numbers are unique globally.
func (r *StudentRepository) ExistsByNumber(ctx context.Context, studentNumber string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM students WHERE student_number = $1)`, studentNumber); err != nil {
		return false, fmt.Errorf("check student number: %w", err)
	}
	return exists, nil
}

// ListActiveByClass returns active students of a class in (last name, first name) order.
func (r *StudentRepository) ListActiveByClass(ctx context.Context, accountID, classID string) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students s WHERE s.account_id = $1 AND s.class_id = $2 AND s.active = TRUE ORDER BY s.last_name ASC, s.first_name ASC, s.student_number ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, accountID, classID); err != nil {
		return nil, fmt.Errorf("list class students: %w", err)
	}
	return students, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.EnrolledAt.IsZero() {
		student.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO students (id, account_id, class_id, student_number, last_name, first_name, birth_date, gender, address, phone, email, active, enrolled_at) VALUES (:id, :account_id, :class_id, :student_number, :last_name, :first_name, :birth_date, :gender, :address, :phone, :email, :active, :enrolled_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", translate(err))
	}
	return nil
}

// Update modifies an existing student record.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	const query = `UPDATE students SET class_id = :class_id, student_number = :student_number, last_name = :last_name, first_name = :first_name, birth_date = :birth_date, gender = :gender, address = :address, phone = :phone, email = :email, active = :active WHERE id = :id AND account_id = :account_id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", translate(err))
	}
	return expectAffected(res)
}

// Deactivate soft deletes a student; inactive students are left out of bulletins.
func (r *StudentRepository) Deactivate(ctx context.Context, accountID, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE students SET active = FALSE WHERE account_id = $1 AND id = $2`, accountID, id)
	if err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	return expectAffected(res)
}
