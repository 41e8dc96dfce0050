package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

const gradeDetailColumns = `g.id, g.account_id, g.student_id, g.subject_id, g.score, g.max_score, g.kind, g.evaluated_on, g.semester, g.academic_year, g.comment, g.modified_by, g.created_at, g.updated_at, sub.name AS subject_name, sub.code AS subject_code, sub.coefficient`

// GradeRepository handles grade persistence.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a repository instance.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// List returns grades matching the filter, newest evaluation first.
func (r *GradeRepository) List(ctx context.Context, accountID string, filter models.GradeFilter) ([]models.GradeDetail, int, error) {
	base := `FROM grades g JOIN subjects sub ON sub.id = g.subject_id JOIN students st ON st.id = g.student_id WHERE g.account_id = $1`
	args := []interface{}{accountID}
	add := func(column string, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		base += fmt.Sprintf(" AND %s = $%d", column, len(args))
	}
	add("g.student_id", filter.StudentID)
	add("g.subject_id", filter.SubjectID)
	add("st.class_id", filter.ClassID)
	add("g.semester", filter.Semester)
	add("g.academic_year", filter.AcademicYear)

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY g.evaluated_on DESC, sub.name ASC LIMIT %d OFFSET %d", gradeDetailColumns, base, pageSize, (page-1)*pageSize)

	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list grades: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count grades: %w", err)
	}
	return grades, total, nil
}

// FindByID returns a single grade of the account.
func (r *GradeRepository) FindByID(ctx context.Context, accountID, id string) (*models.Grade, error) {
	const query = `SELECT id, account_id, student_id, subject_id, score, max_score, kind, evaluated_on, semester, academic_year, comment, modified_by, created_at, updated_at FROM grades WHERE account_id = $1 AND id = $2`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, accountID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find grade: %w", err)
	}
	return &grade, nil
}

// ListByStudent returns every grade of one student across periods, newest evaluation first.
func (r *GradeRepository) ListByStudent(ctx context.Context, accountID, studentID string) ([]models.GradeDetail, error) {
	query := `SELECT ` + gradeDetailColumns + ` FROM grades g JOIN subjects sub ON sub.id = g.subject_id
        WHERE g.account_id = $1 AND g.student_id = $2
        ORDER BY g.evaluated_on DESC, g.created_at DESC`
	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, accountID, studentID); err != nil {
		return nil, fmt.Errorf("list student grades: %w", err)
	}
	return grades, nil
}

// ListForStudents loads the grades of the given students for a semester, ordered by
// student, subject name and evaluation date. An empty academicYear matches every year.
func (r *GradeRepository) ListForStudents(ctx context.Context, accountID string, studentIDs []string, semester, academicYear string) ([]models.GradeDetail, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+gradeDetailColumns+` FROM grades g JOIN subjects sub ON sub.id = g.subject_id
        WHERE g.account_id = ? AND g.student_id IN (?) AND g.semester = ? AND (? = '' OR g.academic_year = ?)
        ORDER BY g.student_id, sub.name ASC, g.evaluated_on ASC, g.created_at ASC`, accountID, studentIDs, semester, academicYear, academicYear)
	if err != nil {
		return nil, fmt.Errorf("build grades query: %w", err)
	}
	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list semester grades: %w", err)
	}
	return grades, nil
}

// Create inserts a grade. A second entry for the same student, subject, kind and date yields ErrDuplicate.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	grade.CreatedAt = now
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, account_id, student_id, subject_id, score, max_score, kind, evaluated_on, semester, academic_year, comment, modified_by, created_at, updated_at) VALUES (:id, :account_id, :student_id, :subject_id, :score, :max_score, :kind, :evaluated_on, :semester, :academic_year, :comment, :modified_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("create grade: %w", translate(err))
	}
	return nil
}

// Update applies an administrative correction to a grade.
func (r *GradeRepository) Update(ctx context.Context, grade *models.Grade) error {
	grade.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grades SET score = :score, max_score = :max_score, kind = :kind, evaluated_on = :evaluated_on, semester = :semester, academic_year = :academic_year, comment = :comment, modified_by = :modified_by, updated_at = :updated_at WHERE id = :id AND account_id = :account_id`
	res, err := r.db.NamedExecContext(ctx, query, grade)
	if err != nil {
		return fmt.Errorf("update grade: %w", translate(err))
	}
	return expectAffected(res)
}

// Delete removes a grade.
func (r *GradeRepository) Delete(ctx context.Context, accountID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM grades WHERE account_id = $1 AND id = $2`, accountID, id)
	if err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	return expectAffected(res)
}
