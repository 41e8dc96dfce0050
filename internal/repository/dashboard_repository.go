package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

// DashboardRepository runs the read-only aggregate queries behind the dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Totals counts active students, classes, active subjects and grades of the account.
func (r *DashboardRepository) Totals(ctx context.Context, accountID string) (*models.DashboardTotals, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM students WHERE account_id = $1 AND active = TRUE) AS active_students,
        (SELECT COUNT(*) FROM classes WHERE account_id = $1) AS classes,
        (SELECT COUNT(*) FROM subjects WHERE account_id = $1 AND active = TRUE) AS active_subjects,
        (SELECT COUNT(*) FROM grades WHERE account_id = $1) AS grades`
	var totals models.DashboardTotals
	if err := r.db.GetContext(ctx, &totals, query, accountID); err != nil {
		return nil, fmt.Errorf("dashboard totals: %w", err)
	}
	return &totals, nil
}

// RecentStudents returns the latest enrolled active students.
func (r *DashboardRepository) RecentStudents(ctx context.Context, accountID string, limit int) ([]models.StudentDetail, error) {
	query := `SELECT ` + studentColumns + `, c.name AS class_name FROM students s JOIN classes c ON c.id = s.class_id
        WHERE s.account_id = $1 AND s.active = TRUE
        ORDER BY s.enrolled_at DESC, s.last_name ASC LIMIT $2`
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, accountID, limit); err != nil {
		return nil, fmt.Errorf("recent students: %w", err)
	}
	return students, nil
}

// RecentGrades returns the most recently entered grades with student and subject names.
func (r *DashboardRepository) RecentGrades(ctx context.Context, accountID string, limit int) ([]models.RecentGrade, error) {
	query := `SELECT ` + gradeDetailColumns + `, st.last_name AS student_last_name, st.first_name AS student_first_name
        FROM grades g JOIN subjects sub ON sub.id = g.subject_id JOIN students st ON st.id = g.student_id
        WHERE g.account_id = $1
        ORDER BY g.created_at DESC LIMIT $2`
	var grades []models.RecentGrade
	if err := r.db.SelectContext(ctx, &grades, query, accountID, limit); err != nil {
		return nil, fmt.Errorf("recent grades: %w", err)
	}
	return grades, nil
}
