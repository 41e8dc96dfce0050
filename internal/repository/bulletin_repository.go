package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

// BulletinRepository persists generated bulletins.
type BulletinRepository struct {
	db *sqlx.DB
}

// NewBulletinRepository constructs the repository.
func NewBulletinRepository(db *sqlx.DB) *BulletinRepository {
	return &BulletinRepository{db: db}
}

// UpsertBatch writes all bulletins of one generation in a single transaction, keyed by
// (student, semester, academic year). Regeneration overwrites the computed fields and
// keeps the stored appreciation.
func (r *BulletinRepository) UpsertBatch(ctx context.Context, bulletins []models.Bulletin) error {
	if len(bulletins) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulletin upsert: %w", err)
	}
	const query = `INSERT INTO bulletins (id, account_id, student_id, semester, academic_year, average, rank, class_size, appreciation, generated_at, generated_by)
        VALUES (:id, :account_id, :student_id, :semester, :academic_year, :average, :rank, :class_size, :appreciation, :generated_at, :generated_by)
        ON CONFLICT (student_id, semester, academic_year)
        DO UPDATE SET average = EXCLUDED.average, rank = EXCLUDED.rank, class_size = EXCLUDED.class_size, generated_at = EXCLUDED.generated_at, generated_by = EXCLUDED.generated_by`
	now := time.Now().UTC()
	for i := range bulletins {
		if bulletins[i].ID == "" {
			bulletins[i].ID = uuid.NewString()
		}
		if bulletins[i].GeneratedAt.IsZero() {
			bulletins[i].GeneratedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, query, bulletins[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("upsert bulletin: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulletins: %w", err)
	}
	return nil
}

// List returns the bulletins of a class for a period, best rank first and unranked last.
func (r *BulletinRepository) List(ctx context.Context, accountID string, filter models.BulletinFilter) ([]models.BulletinDetail, error) {
	const query = `SELECT b.id, b.account_id, b.student_id, b.semester, b.academic_year, b.average, b.rank, b.class_size, b.appreciation, b.generated_at, b.generated_by,
        s.student_number, s.last_name, s.first_name
        FROM bulletins b JOIN students s ON s.id = b.student_id
        WHERE b.account_id = $1 AND s.class_id = $2 AND b.semester = $3 AND b.academic_year = $4
        ORDER BY b.rank ASC NULLS LAST, s.last_name ASC, s.first_name ASC`
	var bulletins []models.BulletinDetail
	if err := r.db.SelectContext(ctx, &bulletins, query, accountID, filter.ClassID, filter.Semester, filter.AcademicYear); err != nil {
		return nil, fmt.Errorf("list bulletins: %w", err)
	}
	return bulletins, nil
}

// SetAppreciation stores the free-text appreciation of one bulletin.
func (r *BulletinRepository) SetAppreciation(ctx context.Context, accountID, id, appreciation string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE bulletins SET appreciation = $3 WHERE account_id = $1 AND id = $2`, accountID, id, appreciation)
	if err != nil {
		return fmt.Errorf("set appreciation: %w", err)
	}
	return expectAffected(res)
}
