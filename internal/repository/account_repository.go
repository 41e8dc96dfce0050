package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

// AccountRepository persists tenants.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository constructs an account repository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// CreateWithAdmin inserts an account and its first user atomically.
func (r *AccountRepository) CreateWithAdmin(ctx context.Context, account *models.Account, admin *models.User) error {
	now := time.Now().UTC()
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.CreatedAt = now
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	admin.AccountID = account.ID
	admin.CreatedAt = now
	admin.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin signup: %w", err)
	}
	const accountQuery = `INSERT INTO accounts (id, name, created_at) VALUES (:id, :name, :created_at)`
	if _, err := tx.NamedExecContext(ctx, accountQuery, account); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("create account: %w", translate(err))
	}
	const userQuery = `INSERT INTO users (id, account_id, email, password_hash, full_name, role, active, created_at, updated_at) VALUES (:id, :account_id, :email, :password_hash, :full_name, :role, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, userQuery, admin); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("create account admin: %w", translate(err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit signup: %w", err)
	}
	return nil
}
