package models

import "time"

// Account is a tenant ("compte"). Every school record belongs to exactly one account.
type Account struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SignupRequest creates an account together with its first administrator.
type SignupRequest struct {
	AccountName string `json:"account_name" validate:"required,max=150"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FullName    string `json:"full_name" validate:"required,max=150"`
}

// SignupResponse returns the created tenant and administrator.
type SignupResponse struct {
	Account Account  `json:"account"`
	User    UserInfo `json:"user"`
}
