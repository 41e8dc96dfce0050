package models

import "time"

// Class is a group of students for one academic year.
type Class struct {
	ID           string    `db:"id" json:"id"`
	AccountID    string    `db:"account_id" json:"-"`
	Name         string    `db:"name" json:"name"`
	Level        string    `db:"level" json:"level"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	AcademicYear string
	Search       string
}

// ClassRequest is the create/update payload.
type ClassRequest struct {
	Name         string `json:"name" validate:"required,max=50"`
	Level        string `json:"level" validate:"required,max=20"`
	AcademicYear string `json:"academic_year" validate:"required,max=9"`
}
