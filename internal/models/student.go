package models

import "time"

// Gender values accepted for students.
const (
	GenderMale   = "M"
	GenderFemale = "F"
)

// Student represents a learner enrolled in a class.
type Student struct {
	ID            string     `db:"id" json:"id"`
	AccountID     string     `db:"account_id" json:"-"`
	ClassID       string     `db:"class_id" json:"class_id"`
	StudentNumber string     `db:"student_number" json:"student_number"`
	LastName      string     `db:"last_name" json:"last_name"`
	FirstName     string     `db:"first_name" json:"first_name"`
	BirthDate     *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Gender        string     `db:"gender" json:"gender"`
	Address       string     `db:"address" json:"address"`
	Phone         string     `db:"phone" json:"phone"`
	Email         string     `db:"email" json:"email"`
	Active        bool       `db:"active" json:"active"`
	EnrolledAt    time.Time  `db:"enrolled_at" json:"enrolled_at"`
}

// StudentDetail adds the class label to a student.
type StudentDetail struct {
	Student
	ClassName string `db:"class_name" json:"class_name"`
}

// StudentProfile is the detail view of a student: every grade, newest first, and
// the coefficient-weighted average over all of them. Average is nil without grades.
type StudentProfile struct {
	StudentDetail
	Grades  []GradeDetail `json:"grades"`
	Average *float64      `json:"average"`
	Mention string        `json:"mention"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	ClassID  string
	Active   *bool
	Search   string
	Page     int
	PageSize int
}

// StudentRequest is the create/update payload.
type StudentRequest struct {
	ClassID       string `json:"class_id" validate:"required"`
	StudentNumber string `json:"student_number" validate:"required,max=20"`
	LastName      string `json:"last_name" validate:"required,max=100"`
	FirstName     string `json:"first_name" validate:"required,max=100"`
	BirthDate     string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Gender        string `json:"gender" validate:"required,oneof=M F"`
	Address       string `json:"address" validate:"max=255"`
	Phone         string `json:"phone" validate:"max=20"`
	Email         string `json:"email" validate:"omitempty,email"`
}
