package models

import "time"

// BulletinFormat selects the generated document type.
type BulletinFormat string

const (
	// BulletinFormatPDF zips one PDF per student.
	BulletinFormatPDF BulletinFormat = "pdf"
	// BulletinFormatPDFGrouped is one PDF with a page per student.
	BulletinFormatPDFGrouped BulletinFormat = "pdf_grouped"
	// BulletinFormatExcel is a multi-sheet workbook.
	BulletinFormatExcel BulletinFormat = "excel"
)

// Bulletin is the persisted result of a generation for one student, semester and year.
type Bulletin struct {
	ID           string    `db:"id" json:"id"`
	AccountID    string    `db:"account_id" json:"-"`
	StudentID    string    `db:"student_id" json:"student_id"`
	Semester     string    `db:"semester" json:"semester"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	Average      *float64  `db:"average" json:"average"`
	Rank         *int      `db:"rank" json:"rank"`
	ClassSize    *int      `db:"class_size" json:"class_size"`
	Appreciation string    `db:"appreciation" json:"appreciation"`
	GeneratedAt  time.Time `db:"generated_at" json:"generated_at"`
	GeneratedBy  *string   `db:"generated_by" json:"generated_by,omitempty"`
}

// BulletinDetail adds student identity for listings.
type BulletinDetail struct {
	Bulletin
	StudentNumber string `db:"student_number" json:"student_number"`
	LastName      string `db:"last_name" json:"last_name"`
	FirstName     string `db:"first_name" json:"first_name"`
}

// BulletinFilter scopes bulletin listings to one class and period.
type BulletinFilter struct {
	ClassID      string
	Semester     string
	AcademicYear string
}
