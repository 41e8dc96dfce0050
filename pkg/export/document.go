package export

import (
	"strings"
	"time"
	"unicode"
)

const (
	ContentTypeZip  = "application/zip"
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Document is a fully assembled binary artifact ready to be sent to a client.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ClassReport is the render input for one class, semester and academic year.
// Students are in class order (surname, given name).
type ClassReport struct {
	SchoolName   string
	ClassName    string
	Semester     string
	AcademicYear string
	GeneratedAt  time.Time
	Students     []StudentReport
}

// StudentReport carries one student's computed results.
type StudentReport struct {
	StudentNumber string
	LastName      string
	FirstName     string
	Lines         []GradeLine
	// Average is nil when the student has no weighted grades.
	Average      *float64
	Mention      string
	MentionText  string
	Appreciation string
	Rank         *int
	ClassSize    int
}

// FullName returns "SURNAME Given".
func (s StudentReport) FullName() string {
	return strings.TrimSpace(strings.ToUpper(s.LastName) + " " + s.FirstName)
}

// GradeLine is one evaluation as shown on a report card.
type GradeLine struct {
	SubjectName string
	SubjectCode string
	Score       float64
	MaxScore    float64
	Normalized  float64
	Kind        string
	Coefficient float64
	EvaluatedOn time.Time
}

// SafeFilePart replaces everything except letters, digits and '-' with '_'.
func SafeFilePart(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return r
		}
		return '_'
	}, strings.TrimSpace(value))
}
