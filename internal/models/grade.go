package models

import "time"

// EvaluationKind categorises an assessment.
type EvaluationKind string

const (
	KindWrittenTest EvaluationKind = "DS"
	KindContinuous  EvaluationKind = "CC"
	KindExam        EvaluationKind = "EX"
	KindPractical   EvaluationKind = "TP"
	KindOral        EvaluationKind = "OR"
)

var kindLabels = map[EvaluationKind]string{
	KindWrittenTest: "Written Test",
	KindContinuous:  "Continuous Assessment",
	KindExam:        "Exam",
	KindPractical:   "Practical Work",
	KindOral:        "Oral",
}

// Valid reports whether the kind is one of the known codes.
func (k EvaluationKind) Valid() bool {
	_, ok := kindLabels[k]
	return ok
}

// Label returns the display name, falling back to the raw code.
func (k EvaluationKind) Label() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return string(k)
}

// DefaultMaxScore is used when an entry does not state its maximum.
const DefaultMaxScore = 20.0

// Grade is one evaluation result for a student in a subject.
type Grade struct {
	ID           string         `db:"id" json:"id"`
	AccountID    string         `db:"account_id" json:"-"`
	StudentID    string         `db:"student_id" json:"student_id"`
	SubjectID    string         `db:"subject_id" json:"subject_id"`
	Score        float64        `db:"score" json:"score"`
	MaxScore     float64        `db:"max_score" json:"max_score"`
	Kind         EvaluationKind `db:"kind" json:"kind"`
	EvaluatedOn  time.Time      `db:"evaluated_on" json:"evaluated_on"`
	Semester     string         `db:"semester" json:"semester"`
	AcademicYear string         `db:"academic_year" json:"academic_year"`
	Comment      string         `db:"comment" json:"comment"`
	ModifiedBy   *string        `db:"modified_by" json:"modified_by,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// GradeDetail joins a grade with its subject, as needed to weight it.
type GradeDetail struct {
	Grade
	SubjectName string  `db:"subject_name" json:"subject_name"`
	SubjectCode string  `db:"subject_code" json:"subject_code"`
	Coefficient float64 `db:"coefficient" json:"coefficient"`
}

// GradeFilter allows querying of grade entries.
type GradeFilter struct {
	StudentID    string
	SubjectID    string
	ClassID      string
	Semester     string
	AcademicYear string
	Page         int
	PageSize     int
}

// GradeRequest is the create/update payload for one grade.
type GradeRequest struct {
	StudentID    string         `json:"student_id" validate:"required"`
	SubjectID    string         `json:"subject_id" validate:"required"`
	Score        float64        `json:"score" validate:"gte=0"`
	MaxScore     float64        `json:"max_score" validate:"omitempty,gt=0"`
	Kind         EvaluationKind `json:"kind" validate:"required,oneof=DS CC EX TP OR"`
	EvaluatedOn  string         `json:"evaluated_on" validate:"required,datetime=2006-01-02"`
	Semester     string         `json:"semester" validate:"required,max=10"`
	AcademicYear string         `json:"academic_year" validate:"required,max=9"`
	Comment      string         `json:"comment"`
}

// BulkGradeRequest enters one assessment for several students of a class at once.
type BulkGradeRequest struct {
	ClassID      string           `json:"class_id" validate:"required"`
	SubjectID    string           `json:"subject_id" validate:"required"`
	MaxScore     float64          `json:"max_score" validate:"omitempty,gt=0"`
	Kind         EvaluationKind   `json:"kind" validate:"required,oneof=DS CC EX TP OR"`
	EvaluatedOn  string           `json:"evaluated_on" validate:"required,datetime=2006-01-02"`
	Semester     string           `json:"semester" validate:"required,max=10"`
	AcademicYear string           `json:"academic_year" validate:"required,max=9"`
	Entries      []BulkGradeEntry `json:"entries" validate:"required,min=1,dive"`
}

// BulkGradeEntry is one student's score; a nil score is skipped.
type BulkGradeEntry struct {
	StudentID string   `json:"student_id" validate:"required"`
	Score     *float64 `json:"score"`
	Comment   string   `json:"comment"`
}
