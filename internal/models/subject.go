package models

// Subject is a taught discipline whose coefficient weights the general average.
type Subject struct {
	ID          string  `db:"id" json:"id"`
	AccountID   string  `db:"account_id" json:"-"`
	Name        string  `db:"name" json:"name"`
	Code        string  `db:"code" json:"code"`
	Coefficient float64 `db:"coefficient" json:"coefficient"`
	Description string  `db:"description" json:"description"`
	TeacherID   *string `db:"teacher_id" json:"teacher_id,omitempty"`
	Active      bool    `db:"active" json:"active"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Active    *bool
	TeacherID string
	Search    string
}

// SubjectRequest is the create/update payload.
type SubjectRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Code        string  `json:"code" validate:"required,max=10"`
	Coefficient float64 `json:"coefficient" validate:"gte=0.5,lte=10"`
	Description string  `json:"description"`
	TeacherID   *string `json:"teacher_id"`
}
