package dto

import "github.com/noah-isme/sma-bulletin-api/internal/models"

// GenerateBulletinsRequest captures POST /bulletins/generate payload.
type GenerateBulletinsRequest struct {
	AccountID    string                `json:"-"`
	ClassID      string                `json:"class_id" validate:"required"`
	Semester     string                `json:"semester" validate:"required,max=10"`
	AcademicYear string                `json:"academic_year" validate:"required,max=9"`
	Format       models.BulletinFormat `json:"format" validate:"required,oneof=pdf pdf_grouped excel"`
}

// SetAppreciationRequest updates the free-text appreciation of one bulletin.
type SetAppreciationRequest struct {
	Appreciation string `json:"appreciation" validate:"max=2000"`
}
