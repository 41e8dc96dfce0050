package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/service"
	"github.com/noah-isme/sma-bulletin-api/pkg/response"
)

// GradeHandler exposes grade entry endpoints.
type GradeHandler struct {
	grades *service.GradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades *service.GradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// List godoc
// @Summary List grades
// @Tags Grades
// @Produce json
// @Param student_id query string false "Student"
// @Param subject_id query string false "Subject"
// @Param class_id query string false "Class"
// @Param semester query string false "Semester"
// @Param academic_year query string false "Academic year"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}
	filter := models.GradeFilter{
		StudentID:    c.Query("student_id"),
		SubjectID:    c.Query("subject_id"),
		ClassID:      c.Query("class_id"),
		Semester:     c.Query("semester"),
		AcademicYear: c.Query("academic_year"),
	}
	filter.Page, filter.PageSize = pageParams(c)
	grades, pagination, err := h.grades.List(c.Request.Context(), claims.AccountID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, pagination)
}

// Create godoc
// @Summary Record a grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body models.GradeRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /grades [post]
func (h *GradeHandler) Create(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}
	var req models.GradeRequest
	if !bindJSON(c, &req) {
		return
	}
	grade, err := h.grades.Create(c.Request.Context(), claims.AccountID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grade)
}

// Bulk godoc
// @Summary Enter one assessment for a class
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body models.BulkGradeRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /grades/bulk [post]
func (h *GradeHandler) Bulk(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}
	var req models.BulkGradeRequest
	if !bindJSON(c, &req) {
		return
	}
	results, err := h.grades.Bulk(c.Request.Context(), claims.AccountID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// Update godoc
// @Summary Correct a grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Grade ID"
// @Param payload body models.GradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /grades/{id} [put]
func (h *GradeHandler) Update(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}
	var req models.GradeRequest
	if !bindJSON(c, &req) {
		return
	}
	grade, err := h.grades.Update(c.Request.Context(), claims.AccountID, claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// Delete godoc
// @Summary Delete a grade
// @Tags Grades
// @Param id path string true "Grade ID"
// @Success 204
// @Security BearerAuth
// @Router /grades/{id} [delete]
func (h *GradeHandler) Delete(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}
	if err := h.grades.Delete(c.Request.Context(), claims.AccountID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
