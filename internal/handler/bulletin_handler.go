package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-api/internal/dto"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/service"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/export"
	"github.com/noah-isme/sma-bulletin-api/pkg/response"
)

// ArchiveURLHeader carries the signed link of the archived copy of a generated document.
const ArchiveURLHeader = "X-Archive-URL"

type bulletinService interface {
	Generate(ctx context.Context, req dto.GenerateBulletinsRequest, actorID string) (*service.GenerationResult, error)
	List(ctx context.Context, accountID string, filter models.BulletinFilter) ([]models.BulletinDetail, error)
	SetAppreciation(ctx context.Context, accountID, id string, req dto.SetAppreciationRequest) error
}

// ArchiveOpener serves archived documents behind signed tokens.
type ArchiveOpener interface {
	Open(token string) (*export.Document, error)
}

// BulletinHandler exposes report card generation.
type BulletinHandler struct {
	bulletins bulletinService
	archive   ArchiveOpener
}

// NewBulletinHandler constructs BulletinHandler. archive may be nil when archiving is off.
func NewBulletinHandler(bulletins bulletinService, archive ArchiveOpener) *BulletinHandler {
	return &BulletinHandler{bulletins: bulletins, archive: archive}
}

// Generate godoc
// @Summary Generate class bulletins
// @Description Computes averages and ranks for every active student of the class, stores them, and returns a zip of PDFs, one combined PDF or a workbook.
// @Tags Bulletins
// @Accept json
// @Produce application/zip,application/pdf,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param payload body dto.GenerateBulletinsRequest true "Generation request"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Security BearerAuth
// @Router /bulletins/generate [post]
func (h *BulletinHandler) Generate(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}
	var req dto.GenerateBulletinsRequest
	if !bindJSON(c, &req) {
		return
	}
	req.AccountID = claims.AccountID

	result, err := h.bulletins.Generate(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Archive != nil {
		c.Header(ArchiveURLHeader, result.Archive.URL)
	}
	doc := result.Document
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Data)
}

// List godoc
// @Summary List stored bulletins
// @Tags Bulletins
// @Produce json
// @Param class_id query string true "Class"
// @Param semester query string true "Semester"
// @Param academic_year query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /bulletins [get]
func (h *BulletinHandler) List(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}
	filter := models.BulletinFilter{
		ClassID:      strings.TrimSpace(c.Query("class_id")),
		Semester:     strings.TrimSpace(c.Query("semester")),
		AcademicYear: strings.TrimSpace(c.Query("academic_year")),
	}
	bulletins, err := h.bulletins.List(c.Request.Context(), claims.AccountID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bulletins, nil)
}

// SetAppreciation godoc
// @Summary Set the appreciation of a bulletin
// @Tags Bulletins
// @Accept json
// @Param id path string true "Bulletin ID"
// @Param payload body dto.SetAppreciationRequest true "Appreciation"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /bulletins/{id}/appreciation [patch]
func (h *BulletinHandler) SetAppreciation(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}
	var req dto.SetAppreciationRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.bulletins.SetAppreciation(c.Request.Context(), claims.AccountID, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DownloadArchive godoc
// @Summary Download an archived bulletin document
// @Tags Bulletins
// @Produce application/octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /bulletins/archive/{token} [get]
func (h *BulletinHandler) DownloadArchive(c *gin.Context) {
	if h.archive == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "bulletin archive is disabled"))
		return
	}
	doc, err := h.archive.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Data)
}
