package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-api/internal/dto"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/response"
)

type importService interface {
	Import(ctx context.Context, req dto.ImportRequest) (*models.RowResults, error)
}

// ImportHandler accepts spreadsheet uploads.
type ImportHandler struct {
	imports importService
	maxSize int64
}

// NewImportHandler constructs ImportHandler.
func NewImportHandler(imports importService, maxSize int64) *ImportHandler {
	return &ImportHandler{imports: imports, maxSize: maxSize}
}

// Import godoc
// @Summary Import records from a spreadsheet
// @Description Accepts .csv or .xlsx. Each data row is reported as success, skipped or failed.
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param kind path string true "students, subjects or classes"
// @Param file formData file true "Spreadsheet"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /imports/{kind} [post]
func (h *ImportHandler) Import(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	if h.maxSize > 0 && fileHeader.Size > h.maxSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", h.maxSize)))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file"))
		return
	}

	results, err := h.imports.Import(c.Request.Context(), dto.ImportRequest{
		AccountID: claims.AccountID,
		Kind:      models.ImportKind(c.Param("kind")),
		Filename:  fileHeader.Filename,
		Data:      data,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}
