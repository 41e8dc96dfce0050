package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("generate: %w", Clone(ErrEmptyClass, "class 6A has no students"))

	appErr := FromError(wrapped)

	assert.Equal(t, "EMPTY_CLASS", appErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
	assert.Equal(t, "class 6A has no students", appErr.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(stdErrors.New("boom"))

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}

func TestIsMatchesByCode(t *testing.T) {
	err := Wrap(stdErrors.New("pdf: bad font"), ErrRenderFailure.Code, ErrRenderFailure.Status, "render student")

	assert.True(t, stdErrors.Is(err, ErrRenderFailure))
	assert.False(t, stdErrors.Is(err, ErrEmptyClass))
	assert.Contains(t, err.Error(), "bad font")
}
