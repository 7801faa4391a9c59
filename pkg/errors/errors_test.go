package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(stdErrors.New("db exploded"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, ErrInternal.Message, appErr.Message)
}

func TestFromErrorKeepsTypedError(t *testing.T) {
	wrapped := fmt.Errorf("load quiz: %w", Clone(ErrNotFound, "quiz not found"))
	appErr := FromError(wrapped)
	assert.Equal(t, ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "quiz not found", appErr.Message)
}

func TestIsComparesCodes(t *testing.T) {
	err := Wrap(stdErrors.New("boom"), ErrTransaction.Code, ErrTransaction.Status, "quiz submission failed")
	assert.True(t, Is(err, ErrTransaction))
	assert.False(t, Is(err, ErrInternal))
	assert.False(t, Is(nil, ErrInternal))
}

func TestCloneDoesNotMutateSentinel(t *testing.T) {
	clone := Clone(ErrForbidden, "not enrolled")
	assert.Equal(t, "not enrolled", clone.Message)
	assert.Equal(t, "forbidden", ErrForbidden.Message)
}
