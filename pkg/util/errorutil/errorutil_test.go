package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorKeepsDomainErrors(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", NewValidationError("tax id already registered", nil))

	domainErr := ToDomainError(wrapped)
	require.NotNil(t, domainErr)
	assert.Equal(t, CodeValidation, domainErr.Code)
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus)
}

func TestToDomainErrorWrapsUnknownAsInternal(t *testing.T) {
	cause := errors.New("boom")

	domainErr := ToDomainError(cause)
	assert.Equal(t, CodeInternal, domainErr.Code)
	assert.ErrorIs(t, domainErr, cause)
	assert.Nil(t, ToDomainError(nil))
	assert.NoError(t, MapError(nil))
}

func TestClassifiers(t *testing.T) {
	assert.True(t, IsValidation(NewValidationError("x", nil)))
	assert.True(t, IsNotFound(NewNotFound("opportunity", nil)))
	assert.True(t, IsForbidden(NewInsufficientTier(nil)))
	assert.True(t, IsForbidden(NewScopeMismatch(nil)))

	assert.False(t, IsForbidden(NewValidationError("x", nil)))
	assert.False(t, IsValidation(errors.New("plain")))
	assert.Equal(t, "opportunity not found", NewNotFound("opportunity", nil).Error())
}
