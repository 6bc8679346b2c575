package errorutil_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/cityreport/incident-service/pkg/util/errorutil"
)

func TestConstructorsCarryCodeAndStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"validation", apperrors.NewValidationError("bad", nil), apperrors.CodeValidation, http.StatusBadRequest},
		{"not found", apperrors.NewNotFound("incident", nil), apperrors.CodeNotFound, http.StatusNotFound},
		{"unauthorized", apperrors.NewUnauthorized("no identity"), apperrors.CodeUnauthorized, http.StatusUnauthorized},
		{"invalid token", apperrors.NewInvalidToken(errors.New("bad base64")), apperrors.CodeInvalidToken, http.StatusUnauthorized},
		{"forbidden", apperrors.NewForbidden("nope"), apperrors.CodeForbidden, http.StatusForbidden},
		{"dependency", apperrors.NewDependencyError("repository", errors.New("conn reset")), apperrors.CodeDependency, http.StatusInternalServerError},
		{"internal", apperrors.NewInternalError(errors.New("boom")), apperrors.CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			domainErr := apperrors.ToDomainError(tt.err)
			require.NotNil(t, domainErr)
			assert.Equal(t, tt.code, domainErr.Code)
			assert.Equal(t, tt.status, domainErr.HTTPStatus)
			assert.True(t, apperrors.HasCode(tt.err, tt.code))
		})
	}
}

func TestNotFoundMessage(t *testing.T) {
	domainErr := apperrors.ToDomainError(apperrors.NewNotFound("incident", nil))
	assert.Equal(t, "incident not found", domainErr.Message)
	assert.NotNil(t, domainErr.Details)
}

func TestDependencyErrorHidesCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := apperrors.NewDependencyError("storage", cause)

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "internal server error", domainErr.Message)
	assert.Equal(t, "storage", domainErr.Details["dependency"])
	assert.ErrorIs(t, err, cause)
}

func TestToDomainError(t *testing.T) {
	assert.Nil(t, apperrors.ToDomainError(nil))

	plain := apperrors.ToDomainError(errors.New("unexpected"))
	assert.Equal(t, apperrors.CodeInternal, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.HTTPStatus)

	wrapped := fmt.Errorf("transition: %w", apperrors.NewForbidden("region mismatch"))
	assert.Equal(t, apperrors.CodeForbidden, apperrors.ToDomainError(wrapped).Code)
	assert.True(t, apperrors.HasCode(wrapped, apperrors.CodeForbidden))
	assert.False(t, apperrors.HasCode(wrapped, apperrors.CodeNotFound))
	assert.False(t, apperrors.HasCode(errors.New("plain"), apperrors.CodeInternal))
}
