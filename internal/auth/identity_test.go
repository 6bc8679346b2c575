package auth

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityreport/incident-service/internal/domain"
	apperrors "github.com/cityreport/incident-service/pkg/util/errorutil"
)

func TestResolveVerifiedClaims(t *testing.T) {
	r := NewResolver(NewTokenManager("", time.Hour))

	caller, err := r.Resolve(VerifiedClaims{
		"sub":            "u-1",
		"email":          "ana@city.gov",
		"cognito:groups": []any{"cityAuth", "admin"},
		"groups":         "cityAuth, Reviewers",
		"custom:region":  "North",
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", caller.ID)
	assert.Equal(t, "ana@city.gov", caller.Email)
	assert.Equal(t, "North", caller.Region)
	assert.Equal(t, []string{"cityAuth", "admin", "Reviewers"}, caller.Groups)
}

func TestResolveGroupsAsCommaString(t *testing.T) {
	r := NewResolver(NewTokenManager("", time.Hour))

	caller, err := r.Resolve(VerifiedClaims{"sub": "u-2", "cognito:groups": "Admin", "region": "South"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Admin"}, caller.Groups)
	assert.Equal(t, "South", caller.Region)
}

func TestResolveRawToken(t *testing.T) {
	issuer := NewTokenManager("signing-secret", time.Hour)
	token, _, err := issuer.GenerateToken(domain.Caller{ID: "citizen-7", Email: "c7@mail.test", Groups: []string{"Citizens"}})
	require.NoError(t, err)

	// A resolver without the secret still decodes the payload.
	r := NewResolver(NewTokenManager("", time.Hour))
	caller, err := r.Resolve(RawToken(token))
	require.NoError(t, err)
	assert.Equal(t, "citizen-7", caller.ID)
	assert.Equal(t, "c7@mail.test", caller.Email)
	assert.Equal(t, []string{"Citizens"}, caller.Groups)
}

func TestResolveFailures(t *testing.T) {
	r := NewResolver(NewTokenManager("", time.Hour))

	_, err := r.Resolve(nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, err = r.Resolve(RawToken(""))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, err = r.Resolve(RawToken("not-a-jwt"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidToken))

	garbage := "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString([]byte("{oops")) + ".sig"
	_, err = r.Resolve(RawToken(garbage))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidToken))

	_, err = r.Resolve(VerifiedClaims{"email": "nobody@mail.test"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}

func TestTokenManagerVerifies(t *testing.T) {
	tm := NewTokenManager("s3cret", time.Minute)
	token, exp, err := tm.GenerateToken(domain.Caller{ID: "u-9", Region: "East"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-9", claims["sub"])
	assert.Equal(t, "East", claims["custom:region"])

	_, err = NewTokenManager("other", time.Minute).ParseToken(token)
	assert.Error(t, err)
}
