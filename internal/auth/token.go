package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/cityreport/incident-service/internal/domain"
)

// Claim names read from identity-provider tokens.
const (
	ClaimSubject  = "sub"
	ClaimEmail    = "email"
	ClaimGroups   = "cognito:groups"
	ClaimGroupsV2 = "groups"
	ClaimRegion   = "custom:region"
	ClaimRegionV2 = "region"
)

// TokenManager verifies and decodes bearer tokens. Without a secret it can
// only decode payloads.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, parser: jwt.NewParser()}
}

// CanVerify reports whether signatures can be checked.
func (tm *TokenManager) CanVerify() bool {
	return len(tm.secret) > 0
}

// GenerateToken signs a token carrying the caller's identity claims.
func (tm *TokenManager) GenerateToken(caller domain.Caller) (string, time.Time, error) {
	if !tm.CanVerify() {
		return "", time.Time{}, errors.New("token secret not configured")
	}
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := jwt.MapClaims{
		ClaimSubject: caller.ID,
		"iat":        now.Unix(),
		"exp":        expiresAt.Unix(),
	}
	if caller.Email != "" {
		claims[ClaimEmail] = caller.Email
	}
	if len(caller.Groups) > 0 {
		claims[ClaimGroups] = caller.Groups
	}
	if caller.Region != "" {
		claims[ClaimRegion] = caller.Region
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates the signature and expiry and returns the claims.
func (tm *TokenManager) ParseToken(tokenStr string) (map[string]any, error) {
	if !tm.CanVerify() {
		return nil, errors.New("token secret not configured")
	}
	parsed, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// DecodeUnverified returns the payload of a compact JWT without checking
// its signature.
func (tm *TokenManager) DecodeUnverified(tokenStr string) (map[string]any, error) {
	parsed, _, err := tm.parser.ParseUnverified(tokenStr, jwt.MapClaims{})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
