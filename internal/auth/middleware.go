package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/cityreport/incident-service/internal/domain"
	apperrors "github.com/cityreport/incident-service/pkg/util/errorutil"
)

const callerKey = "auth_caller"

var errMalformedClaims = errors.New("malformed claims header")

// AuthMiddleware resolves the caller for protected routes.
type AuthMiddleware struct {
	tokens       *TokenManager
	resolver     *Resolver
	claimsHeader string
}

// NewAuthMiddleware constructs middleware. claimsHeader names the header an
// upstream gateway uses to forward verified claims.
func NewAuthMiddleware(tokens *TokenManager, claimsHeader string) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, resolver: NewResolver(tokens), claimsHeader: claimsHeader}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	ac, err := m.authContext(c)
	if err != nil {
		return err
	}
	caller, err := m.resolver.Resolve(ac)
	if err != nil {
		return err
	}
	c.Locals(callerKey, caller)
	return c.Next()
}

func (m *AuthMiddleware) authContext(c *fiber.Ctx) (AuthContext, error) {
	if m.claimsHeader != "" {
		if raw := c.Get(m.claimsHeader); raw != "" {
			claims, err := decodeClaimsHeader(raw)
			if err != nil {
				return nil, apperrors.NewInvalidToken(err)
			}
			return VerifiedClaims(claims), nil
		}
	}

	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return nil, nil
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, apperrors.NewUnauthorized("invalid authorization header")
	}

	token := strings.TrimSpace(parts[1])
	if m.tokens.CanVerify() {
		claims, err := m.tokens.ParseToken(token)
		if err != nil {
			return nil, apperrors.NewInvalidToken(err)
		}
		return VerifiedClaims(claims), nil
	}
	return RawToken(token), nil
}

// decodeClaimsHeader accepts base64url (padded or not) or plain JSON.
func decodeClaimsHeader(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	payload := []byte(raw)
	if !strings.HasPrefix(raw, "{") {
		decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
		if err != nil {
			return nil, errors.Join(errMalformedClaims, err)
		}
		payload = decoded
	}
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, errors.Join(errMalformedClaims, err)
	}
	return claims, nil
}

// CallerFromContext retrieves the authenticated caller.
func CallerFromContext(c *fiber.Ctx) (domain.Caller, bool) {
	caller, ok := c.Locals(callerKey).(domain.Caller)
	return caller, ok
}
