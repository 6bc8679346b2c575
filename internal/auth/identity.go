package auth

import (
	"strings"

	"github.com/cityreport/incident-service/internal/domain"
	apperrors "github.com/cityreport/incident-service/pkg/util/errorutil"
)

// AuthContext is what a request carries about its caller: either claims
// already verified upstream or a bearer token that still needs decoding.
type AuthContext interface {
	isAuthContext()
}

// VerifiedClaims are claims whose signature was checked before reaching us.
type VerifiedClaims map[string]any

// RawToken is a compact JWT whose payload is decoded without verification.
type RawToken string

func (VerifiedClaims) isAuthContext() {}
func (RawToken) isAuthContext()       {}

// Resolver turns an AuthContext into a Caller.
type Resolver struct {
	tokens *TokenManager
}

// NewResolver constructs a resolver.
func NewResolver(tokens *TokenManager) *Resolver {
	return &Resolver{tokens: tokens}
}

// Resolve returns the caller identity. A nil context or one without a
// subject is Unauthorized; an undecodable token is InvalidToken.
func (r *Resolver) Resolve(ac AuthContext) (domain.Caller, error) {
	switch v := ac.(type) {
	case VerifiedClaims:
		return callerFromClaims(v)
	case RawToken:
		token := strings.TrimSpace(string(v))
		if token == "" {
			return domain.Caller{}, apperrors.NewUnauthorized("missing identity")
		}
		claims, err := r.tokens.DecodeUnverified(token)
		if err != nil {
			return domain.Caller{}, apperrors.NewInvalidToken(err)
		}
		return callerFromClaims(claims)
	default:
		return domain.Caller{}, apperrors.NewUnauthorized("missing identity")
	}
}

func callerFromClaims(claims map[string]any) (domain.Caller, error) {
	if len(claims) == 0 {
		return domain.Caller{}, apperrors.NewUnauthorized("missing identity")
	}
	id := stringClaim(claims, ClaimSubject)
	if id == "" {
		return domain.Caller{}, apperrors.NewUnauthorized("token has no subject")
	}

	caller := domain.Caller{
		ID:     id,
		Email:  stringClaim(claims, ClaimEmail),
		Region: stringClaim(claims, ClaimRegion),
	}
	if caller.Region == "" {
		caller.Region = stringClaim(claims, ClaimRegionV2)
	}

	seen := make(map[string]struct{})
	for _, key := range []string{ClaimGroups, ClaimGroupsV2} {
		for _, g := range listClaim(claims[key]) {
			if _, dup := seen[g]; dup {
				continue
			}
			seen[g] = struct{}{}
			caller.Groups = append(caller.Groups, g)
		}
	}
	return caller, nil
}

func stringClaim(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return strings.TrimSpace(s)
}

// listClaim accepts a JSON list or a comma separated string.
func listClaim(v any) []string {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = strings.Split(t, ",")
	case []string:
		raw = t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
