package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/straye-as/pipeline-api/internal/domain"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrNoOrganization = errors.New("token carries no organization")
	ErrMissingSecret  = errors.New("jwt secret not configured")
)

const defaultOrgClaimKey = "organization_id"

// JWTValidator validates HS256 access tokens issued by the hosted identity provider
type JWTValidator struct {
	config *config.AuthConfig
}

// NewJWTValidator creates a new JWT validator
func NewJWTValidator(cfg *config.AuthConfig) *JWTValidator {
	return &JWTValidator{config: cfg}
}

// ValidateToken validates a JWT token and returns user context
func (v *JWTValidator) ValidateToken(tokenString string) (*UserContext, error) {
	if v.config.JWTSecret == "" {
		return nil, ErrMissingSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.config.Audience))
	}

	claims := jwt.MapClaims{}
	parsedToken, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(v.config.JWTSecret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsedToken.Valid {
		return nil, ErrInvalidToken
	}

	userCtx := &UserContext{
		DisplayName: extractString(claims, "name", "full_name", "preferred_username"),
		Email:       extractString(claims, "email"),
		Roles:       ExtractRoles(claims),
	}
	if userCtx.DisplayName == "" {
		userCtx.DisplayName = extractNestedString(claims, "user_metadata", "full_name", "name")
	}

	if sub := extractString(claims, "sub"); sub != "" {
		if uid, err := uuid.Parse(sub); err == nil {
			userCtx.UserID = uid
		}
	}
	// If no user ID, derive a stable one from email
	if userCtx.UserID == uuid.Nil && userCtx.Email != "" {
		userCtx.UserID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(userCtx.Email))
	}
	if userCtx.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	orgID, err := v.extractOrganization(claims)
	if err != nil {
		return nil, err
	}
	userCtx.OrganizationID = orgID

	return userCtx, nil
}

func (v *JWTValidator) extractOrganization(claims jwt.MapClaims) (uuid.UUID, error) {
	key := v.config.OrganizationClaim
	if key == "" {
		key = defaultOrgClaimKey
	}

	raw := extractString(claims, key)
	if raw == "" {
		raw = extractNestedString(claims, "app_metadata", key)
	}
	if raw == "" {
		return uuid.Nil, ErrNoOrganization
	}

	orgID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed %s", ErrInvalidToken, key)
	}
	return orgID, nil
}

func extractString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if val, ok := claims[key]; ok {
			if str, ok := val.(string); ok && str != "" {
				return str
			}
		}
	}
	return ""
}

func extractNestedString(claims jwt.MapClaims, parent string, keys ...string) string {
	nested, ok := claims[parent].(map[string]interface{})
	if !ok {
		return ""
	}
	return extractString(jwt.MapClaims(nested), keys...)
}

// ExtractRoles extracts roles from JWT claims and returns them as UserRoleType.
// Top-level "roles"/"role" claims are read first, then app_metadata.
func ExtractRoles(claims jwt.MapClaims) []domain.UserRoleType {
	roles := []domain.UserRoleType{}

	sources := []jwt.MapClaims{claims}
	if meta, ok := claims["app_metadata"].(map[string]interface{}); ok {
		sources = append(sources, jwt.MapClaims(meta))
	}

	for _, src := range sources {
		for _, key := range []string{"roles", "role"} {
			val, ok := src[key]
			if !ok {
				continue
			}
			switch v := val.(type) {
			case []interface{}:
				for _, r := range v {
					if str, ok := r.(string); ok {
						roles = appendRole(roles, str)
					}
				}
			case []string:
				for _, str := range v {
					roles = appendRole(roles, str)
				}
			case string:
				roles = appendRole(roles, v)
			}
		}
	}

	return roles
}

// appendRole skips the identity provider's generic session roles
func appendRole(roles []domain.UserRoleType, role string) []domain.UserRoleType {
	role = strings.TrimSpace(role)
	if role == "" || role == "authenticated" || role == "anon" {
		return roles
	}
	for _, r := range roles {
		if string(r) == role {
			return roles
		}
	}
	return append(roles, domain.UserRoleType(role))
}
