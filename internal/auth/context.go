package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/domain"
)

// UserContext holds authenticated user information
type UserContext struct {
	UserID         uuid.UUID
	DisplayName    string
	Email          string
	Roles          []domain.UserRoleType
	OrganizationID uuid.UUID
}

type contextKey string

const userContextKey contextKey = "userContext"

// SystemUserID identifies API key callers and background jobs
var SystemUserID = uuid.MustParse("00000000-0000-0000-0000-000000000000")

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// MustFromContext extracts user context or panics
func MustFromContext(ctx context.Context) *UserContext {
	user, ok := FromContext(ctx)
	if !ok {
		panic("user context not found in context")
	}
	return user
}

// SystemContext returns a context acting as the system user inside one organization.
// Background jobs use it to reach tenant-scoped repositories.
func SystemContext(ctx context.Context, orgID uuid.UUID) context.Context {
	return WithUserContext(ctx, &UserContext{
		UserID:         SystemUserID,
		DisplayName:    "System",
		Email:          "system@pipeline.local",
		Roles:          []domain.UserRoleType{domain.RoleAPIService},
		OrganizationID: orgID,
	})
}

// OrganizationFromContext returns the organization the caller acts in
func OrganizationFromContext(ctx context.Context) (uuid.UUID, bool) {
	user, ok := FromContext(ctx)
	if !ok || user.OrganizationID == uuid.Nil {
		return uuid.Nil, false
	}
	return user.OrganizationID, true
}

// HasRole checks if user has a specific role
func (u *UserContext) HasRole(role domain.UserRoleType) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks if user has any of the specified roles
func (u *UserContext) HasAnyRole(roles ...domain.UserRoleType) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// IsOrgAdmin checks if user administers their organization
func (u *UserContext) IsOrgAdmin() bool {
	return u.HasRole(domain.RoleOrgAdmin)
}

var rolePermissions = map[domain.UserRoleType][]domain.PermissionType{
	domain.RoleManager: {
		domain.PermissionDealsRead, domain.PermissionDealsWrite, domain.PermissionDealsDelete,
		domain.PermissionPipelineRead, domain.PermissionQuotesConvert,
		domain.PermissionFinancialsRead,
	},
	domain.RoleSales: {
		domain.PermissionDealsRead, domain.PermissionDealsWrite,
		domain.PermissionPipelineRead, domain.PermissionQuotesConvert,
	},
	domain.RoleLoanOfficer: {
		domain.PermissionDealsRead, domain.PermissionDealsWrite,
		domain.PermissionPipelineRead,
		domain.PermissionFinancialsRead,
	},
	domain.RoleViewer: {
		domain.PermissionDealsRead,
		domain.PermissionPipelineRead,
	},
	domain.RoleAPIService: {
		domain.PermissionDealsRead, domain.PermissionDealsWrite,
		domain.PermissionPipelineRead, domain.PermissionQuotesConvert,
		domain.PermissionFinancialsRead,
	},
}

// HasPermission checks if any of the user's roles grants a permission.
// Organization admins hold every permission.
func (u *UserContext) HasPermission(permission domain.PermissionType) bool {
	if u.IsOrgAdmin() {
		return true
	}
	for _, role := range u.Roles {
		for _, p := range rolePermissions[role] {
			if p == permission {
				return true
			}
		}
	}
	return false
}

// RolesAsStrings returns roles as a slice of strings
func (u *UserContext) RolesAsStrings() []string {
	result := make([]string, len(u.Roles))
	for i, role := range u.Roles {
		result[i] = string(role)
	}
	return result
}

// ActorName returns the best human-readable name for audit columns
func (u *UserContext) ActorName() string {
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	return u.Email
}
