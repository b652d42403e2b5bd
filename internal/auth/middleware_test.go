package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/auth"
	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAPIKey = "test-api-key-12345"

func newMiddleware() *auth.Middleware {
	return auth.NewMiddleware(&config.Config{
		Auth:   config.AuthConfig{JWTSecret: testSecret},
		ApiKey: config.ApiKeyConfig{Value: testAPIKey},
	}, zap.NewNop())
}

// capture runs the authenticated handler chain and returns the user it saw
func capture(t *testing.T, mw *auth.Middleware, req *http.Request) (*httptest.ResponseRecorder, *auth.UserContext) {
	t.Helper()
	var seen *auth.UserContext
	h := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddleware_APIKey(t *testing.T) {
	mw := newMiddleware()
	orgID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/deals", nil)
	req.Header.Set("x-api-key", testAPIKey)
	req.Header.Set(auth.OrganizationHeader, orgID.String())

	rec, user := capture(t, mw, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, user)
	assert.Equal(t, auth.SystemUserID, user.UserID)
	assert.Equal(t, orgID, user.OrganizationID)
	assert.True(t, user.HasRole(domain.RoleAPIService))
}

func TestMiddleware_APIKeyRejections(t *testing.T) {
	mw := newMiddleware()

	tests := []struct {
		name string
		key  string
		org  string
	}{
		{"wrong key", "wrong", uuid.NewString()},
		{"missing organization", testAPIKey, ""},
		{"nil organization", testAPIKey, uuid.Nil.String()},
		{"malformed organization", testAPIKey, "acme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/deals", nil)
			req.Header.Set("x-api-key", tt.key)
			if tt.org != "" {
				req.Header.Set(auth.OrganizationHeader, tt.org)
			}
			rec, user := capture(t, mw, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, user)
		})
	}
}

func TestMiddleware_APIKeyDisabledWhenUnset(t *testing.T) {
	mw := auth.NewMiddleware(&config.Config{Auth: config.AuthConfig{JWTSecret: testSecret}}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/deals", nil)
	req.Header.Set("x-api-key", "anything")
	req.Header.Set(auth.OrganizationHeader, uuid.NewString())

	rec, _ := capture(t, mw, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_BearerToken(t *testing.T) {
	mw := newMiddleware()
	orgID := uuid.New()

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/deals", nil)
		req.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, testSecret, validClaims(orgID)))

		rec, user := capture(t, mw, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, user)
		assert.Equal(t, orgID, user.OrganizationID)
	})

	t.Run("lowercase scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/deals", nil)
		req.Header.Set("Authorization", "bearer "+sign(t, jwt.SigningMethodHS256, testSecret, validClaims(orgID)))

		rec, _ := capture(t, mw, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	for _, header := range []string{"", "Token abc", "Bearer", "Bearer not.a.jwt"} {
		t.Run("rejects "+header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/deals", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec, user := capture(t, mw, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, user)
		})
	}
}

func TestMiddleware_RequirePermission(t *testing.T) {
	mw := newMiddleware()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	serve := func(ctx context.Context, permission domain.PermissionType) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		mw.RequirePermission(permission)(ok).ServeHTTP(rec, req)
		return rec.Code
	}
	as := func(roles ...domain.UserRoleType) context.Context {
		return auth.WithUserContext(context.Background(), &auth.UserContext{
			UserID: uuid.New(), Roles: roles, OrganizationID: uuid.New(),
		})
	}

	assert.Equal(t, http.StatusForbidden, serve(context.Background(), domain.PermissionDealsRead))
	assert.Equal(t, http.StatusOK, serve(as(domain.RoleViewer), domain.PermissionDealsRead))
	assert.Equal(t, http.StatusForbidden, serve(as(domain.RoleViewer), domain.PermissionDealsWrite))
	assert.Equal(t, http.StatusForbidden, serve(as(domain.RoleSales), domain.PermissionFinancialsRead))
	assert.Equal(t, http.StatusOK, serve(as(domain.RoleLoanOfficer), domain.PermissionFinancialsRead))
	assert.Equal(t, http.StatusOK, serve(as(domain.RoleOrgAdmin), domain.PermissionPipelineConfigure))
	assert.Equal(t, http.StatusForbidden, serve(as(domain.RoleManager), domain.PermissionPipelineConfigure))
}

func TestMiddleware_RequireRole(t *testing.T) {
	mw := newMiddleware()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := mw.RequireRole(domain.RoleManager, domain.RoleOrgAdmin)(ok)

	ctx := auth.WithUserContext(context.Background(), &auth.UserContext{Roles: []domain.UserRoleType{domain.RoleManager}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	ctx = auth.WithUserContext(context.Background(), &auth.UserContext{Roles: []domain.UserRoleType{domain.RoleSales}})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSystemContext(t *testing.T) {
	orgID := uuid.New()
	ctx := auth.SystemContext(context.Background(), orgID)

	got, ok := auth.OrganizationFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, orgID, got)

	_, ok = auth.OrganizationFromContext(context.Background())
	assert.False(t, ok)

	user := auth.MustFromContext(ctx)
	assert.Equal(t, "System", user.ActorName())
	assert.Panics(t, func() { auth.MustFromContext(context.Background()) })
}
