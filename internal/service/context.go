package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/auth"
)

// organizationFromContext returns the tenant of the request or ErrUnauthorized
func organizationFromContext(ctx context.Context) (uuid.UUID, error) {
	orgID, ok := auth.OrganizationFromContext(ctx)
	if !ok {
		return uuid.Nil, ErrUnauthorized
	}
	return orgID, nil
}

// actorFromContext returns the id and display name recorded on history rows and events
func actorFromContext(ctx context.Context) (id, name string) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return auth.SystemUserID.String(), "System"
	}
	return userCtx.UserID.String(), userCtx.ActorName()
}
