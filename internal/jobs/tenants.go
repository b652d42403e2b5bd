package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/auth"
	"github.com/straye-as/pipeline-api/internal/logger"
	"go.uber.org/zap"
)

// OrganizationLister lists the tenants a job iterates
type OrganizationLister interface {
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ErrPartialRun is returned when some organizations failed and others succeeded
var ErrPartialRun = errors.New("job failed for some organizations")

// forEachOrganization calls fn once per organization with a system context
// scoped to that organization. One organization failing does not stop the
// others. The run fails only when every organization failed, or when it was
// cut short by the context.
func forEachOrganization(ctx context.Context, orgs OrganizationLister, log *zap.Logger, fn func(ctx context.Context, log *zap.Logger) error) (succeeded, failed int, err error) {
	ids, err := orgs.ListIDs(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list organizations: %w", err)
	}

	for _, orgID := range ids {
		if err := ctx.Err(); err != nil {
			return succeeded, failed, err
		}

		orgLog := logger.WithOrganization(log, orgID)
		if err := fn(auth.SystemContext(ctx, orgID), orgLog); err != nil {
			orgLog.Warn("job failed for organization", zap.Error(err))
			failed++
			continue
		}
		succeeded++
	}

	if failed > 0 && succeeded == 0 {
		return succeeded, failed, fmt.Errorf("%w: %d of %d failed", ErrPartialRun, failed, len(ids))
	}
	return succeeded, failed, nil
}
