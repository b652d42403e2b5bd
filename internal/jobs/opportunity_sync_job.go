package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/straye-as/pipeline-api/internal/logger"
	"github.com/straye-as/pipeline-api/internal/service"
	"go.uber.org/zap"
)

// OpportunitySyncJobName is the name of the loan warehouse import job
const OpportunitySyncJobName = "opportunity_sync"

// OpportunitySyncer imports the acting organization's loan pipeline.
// This interface allows the job to be tested without a warehouse.
type OpportunitySyncer interface {
	Sync(ctx context.Context) (int64, error)
}

// OpportunitySyncJob refreshes every organization's opportunities from the loan warehouse
type OpportunitySyncJob struct {
	syncer OpportunitySyncer
	orgs   OrganizationLister
	logger *zap.Logger
}

func NewOpportunitySyncJob(syncer OpportunitySyncer, orgs OrganizationLister, log *zap.Logger) *OpportunitySyncJob {
	return &OpportunitySyncJob{
		syncer: syncer,
		orgs:   orgs,
		logger: logger.WithJob(log, OpportunitySyncJobName),
	}
}

func (j *OpportunitySyncJob) Name() string {
	return OpportunitySyncJobName
}

// Run imports each organization in turn. An unconfigured warehouse is not a
// failure; those organizations are counted as skipped.
func (j *OpportunitySyncJob) Run(ctx context.Context) error {
	start := time.Now()
	var rows int64
	skipped := 0

	succeeded, failed, err := forEachOrganization(ctx, j.orgs, j.logger, func(ctx context.Context, log *zap.Logger) error {
		n, err := j.syncer.Sync(ctx)
		if errors.Is(err, service.ErrUnavailable) {
			skipped++
			return nil
		}
		if err != nil {
			return err
		}
		rows += n
		log.Debug("opportunities synced", zap.Int64("rows", n))
		return nil
	})
	if err != nil {
		return err
	}
	if skipped > 0 && skipped == succeeded {
		j.logger.Info("loan warehouse not configured, opportunity sync skipped")
		return nil
	}

	j.logger.Info("opportunity sync completed",
		zap.Int("organizations_synced", succeeded-skipped),
		zap.Int("organizations_skipped", skipped),
		zap.Int("organizations_failed", failed),
		zap.Int64("rows_written", rows),
		zap.Duration("duration", time.Since(start)))
	return nil
}
