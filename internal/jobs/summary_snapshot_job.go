package jobs

import (
	"context"
	"time"

	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/logger"
	"go.uber.org/zap"
)

// SummarySnapshotJobName is the name of the daily financial snapshot job
const SummarySnapshotJobName = "summary_snapshot"

// SnapshotWriter stores the acting organization's financial summary for a date
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, date time.Time) (*domain.FinancialSnapshot, error)
}

// SummarySnapshotJob archives each organization's commission summary once a day
type SummarySnapshotJob struct {
	writer SnapshotWriter
	orgs   OrganizationLister
	logger *zap.Logger
	now    func() time.Time
}

func NewSummarySnapshotJob(writer SnapshotWriter, orgs OrganizationLister, log *zap.Logger) *SummarySnapshotJob {
	return &SummarySnapshotJob{
		writer: writer,
		orgs:   orgs,
		logger: logger.WithJob(log, SummarySnapshotJobName),
		now:    time.Now,
	}
}

func (j *SummarySnapshotJob) Name() string {
	return SummarySnapshotJobName
}

// Run writes today's snapshot for every organization. Rewriting a date
// replaces the earlier snapshot.
func (j *SummarySnapshotJob) Run(ctx context.Context) error {
	start := time.Now()
	date := j.now().UTC()

	succeeded, failed, err := forEachOrganization(ctx, j.orgs, j.logger, func(ctx context.Context, _ *zap.Logger) error {
		_, err := j.writer.WriteSnapshot(ctx, date)
		return err
	})
	if err != nil {
		return err
	}

	j.logger.Info("financial snapshots written",
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("organizations_written", succeeded),
		zap.Int("organizations_failed", failed),
		zap.Duration("duration", time.Since(start)))
	return nil
}
