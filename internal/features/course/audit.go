package course

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/pkg/metrics"
)

// OrphanAuditJob reports enrollments left behind by deleted users. It only
// counts; nothing is removed.
type OrphanAuditJob struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewOrphanAuditJob creates the audit job.
func NewOrphanAuditJob(db *gorm.DB, logger *slog.Logger) *OrphanAuditJob {
	return &OrphanAuditJob{db: db, logger: logger}
}

// Name identifies the job in the scheduler.
func (j *OrphanAuditJob) Name() string { return "orphan-enrollment-audit" }

// Execute counts orphaned enrollments and publishes the gauge.
func (j *OrphanAuditJob) Execute(ctx context.Context) error {
	count, err := CountOrphanedEnrollments(j.db.WithContext(ctx))
	if err != nil {
		return err
	}

	metrics.SetOrphanedEnrollments(count)

	if count > 0 {
		j.logger.Warn("orphaned enrollments found", slog.Int64("count", count))
	} else {
		j.logger.Debug("no orphaned enrollments")
	}
	return nil
}
