package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/aegis-auth/aegis/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Purger is the slice of the revocation ledger the job needs.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// BlacklistPurgeJob deletes token blacklist rows whose expiry has passed.
// Delay only costs storage: revocation lookups ignore expiry, so an entry
// that outlives its token stays effective until this job removes it.
type BlacklistPurgeJob struct {
	Ledger  Purger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewBlacklistPurgeJob wires dependencies for the purge handler.
func NewBlacklistPurgeJob(ledger Purger, logger *slog.Logger, metrics *jobmetrics.Metrics) *BlacklistPurgeJob {
	return &BlacklistPurgeJob{
		Ledger:  ledger,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes blacklist purge tasks.
func (j *BlacklistPurgeJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ledger == nil {
		return errors.New("blacklist purge: handler not configured")
	}
	if len(t.Payload()) > 0 {
		var payload BlacklistPurgePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskBlacklistPurge)
	logger := j.logger()

	count, err := j.Ledger.PurgeExpired(ctx, j.now())
	if err != nil {
		logger.Error("purge blacklist", slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics().AddPurged(count)
	logger.Info("blacklist purge complete", slog.Int64("purged", count))
	return tracker.End(nil)
}

func (j *BlacklistPurgeJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *BlacklistPurgeJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *BlacklistPurgeJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
