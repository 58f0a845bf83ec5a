package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/aegis-auth/aegis/testing"
)

type fakeLedger struct {
	purged   int64
	gotNow   time.Time
	err      error
	runCount int
}

func (f *fakeLedger) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	f.runCount++
	f.gotNow = now
	return f.purged, f.err
}

func purgeTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := NewBlacklistPurgeTask(BlacklistPurgePayload{})
	require.NoError(t, err)
	return task
}

func TestBlacklistPurgeHandle(t *testing.T) {
	ledger := &fakeLedger{purged: 7}
	job := NewBlacklistPurgeJob(ledger, nil, nil)
	fixed := time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)
	job.clock = func() time.Time { return fixed }

	err := job.Handle(context.Background(), purgeTask(t))
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.runCount)
	assert.Equal(t, fixed, ledger.gotNow)
}

func TestBlacklistPurgePropagatesError(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("db down")}
	job := NewBlacklistPurgeJob(ledger, nil, nil)

	err := job.Handle(context.Background(), purgeTask(t))
	assert.EqualError(t, err, "db down")
}

func TestBlacklistPurgeRejectsBadPayload(t *testing.T) {
	job := NewBlacklistPurgeJob(&fakeLedger{}, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskBlacklistPurge, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestBlacklistPurgeNotConfigured(t *testing.T) {
	var job *BlacklistPurgeJob
	assert.Error(t, job.Handle(context.Background(), purgeTask(t)))
}
